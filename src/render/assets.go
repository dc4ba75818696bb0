package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"text/template"

	"cybersjakk/src/base"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

var ErrNoAsset = errors.New("no asset for piece")

// PieceStyle colours one side's pieces. Values are SVG colours.
type PieceStyle struct {
	Fill   string
	Stroke string
}

var (
	DefaultWhiteStyle = PieceStyle{Fill: "#f4f4f4", Stroke: "#1b1b1b"}
	DefaultBlackStyle = PieceStyle{Fill: "#161616", Stroke: "#e0e0e0"}
)

// piece outlines on a 45x45 grid, filled and stroked by the side's style
var pieceBodies = map[base.Kind]string{
	base.Pawn: `<circle cx="22.5" cy="13" r="5.5"/>
<path d="M 17 33 L 28 33 L 26 22 C 24 20 21 20 19 22 Z"/>
<rect x="11" y="33" width="23" height="6"/>`,
	base.Knight: `<path d="M 14 38 L 33 38 L 32 24 C 31 14 25 9 20 9 L 19 12 L 15 15 L 10 23 L 12 26 L 17 23 L 21 22 C 17 28 14 32 14 38 Z"/>
<circle cx="21" cy="15" r="1.5" fill="{{.Stroke}}"/>`,
	base.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>
<path d="M 22.5 11 C 15 16 14 24 17 29 L 28 29 C 31 24 30 16 22.5 11 Z"/>
<path d="M 20 21 L 25 21 M 22.5 18.5 L 22.5 23.5" fill="none" stroke="{{.Stroke}}"/>
<rect x="12" y="31" width="21" height="7"/>`,
	base.Rook: `<path d="M 11 9 L 15 9 L 15 12 L 20 12 L 20 9 L 25 9 L 25 12 L 30 12 L 30 9 L 34 9 L 34 16 L 31 18 L 31 30 L 14 30 L 14 18 L 11 16 Z"/>
<rect x="10" y="31" width="25" height="7"/>`,
	base.Queen: `<circle cx="9" cy="13" r="2"/>
<circle cx="18.5" cy="9" r="2"/>
<circle cx="26.5" cy="9" r="2"/>
<circle cx="36" cy="13" r="2"/>
<path d="M 9 15 L 14 31 L 31 31 L 36 15 L 29 25 L 26.5 11 L 22.5 24 L 18.5 11 L 16 25 Z"/>
<rect x="12" y="32" width="21" height="6"/>`,
	base.King: `<path d="M 21 4 L 24 4 L 24 7 L 27 7 L 27 10 L 24 10 L 24 14 L 21 14 L 21 10 L 18 10 L 18 7 L 21 7 Z"/>
<path d="M 12 30 C 8 22 14 15 22.5 19 C 31 15 37 22 33 30 Z"/>
<rect x="11" y="31" width="23" height="7"/>`,
}

const svgFrame = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">
<g fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="1.5" stroke-linejoin="round">
{{template "body" .}}
</g>
</svg>`

var pieceTemplates = func() map[base.Kind]*template.Template {
	out := make(map[base.Kind]*template.Template, len(pieceBodies))
	for k, body := range pieceBodies {
		t := template.Must(template.New(k.String()).Parse(svgFrame))
		template.Must(t.New("body").Parse(body))
		out[k] = t
	}
	return out
}()

type assetKey struct {
	piece base.Piece
	size  int
}

// Assets rasterizes piece SVGs once per (piece, size).
type Assets struct {
	styles map[base.Side]PieceStyle

	mu    sync.RWMutex
	cache map[assetKey]*image.RGBA
}

func NewAssets(white, black PieceStyle) *Assets {
	return &Assets{
		styles: map[base.Side]PieceStyle{base.White: white, base.Black: black},
		cache:  map[assetKey]*image.RGBA{},
	}
}

func DefaultAssets() *Assets {
	return NewAssets(DefaultWhiteStyle, DefaultBlackStyle)
}

// SVG returns the source document for p.
func (a *Assets) SVG(p base.Piece) ([]byte, error) {
	tpl, ok := pieceTemplates[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAsset, p)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, p.Kind.String(), a.styles[p.Side]); err != nil {
		return nil, fmt.Errorf("render %s svg: %w", p, err)
	}
	return buf.Bytes(), nil
}

// Piece returns a size x size image of p with a transparent background.
func (a *Assets) Piece(p base.Piece, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid piece size %d", size)
	}
	key := assetKey{piece: p, size: size}

	a.mu.RLock()
	if img, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return img, nil
	}
	a.mu.RUnlock()

	data, err := a.SVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s svg: %w", p, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	a.mu.Lock()
	a.cache[key] = img
	a.mu.Unlock()
	return img, nil
}

// Cached reports how many rasterized images are held.
func (a *Assets) Cached() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}
