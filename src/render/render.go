package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"cybersjakk/src/base"
	"cybersjakk/src/input"

	"github.com/fogleman/gg"
)

type Theme struct {
	Light     color.Color
	Dark      color.Color
	Selection color.Color
	LastMove  color.Color
	Marker    color.Color
	Arrow     color.Color
}

func DefaultTheme() Theme {
	return Theme{
		Light:     color.RGBA{0xd1, 0xd1, 0xd1, 0xff},
		Dark:      color.RGBA{0x5c, 0x5c, 0x5c, 0xff},
		Selection: color.NRGBA{0x00, 0xe5, 0xff, 0x70},
		LastMove:  color.NRGBA{0xff, 0xe4, 0x78, 0x8c},
		Marker:    color.NRGBA{0x10, 0x10, 0x10, 0x60},
		Arrow:     color.NRGBA{0x00, 0xc8, 0x78, 0xb4},
	}
}

// ParseHexColor reads "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Scene is everything a full redraw needs.
type Scene struct {
	Board    base.Board
	Selected base.Square // NoSquare when nothing is selected
	LastMove *base.Move
	Markers  []base.Move
	Drag     *input.DragSession
	Arrow    *base.Move
}

func NewScene(b base.Board) Scene {
	return Scene{Board: b, Selected: base.NoSquare}
}

// Renderer paints the board into an RGBA surface the size of the board.
// Pointer positions in drag sessions are screen coordinates and are
// translated by the geometry origin.
type Renderer struct {
	geom   input.Geometry
	theme  Theme
	assets *Assets
	img    *image.RGBA
	dc     *gg.Context
}

func NewRenderer(geom input.Geometry, theme Theme, assets *Assets) *Renderer {
	if assets == nil {
		assets = DefaultAssets()
	}
	r := &Renderer{theme: theme, assets: assets}
	r.SetGeometry(geom)
	return r
}

// SetGeometry reallocates the surface when the square size changes.
func (r *Renderer) SetGeometry(g input.Geometry) {
	resize := r.img == nil || r.geom.SquareSize != g.SquareSize
	r.geom = g
	if resize {
		size := g.Size()
		if size <= 0 {
			size = 1
		}
		r.img = image.NewRGBA(image.Rect(0, 0, size, size))
		r.dc = gg.NewContextForRGBA(r.img)
	}
}

func (r *Renderer) Geometry() input.Geometry {
	return r.geom
}

func (r *Renderer) Image() *image.RGBA {
	return r.img
}

func (r *Renderer) Assets() *Assets {
	return r.assets
}

// local pixel rectangle of sq on the surface
func (r *Renderer) rect(sq base.Square) image.Rectangle {
	return r.geom.Rect(sq).Sub(r.geom.Origin)
}

func (r *Renderer) fillSquare(sq base.Square, c color.Color) {
	rc := r.rect(sq)
	r.dc.SetColor(c)
	r.dc.DrawRectangle(float64(rc.Min.X), float64(rc.Min.Y), float64(rc.Dx()), float64(rc.Dy()))
	r.dc.Fill()
}

// DrawBoard paints the 64 squares.
func (r *Renderer) DrawBoard() {
	for sq := base.Square(0); sq < 64; sq++ {
		if sq.IsLight() {
			r.fillSquare(sq, r.theme.Light)
		} else {
			r.fillSquare(sq, r.theme.Dark)
		}
	}
}

// DrawHighlight tints one square.
func (r *Renderer) DrawHighlight(sq base.Square, c color.Color) {
	if !sq.Valid() || c == nil {
		return
	}
	r.fillSquare(sq, c)
}

// DrawPieces draws every occupied square except exclude, which is the
// origin of a running drag.
func (r *Renderer) DrawPieces(b base.Board, exclude base.Square) error {
	for sq := base.Square(0); sq < 64; sq++ {
		p := b.At(sq)
		if p.IsEmpty() || sq == exclude {
			continue
		}
		if err := r.drawPiece(p, r.rect(sq).Min); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawPiece(p base.Piece, at image.Point) error {
	img, err := r.assets.Piece(p, r.geom.SquareSize)
	if err != nil {
		return err
	}
	r.dc.DrawImage(img, at.X, at.Y)
	return nil
}

// DrawLegalMoveMarkers puts a disc on every empty destination and a ring on
// every capture.
func (r *Renderer) DrawLegalMoveMarkers(b base.Board, moves []base.Move) {
	size := float64(r.geom.SquareSize)
	r.dc.SetColor(r.theme.Marker)
	for _, mv := range moves {
		if !mv.To.Valid() {
			continue
		}
		rc := r.rect(mv.To)
		cx := float64(rc.Min.X) + size/2
		cy := float64(rc.Min.Y) + size/2
		if b.At(mv.To).IsEmpty() {
			r.dc.DrawCircle(cx, cy, size/6)
			r.dc.Fill()
			continue
		}
		r.dc.SetLineWidth(size / 12)
		r.dc.DrawCircle(cx, cy, size/2-size/24)
		r.dc.Stroke()
	}
}

// DrawDragged draws the grabbed piece under the pointer.
func (r *Renderer) DrawDragged(s *input.DragSession) error {
	if s == nil || s.Piece.IsEmpty() {
		return nil
	}
	return r.drawPiece(s.Piece, s.PieceOrigin().Sub(r.geom.Origin))
}

// DrawArrow draws a filled arrow from the centre of one square to the
// centre of another.
func (r *Renderer) DrawArrow(from, to base.Square, c color.Color) {
	if !from.Valid() || !to.Valid() || from == to {
		return
	}
	if c == nil {
		c = r.theme.Arrow
	}
	size := float64(r.geom.SquareSize)
	fr, tr := r.rect(from), r.rect(to)
	sx, sy := float64(fr.Min.X)+size/2, float64(fr.Min.Y)+size/2
	ex, ey := float64(tr.Min.X)+size/2, float64(tr.Min.Y)+size/2

	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - size*0.45
	if baseLength < size*0.35 {
		baseLength = length * 0.6
	}
	half := size * 0.09
	head := size * 0.22
	bx, by := sx+dirX*baseLength, sy+dirY*baseLength

	r.dc.SetColor(c)
	r.dc.MoveTo(sx-perpX*half, sy-perpY*half)
	r.dc.LineTo(sx+perpX*half, sy+perpY*half)
	r.dc.LineTo(bx+perpX*half, by+perpY*half)
	r.dc.LineTo(bx+perpX*head, by+perpY*head)
	r.dc.LineTo(ex, ey)
	r.dc.LineTo(bx-perpX*head, by-perpY*head)
	r.dc.LineTo(bx-perpX*half, by-perpY*half)
	r.dc.ClosePath()
	r.dc.Fill()
}

// Redraw paints a full frame: squares, highlights, pieces, markers,
// arrow and the dragged piece on top.
func (r *Renderer) Redraw(s Scene) error {
	r.DrawBoard()
	if s.LastMove != nil {
		r.DrawHighlight(s.LastMove.From, r.theme.LastMove)
		r.DrawHighlight(s.LastMove.To, r.theme.LastMove)
	}
	exclude := base.NoSquare
	if s.Drag != nil {
		exclude = s.Drag.Origin
		r.DrawHighlight(s.Drag.Origin, r.theme.Selection)
	} else if s.Selected.Valid() {
		r.DrawHighlight(s.Selected, r.theme.Selection)
	}
	if err := r.DrawPieces(s.Board, exclude); err != nil {
		return err
	}
	r.DrawLegalMoveMarkers(s.Board, s.Markers)
	if s.Arrow != nil {
		r.DrawArrow(s.Arrow.From, s.Arrow.To, r.theme.Arrow)
	}
	return r.DrawDragged(s.Drag)
}

// EncodePNG writes the current surface.
func (r *Renderer) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
