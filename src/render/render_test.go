package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"cybersjakk/src/base"
	"cybersjakk/src/input"
	"cybersjakk/src/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 45

func newRenderer(flipped bool) *Renderer {
	return NewRenderer(input.NewGeometry(100, 50, size, flipped), DefaultTheme(), nil)
}

func pixel(r *Renderer, sq base.Square, dx, dy int) color.RGBA {
	rc := r.rect(sq)
	return r.Image().RGBAAt(rc.Min.X+dx, rc.Min.Y+dy)
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func mustSquare(t *testing.T, s string) base.Square {
	t.Helper()
	sq, err := base.ParseSquare(s)
	require.NoError(t, err)
	return sq
}

func TestDrawBoardColours(t *testing.T) {
	theme := DefaultTheme()
	for _, flipped := range []bool{false, true} {
		r := newRenderer(flipped)
		r.DrawBoard()
		assert.Equal(t, image.Rect(0, 0, 8*size, 8*size), r.Image().Bounds())

		for sq := base.Square(0); sq < 64; sq++ {
			want := rgba(theme.Dark)
			if sq.IsLight() {
				want = rgba(theme.Light)
			}
			assert.Equal(t, want, pixel(r, sq, size/2, size/2), "square %s flipped=%v", sq, flipped)
		}
	}

	// a8 is the top-left cell of an unflipped board and is light
	r := newRenderer(false)
	r.DrawBoard()
	assert.Equal(t, rgba(theme.Light), r.Image().RGBAAt(1, 1))
}

func TestDrawPiecesExcludes(t *testing.T) {
	theme := DefaultTheme()
	a := rules.NewChessAdapter()
	r := newRenderer(false)
	r.DrawBoard()

	e2, d2, e4 := mustSquare(t, "e2"), mustSquare(t, "d2"), mustSquare(t, "e4")
	require.NoError(t, r.DrawPieces(a.Board(), e2))

	bg := func(sq base.Square) color.RGBA {
		if sq.IsLight() {
			return rgba(theme.Light)
		}
		return rgba(theme.Dark)
	}
	assert.NotEqual(t, bg(d2), pixel(r, d2, 22, 28), "d2 pawn drawn")
	assert.Equal(t, bg(e2), pixel(r, e2, 22, 28), "dragged origin left empty")
	assert.Equal(t, bg(e4), pixel(r, e4, 22, 28), "empty square untouched")
}

func TestLegalMoveMarkers(t *testing.T) {
	theme := DefaultTheme()
	a := rules.NewChessAdapter()
	r := newRenderer(false)
	r.DrawBoard()

	e3, e4 := mustSquare(t, "e3"), mustSquare(t, "e4")
	r.DrawLegalMoveMarkers(a.Board(), a.LegalMovesFrom(mustSquare(t, "e2")))

	assert.NotEqual(t, rgba(theme.Dark), pixel(r, e3, size/2, size/2))
	assert.NotEqual(t, rgba(theme.Light), pixel(r, e4, size/2, size/2))
	assert.Equal(t, rgba(theme.Dark), pixel(r, e3, 2, 2), "disc stays inside the square")
}

func TestDrawArrow(t *testing.T) {
	theme := DefaultTheme()
	r := newRenderer(false)
	r.DrawBoard()

	e3 := mustSquare(t, "e3")
	r.DrawArrow(mustSquare(t, "e2"), mustSquare(t, "e4"), nil)
	assert.NotEqual(t, rgba(theme.Dark), pixel(r, e3, size/2, size/2))
	assert.Equal(t, rgba(theme.Dark), pixel(r, e3, 2, 2))

	// degenerate arrows draw nothing
	before := append([]uint8(nil), r.Image().Pix...)
	r.DrawArrow(e3, e3, nil)
	r.DrawArrow(base.NoSquare, e3, nil)
	assert.Equal(t, before, r.Image().Pix)
}

func TestRedrawDragSession(t *testing.T) {
	theme := DefaultTheme()
	a := rules.NewChessAdapter()
	r := newRenderer(false)
	g := r.Geometry()

	g1, h3 := mustSquare(t, "g1"), mustSquare(t, "h3")
	target := g.Rect(h3).Min
	s := &input.DragSession{
		Origin:  g1,
		Piece:   a.PieceAt(g1),
		Legal:   a.LegalMovesFrom(g1),
		Pointer: target.Add(image.Pt(10, 10)),
		Offset:  image.Pt(10, 10),
	}

	scene := NewScene(a.Board())
	scene.Drag = s
	scene.Markers = s.Legal
	require.NoError(t, r.Redraw(scene))

	assert.Equal(t, rgba(theme.Light), pixel(r, h3, 2, 2), "h3 corner is background")
	assert.NotEqual(t, rgba(theme.Light), pixel(r, h3, 22, 30), "knight drawn under the pointer")
}

func TestEncodePNG(t *testing.T) {
	r := newRenderer(false)
	require.NoError(t, r.Redraw(NewScene(rules.NewChessAdapter().Board())))

	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8*size, img.Bounds().Dx())
}

func TestSetGeometryResizes(t *testing.T) {
	r := newRenderer(false)
	r.SetGeometry(input.NewGeometry(0, 0, 10, true))
	assert.Equal(t, 80, r.Image().Bounds().Dx())
	assert.True(t, r.Geometry().Flipped)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#d1d1d1")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xd1, 0xd1, 0xd1, 0xff}, c)

	c, err = ParseHexColor("0f08")
	assert.Error(t, err)

	c, err = ParseHexColor("#fff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, c)

	c, err = ParseHexColor("00ff0080")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), c.A)

	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}
