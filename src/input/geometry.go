package input

import (
	"image"

	"cybersjakk/src/base"
)

// Geometry maps screen pixels to board squares. Unflipped, the top-left
// cell is a8; flipped, it is h1.
type Geometry struct {
	Origin     image.Point // top-left pixel of the board
	SquareSize int
	Flipped    bool
}

func NewGeometry(x, y, squareSize int, flipped bool) Geometry {
	return Geometry{Origin: image.Pt(x, y), SquareSize: squareSize, Flipped: flipped}
}

// Size is the board edge in pixels.
func (g Geometry) Size() int {
	return g.SquareSize * 8
}

func (g Geometry) Bounds() image.Rectangle {
	return image.Rectangle{Min: g.Origin, Max: g.Origin.Add(image.Pt(g.Size(), g.Size()))}
}

func (g Geometry) Contains(p image.Point) bool {
	return g.SquareSize > 0 && p.In(g.Bounds())
}

// SquareAt returns the square under p, or false when p is off the board.
func (g Geometry) SquareAt(p image.Point) (base.Square, bool) {
	if !g.Contains(p) {
		return base.NoSquare, false
	}
	col := (p.X - g.Origin.X) / g.SquareSize
	row := (p.Y - g.Origin.Y) / g.SquareSize
	return g.squareAtCell(col, row), true
}

func (g Geometry) squareAtCell(col, row int) base.Square {
	if g.Flipped {
		return base.NewSquare(7-col, row)
	}
	return base.NewSquare(col, 7-row)
}

// Cell returns the screen column and row of sq.
func (g Geometry) Cell(sq base.Square) (col, row int) {
	if g.Flipped {
		return 7 - sq.File(), sq.Rank()
	}
	return sq.File(), 7 - sq.Rank()
}

// Rect is the pixel rectangle covered by sq.
func (g Geometry) Rect(sq base.Square) image.Rectangle {
	if !sq.Valid() {
		return image.Rectangle{}
	}
	col, row := g.Cell(sq)
	tl := g.Origin.Add(image.Pt(col*g.SquareSize, row*g.SquareSize))
	return image.Rectangle{Min: tl, Max: tl.Add(image.Pt(g.SquareSize, g.SquareSize))}
}

// Center of sq in pixels.
func (g Geometry) Center(sq base.Square) image.Point {
	r := g.Rect(sq)
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}
