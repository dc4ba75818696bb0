package cli

import (
	"fmt"
	"io"

	"cybersjakk/src/base"
)

// ANSI-code
const (
	reset   = "\033[0m"
	lightBg = "\033[47m"
	darkBg  = "\033[100m"
	markBg  = "\033[43m"
	whiteF  = "\033[97m"
	blackF  = "\033[30m"
	dimF    = "\033[90m"
)

var glyphs = map[base.Kind][2]string{
	base.King:   {"♔", "♚"},
	base.Queen:  {"♕", "♛"},
	base.Rook:   {"♖", "♜"},
	base.Bishop: {"♗", "♝"},
	base.Knight: {"♘", "♞"},
	base.Pawn:   {"♙", "♟"},
}

func pieceGlyph(p base.Piece) string {
	if p.IsEmpty() {
		return " "
	}
	g, ok := glyphs[p.Kind]
	if !ok {
		return "?"
	}
	if p.Side == base.White {
		return g[0]
	}
	return g[1]
}

// View is what one board print needs.
type View struct {
	Board    base.Board
	Flipped  bool
	Selected base.Square
	LastMove *base.Move
}

func (v View) marked(sq base.Square) bool {
	if sq == v.Selected {
		return true
	}
	return v.LastMove != nil && (v.LastMove.From == sq || v.LastMove.To == sq)
}

// PrintBoard draws the board with the player's side at the bottom.
func PrintBoard(w io.Writer, v View) {
	files := "   a  b  c  d  e  f  g  h"
	if v.Flipped {
		files = "   h  g  f  e  d  c  b  a"
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, files)
	for row := 0; row < 8; row++ {
		rank := 7 - row
		if v.Flipped {
			rank = row
		}
		fmt.Fprintf(w, "%d ", rank+1)
		for col := 0; col < 8; col++ {
			file := col
			if v.Flipped {
				file = 7 - col
			}
			sq := base.NewSquare(file, rank)
			p := v.Board.At(sq)
			g := pieceGlyph(p)

			bg := darkBg
			if sq.IsLight() {
				bg = lightBg
			}
			if v.marked(sq) {
				bg = markBg
			}
			fg := dimF
			switch {
			case p.IsEmpty():
			case p.Side == base.White && bg == darkBg:
				fg = whiteF
			default:
				fg = blackF
			}
			fmt.Fprintf(w, "%s%s %s %s", bg, fg, g, reset)
		}
		fmt.Fprintf(w, " %d\n", rank+1)
	}
	fmt.Fprintln(w, files)
	fmt.Fprintln(w)
}
