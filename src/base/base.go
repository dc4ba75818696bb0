package base

import (
	"errors"
	"fmt"
	"strings"
)

// Forsyth–Edwards Notation
const FEN_START_GAME string = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidSquare = errors.New("invalid square")

// ---- Side ----

type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// ---- Kind ----

type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var Kinds = []Kind{Pawn, Knight, Bishop, Rook, Queen, King}

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// lowercase letter as used by UCI promotions and FEN (black)
func (k Kind) Rune() rune {
	switch k {
	case Pawn:
		return 'p'
	case Knight:
		return 'n'
	case Bishop:
		return 'b'
	case Rook:
		return 'r'
	case Queen:
		return 'q'
	case King:
		return 'k'
	default:
		return 0
	}
}

func KindFromRune(r rune) Kind {
	switch r {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	default:
		return NoKind
	}
}

// ---- Piece ----

// Piece is a (side, kind) pair; the zero value is NoPiece.
type Piece struct {
	Side Side
	Kind Kind
}

var NoPiece = Piece{}

func NewPiece(s Side, k Kind) Piece {
	return Piece{Side: s, Kind: k}
}

func (p Piece) IsEmpty() bool {
	return p.Kind == NoKind
}

// FEN letter: uppercase for white, lowercase for black, '.' for empty.
func (p Piece) Rune() rune {
	if p.IsEmpty() {
		return '.'
	}
	r := p.Kind.Rune()
	if p.Side == White {
		return r - 'a' + 'A'
	}
	return r
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Side.String() + " " + p.Kind.String()
}

func ConvertPieceFromRune(r rune) Piece {
	k := KindFromRune(r)
	if k == NoKind {
		return NoPiece
	}
	if r >= 'A' && r <= 'Z' {
		return NewPiece(White, k)
	}
	return NewPiece(Black, k)
}

// ---- Square ----

// Square index 0..63, a1 = 0, h8 = 63.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func (s Square) Valid() bool {
	return s >= 0 && s < 64
}

// File 0..7 (a..h)
func (s Square) File() int {
	return int(s) % 8
}

// Rank 0..7 (1..8)
func (s Square) Rank() int {
	return int(s) / 8
}

// IsLight reports the colour of the square on a real board (a1 is dark).
func (s Square) IsLight() bool {
	return (s.File()+s.Rank())%2 == 1
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

func ParseSquare(pos string) (Square, error) {
	pos = strings.ToLower(strings.TrimSpace(pos))
	if len(pos) != 2 || pos[0] < 'a' || pos[0] > 'h' || pos[1] < '1' || pos[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, pos)
	}
	return NewSquare(int(pos[0]-'a'), int(pos[1]-'1')), nil
}

// ---- Move ----

type Move struct {
	From      Square
	To        Square
	Promotion Kind   // NoKind when the move is not a promotion
	SAN       string // filled by the rules adapter once the move is applied
}

func NewMove(from, to Square) Move {
	return Move{From: from, To: to}
}

// e2e4, e7e8q
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoKind {
		s += string(m.Promotion.Rune())
	}
	return s
}

func (m Move) String() string {
	if m.SAN != "" {
		return m.SAN
	}
	return m.UCI()
}

// Same compares the coordinates and promotion, ignoring notation.
func (m Move) Same(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

func ParseUCIMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid uci move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	mv := NewMove(from, to)
	if len(s) == 5 {
		mv.Promotion = KindFromRune(rune(s[4]))
		if mv.Promotion == NoKind || mv.Promotion == Pawn || mv.Promotion == King {
			return Move{}, fmt.Errorf("invalid promotion in %q", s)
		}
	}
	return mv, nil
}

// ---- Board ----

// Board is a read-only snapshot indexed by Square.
type Board [64]Piece

func (b *Board) At(sq Square) Piece {
	if b == nil || !sq.Valid() {
		return NoPiece
	}
	return b[sq]
}

func (b *Board) Set(sq Square, p Piece) {
	if b == nil || !sq.Valid() {
		return
	}
	b[sq] = p
}

// Placement returns the piece placement field of a FEN.
func (b *Board) Placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.At(NewSquare(file, rank))
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteRune(p.Rune())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
