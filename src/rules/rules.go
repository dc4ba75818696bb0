package rules

import (
	"errors"
	"fmt"
	"strings"

	"cybersjakk/src/base"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid FEN")
)

// Outcome of a finished game. Result is "*" while the game is running.
type Outcome struct {
	Result string
	Method string
	Winner base.Side
	Draw   bool
}

func (o Outcome) Over() bool {
	return o.Result != "" && o.Result != string(nchess.NoOutcome)
}

func (o Outcome) String() string {
	if !o.Over() {
		return "in progress"
	}
	if o.Draw {
		return fmt.Sprintf("draw by %s (%s)", o.Method, o.Result)
	}
	return fmt.Sprintf("%s wins by %s (%s)", o.Winner, o.Method, o.Result)
}

// Adapter is the only owner of the game state. Everything else reads
// snapshots and submits moves through it.
type Adapter interface {
	Board() base.Board
	PieceAt(sq base.Square) base.Piece
	LegalMoves() []base.Move
	LegalMovesFrom(sq base.Square) []base.Move
	Apply(m base.Move) (base.Move, error)
	ApplyNotation(s string) (base.Move, error)
	IsGameOver() bool
	Outcome() Outcome
	Turn() base.Side
	FEN() string
	History() []base.Move
	Reset()
}

type ChessAdapter struct {
	startFEN string
	game     *nchess.Game
}

func NewChessAdapter() *ChessAdapter {
	a, _ := NewChessAdapterFromFEN(base.FEN_START_GAME)
	return a
}

func NewChessAdapterFromFEN(fen string) (*ChessAdapter, error) {
	a := &ChessAdapter{startFEN: strings.TrimSpace(fen)}
	g, err := newGame(a.startFEN)
	if err != nil {
		return nil, err
	}
	a.game = g
	return a, nil
}

func newGame(fen string) (*nchess.Game, error) {
	if fen == "" || fen == base.FEN_START_GAME {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

func (a *ChessAdapter) Reset() {
	g, err := newGame(a.startFEN)
	if err != nil {
		g = nchess.NewGame()
	}
	a.game = g
}

func (a *ChessAdapter) Board() base.Board {
	var b base.Board
	for sq, p := range a.game.Position().Board().SquareMap() {
		b.Set(fromSquare(sq), fromPiece(p))
	}
	return b
}

func (a *ChessAdapter) PieceAt(sq base.Square) base.Piece {
	if !sq.Valid() {
		return base.NoPiece
	}
	return fromPiece(a.game.Position().Board().Piece(toSquare(sq)))
}

func (a *ChessAdapter) LegalMoves() []base.Move {
	return a.legal(base.NoSquare)
}

func (a *ChessAdapter) LegalMovesFrom(sq base.Square) []base.Move {
	if !sq.Valid() {
		return nil
	}
	return a.legal(sq)
}

func (a *ChessAdapter) legal(from base.Square) []base.Move {
	if a.IsGameOver() {
		return nil
	}
	pos := a.game.Position()
	valid := a.game.ValidMoves()
	out := make([]base.Move, 0, len(valid))
	for i := range valid {
		mv := valid[i]
		if from.Valid() && fromSquare(mv.S1()) != from {
			continue
		}
		out = append(out, fromMove(pos, &mv))
	}
	return out
}

// Apply validates m against the current position and plays it. A pawn
// reaching the last rank without an explicit promotion becomes a queen.
func (a *ChessAdapter) Apply(m base.Move) (base.Move, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return base.Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}
	if a.IsGameOver() {
		return base.Move{}, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}

	pos := a.game.Position()
	valid := a.game.ValidMoves()
	chosen := -1
	for i := range valid {
		mv := valid[i]
		if fromSquare(mv.S1()) != m.From || fromSquare(mv.S2()) != m.To {
			continue
		}
		promo := fromKind(mv.Promo())
		if promo == m.Promotion {
			chosen = i
			break
		}
		if m.Promotion == base.NoKind && promo == base.Queen {
			chosen = i
		}
	}
	if chosen < 0 {
		return base.Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}

	mv := valid[chosen]
	applied := fromMove(pos, &mv)
	if err := a.game.Move(&mv, nil); err != nil {
		return base.Move{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, m.UCI(), err)
	}
	a.claimDraws()
	return applied, nil
}

// ApplyNotation plays a move written in SAN ("Nf3", "O-O", "exd8=Q+") or
// UCI ("g1f3"). Move numbers and annotation marks are tolerated.
func (a *ChessAdapter) ApplyNotation(s string) (base.Move, error) {
	text := CleanNotation(s)
	if text == "" {
		return base.Move{}, fmt.Errorf("%w: empty notation", ErrIllegalMove)
	}
	// coordinates first: the SAN decoder also reads "g1f3", as the pawn move f3
	if mv, err := base.ParseUCIMove(text); err == nil {
		return a.Apply(mv)
	}
	if mv, err := (nchess.AlgebraicNotation{}).Decode(a.game.Position(), text); err == nil && mv != nil {
		return a.Apply(base.Move{
			From:      fromSquare(mv.S1()),
			To:        fromSquare(mv.S2()),
			Promotion: fromKind(mv.Promo()),
		})
	}
	return base.Move{}, fmt.Errorf("%w: cannot read %q", ErrIllegalMove, s)
}

// CleanNotation strips move numbers ("12.", "3..."), annotation glyphs and
// zero-castling so the notation decoders get plain SAN or UCI.
func CleanNotation(s string) string {
	text := strings.TrimSpace(s)
	if i := strings.LastIndex(text, "."); i >= 0 {
		text = strings.TrimSpace(text[i+1:])
	}
	if fields := strings.Fields(text); len(fields) > 0 {
		text = fields[0]
	}
	text = strings.TrimRight(text, "!?")
	text = strings.ReplaceAll(text, "0-0-0", "O-O-O")
	text = strings.ReplaceAll(text, "0-0", "O-O")
	return text
}

func (a *ChessAdapter) IsGameOver() bool {
	return a.game.Outcome() != nchess.NoOutcome
}

func (a *ChessAdapter) Outcome() Outcome {
	o := Outcome{Result: string(a.game.Outcome()), Method: methodName(a.game.Method())}
	switch a.game.Outcome() {
	case nchess.WhiteWon:
		o.Winner = base.White
	case nchess.BlackWon:
		o.Winner = base.Black
	case nchess.Draw:
		o.Draw = true
	}
	return o
}

func (a *ChessAdapter) Turn() base.Side {
	return fromColor(a.game.Position().Turn())
}

func (a *ChessAdapter) FEN() string {
	return a.game.FEN()
}

// History returns the moves played so far with SAN filled in.
func (a *ChessAdapter) History() []base.Move {
	moves := a.game.Moves()
	positions := a.game.Positions()
	out := make([]base.Move, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out = append(out, fromMove(positions[i], mv))
	}
	return out
}

// threefold repetition and the fifty-move rule end the game at once, the way
// browser chess libraries report them
func (a *ChessAdapter) claimDraws() {
	if a.IsGameOver() {
		return
	}
	for _, m := range a.game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition || m == nchess.FiftyMoveRule {
			_ = a.game.Draw(m)
			return
		}
	}
}

// ---- conversions ----

func fromSquare(sq nchess.Square) base.Square {
	return base.NewSquare(int(sq.File()), int(sq.Rank()))
}

func toSquare(sq base.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File()), nchess.Rank(sq.Rank()))
}

func fromColor(c nchess.Color) base.Side {
	if c == nchess.Black {
		return base.Black
	}
	return base.White
}

func fromKind(t nchess.PieceType) base.Kind {
	switch t {
	case nchess.Pawn:
		return base.Pawn
	case nchess.Knight:
		return base.Knight
	case nchess.Bishop:
		return base.Bishop
	case nchess.Rook:
		return base.Rook
	case nchess.Queen:
		return base.Queen
	case nchess.King:
		return base.King
	default:
		return base.NoKind
	}
}

func fromPiece(p nchess.Piece) base.Piece {
	if p == nchess.NoPiece {
		return base.NoPiece
	}
	return base.NewPiece(fromColor(p.Color()), fromKind(p.Type()))
}

func fromMove(pos *nchess.Position, mv *nchess.Move) base.Move {
	return base.Move{
		From:      fromSquare(mv.S1()),
		To:        fromSquare(mv.S2()),
		Promotion: fromKind(mv.Promo()),
		SAN:       nchess.AlgebraicNotation{}.Encode(pos, mv),
	}
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Resignation:
		return "resignation"
	case nchess.DrawOffer:
		return "agreement"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.ThreefoldRepetition:
		return "threefold repetition"
	case nchess.FivefoldRepetition:
		return "fivefold repetition"
	case nchess.FiftyMoveRule:
		return "fifty-move rule"
	case nchess.SeventyFiveMoveRule:
		return "seventy-five-move rule"
	case nchess.InsufficientMaterial:
		return "insufficient material"
	default:
		return ""
	}
}

// MoveText numbers SAN moves the way a PGN movetext section does:
// "1. e4 c5 2. Nf3". blackFirst starts with "1..." for positions where
// black made the first move.
func MoveText(moves []base.Move, blackFirst bool) string {
	var sb strings.Builder
	ply := 0
	if blackFirst {
		ply = 1
	}
	for i, m := range moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch {
		case ply%2 == 0:
			fmt.Fprintf(&sb, "%d. ", ply/2+1)
		case i == 0:
			fmt.Fprintf(&sb, "%d... ", ply/2+1)
		}
		san := m.SAN
		if san == "" {
			san = m.UCI()
		}
		sb.WriteString(san)
		ply++
	}
	return sb.String()
}
