package material

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cybersjakk/src/engine"
	"cybersjakk/src/logx"

	nchess "github.com/corentings/chess/v2"
)

const (
	mateScore    = 100000
	defaultDepth = 2
	maxDepth     = 4
)

var pieceValue = map[nchess.PieceType]int{
	nchess.Pawn:   100,
	nchess.Knight: 320,
	nchess.Bishop: 330,
	nchess.Rook:   500,
	nchess.Queen:  900,
}

// Engine is a small alpha-beta searcher over material with a pinch of
// piece placement. It keeps the game going when no external engine is
// installed; it does not try to play well.
type Engine struct {
	logx  logx.Logger
	nodes int64
}

func New(log logx.Logger) *Engine {
	if log == nil {
		log = logx.NewNop()
	}
	return &Engine{logx: log}
}

func (e *Engine) Name() string {
	return "material"
}

func (e *Engine) Close() error {
	return nil
}

func (e *Engine) Analyse(ctx context.Context, fen string, prm engine.SearchParams) (engine.Analysis, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return engine.Analysis{}, fmt.Errorf("material: %w", err)
	}
	pos := nchess.NewGame(opt).Position()

	depth := prm.MaxDepth
	if depth <= 0 {
		depth = defaultDepth
	}
	if depth > maxDepth {
		depth = maxDepth
	}
	if prm.MoveTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, prm.MoveTime)
		defer cancel()
	}

	moves := ordered(pos)
	if len(moves) == 0 {
		return engine.Analysis{Engine: e.Name()}, engine.ErrGameIsOver
	}

	started := time.Now()
	e.nodes = 0
	best := moves[0]
	bestScore := -mateScore - 1
	alpha, beta := -mateScore-1, mateScore+1
	for i := range moves {
		if ctx.Err() != nil && i > 0 {
			break
		}
		next := pos.Update(&moves[i])
		score := -e.negamax(ctx, next, depth-1, 1, -beta, -alpha)
		if score > bestScore {
			bestScore = score
			best = moves[i]
		}
		if score > alpha {
			alpha = score
		}
	}

	uci := nchess.UCINotation{}.Encode(pos, &best)
	a := engine.Analysis{
		Engine:   e.Name(),
		BestMove: uci,
		Depth:    depth,
		Nodes:    e.nodes,
		PV:       []string{uci},
	}
	switch {
	case bestScore >= mateScore-100:
		a.MateIn = (mateScore - bestScore + 1) / 2
	case bestScore <= -mateScore+100:
		a.MateIn = -(mateScore + bestScore) / 2
	default:
		a.ScoreCP = bestScore
	}
	e.logx.Debugf("material search %s depth %d nodes %d in %s", uci, depth, e.nodes, time.Since(started))
	return a, nil
}

func (e *Engine) negamax(ctx context.Context, pos *nchess.Position, depth, ply, alpha, beta int) int {
	e.nodes++
	moves := ordered(pos)
	if len(moves) == 0 {
		if pos.Status() == nchess.Checkmate {
			return -mateScore + ply
		}
		return 0
	}
	if depth <= 0 || ctx.Err() != nil {
		return Evaluate(pos)
	}

	best := -mateScore - 1
	for i := range moves {
		score := -e.negamax(ctx, pos.Update(&moves[i]), depth-1, ply+1, -beta, -alpha)
		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break
		}
	}
	return best
}

// ordered puts captures and promotions first; the rest keeps a stable
// UCI order so equal positions give equal answers.
func ordered(pos *nchess.Position) []nchess.Move {
	moves := pos.ValidMoves()
	keys := make(map[int]string, len(moves))
	for i := range moves {
		keys[i] = nchess.UCINotation{}.Encode(pos, &moves[i])
	}
	idx := make([]int, len(moves))
	for i := range idx {
		idx[i] = i
	}
	rank := func(m *nchess.Move) int {
		r := 0
		if m.HasTag(nchess.Capture) {
			r += 2
		}
		if m.Promo() != nchess.NoPieceType {
			r++
		}
		return r
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := rank(&moves[idx[a]]), rank(&moves[idx[b]])
		if ra != rb {
			return ra > rb
		}
		return keys[idx[a]] < keys[idx[b]]
	})
	out := make([]nchess.Move, len(moves))
	for i, j := range idx {
		out[i] = moves[j]
	}
	return out
}

// Evaluate scores pos in centipawns from the side to move.
func Evaluate(pos *nchess.Position) int {
	score := 0
	for sq, p := range pos.Board().SquareMap() {
		v := pieceValue[p.Type()] + placement(p.Type(), p.Color(), sq)
		if p.Color() == nchess.White {
			score += v
		} else {
			score -= v
		}
	}
	if pos.Turn() == nchess.Black {
		return -score
	}
	return score
}

func placement(t nchess.PieceType, c nchess.Color, sq nchess.Square) int {
	file, rank := int(sq.File()), int(sq.Rank())
	if c == nchess.Black {
		rank = 7 - rank
	}
	center := abs(2*file-7) + abs(2*rank-7) // 2..14
	switch t {
	case nchess.Pawn:
		bonus := (rank - 1) * 4
		if file >= 2 && file <= 5 {
			bonus += rank * 2
		}
		return bonus
	case nchess.Knight, nchess.Bishop:
		return 14 - 2*center
	case nchess.Queen:
		return 4 - center/2
	case nchess.King:
		if rank == 0 && (file <= 2 || file >= 6) {
			return 15
		}
		return -center
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
