package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cybersjakk/src/base"
)

var (
	ErrNoMove      = errors.New("engine returned no move")
	ErrNotRunning  = errors.New("engine is not running")
	ErrGameIsOver  = errors.New("position has no legal moves")
	ErrInvalidPath = errors.New("engine path is empty")
)

// Analysis is the outcome of one search. Scores are from the side to move,
// as UCI reports them.
type Analysis struct {
	Engine   string
	BestMove string // UCI, e.g. e2e4 or e7e8q
	ScoreCP  int
	MateIn   int // moves to mate, 0 if none; negative when the side to move gets mated
	Depth    int
	Nodes    int64
	PV       []string
}

// Evaluation renders the score from white's point of view: "+0.35",
// "-1.20", "#3", "#-2".
func (a Analysis) Evaluation(toMove base.Side) string {
	sign := 1
	if toMove == base.Black {
		sign = -1
	}
	if a.MateIn != 0 {
		return fmt.Sprintf("#%d", sign*a.MateIn)
	}
	return fmt.Sprintf("%+.2f", float64(sign*a.ScoreCP)/100)
}

type SearchParams struct {
	MaxDepth int           // 0 lets the engine decide
	MoveTime time.Duration // 0 = no time limit
}

type Level int

const (
	LevelOne Level = iota
	LevelTwo
	LevelThree
	LevelFour
	LevelFive
	LevelSix
	LevelSeven
	LevelEight
	LevelNine
	LevelTen
)

const (
	UCIHandshakeTimeout = 2 * time.Second  // uci / isready
	UCIBestMoveTimeout  = 30 * time.Second // go ...
	StopAnalyzeTimeout  = 2 * time.Second
)

// Engine searches a position given as FEN. Implementations are safe to call
// from one goroutine at a time.
type Engine interface {
	Name() string
	Analyse(ctx context.Context, fen string, prm SearchParams) (Analysis, error)
	Close() error
}

func LevelToParams(lvl Level) SearchParams {
	switch lvl {
	case LevelOne:
		return SearchParams{MaxDepth: 1, MoveTime: 500 * time.Millisecond}
	case LevelTwo:
		return SearchParams{MaxDepth: 2, MoveTime: 800 * time.Millisecond}
	case LevelThree:
		return SearchParams{MaxDepth: 3, MoveTime: time.Second}
	case LevelFour:
		return SearchParams{MaxDepth: 5, MoveTime: 1500 * time.Millisecond}
	case LevelFive:
		return SearchParams{MaxDepth: 7, MoveTime: 2500 * time.Millisecond}
	case LevelSix:
		return SearchParams{MaxDepth: 9, MoveTime: 4 * time.Second}
	case LevelSeven:
		return SearchParams{MaxDepth: 11, MoveTime: 6 * time.Second}
	case LevelEight:
		return SearchParams{MaxDepth: 13, MoveTime: 8 * time.Second}
	case LevelNine:
		return SearchParams{MaxDepth: 16, MoveTime: 10 * time.Second}
	default:
		return SearchParams{MaxDepth: 18, MoveTime: 15 * time.Second}
	}
}

// Fallback tries engines in order and returns the first answer.
type Fallback struct {
	engines []Engine
}

func NewFallback(engines ...Engine) *Fallback {
	out := make([]Engine, 0, len(engines))
	for _, e := range engines {
		if e != nil {
			out = append(out, e)
		}
	}
	return &Fallback{engines: out}
}

func (f *Fallback) Name() string {
	if len(f.engines) == 0 {
		return "none"
	}
	return f.engines[0].Name()
}

func (f *Fallback) Analyse(ctx context.Context, fen string, prm SearchParams) (Analysis, error) {
	var errs []error
	for _, e := range f.engines {
		a, err := e.Analyse(ctx, fen, prm)
		if err == nil {
			return a, nil
		}
		if errors.Is(err, ErrGameIsOver) || ctx.Err() != nil {
			return Analysis{}, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
	}
	if len(errs) == 0 {
		return Analysis{}, ErrNotRunning
	}
	return Analysis{}, errors.Join(errs...)
}

func (f *Fallback) Close() error {
	var errs []error
	for _, e := range f.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
