package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cybersjakk/src/base"
	"cybersjakk/src/engine"
	"cybersjakk/src/logx"
	"cybersjakk/src/metrics"
	"cybersjakk/src/rules"
)

// Simulator answers in-process from a chess engine, in the same shape a
// language model would.
type Simulator struct {
	engine  engine.Engine
	params  engine.SearchParams
	logx    logx.Logger
	metrics *metrics.Collector
}

func NewSimulator(e engine.Engine, prm engine.SearchParams, log logx.Logger, m *metrics.Collector) *Simulator {
	if log == nil {
		log = logx.NewNop()
	}
	return &Simulator{engine: e, params: prm, logx: log, metrics: m}
}

func (s *Simulator) Name() string {
	return "simulator"
}

func (s *Simulator) Analyze(ctx context.Context, fen string) (Result, error) {
	pos, err := rules.NewChessAdapterFromFEN(fen)
	if err != nil {
		return Result{}, fmt.Errorf("simulator: %w", err)
	}
	if pos.IsGameOver() {
		return Result{}, fmt.Errorf("simulator: %w", engine.ErrGameIsOver)
	}

	started := time.Now()
	a, err := s.engine.Analyse(ctx, fen, s.params)
	s.recordSearch(err, time.Since(started))
	if err != nil {
		return Result{}, fmt.Errorf("simulator: %s: %w", s.engine.Name(), err)
	}

	toMove := pos.Turn()
	best, err := pos.ApplyNotation(a.BestMove)
	if err != nil {
		return Result{}, fmt.Errorf("simulator: %s suggested %q: %w", s.engine.Name(), a.BestMove, err)
	}
	line := []string{best.SAN}
	for i, uci := range a.PV {
		if i == 0 || len(line) >= 4 {
			continue
		}
		mv, err := pos.ApplyNotation(uci)
		if err != nil {
			break
		}
		line = append(line, mv.SAN)
	}

	s.logx.Debugf("simulator %s: %s eval %s depth %d", s.engine.Name(), best.SAN, a.Evaluation(toMove), a.Depth)
	return Result{
		Evaluation: Describe(a, toMove),
		BestMove:   best.SAN,
		Commentary: fmt.Sprintf("%s, depth %d: %s", a.Engine, a.Depth, strings.Join(line, " ")),
	}, nil
}

func (s *Simulator) recordSearch(err error, d time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, engine.ErrGameIsOver):
		status = "game_over"
	case err != nil:
		status = "error"
	}
	s.metrics.RecordEngineSearch(s.engine.Name(), status, d.Seconds())
}

// Describe renders a score the way the prompt asks a model to:
// "+0.50, white is slightly better".
func Describe(a engine.Analysis, toMove base.Side) string {
	score := a.Evaluation(toMove)
	if a.MateIn != 0 {
		winner := toMove
		if a.MateIn < 0 {
			winner = toMove.Other()
		}
		n := a.MateIn
		if n < 0 {
			n = -n
		}
		return fmt.Sprintf("%s, %s mates in %d", score, winner, n)
	}

	cp := a.ScoreCP
	if toMove == base.Black {
		cp = -cp
	}
	side := base.White
	if cp < 0 {
		side, cp = base.Black, -cp
	}
	switch {
	case cp < 30:
		return score + ", the position is equal"
	case cp < 100:
		return fmt.Sprintf("%s, %s is slightly better", score, side)
	case cp < 300:
		return fmt.Sprintf("%s, %s is better", score, side)
	default:
		return fmt.Sprintf("%s, %s is winning", score, side)
	}
}
