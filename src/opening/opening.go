// Package opening plays through an opening, analyses every position and
// writes one board picture per ply.
package opening

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cybersjakk/src/base"
	"cybersjakk/src/engine"
	"cybersjakk/src/input"
	"cybersjakk/src/logx"
	"cybersjakk/src/render"
	"cybersjakk/src/rules"
)

// Najdorf is the Sicilian Najdorf main line up to 5...a6.
var Najdorf = []string{"e4", "c5", "Nf3", "d6", "d4", "cxd4", "Nxd4", "Nf6", "Nc3", "a6"}

const (
	DefaultOutDir     = "cybersjakk_analysis"
	DefaultSquareSize = 60
	DefaultMoveTime   = 500 * time.Millisecond
)

type Options struct {
	Moves      []string
	OutDir     string
	SquareSize int
	Params     engine.SearchParams
	Theme      render.Theme
	Assets     *render.Assets
}

// Ply is the report for one half-move.
type Ply struct {
	Number     int
	SAN        string
	FEN        string
	Evaluation string // white's point of view, or the result once the game ended
	BestMove   string // SAN, empty when the game ended
	File       string
}

func (p Ply) String() string {
	best := p.BestMove
	if best == "" {
		best = "-"
	}
	return fmt.Sprintf("%2d. %-7s eval %-7s best %-7s %s", p.Number, p.SAN, p.Evaluation, best, p.File)
}

type Exporter struct {
	engine engine.Engine
	logx   logx.Logger
}

func NewExporter(e engine.Engine, log logx.Logger) *Exporter {
	if log == nil {
		log = logx.NewNop()
	}
	return &Exporter{engine: e, logx: log}
}

// ParseLine reads a move list such as "1. e4 c5 2. Nf3 d6", dropping move
// numbers and results.
func ParseLine(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		switch tok {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		if mv := rules.CleanNotation(tok); mv != "" {
			out = append(out, mv)
		}
	}
	return out
}

// Run stops at the first illegal move; the plies before it are returned
// along with the error.
func (x *Exporter) Run(ctx context.Context, opt Options) ([]Ply, error) {
	if len(opt.Moves) == 0 {
		opt.Moves = Najdorf
	}
	if opt.OutDir == "" {
		opt.OutDir = DefaultOutDir
	}
	if opt.SquareSize <= 0 {
		opt.SquareSize = DefaultSquareSize
	}
	if opt.Params == (engine.SearchParams{}) {
		opt.Params.MoveTime = DefaultMoveTime
	}
	if opt.Theme == (render.Theme{}) {
		opt.Theme = render.DefaultTheme()
	}
	if opt.Assets == nil {
		opt.Assets = render.DefaultAssets()
	}
	if err := os.MkdirAll(opt.OutDir, 0o755); err != nil {
		return nil, err
	}

	r := render.NewRenderer(input.NewGeometry(0, 0, opt.SquareSize, false), opt.Theme, opt.Assets)
	pos := rules.NewChessAdapter()
	plies := make([]Ply, 0, len(opt.Moves))
	x.logx.Infof("analysing %d plies into %s", len(opt.Moves), opt.OutDir)

	for i, san := range opt.Moves {
		if err := ctx.Err(); err != nil {
			return plies, err
		}
		played, err := pos.ApplyNotation(san)
		if err != nil {
			return plies, fmt.Errorf("ply %d %q: %w", i+1, san, err)
		}
		ply := Ply{Number: i + 1, SAN: played.SAN, FEN: pos.FEN()}

		scene := render.NewScene(pos.Board())
		scene.LastMove = &played
		if pos.IsGameOver() {
			ply.Evaluation = pos.Outcome().Result
		} else {
			best, eval, err := x.best(ctx, pos, opt.Params)
			if err != nil {
				return plies, fmt.Errorf("ply %d %q: %w", i+1, san, err)
			}
			ply.BestMove, ply.Evaluation = best.SAN, eval
			scene.Arrow = &best
		}

		ply.File = filepath.Join(opt.OutDir, fmt.Sprintf("move_%02d_%s.png", ply.Number, fileSafe(ply.SAN)))
		if err := x.write(r, scene, ply.File); err != nil {
			return plies, err
		}
		x.logx.Infof("generated %s | evaluation %s", ply.File, ply.Evaluation)
		plies = append(plies, ply)
	}
	return plies, nil
}

func (x *Exporter) best(ctx context.Context, pos *rules.ChessAdapter, prm engine.SearchParams) (base.Move, string, error) {
	a, err := x.engine.Analyse(ctx, pos.FEN(), prm)
	if err != nil {
		return base.Move{}, "", err
	}
	probe, err := rules.NewChessAdapterFromFEN(pos.FEN())
	if err != nil {
		return base.Move{}, "", err
	}
	best, err := probe.ApplyNotation(a.BestMove)
	if err != nil {
		return base.Move{}, "", fmt.Errorf("%s suggested %q: %w", x.engine.Name(), a.BestMove, err)
	}
	return best, a.Evaluation(pos.Turn()), nil
}

func (x *Exporter) write(r *render.Renderer, scene render.Scene, path string) (err error) {
	if err := r.Redraw(scene); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return r.EncodePNG(f)
}

func fileSafe(san string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '+', '#', '=', '/', '\\':
			return -1
		}
		return r
	}, san)
}
