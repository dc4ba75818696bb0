package game

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"cybersjakk/src/analysis"
	"cybersjakk/src/base"
	"cybersjakk/src/input"
	"cybersjakk/src/logx"
	"cybersjakk/src/metrics"
	"cybersjakk/src/render"
	"cybersjakk/src/rules"
)

var (
	ErrNotYourTurn = errors.New("it is not the player's turn")
	ErrNoRetry     = errors.New("nothing to retry")
	ErrFlipLocked  = errors.New("board can only be flipped before the first move")
)

type Phase uint8

const (
	PhasePlayer Phase = iota
	PhaseThinking
	PhaseStalled // analysis failed, Retry asks again
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhasePlayer:
		return "player"
	case PhaseThinking:
		return "thinking"
	case PhaseStalled:
		return "stalled"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

type StatusKind uint8

const (
	StatusWelcome StatusKind = iota
	StatusYourMove
	StatusThinking
	StatusResult
	StatusError
	StatusGameOver
)

// Status is what the status line and the commentary line under it show.
type Status struct {
	Kind       StatusKind
	Text       string
	Commentary string
	Err        error
}

// Messages renders user-facing texts; msgcat.Catalog implements it.
type Messages interface {
	Text(key string, data any) string
}

type Options struct {
	Rules    rules.Adapter // defaults to a fresh classic game
	Analyst  analysis.Analyst
	Geometry input.Geometry
	Mode     input.Mode
	Messages Messages
	Logger   logx.Logger
	Metrics  *metrics.Collector

	// Think is the least time between the player's move and the reply.
	Think time.Duration
	// Timeout bounds one analysis round trip, retries included.
	Timeout time.Duration
	// ResultHold is how long the result summary stays before the prompt
	// returns. Zero keeps it until the next move.
	ResultHold time.Duration
}

// Game owns the whole turn cycle: player move, analysis, AI move. All
// methods are meant for the frontend goroutine; the only concurrent
// work is the analysis task.
type Game struct {
	rules   rules.Adapter
	analyst analysis.Analyst
	input   *input.Machine
	msgs    Messages
	logger  logx.Logger
	metrics *metrics.Collector

	think      time.Duration
	timeout    time.Duration
	resultHold time.Duration
	now        func() time.Time

	player   base.Side
	phase    Phase
	status   Status
	task     *analysis.Task
	lastMove *base.Move
	resultAt time.Time
}

func New(opt Options) *Game {
	if opt.Rules == nil {
		opt.Rules = rules.NewChessAdapter()
	}
	if opt.Logger == nil {
		opt.Logger = logx.NewNop()
	}
	if opt.Messages == nil {
		opt.Messages = keyMessages{}
	}
	if opt.Timeout <= 0 {
		opt.Timeout = time.Minute
	}
	g := &Game{
		rules:      opt.Rules,
		analyst:    opt.Analyst,
		msgs:       opt.Messages,
		logger:     opt.Logger,
		metrics:    opt.Metrics,
		think:      opt.Think,
		timeout:    opt.Timeout,
		resultHold: opt.ResultHold,
		now:        time.Now,
	}
	g.input = input.NewMachine(g.rules, opt.Geometry, opt.Mode, opt.Logger)
	g.welcome()
	return g
}

func (g *Game) welcome() {
	g.player = base.White
	g.phase = PhasePlayer
	g.lastMove = nil
	g.status = Status{Kind: StatusWelcome, Text: g.msgs.Text("status.welcome", nil)}
	g.input.Unlock()
	g.input.Reset()
	if g.rules.IsGameOver() {
		g.finish()
	} else if g.rules.Turn() != g.player {
		// a position with black to move: the player takes black
		g.player = g.rules.Turn()
	}
	geom := g.input.Geometry()
	geom.Flipped = g.player == base.Black
	g.input.SetGeometry(geom)
}

func (g *Game) Phase() Phase {
	return g.phase
}

func (g *Game) Status() Status {
	return g.status
}

func (g *Game) Player() base.Side {
	return g.player
}

func (g *Game) Rules() rules.Adapter {
	return g.rules
}

func (g *Game) Input() *input.Machine {
	return g.input
}

func (g *Game) LastMove() *base.Move {
	return g.lastMove
}

func (g *Game) Task() *analysis.Task {
	return g.task
}

func (g *Game) Geometry() input.Geometry {
	return g.input.Geometry()
}

// AwaitsPlayer reports whether the next gesture would be accepted.
func (g *Game) AwaitsPlayer() bool {
	return g.phase == PhasePlayer && g.rules.Turn() == g.player
}

func (g *Game) SetGeometry(geom input.Geometry) {
	geom.Flipped = g.player == base.Black
	g.input.SetGeometry(geom)
}

// Scene is a snapshot for the renderer.
func (g *Game) Scene() render.Scene {
	s := render.NewScene(g.rules.Board())
	if sq, ok := g.input.Selection(); ok {
		s.Selected = sq
	}
	s.LastMove = g.lastMove
	s.Markers = g.input.Markers()
	s.Drag = g.input.Session()
	return s
}

// ---- pointer events ----

func (g *Game) Press(p image.Point) bool {
	return g.pointer(g.input.Press(p))
}

func (g *Game) Motion(p image.Point) bool {
	return g.pointer(g.input.Motion(p))
}

func (g *Game) Release(p image.Point) bool {
	return g.pointer(g.input.Release(p))
}

func (g *Game) pointer(out input.Outcome) bool {
	if out.Attempt == nil {
		return out.Redraw
	}
	// an illegal gesture is dropped without a word, the input is already idle
	_ = g.PlayMove(*out.Attempt)
	return true
}

// PlayMove validates and applies the player's move, then hands the turn
// to the analyst.
func (g *Game) PlayMove(m base.Move) error {
	if !g.AwaitsPlayer() {
		return ErrNotYourTurn
	}
	applied, err := g.rules.Apply(m)
	if err != nil {
		g.logger.Debugf("player move %s rejected: %v", m.UCI(), err)
		g.input.Reset()
		if g.metrics != nil {
			g.metrics.RecordIllegalMove("player")
		}
		return err
	}
	g.logger.Infof("player: %s", applied)
	g.lastMove = &applied
	if g.metrics != nil {
		g.metrics.RecordMove("player")
	}
	if g.rules.IsGameOver() {
		g.finish()
		return nil
	}
	g.startAnalysis()
	return nil
}

// ---- analysis ----

func (g *Game) backend() string {
	if g.analyst == nil {
		return g.msgs.Text("backend.func", nil)
	}
	return g.msgs.Text("backend."+g.analyst.Name(), nil)
}

func (g *Game) startAnalysis() {
	g.phase = PhaseThinking
	g.input.Lock()
	g.status = Status{Kind: StatusThinking, Text: g.msgs.Text("status.thinking", map[string]string{"Backend": g.backend()})}

	analyst := g.analyst
	if analyst == nil {
		analyst = analysis.AnalystFunc(func(context.Context, string) (analysis.Result, error) {
			return analysis.Result{}, errors.New("no analyst configured")
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	task := analysis.Start(ctx, analyst, g.rules.FEN(), g.think)
	go func() {
		<-task.Done()
		cancel()
	}()
	g.task = task
	g.logger.Debugf("analysis %s started for %s", task.ID, task.FEN)
}

// Poll applies a finished analysis and moves timed status changes along.
// It never blocks; the GUI calls it every frame. Returns true when the
// board or the status changed.
func (g *Game) Poll() bool {
	if g.phase == PhaseThinking && g.task != nil {
		select {
		case <-g.task.Done():
			g.resolve()
			return true
		default:
		}
	}
	if g.status.Kind == StatusResult && g.phase == PhasePlayer && g.resultHold > 0 &&
		g.now().Sub(g.resultAt) >= g.resultHold {
		g.status.Kind = StatusYourMove
		g.status.Text = g.msgs.Text("status.your_move", nil)
		return true
	}
	return false
}

// Await blocks until the pending analysis is applied or ctx ends.
func (g *Game) Await(ctx context.Context) error {
	if g.phase != PhaseThinking || g.task == nil {
		return nil
	}
	select {
	case <-g.task.Done():
		g.resolve()
		return g.status.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Game) resolve() {
	task := g.task
	g.task = nil
	res, err := task.Result()
	if err == nil && task.FEN != g.rules.FEN() {
		err = fmt.Errorf("stale analysis %s", task.ID)
	}
	if err != nil {
		g.stall(err, analysis.Result{})
		return
	}

	applied, err := g.rules.ApplyNotation(res.BestMove)
	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordIllegalMove("ai")
		}
		g.stall(err, res)
		return
	}
	g.logger.Infof("%s: %s (%s)", g.backend(), applied, res.Evaluation)
	g.lastMove = &applied
	if g.metrics != nil {
		g.metrics.RecordMove("ai")
	}

	summary := g.msgs.Text("status.result", map[string]string{
		"Backend":    g.backend(),
		"Evaluation": res.Evaluation,
		"Move":       applied.SAN,
	})
	if g.rules.IsGameOver() {
		g.finish()
		g.status.Commentary = summary
		if res.Commentary != "" {
			g.status.Commentary += " " + res.Commentary
		}
		return
	}
	g.phase = PhasePlayer
	g.input.Unlock()
	g.resultAt = g.now()
	g.status = Status{Kind: StatusResult, Text: summary, Commentary: res.Commentary}
}

// stall leaves the board as it is and waits for Retry.
func (g *Game) stall(err error, res analysis.Result) {
	g.logger.Warnf("analysis failed: %v", err)
	data := map[string]string{"Backend": g.backend(), "Move": res.BestMove, "Err": err.Error()}
	key := "error.other"
	switch {
	case errors.Is(err, rules.ErrIllegalMove):
		key = "error.illegal"
	case errors.Is(err, analysis.ErrMalformed):
		key = "error.malformed"
	case errors.Is(err, analysis.ErrMissingKey):
		key = "error.config"
	case errors.Is(err, analysis.ErrTransport), errors.Is(err, analysis.ErrStatus),
		errors.Is(err, context.DeadlineExceeded):
		key = "error.transport"
	}
	g.phase = PhaseStalled
	g.status = Status{
		Kind:       StatusError,
		Text:       g.msgs.Text(key, data),
		Commentary: g.msgs.Text("status.retry_hint", nil),
		Err:        err,
	}
}

// Retry asks the analyst again after a failure.
func (g *Game) Retry() error {
	if g.phase != PhaseStalled {
		return ErrNoRetry
	}
	g.logger.Info("retrying analysis")
	g.startAnalysis()
	return nil
}

func (g *Game) finish() {
	g.phase = PhaseOver
	g.input.Lock()
	o := g.rules.Outcome()
	key := "outcome.draw"
	if !o.Draw {
		key = "outcome." + o.Winner.String()
	}
	outcome := g.msgs.Text(key, map[string]string{"Method": o.Method, "Result": o.Result})
	g.status = Status{Kind: StatusGameOver, Text: g.msgs.Text("status.game_over", map[string]string{"Outcome": outcome})}
	g.logger.Infof("game over: %s", o)
	if g.metrics != nil {
		g.metrics.RecordGameOver(o.Result)
	}
}

// NewGame drops any pending analysis and starts from the initial position
// with the player on white.
func (g *Game) NewGame() {
	if g.task != nil {
		g.task.Cancel()
		g.task = nil
	}
	g.rules.Reset()
	g.welcome()
}

// Flip lets the player take black before anything has been played; the
// analyst opens as white.
func (g *Game) Flip() error {
	if g.phase != PhasePlayer || len(g.rules.History()) > 0 || g.player != base.White {
		return ErrFlipLocked
	}
	g.player = base.Black
	geom := g.input.Geometry()
	geom.Flipped = true
	g.input.SetGeometry(geom)
	g.startAnalysis()
	return nil
}

// keyMessages shows raw keys when no catalog is wired.
type keyMessages struct{}

func (keyMessages) Text(key string, _ any) string {
	return key
}
