package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cybersjakk/src/engine"
	"cybersjakk/src/logx"
)

// UCIExecutor drives an external UCI engine (stockfish and friends) over
// stdin/stdout.
type UCIExecutor struct {
	// init
	path string
	args []string

	// process
	cmd *exec.Cmd
	in  io.WriteCloser
	out io.ReadCloser

	// read stdout
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// runtime
	mu         sync.Mutex // one search at a time
	infoMu     sync.RWMutex
	info       engine.Analysis
	lines      chan string
	bestMoveCh chan string
	logx       logx.Logger
}

// to open a process, need to call Init()
func NewUCIExec(log logx.Logger, enginePath string, engineArgs ...string) *UCIExecutor {
	if log == nil {
		log = logx.NewNop()
	}
	return &UCIExecutor{
		path: enginePath, args: engineArgs, logx: log,
		bestMoveCh: make(chan string, 1),
	}
}

func (e *UCIExecutor) Name() string {
	return "uci:" + filepath.Base(e.path)
}

// Init starts the process and runs the uci/isready handshake.
func (e *UCIExecutor) Init() error {
	if e.path == "" {
		return engine.ErrInvalidPath
	}

	cmd := exec.Command(e.path, e.args...)
	in, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("connect to engine stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("connect to engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine %s: %w", e.path, err)
	}

	e.cmd = cmd
	e.in = in
	e.out = out
	e.lines = make(chan string, 256)

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.wg.Add(1)
	go e.stdoutLoop(e.ctx)

	if err := e.Exec("uci"); err != nil {
		e.Close()
		return err
	}
	name, err := e.waitUCIOK(engine.UCIHandshakeTimeout)
	if err != nil {
		e.Close()
		return err
	}
	if name != "" {
		e.logx.Infof("open engine: %s", name)
	}
	if err := e.checkReady(); err != nil {
		e.Close()
		return err
	}
	return nil
}

// Exec writes a raw command line.
func (e *UCIExecutor) Exec(cmd string) error {
	if e.in == nil {
		return engine.ErrNotRunning
	}
	_, err := io.WriteString(e.in, cmd+"\n")
	return err
}

// Analyse sets the position and blocks until bestmove, the move time or ctx
// runs out. On cancellation the engine is told to stop and its current best
// move is still returned when it answers in time.
func (e *UCIExecutor) Analyse(ctx context.Context, fen string, prm engine.SearchParams) (engine.Analysis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil {
		return engine.Analysis{}, engine.ErrNotRunning
	}

	e.logx.Debugf("init position FEN: %s", fen)
	if err := e.Exec("ucinewgame"); err != nil {
		return engine.Analysis{}, err
	}
	if err := e.Exec("position fen " + fen); err != nil {
		return engine.Analysis{}, err
	}
	if err := e.checkReady(); err != nil {
		return engine.Analysis{}, err
	}

	e.infoMu.Lock()
	e.info = engine.Analysis{Engine: e.Name()}
	e.infoMu.Unlock()
	// drop a stale bestmove from an earlier stop
	select {
	case <-e.bestMoveCh:
	default:
	}

	cmd := goCommand(prm)
	e.logx.Infof("start analyze: %s", cmd)
	if err := e.Exec(cmd); err != nil {
		return engine.Analysis{}, err
	}

	wait := engine.UCIBestMoveTimeout
	if prm.MoveTime > 0 {
		wait = prm.MoveTime + engine.StopAnalyzeTimeout
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case bm := <-e.bestMoveCh:
		return e.result(bm)
	case <-e.ctx.Done():
		return engine.Analysis{}, engine.ErrNotRunning
	case <-timer.C:
	case <-ctx.Done():
	}

	e.logx.Info("stop analyze")
	if err := e.Exec("stop"); err != nil {
		return engine.Analysis{}, err
	}
	select {
	case bm := <-e.bestMoveCh:
		return e.result(bm)
	case <-time.After(engine.StopAnalyzeTimeout):
		if ctx.Err() != nil {
			return engine.Analysis{}, ctx.Err()
		}
		return engine.Analysis{}, fmt.Errorf("%w: timeout waiting for bestmove", engine.ErrNoMove)
	}
}

func (e *UCIExecutor) result(bm string) (engine.Analysis, error) {
	e.infoMu.RLock()
	a := e.info
	e.infoMu.RUnlock()
	if bm == "" || bm == "(none)" || bm == "0000" {
		return a, engine.ErrGameIsOver
	}
	a.BestMove = bm
	if len(a.PV) == 0 {
		a.PV = []string{bm}
	}
	return a, nil
}

func goCommand(prm engine.SearchParams) string {
	var b strings.Builder
	b.WriteString("go")
	if prm.MaxDepth > 0 {
		b.WriteString(" depth " + strconv.Itoa(prm.MaxDepth))
	}
	if prm.MoveTime > 0 {
		b.WriteString(" movetime " + strconv.FormatInt(prm.MoveTime.Milliseconds(), 10))
	}
	if prm.MaxDepth <= 0 && prm.MoveTime <= 0 {
		b.WriteString(" movetime 1000")
	}
	return b.String()
}

// Close terminates the process.
func (e *UCIExecutor) Close() error {
	if e.cmd == nil {
		return nil
	}
	_ = e.Exec("quit")
	e.cancel()
	_ = e.in.Close()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		if e.cmd.Process != nil {
			_ = e.cmd.Process.Kill()
		}
		e.wg.Wait()
	}

	err := e.cmd.Wait()
	e.cmd = nil
	e.in = nil
	e.logx.Info("uci-process terminated")
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (e *UCIExecutor) checkReady() error {
	if err := e.Exec("isready"); err != nil {
		return err
	}
	return e.waitCompare("readyok", engine.UCIHandshakeTimeout)
}

// waitUCIOK consumes lines up to uciok and returns the engine's id name.
func (e *UCIExecutor) waitUCIOK(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	name := ""
	for {
		select {
		case line := <-e.lines:
			if strings.HasPrefix(line, "id name ") {
				name = strings.TrimPrefix(line, "id name ")
			}
			if strings.HasPrefix(line, "uciok") {
				return name, nil
			}
		case <-timer.C:
			return "", errors.New("timeout waiting for uciok")
		case <-e.ctx.Done():
			return "", engine.ErrNotRunning
		}
	}
}

func (e *UCIExecutor) waitCompare(str string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case line := <-e.lines:
			if strings.HasPrefix(line, str) {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for %s", str)
		case <-e.ctx.Done():
			return engine.ErrNotRunning
		}
	}
}

func (e *UCIExecutor) stdoutLoop(ctx context.Context) {
	defer e.wg.Done()
	scr := bufio.NewScanner(e.out)
	for scr.Scan() {
		line := strings.TrimSpace(scr.Text())

		e.logx.Debugf("ENGINE: %s", line)
		switch {
		case strings.HasPrefix(line, "info "):
			e.saveInfo(line)
		case strings.HasPrefix(line, "bestmove"):
			e.saveBest(line)
		default:
			select {
			case e.lines <- line:
			default:
				e.logx.Debugf("drop engine line (buffer full)")
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// ParseInfo reads the fields of an "info" line into a. Lines without a score
// or pv (currmove updates, strings) leave a unchanged.
func ParseInfo(line string, a *engine.Analysis) {
	fld := strings.Fields(line)
	n := len(fld)
	for i := 0; i < n; i++ {
		switch fld[i] {
		case "depth":
			if i+1 < n {
				a.Depth, _ = strconv.Atoi(fld[i+1])
				i++
			}
		case "nodes":
			if i+1 < n {
				a.Nodes, _ = strconv.ParseInt(fld[i+1], 10, 64)
				i++
			}
		case "score":
			if i+2 < n {
				typ, val := fld[i+1], fld[i+2]
				if v, err := strconv.Atoi(val); err == nil {
					switch typ {
					case "cp":
						a.ScoreCP = v
						a.MateIn = 0
					case "mate":
						a.MateIn = v
					}
				}
				i += 2
			}
		case "pv":
			if i+1 < n {
				a.PV = append([]string(nil), fld[i+1:]...)
			}
			i = n // pv is always last
		case "string":
			i = n
		}
	}
}

func (e *UCIExecutor) saveInfo(line string) {
	if strings.Contains(line, " multipv ") && !strings.Contains(line, " multipv 1 ") {
		return
	}
	e.infoMu.Lock()
	ParseInfo(line, &e.info)
	e.infoMu.Unlock()
}

func (e *UCIExecutor) saveBest(line string) {
	e.logx.Debugf("save best move: %s", line)
	bm := ""
	if f := strings.Fields(line); len(f) >= 2 {
		bm = f[1]
	}
	select {
	case e.bestMoveCh <- bm:
	default:
	}
}
