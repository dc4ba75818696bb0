package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"cybersjakk/src/engine"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeEnv = "CYBERSJAKK_FAKE_UCI"

const foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"

// TestFakeEngine is not a test: it turns the test binary into a scripted
// UCI engine for the tests below.
func TestFakeEngine(t *testing.T) {
	if os.Getenv(fakeEnv) != "1" {
		t.Skip("helper process")
	}
	runFakeEngine(os.Stdin, os.Stdout)
	os.Exit(0)
}

func runFakeEngine(r io.Reader, w io.Writer) {
	position := ""
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "uci":
			fmt.Fprintln(w, "id name FakeFish 1.0")
			fmt.Fprintln(w, "id author nobody")
			fmt.Fprintln(w, "option name Hash type spin default 16 min 1 max 1024")
			fmt.Fprintln(w, "uciok")
		case "isready":
			fmt.Fprintln(w, "readyok")
		case "position":
			position = line
		case "go":
			if strings.Contains(position, "6Pq") {
				fmt.Fprintln(w, "info depth 0 score mate 0")
				fmt.Fprintln(w, "bestmove (none)")
				continue
			}
			fmt.Fprintln(w, "info depth 1 score cp 12 nodes 20 pv d2d4")
			fmt.Fprintln(w, "info string NNUE evaluation enabled")
			fmt.Fprintln(w, "info depth 8 seldepth 10 multipv 1 score cp 31 nodes 4000 nps 100000 time 40 pv e2e4 e7e5 g1f3")
			fmt.Fprintln(w, "bestmove e2e4 ponder e7e5")
		case "quit":
			return
		}
	}
}

func startFake(t *testing.T) *UCIExecutor {
	t.Helper()
	t.Setenv(fakeEnv, "1")
	e := NewUCIExec(nil, os.Args[0], "-test.run=^TestFakeEngine$")
	require.NoError(t, e.Init())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestAnalyse(t *testing.T) {
	e := startFake(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a, err := e.Analyse(ctx, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", engine.SearchParams{MaxDepth: 8})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", a.BestMove)
	assert.Equal(t, 31, a.ScoreCP)
	assert.Equal(t, 8, a.Depth)
	assert.Equal(t, int64(4000), a.Nodes)
	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, a.PV)
	assert.True(t, strings.HasPrefix(a.Engine, "uci:"))

	// a second search on the same process works
	a, err = e.Analyse(ctx, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", engine.SearchParams{MoveTime: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", a.BestMove)
}

func TestAnalyseMated(t *testing.T) {
	e := startFake(t)
	_, err := e.Analyse(context.Background(), foolsMateFEN, engine.SearchParams{MaxDepth: 1})
	assert.True(t, errors.Is(err, engine.ErrGameIsOver))
}

func TestNotStarted(t *testing.T) {
	e := NewUCIExec(nil, "")
	assert.True(t, errors.Is(e.Init(), engine.ErrInvalidPath))
	_, err := e.Analyse(context.Background(), "x", engine.SearchParams{})
	assert.True(t, errors.Is(err, engine.ErrNotRunning))
	assert.NoError(t, e.Close())

	missing := NewUCIExec(nil, "/nonexistent/stockfish")
	assert.Error(t, missing.Init())
}

func TestParseInfo(t *testing.T) {
	var a engine.Analysis
	ParseInfo("info depth 12 seldepth 18 multipv 1 score cp -45 upperbound nodes 123456 nps 900000 time 137 pv c7c5 g1f3", &a)
	want := engine.Analysis{Depth: 12, ScoreCP: -45, Nodes: 123456, PV: []string{"c7c5", "g1f3"}}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("ParseInfo mismatch (-want +got):\n%s", diff)
	}

	ParseInfo("info depth 20 score mate -3 pv h7h6", &a)
	assert.Equal(t, -3, a.MateIn)
	assert.Equal(t, []string{"h7h6"}, a.PV)

	ParseInfo("info string depth 99 pv a2a3", &a)
	assert.Equal(t, 20, a.Depth)
}

func TestGoCommand(t *testing.T) {
	assert.Equal(t, "go depth 7 movetime 2500", goCommand(engine.LevelToParams(engine.LevelFive)))
	assert.Equal(t, "go depth 3", goCommand(engine.SearchParams{MaxDepth: 3}))
	assert.Equal(t, "go movetime 1000", goCommand(engine.SearchParams{}))
}
