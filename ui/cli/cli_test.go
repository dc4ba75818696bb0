package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cybersjakk/src/analysis"
	"cybersjakk/src/base"
	"cybersjakk/src/game"
	"cybersjakk/src/input"
	"cybersjakk/src/msgcat"
	"cybersjakk/src/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replies(moves ...string) analysis.Analyst {
	i := 0
	return analysis.AnalystFunc(func(context.Context, string) (analysis.Result, error) {
		mv := moves[i%len(moves)]
		i++
		return analysis.Result{BestMove: mv, Evaluation: "0.20"}, nil
	})
}

func newSession(t *testing.T, a analysis.Analyst, in string) (*CLIProcessing, *game.Game, *bytes.Buffer) {
	t.Helper()
	msgs := msgcat.Must("en")
	g := game.New(game.Options{
		Analyst:  a,
		Geometry: input.NewGeometry(0, 0, 8, false),
		Mode:     input.ModeClick,
		Messages: msgs,
	})
	out := &bytes.Buffer{}
	return NewCLI(g, msgs, nil, strings.NewReader(in), out), g, out
}

func TestLineModeMoveAndReply(t *testing.T) {
	c, g, out := newSession(t, replies("e5"), "e2e4\nquit\n")
	require.NoError(t, c.Run(context.Background()))

	hist := g.Rules().History()
	require.Len(t, hist, 2)
	assert.Equal(t, "e4", hist[0].SAN)
	assert.Equal(t, "e5", hist[1].SAN)
	assert.Contains(t, out.String(), "Best move: e5")
	assert.Contains(t, out.String(), "Quitting")
}

func TestSquaresOneAtATime(t *testing.T) {
	c, g, out := newSession(t, replies("e5"), "")
	ctx := context.Background()

	quit, err := c.Handle(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "Selected g1")

	_, err = c.Handle(ctx, "F3")
	require.NoError(t, err)
	require.Len(t, g.Rules().History(), 2)
	assert.Equal(t, "Nf3", g.Rules().History()[0].SAN)
}

func TestIllegalAndUnknownInput(t *testing.T) {
	c, g, out := newSession(t, replies("e5"), "")
	ctx := context.Background()

	_, err := c.Handle(ctx, "e2e5")
	require.NoError(t, err)
	assert.Empty(t, g.Rules().History())
	assert.Equal(t, game.PhasePlayer, g.Phase())

	_, err = c.Handle(ctx, "castle!")
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Unknown input "castle!"`)
}

func TestFlipAndRetry(t *testing.T) {
	calls := 0
	a := analysis.AnalystFunc(func(context.Context, string) (analysis.Result, error) {
		calls++
		if calls == 1 {
			return analysis.Result{}, analysis.ErrMalformed
		}
		return analysis.Result{BestMove: "d4", Evaluation: "0.10"}, nil
	})
	c, g, out := newSession(t, a, "")
	ctx := context.Background()

	_, err := c.Handle(ctx, "flip")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseStalled, g.Phase())
	assert.Contains(t, out.String(), "Press Retry")

	_, err = c.Handle(ctx, "retry")
	require.NoError(t, err)
	assert.Equal(t, base.Black, g.Player())
	require.Len(t, g.Rules().History(), 1)
	assert.Equal(t, "d4", g.Rules().History()[0].SAN)

	_, err = c.Handle(ctx, "flip")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "only be flipped before the first move")
}

func TestNewAndFEN(t *testing.T) {
	c, g, out := newSession(t, replies("e5"), "")
	ctx := context.Background()
	_, err := c.Handle(ctx, "e2 e4")
	require.NoError(t, err)
	_, err = c.Handle(ctx, "new")
	require.NoError(t, err)
	assert.Empty(t, g.Rules().History())

	_, err = c.Handle(ctx, "g1f3")
	require.NoError(t, err)
	out.Reset()
	_, err = c.Handle(ctx, "moves")
	require.NoError(t, err)
	assert.Equal(t, "1. Nf3 e5\n", out.String())

	_, _ = c.Handle(ctx, "new")
	out.Reset()
	_, err = c.Handle(ctx, "fen")
	require.NoError(t, err)
	assert.Equal(t, base.FEN_START_GAME+"\n", out.String())
}

func TestParseSquares(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{"e2", []string{"e2"}},
		{"e2e4", []string{"e2", "e4"}},
		{"e2 e4", []string{"e2", "e4"}},
		{"e7e8q", []string{"e7", "e8"}},
	} {
		got, ok := parseSquares(tc.in)
		require.True(t, ok, tc.in)
		var names []string
		for _, sq := range got {
			names = append(names, sq.String())
		}
		assert.Equal(t, tc.want, names, tc.in)
	}
	for _, bad := range []string{"e", "i9", "e2e", "e2e4e6"} {
		_, ok := parseSquares(bad)
		assert.False(t, ok, bad)
	}
}

func TestPrintBoard(t *testing.T) {
	pos := rules.NewChessAdapter()
	var buf bytes.Buffer
	PrintBoard(&buf, View{Board: pos.Board(), Selected: base.NoSquare})
	lines := strings.Split(buf.String(), "\n")
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "   a  b  c  d  e  f  g  h", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "8 "))
	assert.Contains(t, lines[2], "♜")
	assert.Contains(t, lines[9], "♔")

	buf.Reset()
	PrintBoard(&buf, View{Board: pos.Board(), Flipped: true, Selected: base.NoSquare})
	lines = strings.Split(buf.String(), "\n")
	assert.Equal(t, "   h  g  f  e  d  c  b  a", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "1 "))
}

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	n, err := crlfWriter{&buf}.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "a\r\nb\r\n", buf.String())
}
