package material

import (
	"context"
	"errors"
	"testing"
	"time"

	"cybersjakk/src/base"
	"cybersjakk/src/engine"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyse(t *testing.T, fen string, depth int) engine.Analysis {
	t.Helper()
	a, err := New(nil).Analyse(context.Background(), fen, engine.SearchParams{MaxDepth: depth})
	require.NoError(t, err)
	return a
}

func TestFindsMateInOne(t *testing.T) {
	a := analyse(t, "6k1/5ppp/8/8/8/8/8/R6K w - - 0 1", 2)
	assert.Equal(t, "a1a8", a.BestMove)
	assert.Equal(t, 1, a.MateIn)
	assert.Equal(t, []string{"a1a8"}, a.PV)
}

func TestTakesHangingQueen(t *testing.T) {
	a := analyse(t, "4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1", 2)
	assert.Equal(t, "d2d5", a.BestMove)
	assert.Greater(t, a.ScoreCP, 300)
}

func TestBlackToMove(t *testing.T) {
	a := analyse(t, "4k3/3r4/8/8/3Q4/8/8/4K3 b - - 0 1", 2)
	assert.Equal(t, "d7d4", a.BestMove)
	assert.Equal(t, "material", a.Engine)
}

func TestStartPositionAnswersLegalMove(t *testing.T) {
	a := analyse(t, base.FEN_START_GAME, 0)
	assert.Len(t, a.BestMove, 4)
	assert.Equal(t, defaultDepth, a.Depth)
	assert.Greater(t, a.Nodes, int64(20))

	// deterministic
	b := analyse(t, base.FEN_START_GAME, 0)
	assert.Equal(t, a.BestMove, b.BestMove)
}

func TestGameOver(t *testing.T) {
	_, err := New(nil).Analyse(context.Background(), "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", engine.SearchParams{})
	assert.True(t, errors.Is(err, engine.ErrGameIsOver))
}

func TestInvalidFEN(t *testing.T) {
	_, err := New(nil).Analyse(context.Background(), "not a fen", engine.SearchParams{})
	assert.Error(t, err)
}

func TestCancelledStillAnswers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a, err := New(nil).Analyse(ctx, base.FEN_START_GAME, engine.SearchParams{MaxDepth: 4, MoveTime: time.Millisecond})
	require.NoError(t, err)
	assert.NotEmpty(t, a.BestMove)
}

func TestEvaluateSymmetric(t *testing.T) {
	opt, err := nchess.FEN(base.FEN_START_GAME)
	require.NoError(t, err)
	assert.Equal(t, 0, Evaluate(nchess.NewGame(opt).Position()))

	opt, err = nchess.FEN("4k3/8/8/8/8/8/8/Q3K3 b - - 0 1")
	require.NoError(t, err)
	assert.Less(t, Evaluate(nchess.NewGame(opt).Position()), -800)
}
