package opening

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"cybersjakk/src/engine"
	"cybersjakk/src/engine/material"
	"cybersjakk/src/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	assert.Equal(t, Najdorf, ParseLine("1. e4 c5 2. Nf3 d6 3. d4 cxd4 4. Nxd4 Nf6 5. Nc3 a6"))
	assert.Equal(t, []string{"e4", "e5", "Qh5"}, ParseLine("1.e4 e5 2.Qh5!? *"))
	assert.Empty(t, ParseLine("  "))
}

func TestExportNajdorf(t *testing.T) {
	dir := t.TempDir()
	x := NewExporter(material.New(nil), nil)
	plies, err := x.Run(context.Background(), Options{
		OutDir:     dir,
		SquareSize: 20,
		Params:     engine.SearchParams{MaxDepth: 1},
	})
	require.NoError(t, err)
	require.Len(t, plies, len(Najdorf))

	for i, p := range plies {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, Najdorf[i], p.SAN)
		assert.NotEmpty(t, p.Evaluation)

		// every suggestion is legal in its position
		pos, err := rules.NewChessAdapterFromFEN(p.FEN)
		require.NoError(t, err)
		_, err = pos.ApplyNotation(p.BestMove)
		assert.NoError(t, err, "ply %d best %q", p.Number, p.BestMove)

		f, err := os.Open(p.File)
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 160, img.Bounds().Dx())
	}
	assert.Equal(t, filepath.Join(dir, "move_01_e4.png"), plies[0].File)
	assert.Contains(t, plies[5].String(), "cxd4")
}

func TestExportStopsAtIllegalMove(t *testing.T) {
	x := NewExporter(material.New(nil), nil)
	plies, err := x.Run(context.Background(), Options{
		Moves:  []string{"e4", "e5", "Ke3"},
		OutDir: t.TempDir(),
		Params: engine.SearchParams{MaxDepth: 1},
	})
	assert.ErrorIs(t, err, rules.ErrIllegalMove)
	assert.Len(t, plies, 2)
}

func TestExportToMate(t *testing.T) {
	x := NewExporter(material.New(nil), nil)
	plies, err := x.Run(context.Background(), Options{
		Moves:  []string{"f3", "e5", "g4", "Qh4#"},
		OutDir: t.TempDir(),
		Params: engine.SearchParams{MaxDepth: 1},
	})
	require.NoError(t, err)
	require.Len(t, plies, 4)
	last := plies[3]
	assert.Equal(t, "0-1", last.Evaluation)
	assert.Empty(t, last.BestMove)
	assert.Equal(t, "move_04_Qh4.png", filepath.Base(last.File))
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "exd8Q", fileSafe("exd8=Q+"))
	assert.Equal(t, "O-O", fileSafe("O-O"))
}
