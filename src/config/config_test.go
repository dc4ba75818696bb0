package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "CYBERSJAKK_BACKEND", "CYBERSJAKK_ENDPOINT",
		"CYBERSJAKK_LOCAL_URL", "CYBERSJAKK_LANG", "STOCKFISH_PATH", "CYBERSJAKK_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, BackendSimulator, c.EffectiveBackend())
}

func TestSaveLoadAndCorrection(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cybersjakk.yaml")
	c := Default()
	c.Language = "NB"
	c.Board.InputMode = "hover"
	c.Board.Dark = "not a colour"
	c.Analysis.Backend = "Local"
	c.Analysis.Think = 250 * time.Millisecond
	c.Engine.Level = 42
	require.NoError(t, c.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nb", got.Language)
	assert.Equal(t, "both", got.Board.InputMode)
	assert.Equal(t, "#5c5c5c", got.Board.Dark)
	assert.Equal(t, BackendLocal, got.Analysis.Backend)
	assert.Equal(t, BackendLocal, got.EffectiveBackend())
	assert.Equal(t, 250*time.Millisecond, got.Analysis.Think)
	assert.Equal(t, 5, got.Engine.Level)
}

func TestYAMLDurations(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  backend: gemini
  timeout: 45s
  retries: 0
engine:
  level: 2
  move_time: 300ms
window:
  width: 10
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, c.Analysis.Timeout)
	assert.Equal(t, 1, c.Analysis.Retries)
	assert.Equal(t, 900, c.Window.Width)
	assert.Equal(t, 2, c.SearchParams().MaxDepth)
	assert.Equal(t, 300*time.Millisecond, c.SearchParams().MoveTime)
	assert.Equal(t, 1, c.Retry().MaxAttempts)
	// unset keys keep their defaults
	assert.Equal(t, "gemini-1.5-flash-latest", c.Analysis.Model)
}

func TestBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("STOCKFISH_PATH", "/usr/games/stockfish")
	t.Setenv("CYBERSJAKK_LEVEL", "9")

	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "secret", c.Analysis.APIKey)
	assert.Equal(t, BackendGemini, c.EffectiveBackend())
	assert.Equal(t, "/usr/games/stockfish", c.Engine.UCIPath)
	assert.Equal(t, 9, c.Engine.Level)

	t.Setenv("CYBERSJAKK_BACKEND", "local")
	c, err = Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, c.EffectiveBackend())
}

func TestBoardTheme(t *testing.T) {
	c := Default()
	c.Board.Light = "#fff"
	th := c.BoardTheme()
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, th.Light)
	assert.Equal(t, color.NRGBA{R: 0x5c, G: 0x5c, B: 0x5c, A: 0xff}, th.Dark)
}
