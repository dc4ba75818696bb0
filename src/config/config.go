package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cybersjakk/src/analysis"
	"cybersjakk/src/engine"
	"cybersjakk/src/render"
	"cybersjakk/src/retry"
	"cybersjakk/src/server"

	yaml "gopkg.in/yaml.v3"
)

const DefaultPath = "cybersjakk.yaml"

// analysis backends
const (
	BackendAuto      = "auto" // gemini with a key, otherwise the simulator
	BackendGemini    = "gemini"
	BackendLocal     = "local"
	BackendSimulator = "simulator"
)

type Config struct {
	Language string         `yaml:"language"` // en/nb
	Theme    string         `yaml:"theme"`    // light/dark
	Window   WindowConfig   `yaml:"window"`
	Board    BoardConfig    `yaml:"board"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Engine   EngineConfig   `yaml:"engine"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type BoardConfig struct {
	SquareSize int    `yaml:"square_size"`
	InputMode  string `yaml:"input_mode"` // both/click/drag
	Light      string `yaml:"light"`
	Dark       string `yaml:"dark"`
	Selection  string `yaml:"selection"`
	LastMove   string `yaml:"last_move"`
	Marker     string `yaml:"marker"`
	Arrow      string `yaml:"arrow"`
}

type AnalysisConfig struct {
	Backend    string        `yaml:"backend"`
	Endpoint   string        `yaml:"endpoint"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key,omitempty"`
	LocalURL   string        `yaml:"local_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Think      time.Duration `yaml:"think"`
	ResultHold time.Duration `yaml:"result_hold"`
	Retries    int           `yaml:"retries"`
}

type EngineConfig struct {
	UCIPath  string        `yaml:"uci_path"` // empty: built-in material search only
	Level    int           `yaml:"level"`    // 1..10
	MoveTime time.Duration `yaml:"move_time,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Dev     bool   `yaml:"dev"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file,omitempty"`
}

func defaultConfig() Config {
	return Config{
		Language: "en",
		Theme:    "light",
		Window:   WindowConfig{Width: 900, Height: 760},
		Board: BoardConfig{
			SquareSize: 80,
			InputMode:  "both",
			Light:      "#d1d1d1",
			Dark:       "#5c5c5c",
			Selection:  "#f6f66988",
			LastMove:   "#cdd26a77",
			Marker:     "#00000040",
			Arrow:      "#00ff00b0",
		},
		Analysis: AnalysisConfig{
			Backend:    BackendAuto,
			Endpoint:   analysis.DefaultGeminiEndpoint,
			Model:      analysis.DefaultGeminiModel,
			LocalURL:   analysis.DefaultLocalEndpoint,
			Timeout:    analysis.DefaultTimeout,
			Think:      time.Second,
			ResultHold: 2 * time.Second,
			Retries:    retry.DefaultConfig().MaxAttempts,
		},
		Engine: EngineConfig{Level: 5},
		Server: ServerConfig{Addr: server.DefaultAddr},
		Log:    LogConfig{Level: "info", Console: true},
	}
}

func Default() *Config {
	c := defaultConfig()
	return &c
}

// Load reads path, falling back to defaults when the file does not exist.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	c := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("error decode config %s: %w", path, err)
		}
	}
	applyEnv(&c)
	correctableConfig(&c)
	return &c, nil
}

func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.Analysis.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CYBERSJAKK_BACKEND")); v != "" {
		c.Analysis.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("CYBERSJAKK_ENDPOINT")); v != "" {
		c.Analysis.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("CYBERSJAKK_LOCAL_URL")); v != "" {
		c.Analysis.LocalURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CYBERSJAKK_LANG")); v != "" {
		c.Language = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		c.Engine.UCIPath = v
	}
	if v := strings.TrimSpace(os.Getenv("CYBERSJAKK_LEVEL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Level = n
		}
	}
}

func correctableConfig(c *Config) {
	def := defaultConfig()
	c.Language = strings.ToLower(c.Language)
	if c.Language != "en" && c.Language != "nb" {
		c.Language = def.Language
	}
	if c.Theme != "light" && c.Theme != "dark" {
		c.Theme = def.Theme
	}
	if c.Window.Width < 400 || c.Window.Height < 400 {
		c.Window = def.Window
	}
	if c.Board.SquareSize < 16 || c.Board.SquareSize > 256 {
		c.Board.SquareSize = def.Board.SquareSize
	}
	switch c.Board.InputMode {
	case "both", "click", "drag":
	default:
		c.Board.InputMode = def.Board.InputMode
	}
	for _, f := range []struct {
		v *string
		d string
	}{
		{&c.Board.Light, def.Board.Light},
		{&c.Board.Dark, def.Board.Dark},
		{&c.Board.Selection, def.Board.Selection},
		{&c.Board.LastMove, def.Board.LastMove},
		{&c.Board.Marker, def.Board.Marker},
		{&c.Board.Arrow, def.Board.Arrow},
	} {
		if _, err := render.ParseHexColor(*f.v); err != nil {
			*f.v = f.d
		}
	}

	c.Analysis.Backend = strings.ToLower(c.Analysis.Backend)
	switch c.Analysis.Backend {
	case BackendAuto, BackendGemini, BackendLocal, BackendSimulator:
	default:
		c.Analysis.Backend = def.Analysis.Backend
	}
	if c.Analysis.Endpoint == "" {
		c.Analysis.Endpoint = def.Analysis.Endpoint
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = def.Analysis.Model
	}
	if c.Analysis.LocalURL == "" {
		c.Analysis.LocalURL = def.Analysis.LocalURL
	}
	if c.Analysis.Timeout <= 0 {
		c.Analysis.Timeout = def.Analysis.Timeout
	}
	if c.Analysis.Think < 0 {
		c.Analysis.Think = 0
	}
	if c.Analysis.ResultHold < 0 {
		c.Analysis.ResultHold = 0
	}
	if c.Analysis.Retries < 1 {
		c.Analysis.Retries = 1
	}

	if c.Engine.Level < 1 || c.Engine.Level > 10 {
		c.Engine.Level = def.Engine.Level
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// EffectiveBackend resolves "auto".
func (c *Config) EffectiveBackend() string {
	if c.Analysis.Backend != BackendAuto {
		return c.Analysis.Backend
	}
	if c.Analysis.APIKey != "" {
		return BackendGemini
	}
	return BackendSimulator
}

// SearchParams for the configured level, with an explicit move time on top.
func (c *Config) SearchParams() engine.SearchParams {
	prm := engine.LevelToParams(engine.Level(c.Engine.Level - 1))
	if c.Engine.MoveTime > 0 {
		prm.MoveTime = c.Engine.MoveTime
	}
	return prm
}

func (c *Config) Retry() retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = c.Analysis.Retries
	return rc
}

// BoardTheme builds the board colours. Values were validated on load.
func (c *Config) BoardTheme() render.Theme {
	t := render.DefaultTheme()
	if col, err := render.ParseHexColor(c.Board.Light); err == nil {
		t.Light = col
	}
	if col, err := render.ParseHexColor(c.Board.Dark); err == nil {
		t.Dark = col
	}
	if col, err := render.ParseHexColor(c.Board.Selection); err == nil {
		t.Selection = col
	}
	if col, err := render.ParseHexColor(c.Board.LastMove); err == nil {
		t.LastMove = col
	}
	if col, err := render.ParseHexColor(c.Board.Marker); err == nil {
		t.Marker = col
	}
	if col, err := render.ParseHexColor(c.Board.Arrow); err == nil {
		t.Arrow = col
	}
	return t
}
