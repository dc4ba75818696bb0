package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cybersjakk/src/analysis"
	"cybersjakk/src/config"
	"cybersjakk/src/engine"
	"cybersjakk/src/engine/material"
	"cybersjakk/src/engine/uci"
	"cybersjakk/src/game"
	"cybersjakk/src/input"
	"cybersjakk/src/logx"
	"cybersjakk/src/metrics"
	"cybersjakk/src/msgcat"
	"cybersjakk/src/opening"
	"cybersjakk/src/rules"
	"cybersjakk/src/server"
	clic "cybersjakk/ui/cli"
	"cybersjakk/ui/gui"
	"cybersjakk/ui/gui/gbase"
	"cybersjakk/ui/gui/ghelper/gdialog"

	"github.com/urfave/cli/v3"
)

const logfile string = "cybersjakk.log"

// app is what every command builds from the flags and the config file.
type app struct {
	cfg  *config.Config
	logx *logx.Logx
	msgs *msgcat.Catalog
	file io.Closer
}

func (a *app) Close() {
	_ = a.logx.Sync()
	if a.file != nil {
		a.file.Close()
	}
}

// setup loads the config, applies the flags on top and opens the log.
// Console logging goes to stdout, everything else to the log file.
func setup(c *cli.Command) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("level") {
		cfg.Log.Level = c.String("level")
	}
	if c.IsSet("dev") {
		cfg.Log.Dev = c.Bool("dev")
	}
	if c.IsSet("console") {
		cfg.Log.Console = c.Bool("console")
	}
	if c.IsSet("backend") {
		cfg.Analysis.Backend = strings.ToLower(c.String("backend"))
	}

	a := &app{cfg: cfg}
	l := logx.NewLogx(logx.GetLoggerLevelByString(cfg.Log.Level), cfg.Log.Dev, cfg.Log.Console)
	if !cfg.Log.Console {
		path := cfg.Log.File
		if path == "" {
			path = logfile
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("error open logfile: %w", err)
		}
		a.file = file
		l.InitLogger(file)
	} else {
		l.InitLogger(nil)
	}
	a.logx = l

	a.msgs, err = msgcat.New(cfg.Language, "")
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildEngine prefers the configured UCI engine and keeps the built-in
// material search behind it.
func (a *app) buildEngine() engine.Engine {
	mat := material.New(a.logx)
	if a.cfg.Engine.UCIPath == "" {
		return mat
	}
	ex := uci.NewUCIExec(a.logx, a.cfg.Engine.UCIPath)
	if err := ex.Init(); err != nil {
		a.logx.Warnf("engine %s unavailable, using %s: %v", a.cfg.Engine.UCIPath, mat.Name(), err)
		return mat
	}
	return engine.NewFallback(ex, mat)
}

// buildAnalyst returns the analyst for the configured backend together
// with whatever needs closing afterwards.
func (a *app) buildAnalyst() (analysis.Analyst, io.Closer) {
	var (
		next   analysis.Analyst
		closer io.Closer
	)
	m := metrics.Default()
	switch a.cfg.EffectiveBackend() {
	case config.BackendGemini:
		next = analysis.NewGeminiClient(analysis.GeminiConfig{
			Endpoint: a.cfg.Analysis.Endpoint,
			Model:    a.cfg.Analysis.Model,
			APIKey:   a.cfg.Analysis.APIKey,
			Language: a.cfg.Language,
			Timeout:  a.cfg.Analysis.Timeout,
		})
	case config.BackendLocal:
		next = analysis.NewLocalClient(a.cfg.Analysis.LocalURL, a.cfg.Analysis.Timeout)
	default:
		eng := a.buildEngine()
		closer = eng
		next = analysis.NewSimulator(eng, a.cfg.SearchParams(), a.logx, m)
	}
	a.logx.Infof("analysis backend: %s", next.Name())
	return analysis.NewInstrumented(next, a.cfg.Retry(), a.logx, m), closer
}

func (a *app) newGame(analyst analysis.Analyst, rl rules.Adapter, geom input.Geometry) *game.Game {
	return game.New(game.Options{
		Rules:      rl,
		Analyst:    analyst,
		Geometry:   geom,
		Mode:       input.ParseMode(a.cfg.Board.InputMode),
		Messages:   a.msgs,
		Logger:     a.logx,
		Metrics:    metrics.Default(),
		Think:      a.cfg.Analysis.Think,
		Timeout:    a.cfg.Analysis.Timeout * time.Duration(a.cfg.Analysis.Retries),
		ResultHold: a.cfg.Analysis.ResultHold,
	})
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func RunGUI(c *cli.Command) error {
	a, err := setup(c)
	if err != nil {
		gdialog.ShowError("Cybersjakk", err.Error())
		return err
	}
	defer a.Close()

	analyst, closer := a.buildAnalyst()
	defer closeQuietly(closer)

	cfg := a.cfg
	g := a.newGame(analyst, nil, input.NewGeometry(gbase.BoardMargin, gbase.BoardMargin, cfg.Board.SquareSize, false))
	gp, err := gui.NewGUI(gui.Options{
		Game:     g,
		Messages: a.msgs,
		Theme:    cfg.BoardTheme(),
		Palette:  gbase.PaletteFromString(cfg.Theme),
		Width:    cfg.Window.Width,
		Height:   cfg.Window.Height,
		Debug:    cfg.Log.Dev,
		Logger:   a.logx,
	})
	if err != nil {
		a.logx.Errorf("gui: %v", err)
		gdialog.ShowError("Cybersjakk", err.Error())
		return err
	}
	return gp.Run()
}

func RunCLI(ctx context.Context, c *cli.Command) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	var rl rules.Adapter
	if fen := c.String("fen"); fen != "" {
		if rl, err = rules.NewChessAdapterFromFEN(fen); err != nil {
			return err
		}
	}

	analyst, closer := a.buildAnalyst()
	defer closeQuietly(closer)

	// squares are only ever clicked at their centres
	a.cfg.Board.InputMode = input.ModeClick.String()
	g := a.newGame(analyst, rl, input.NewGeometry(0, 0, 8, false))

	clic.EnableANSI()
	return clic.NewCLI(g, a.msgs, a.logx, os.Stdin, os.Stdout).Run(ctx)
}

func RunServe(ctx context.Context, c *cli.Command) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	eng := a.buildEngine()
	defer closeQuietly(eng)
	m := metrics.Default()
	sim := analysis.NewSimulator(eng, a.cfg.SearchParams(), a.logx, m)
	srv := server.New(analysis.NewInstrumented(sim, a.cfg.Retry(), a.logx, m), a.logx, m, a.cfg.Analysis.Timeout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		a.logx.Infof("serving analysis on http://%s/analyze", addr)
		errc <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	a.logx.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func RunAnalyze(ctx context.Context, c *cli.Command) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	moves := opening.Najdorf
	if line := c.String("moves"); line != "" {
		moves = opening.ParseLine(line)
	}

	eng := a.buildEngine()
	defer closeQuietly(eng)

	plies, err := opening.NewExporter(eng, a.logx).Run(ctx, opening.Options{
		Moves:      moves,
		OutDir:     c.String("out"),
		SquareSize: int(c.Int("size")),
		Params:     a.cfg.SearchParams(),
		Theme:      a.cfg.BoardTheme(),
	})
	for _, p := range plies {
		fmt.Println(p)
	}
	return err
}

func RunConfig(c *cli.Command) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultPath
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	// the key stays in the environment
	cfg.Analysis.APIKey = ""
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("config written to %s\n", path)
	return nil
}

func RunCybersjakk() error {
	cf := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"f"},
		Value:   config.DefaultPath,
		Usage:   "path to the YAML config",
	}
	lf := &cli.StringFlag{
		Name:    "level",
		Aliases: []string{"l"},
		Usage:   "logger level (debug, info, warn, error)",
	}
	df := &cli.BoolFlag{
		Name:    "dev",
		Aliases: []string{"d"},
		Usage:   "development logger encoding",
	}
	conf := &cli.BoolFlag{
		Name:    "console",
		Aliases: []string{"c"},
		Usage:   "log to stdout in console encoding",
	}
	bf := &cli.StringFlag{
		Name:    "backend",
		Aliases: []string{"b"},
		Usage:   "analysis backend (auto, gemini, local, simulator)",
	}
	shared := []cli.Flag{cf, lf, df, conf}
	play := append([]cli.Flag{bf}, shared...)

	return (&cli.Command{
		Name:  "cybersjakk",
		Usage: "chess against a language model",
		Commands: []*cli.Command{
			{
				Name:  "gui",
				Usage: "play in a window (default)",
				Flags: play,
				Action: func(ctx context.Context, c *cli.Command) error {
					return RunGUI(c)
				},
			},
			{
				Name:  "cli",
				Usage: "play in the terminal",
				Flags: append([]cli.Flag{&cli.StringFlag{
					Name:  "fen",
					Usage: "start from this position",
				}}, play...),
				Action: RunCLI,
			},
			{
				Name:  "serve",
				Usage: "run the local analysis backend",
				Flags: append([]cli.Flag{&cli.StringFlag{
					Name:  "addr",
					Usage: "listen address",
					Value: server.DefaultAddr,
				}}, shared...),
				Action: RunServe,
			},
			{
				Name:  "analyze",
				Usage: "analyse an opening and write one board image per move",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "moves",
						Usage: `move list, e.g. "1. e4 c5 2. Nf3" (default: Sicilian Najdorf)`,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   opening.DefaultOutDir,
						Usage:   "output directory",
					},
					&cli.IntFlag{
						Name:  "size",
						Value: opening.DefaultSquareSize,
						Usage: "square size in pixels",
					},
				}, shared...),
				Action: RunAnalyze,
			},
			{
				Name:  "config",
				Usage: "write the current configuration to the config file",
				Flags: []cli.Flag{cf, &cli.BoolFlag{
					Name:  "force",
					Usage: "overwrite an existing file",
				}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return RunConfig(c)
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return RunGUI(c)
		},
	}).Run(context.Background(), os.Args)
}
