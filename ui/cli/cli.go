package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cybersjakk/src/base"
	"cybersjakk/src/game"
	"cybersjakk/src/logx"
	"cybersjakk/src/rules"

	"golang.org/x/term"
)

// CLIProcessing plays a game in the terminal. Typed squares are fed to the
// game as clicks on the square centres, so the terminal goes through the
// same click-click selection as the mouse.
type CLIProcessing struct {
	game *game.Game
	msgs game.Messages
	logx logx.Logger
	in   io.Reader
	out  io.Writer
}

func NewCLI(g *game.Game, msgs game.Messages, log logx.Logger, in io.Reader, out io.Writer) *CLIProcessing {
	if log == nil {
		log = logx.NewNop()
	}
	return &CLIProcessing{game: g, msgs: msgs, logx: log, in: in, out: out}
}

// raw processing
// - type a square or a move and press Enter
// - Backspace edits, Ctrl+C or q quits
// - the board is redrawn after every move
func (c *CLIProcessing) Run(ctx context.Context) error {
	f, ok := c.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return c.RunLineMode(ctx)
	}
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return c.RunLineMode(ctx)
	}
	defer term.Restore(fd, oldState) //nolint:errcheck

	out := c.out
	c.out = crlfWriter{out}
	defer func() { c.out = out }()

	r := bufio.NewReader(f)
	var inputBuf strings.Builder

	c.draw()
	c.prompt()
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == 3: // Ctrl+C
			fmt.Fprintln(c.out, "\nInterrupted")
			return nil
		case b == 0x7f || b == 0x08:
			if s := inputBuf.String(); s != "" {
				inputBuf.Reset()
				inputBuf.WriteString(s[:len(s)-1])
				fmt.Fprint(c.out, "\b \b")
			}
		case b == '\r' || b == '\n':
			line := inputBuf.String()
			inputBuf.Reset()
			fmt.Fprintln(c.out)
			quit, err := c.Handle(ctx, line)
			if quit || err != nil {
				return err
			}
			c.prompt()
		case b >= 32 && b <= 126:
			inputBuf.WriteByte(b)
			fmt.Fprintf(c.out, "%c", b)
		}
	}
}

func (c *CLIProcessing) RunLineMode(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	c.draw()
	c.prompt()
	for scanner.Scan() {
		quit, err := c.Handle(ctx, scanner.Text())
		if quit || err != nil {
			return err
		}
		c.prompt()
	}
	return scanner.Err()
}

// Handle runs one input line and reports whether the session should end.
func (c *CLIProcessing) Handle(ctx context.Context, line string) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(line))
	switch s {
	case "":
		return false, nil
	case "q", "quit", "exit":
		fmt.Fprintln(c.out, "Quitting")
		return true, nil
	case "new":
		c.game.NewGame()
		c.draw()
		return false, nil
	case "retry":
		if err := c.game.Retry(); err != nil {
			c.status()
			return false, nil
		}
		return false, c.await(ctx)
	case "flip":
		if err := c.game.Flip(); err != nil {
			fmt.Fprintln(c.out, c.msgs.Text("status.flip_locked", nil))
			return false, nil
		}
		c.draw()
		return false, c.await(ctx)
	case "fen":
		fmt.Fprintln(c.out, c.game.Rules().FEN())
		return false, nil
	case "moves", "m":
		fmt.Fprintln(c.out, rules.MoveText(c.game.Rules().History(), false))
		return false, nil
	}

	squares, ok := parseSquares(s)
	if !ok {
		fmt.Fprintln(c.out, c.msgs.Text("cli.unknown", map[string]string{"Input": line}))
		return false, nil
	}
	before := len(c.game.Rules().History())
	for _, sq := range squares {
		c.click(sq)
	}
	if len(c.game.Rules().History()) == before {
		if sq, ok := c.game.Input().Selection(); ok {
			fmt.Fprintln(c.out, c.msgs.Text("cli.selected", map[string]string{"Square": sq.String()}))
		} else {
			c.status()
		}
		return false, nil
	}
	c.draw()
	return false, c.await(ctx)
}

// click presses and releases on the centre of sq.
func (c *CLIProcessing) click(sq base.Square) {
	p := c.game.Geometry().Center(sq)
	c.game.Press(p)
	c.game.Release(p)
}

func (c *CLIProcessing) await(ctx context.Context) error {
	if c.game.Phase() != game.PhaseThinking {
		c.status()
		return nil
	}
	c.status()
	err := c.game.Await(ctx)
	if errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		c.logx.Debugf("analysis ended with %v", err)
	}
	c.draw()
	return nil
}

func (c *CLIProcessing) draw() {
	sel := base.NoSquare
	if sq, ok := c.game.Input().Selection(); ok {
		sel = sq
	}
	PrintBoard(c.out, View{
		Board:    c.game.Rules().Board(),
		Flipped:  c.game.Geometry().Flipped,
		Selected: sel,
		LastMove: c.game.LastMove(),
	})
	c.status()
}

func (c *CLIProcessing) status() {
	st := c.game.Status()
	fmt.Fprintln(c.out, st.Text)
	if st.Commentary != "" {
		fmt.Fprintln(c.out, st.Commentary)
	}
}

func (c *CLIProcessing) prompt() {
	fmt.Fprint(c.out, c.msgs.Text("cli.prompt", nil))
}

// parseSquares reads "e2", "e2 e4", "e2e4" or "e7e8q". A promotion letter
// is ignored, promotions always become queens.
func parseSquares(s string) ([]base.Square, bool) {
	s = strings.Join(strings.Fields(s), "")
	if len(s) == 5 {
		s = s[:4]
	}
	if len(s) != 2 && len(s) != 4 {
		return nil, false
	}
	var out []base.Square
	for i := 0; i < len(s); i += 2 {
		sq, err := base.ParseSquare(s[i : i+2])
		if err != nil {
			return nil, false
		}
		out = append(out, sq)
	}
	return out, true
}

// crlfWriter turns \n into \r\n while the terminal is raw.
type crlfWriter struct {
	w io.Writer
}

func (cw crlfWriter) Write(p []byte) (int, error) {
	if _, err := cw.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
