package gui

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"cybersjakk/src/game"
	"cybersjakk/ui/gui/gbase"
	"cybersjakk/ui/gui/ghelper"
	"cybersjakk/ui/gui/ghelper/gclipboard"
	"cybersjakk/ui/gui/ghelper/gdialog"
	"cybersjakk/ui/gui/ghelper/gfont"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sqweek/dialog"
)

func (gp *GUIProcessing) update() error {
	now := time.Now()
	dt := now.Sub(gp.lastTick).Seconds()
	gp.lastTick = now

	// Input
	mx, my := ebiten.CursorPosition()
	cursor := image.Pt(mx, my)
	mouseDown := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	justPressed := mouseDown && !gp.prevMouseDown
	justReleased := !mouseDown && gp.prevMouseDown
	gp.prevMouseDown = mouseDown

	// Buttons handling
	gp.buttons[gp.idxRetry].Disabled = gp.game.Phase() != game.PhaseStalled
	gp.buttons[gp.idxFlip].Disabled = gp.game.Phase() != game.PhasePlayer || len(gp.game.Rules().History()) > 0
	for i, b := range gp.buttons {
		clicked := b.HandleInput(mx, my, justPressed, justReleased)
		b.UpdateAnim(dt)
		if clicked {
			gp.action(i)
		}
	}

	if err := gp.keys(); err != nil {
		return err
	}

	// Board interaction: the game's input machine sorts out drag and click-click
	switch {
	case justPressed:
		gp.dirty = gp.game.Press(cursor) || gp.dirty
	case mouseDown && cursor != gp.prevCursor:
		gp.dirty = gp.game.Motion(cursor) || gp.dirty
	case justReleased:
		gp.dirty = gp.game.Release(cursor) || gp.dirty
	}
	gp.prevCursor = cursor

	gp.dirty = gp.game.Poll() || gp.dirty
	if gp.dirty {
		if err := gp.redraw(); err != nil {
			return err
		}
	}
	return nil
}

func (gp *GUIProcessing) action(idx int) {
	switch idx {
	case gp.idxNew:
		gp.game.NewGame()
		gp.setNotice("", false)
	case gp.idxRetry:
		if err := gp.game.Retry(); err != nil {
			gp.logx.Debugf("retry: %v", err)
		}
	case gp.idxFlip:
		if err := gp.game.Flip(); err != nil {
			gp.setNotice(gp.msgs.Text("status.flip_locked", nil), true)
		}
	}
	gp.dirty = true
}

func (gp *GUIProcessing) keys() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return gbase.ErrExit
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		gp.action(gp.idxNew)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		gp.action(gp.idxRetry)
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		gp.action(gp.idxFlip)
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		gp.copyFEN()
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		gp.saveImage()
	}
	return nil
}

func (gp *GUIProcessing) copyFEN() {
	if err := gclipboard.WriteAll(gp.game.Rules().FEN()); err != nil {
		gp.logx.Warnf("clipboard: %v", err)
		gp.setNotice(gp.msgs.Text("notice.failed", map[string]string{"Err": err.Error()}), true)
		return
	}
	gp.setNotice(gp.msgs.Text("notice.copied", nil), false)
}

// saveImage writes the current board picture where the user points the
// save dialog.
func (gp *GUIProcessing) saveImage() {
	wd, _ := os.Getwd()
	path, err := gdialog.SavePNG("Cybersjakk", wd)
	if errors.Is(err, dialog.ErrCancelled) {
		return
	}
	if err == nil {
		err = gp.writePNG(path)
	}
	if err != nil {
		gp.logx.Errorf("save image: %v", err)
		gp.setNotice(gp.msgs.Text("notice.failed", map[string]string{"Err": err.Error()}), true)
		return
	}
	gp.logx.Infof("board saved to %s", path)
	gp.setNotice(gp.msgs.Text("notice.saved", map[string]string{"Path": filepath.Base(path)}), false)
}

func (gp *GUIProcessing) writePNG(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return gp.render.EncodePNG(f)
}

func (gp *GUIProcessing) setNotice(s string, isErr bool) {
	gp.notice, gp.noticeErr = s, isErr
}

// redraw repaints the board surface and uploads it.
func (gp *GUIProcessing) redraw() error {
	gp.render.SetGeometry(gp.game.Geometry())
	if err := gp.render.Redraw(gp.game.Scene()); err != nil {
		gp.logx.Errorf("redraw: %v", err)
		return fmt.Errorf("redraw board: %w", err)
	}
	gp.boardImg.WritePixels(gp.render.Image().Pix)
	gp.dirty = false
	return nil
}

// Draw
func (gp *GUIProcessing) draw(screen *ebiten.Image) {
	screen.Fill(gp.theme.Bg)
	geom := gp.game.Geometry()

	// board with its border
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(geom.Origin.X-4), float64(geom.Origin.Y-4))
	screen.DrawImage(gp.borderImg, op)
	op = &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(geom.Origin.X), float64(geom.Origin.Y))
	screen.DrawImage(gp.boardImg, op)

	if gp.game.Phase() == game.PhaseThinking {
		ghelper.EbitenutilDrawRectStroke(screen, float64(geom.Origin.X), float64(geom.Origin.Y),
			float64(geom.Size()), float64(geom.Size()), 3, gp.theme.Accent)
	}

	// side panel
	px := geom.Origin.X + geom.Size() + gbase.PanelGap
	text.Draw(screen, "Cybersjakk", gp.fonts.Bold, px, geom.Origin.Y+16, gp.theme.MenuText)
	for _, b := range gp.buttons {
		b.DrawAnimated(screen, gp.fonts.Normal, gp.theme)
	}

	// status and commentary under the board
	st := gp.game.Status()
	col := gp.theme.MenuText
	switch st.Kind {
	case game.StatusError:
		col = gp.theme.Error
	case game.StatusResult, game.StatusGameOver:
		col = gp.theme.Accent
	}
	y := geom.Origin.Y + geom.Size() + 8 + gbase.LineH
	for _, line := range gfont.Wrap(gp.fonts.Bold, st.Text, geom.Size()) {
		text.Draw(screen, line, gp.fonts.Bold, geom.Origin.X, y, col)
		y += gbase.LineH
	}
	for _, line := range gfont.Wrap(gp.fonts.Normal, st.Commentary, geom.Size()) {
		text.Draw(screen, line, gp.fonts.Normal, geom.Origin.X, y, gp.theme.ButtonText)
		y += gbase.LineH
	}

	if gp.notice != "" {
		nc := gp.theme.Disabled
		if gp.noticeErr {
			nc = gp.theme.Error
		}
		ny := gp.buttons[len(gp.buttons)-1].Y + gbase.ButtonH + 2*gbase.LineH
		for _, line := range gfont.Wrap(gp.fonts.Small, gp.notice, gbase.ButtonW) {
			text.Draw(screen, line, gp.fonts.Small, px, ny, nc)
			ny += gbase.LineH - 6
		}
	}

	if gp.debug {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("TPS: %0.2f  phase: %s", ebiten.ActualTPS(), gp.game.Phase()))
	}
}
