package gui

import (
	"errors"
	"image"
	"time"

	"cybersjakk/src/game"
	"cybersjakk/src/logx"
	"cybersjakk/src/render"
	"cybersjakk/ui/gui/gbase"
	"cybersjakk/ui/gui/ghelper"
	"cybersjakk/ui/gui/ghelper/gfont"

	"github.com/hajimehoshi/ebiten/v2"
)

type Options struct {
	Game     *game.Game
	Messages game.Messages
	Theme    render.Theme  // board colours
	Palette  gbase.Palette // window chrome
	Width    int
	Height   int
	Debug    bool // TPS overlay
	Logger   logx.Logger
}

// GUIProcessing is the ebiten frontend: one play scene, the board painted
// by the shared renderer and uploaded as a texture when it changes.
type GUIProcessing struct {
	game   *game.Game
	msgs   game.Messages
	logx   logx.Logger
	render *render.Renderer
	fonts  *gfont.Fonts
	theme  gbase.Palette
	window struct{ W, H int }
	debug  bool

	boardImg  *ebiten.Image
	borderImg *ebiten.Image

	buttons  []*gbase.Button
	idxNew   int
	idxRetry int
	idxFlip  int

	dirty         bool
	prevMouseDown bool
	prevCursor    image.Point
	lastTick      time.Time
	notice        string
	noticeErr     bool
}

func NewGUI(opt Options) (*GUIProcessing, error) {
	if opt.Game == nil {
		return nil, errors.New("gui: no game")
	}
	if opt.Logger == nil {
		opt.Logger = logx.NewNop()
	}
	if opt.Messages == nil {
		opt.Messages = keyText{}
	}
	if opt.Theme == (render.Theme{}) {
		opt.Theme = render.DefaultTheme()
	}
	if opt.Palette == (gbase.Palette{}) {
		opt.Palette = gbase.LightPalette
	}
	fonts, err := gfont.LoadFonts()
	if err != nil {
		return nil, err
	}
	gp := &GUIProcessing{
		game:     opt.Game,
		msgs:     opt.Messages,
		logx:     opt.Logger,
		render:   render.NewRenderer(opt.Game.Geometry(), opt.Theme, nil),
		fonts:    fonts,
		theme:    opt.Palette,
		debug:    opt.Debug,
		dirty:    true,
		lastTick: time.Now(),
	}
	gp.window.W, gp.window.H = opt.Width, opt.Height
	gp.recalcLayout()
	gp.makeLayoutButtons()
	gp.notice = gp.msgs.Text("notice.keys", nil)
	return gp, nil
}

func (gp *GUIProcessing) Run() error {
	ebiten.SetWindowSize(gp.window.W, gp.window.H)
	ebiten.SetWindowTitle("Cybersjakk")
	if err := ebiten.RunGame(gp); err != nil && !errors.Is(err, gbase.ErrExit) {
		return err
	}
	return nil
}

func (gp *GUIProcessing) Update() error {
	return gp.update()
}

func (gp *GUIProcessing) Draw(screen *ebiten.Image) {
	gp.draw(screen)
}

func (gp *GUIProcessing) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return gp.window.W, gp.window.H
}

// keyText shows raw keys when no catalog is wired.
type keyText struct{}

func (keyText) Text(key string, _ any) string {
	return key
}

// recalcLayout fits the board into the window, keeping room for the button
// column on the right and the status lines below.
func (gp *GUIProcessing) recalcLayout() {
	geom := gp.game.Geometry()
	maxW := gp.window.W - 2*gbase.BoardMargin - gbase.PanelGap - gbase.ButtonW
	maxH := gp.window.H - 2*gbase.BoardMargin - 4*gbase.LineH
	sq := geom.SquareSize
	if sq*8 > maxW {
		sq = maxW / 8
	}
	if sq*8 > maxH {
		sq = maxH / 8
	}
	if sq < 16 {
		sq = 16
	}
	geom.Origin = image.Pt(gbase.BoardMargin, gbase.BoardMargin)
	geom.SquareSize = sq
	gp.game.SetGeometry(geom)
	gp.render.SetGeometry(gp.game.Geometry())

	size := geom.Size()
	gp.boardImg = ebiten.NewImage(size, size)
	gp.borderImg = ghelper.RenderRoundedRect(size+8, size+8, 6, gp.theme.ButtonFill, gp.theme.ButtonStroke, 2)
}

func (gp *GUIProcessing) makeLayoutButtons() {
	gp.buttons = nil
	addBtn := func(key string, x, y int) int {
		img := ghelper.RenderRoundedRect(gbase.ButtonW, gbase.ButtonH, 12, gp.theme.ButtonFill, gp.theme.ButtonStroke, 3)
		gp.buttons = append(gp.buttons, gbase.NewButton(gp.msgs.Text(key, nil), x, y, gbase.ButtonW, gbase.ButtonH, img))
		return len(gp.buttons) - 1
	}

	geom := gp.game.Geometry()
	x := geom.Origin.X + geom.Size() + gbase.PanelGap
	y := geom.Origin.Y + 32
	gp.idxNew = addBtn("button.new_game", x, y)
	y += gbase.ButtonH + gbase.ButtonGap
	gp.idxRetry = addBtn("button.retry", x, y)
	y += gbase.ButtonH + gbase.ButtonGap
	gp.idxFlip = addBtn("button.flip", x, y)
}
