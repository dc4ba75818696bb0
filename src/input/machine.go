package input

import (
	"image"

	"cybersjakk/src/base"
	"cybersjakk/src/logx"
)

// Mode selects which gestures produce moves.
type Mode uint8

const (
	ModeBoth Mode = iota // drag, or click-click when a press is released in place
	ModeClick
	ModeDrag
)

func (m Mode) String() string {
	switch m {
	case ModeClick:
		return "click"
	case ModeDrag:
		return "drag"
	default:
		return "both"
	}
}

func ParseMode(s string) Mode {
	switch s {
	case "click":
		return ModeClick
	case "drag":
		return ModeDrag
	default:
		return ModeBoth
	}
}

type State uint8

const (
	Idle State = iota
	Selected
	Dragging
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// pixels the pointer may wander before a press stops counting as a click
const DragThreshold = 4

// Source is the part of the rules adapter the machine reads.
type Source interface {
	PieceAt(sq base.Square) base.Piece
	Turn() base.Side
	LegalMovesFrom(sq base.Square) []base.Move
}

// DragSession lives between the press that grabbed a piece and the release.
type DragSession struct {
	Origin    base.Square
	Piece     base.Piece
	Legal     []base.Move
	Pointer   image.Point
	Offset    image.Point // pointer position inside the origin square at grab time
	Start     image.Point
	Travelled bool
}

// PieceOrigin is where the dragged piece image's top-left corner goes.
func (s *DragSession) PieceOrigin() image.Point {
	return s.Pointer.Sub(s.Offset)
}

// Outcome of a single pointer event. Attempt is non-nil when the gesture
// finished a move; the caller validates it.
type Outcome struct {
	Attempt *base.Move
	Redraw  bool
}

type Machine struct {
	src   Source
	geom  Geometry
	mode  Mode
	logx  logx.Logger
	state State

	selected base.Square
	session  *DragSession
	pressed  bool
	locked   bool
}

func NewMachine(src Source, geom Geometry, mode Mode, log logx.Logger) *Machine {
	if log == nil {
		log = logx.NewNop()
	}
	return &Machine{src: src, geom: geom, mode: mode, logx: log, selected: base.NoSquare}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Mode() Mode {
	return m.mode
}

func (m *Machine) Geometry() Geometry {
	return m.geom
}

// SetGeometry is called on window resize and board flip.
func (m *Machine) SetGeometry(g Geometry) {
	m.geom = g
}

// Selection returns the click-selected square.
func (m *Machine) Selection() (base.Square, bool) {
	if m.state != Selected {
		return base.NoSquare, false
	}
	return m.selected, true
}

// Session returns the running drag session or nil.
func (m *Machine) Session() *DragSession {
	if m.state != Dragging {
		return nil
	}
	return m.session
}

// Markers are the legal destinations to highlight right now.
func (m *Machine) Markers() []base.Move {
	switch m.state {
	case Dragging:
		return m.session.Legal
	case Selected:
		return m.src.LegalMovesFrom(m.selected)
	default:
		return nil
	}
}

// Lock drops any pending gesture and ignores events until Unlock.
func (m *Machine) Lock() {
	m.locked = true
	m.Reset()
}

func (m *Machine) Unlock() {
	m.locked = false
}

func (m *Machine) Locked() bool {
	return m.locked
}

func (m *Machine) Reset() {
	m.state = Idle
	m.selected = base.NoSquare
	m.session = nil
	m.pressed = false
}

func (m *Machine) ownPiece(sq base.Square) (base.Piece, bool) {
	p := m.src.PieceAt(sq)
	if p.IsEmpty() || p.Side != m.src.Turn() {
		return p, false
	}
	return p, true
}

func (m *Machine) Press(p image.Point) Outcome {
	if m.locked {
		return Outcome{}
	}
	m.pressed = true

	if m.state != Idle || m.mode == ModeClick {
		return Outcome{}
	}
	sq, ok := m.geom.SquareAt(p)
	if !ok {
		return Outcome{}
	}
	piece, own := m.ownPiece(sq)
	if !own {
		return Outcome{}
	}

	m.state = Dragging
	m.session = &DragSession{
		Origin:  sq,
		Piece:   piece,
		Legal:   m.src.LegalMovesFrom(sq),
		Pointer: p,
		Start:   p,
		Offset:  p.Sub(m.geom.Rect(sq).Min),
	}
	m.logx.Debugf("drag start %s (%d legal)", sq, len(m.session.Legal))
	return Outcome{Redraw: true}
}

func (m *Machine) Motion(p image.Point) Outcome {
	if m.locked || m.state != Dragging {
		return Outcome{}
	}
	s := m.session
	s.Pointer = p
	if !s.Travelled {
		d := p.Sub(s.Start)
		if d.X*d.X+d.Y*d.Y > DragThreshold*DragThreshold {
			s.Travelled = true
		}
	}
	return Outcome{Redraw: true}
}

func (m *Machine) Release(p image.Point) Outcome {
	if m.locked || !m.pressed {
		return Outcome{}
	}
	m.pressed = false

	if m.state == Dragging {
		return m.drop(p)
	}
	return m.click(p)
}

func (m *Machine) drop(p image.Point) Outcome {
	s := m.session
	m.session = nil
	m.state = Idle

	sq, ok := m.geom.SquareAt(p)
	switch {
	case !ok:
		m.logx.Debugf("drag from %s dropped off the board", s.Origin)
		return Outcome{Redraw: true}
	case sq == s.Origin:
		if !s.Travelled && m.mode == ModeBoth {
			m.state = Selected
			m.selected = s.Origin
		}
		return Outcome{Redraw: true}
	}

	mv := base.NewMove(s.Origin, sq)
	return Outcome{Attempt: &mv, Redraw: true}
}

func (m *Machine) click(p image.Point) Outcome {
	sq, ok := m.geom.SquareAt(p)

	if m.state == Idle {
		if !ok || m.mode == ModeDrag {
			return Outcome{}
		}
		if _, own := m.ownPiece(sq); !own {
			return Outcome{}
		}
		m.state = Selected
		m.selected = sq
		return Outcome{Redraw: true}
	}

	from := m.selected
	m.state = Idle
	m.selected = base.NoSquare
	if !ok || sq == from {
		return Outcome{Redraw: true}
	}
	mv := base.NewMove(from, sq)
	return Outcome{Attempt: &mv, Redraw: true}
}
