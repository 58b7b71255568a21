package signature

import (
	"errors"
	"strings"
	"sync"
)

// Mode selects how the signature is produced.
type Mode string

const (
	ModeDraw Mode = "draw"
	ModeType Mode = "type"
)

// Pen colors offered by the wizard.
const (
	PenBlack = "#000000"
	PenBlue  = "#0026e3"
)

var (
	ErrSignatureRequired = errors.New("please draw your signature before continuing")
	ErrNameRequired      = errors.New("please type your name before continuing")
)

// Point is one sampled pen position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen-down movement.
type Stroke []Point

// Pad holds the signature state for one signing session. Two canvases can
// display the same pad (one per document), so mutations notify observers.
type Pad struct {
	mu        sync.Mutex
	mode      Mode
	penColor  string
	strokes   []Stroke
	typedName string
	width     int
	height    int
	observers []func()
}

func NewPad(width, height int) *Pad {
	return &Pad{
		mode:     ModeDraw,
		penColor: PenBlack,
		width:    width,
		height:   height,
	}
}

// Subscribe registers a callback invoked after every state change.
func (p *Pad) Subscribe(fn func()) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func (p *Pad) notify() {
	for _, fn := range p.observers {
		fn()
	}
}

func (p *Pad) SetMode(m Mode) {
	p.mu.Lock()
	p.mode = m
	p.notify()
	p.mu.Unlock()
}

func (p *Pad) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

func (p *Pad) SetPenColor(color string) {
	p.mu.Lock()
	if color == PenBlack || color == PenBlue {
		p.penColor = color
	}
	p.notify()
	p.mu.Unlock()
}

func (p *Pad) AddStroke(s Stroke) {
	if len(s) == 0 {
		return
	}
	p.mu.Lock()
	p.strokes = append(p.strokes, s)
	p.notify()
	p.mu.Unlock()
}

func (p *Pad) SetTypedName(name string) {
	p.mu.Lock()
	p.typedName = name
	p.notify()
	p.mu.Unlock()
}

// Clear wipes drawn strokes and the typed name.
func (p *Pad) Clear() {
	p.mu.Lock()
	p.strokes = nil
	p.typedName = ""
	p.notify()
	p.mu.Unlock()
}

// Resize changes the canvas dimensions. Drawn strokes are coordinates in the
// old space, so they are discarded; a typed name survives.
func (p *Pad) Resize(width, height int) {
	p.mu.Lock()
	p.width = width
	p.height = height
	p.strokes = nil
	p.notify()
	p.mu.Unlock()
}

// IsEmpty reports whether the pad has no usable signature for its mode.
func (p *Pad) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == ModeType {
		return strings.TrimSpace(p.typedName) == ""
	}
	return len(p.strokes) == 0
}

// Payload renders the current signature to a PNG data URL. An empty pad
// returns the mode's error so callers surface the right message.
func (p *Pad) Payload() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == ModeType {
		name := strings.TrimSpace(p.typedName)
		if name == "" {
			return "", ErrNameRequired
		}
		return renderTyped(name, p.penColor)
	}

	if len(p.strokes) == 0 {
		return "", ErrSignatureRequired
	}
	return renderStrokes(p.strokes, p.penColor, p.width, p.height)
}
