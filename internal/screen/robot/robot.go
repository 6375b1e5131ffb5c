// Package robot drives the real desktop: kbinani/screenshot for full-screen
// captures, robotgo for live pixel reads and the mouse.
package robot

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/screen"
)

// mouse is the slice of robotgo the port drives. Only Toggle changes the
// button state; the move methods never press or release.
type mouse interface {
	MoveTo(x, y int)
	MoveSmoothTo(x, y int)
	Click()
	Toggle(state string) error
	PixelHex(x, y int) string
}

type robotgoMouse struct{}

func (robotgoMouse) MoveTo(x, y int)       { robotgo.Move(x, y) }
func (robotgoMouse) MoveSmoothTo(x, y int) { robotgo.MoveSmooth(x, y) }
func (robotgoMouse) Click()                { robotgo.Click("left") }
func (robotgoMouse) Toggle(state string) error {
	return robotgo.Toggle("left", state)
}
func (robotgoMouse) PixelHex(x, y int) string { return robotgo.GetPixelColor(x, y) }

type Port struct {
	display int
	mouse   mouse
	logger  *zap.Logger
}

type Option func(*Port)

// WithDisplay selects the monitor captured by CaptureScreen.
func WithDisplay(i int) Option {
	return func(p *Port) { p.display = i }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Port) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(opts ...Option) *Port {
	p := &Port{mouse: robotgoMouse{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Port) CaptureScreen() (screen.Frame, error) {
	if n := screenshot.NumActiveDisplays(); p.display >= n {
		return nil, fmt.Errorf("display %d not active (%d displays)", p.display, n)
	}
	img, err := screenshot.CaptureDisplay(p.display)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", p.display, err)
	}
	p.logger.Debug("screen_captured", zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return screen.NewImageFrame(img), nil
}

func (p *Port) PixelColor(x, y int) string {
	return strings.ToLower(strings.TrimPrefix(p.mouse.PixelHex(x, y), "#"))
}

func (p *Port) MoveMouse(x, y int) {
	p.mouse.MoveTo(x, y)
}

func (p *Port) Click() {
	p.mouse.Click()
}

func (p *Port) Press(down bool) {
	state := "up"
	if down {
		state = "down"
	}
	if err := p.mouse.Toggle(state); err != nil {
		p.logger.Warn("mouse_toggle_failed", zap.String("state", state), zap.Error(err))
	}
}

// DragTo moves the cursor with the button held by a prior Press(true).
// robotgo.DragSmooth is not used: it presses and releases on its own.
func (p *Port) DragTo(x, y int) {
	p.mouse.MoveSmoothTo(x, y)
}

var _ screen.Port = (*Port)(nil)
