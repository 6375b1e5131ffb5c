// Package screentest provides an in-memory screen.Port for tests.
package screentest

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/internal/screen"
)

type ActionKind string

const (
	ActionMove  ActionKind = "move"
	ActionClick ActionKind = "click"
	ActionDown  ActionKind = "down"
	ActionUp    ActionKind = "up"
	ActionDrag  ActionKind = "drag"
)

// Action is one recorded mouse operation. X/Y are the cursor position after it.
type Action struct {
	Kind ActionKind
	X, Y int
}

func (a Action) String() string {
	return fmt.Sprintf("%s(%d,%d)", a.Kind, a.X, a.Y)
}

// Canvas serves pixels from a mutable image and records every mouse action.
// OnClick runs after a click is recorded, with the cursor position; OnDrop
// runs when the button is released, with the press and release positions.
// Tests use them to repaint the image the way a board UI would react.
type Canvas struct {
	mu       sync.Mutex
	img      *image.RGBA
	cursor   image.Point
	downAt   image.Point
	pressed  bool
	actions  []Action
	captures int

	OnClick func(c *Canvas, at image.Point)
	OnDrop  func(c *Canvas, from, to image.Point)
}

func New(img image.Image) *Canvas {
	c := &Canvas{}
	c.SetImage(img)
	return c
}

// SetImage replaces the screen contents with a copy of img.
func (c *Canvas) SetImage(img image.Image) {
	cp := image.NewRGBA(img.Bounds())
	draw.Draw(cp, cp.Bounds(), img, img.Bounds().Min, draw.Src)
	c.mu.Lock()
	c.img = cp
	c.mu.Unlock()
}

// Paint mutates the current screen in place.
func (c *Canvas) Paint(fn func(dst *image.RGBA)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.img)
}

func (c *Canvas) CaptureScreen() (screen.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captures++
	cp := image.NewRGBA(c.img.Bounds())
	copy(cp.Pix, c.img.Pix)
	return screen.NewImageFrame(cp), nil
}

func (c *Canvas) PixelColor(x, y int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !(image.Point{X: x, Y: y}).In(c.img.Bounds()) {
		return palette.Black.Hex()
	}
	px := c.img.RGBAAt(x, y)
	return palette.Color{R: px.R, G: px.G, B: px.B}.Hex()
}

func (c *Canvas) MoveMouse(x, y int) {
	c.record(ActionMove, image.Pt(x, y))
}

func (c *Canvas) Click() {
	c.mu.Lock()
	at := c.cursor
	c.mu.Unlock()
	c.record(ActionClick, at)
	if c.OnClick != nil {
		c.OnClick(c, at)
	}
}

// Press records a button change. Only a release that follows a press is a
// drop.
func (c *Canvas) Press(down bool) {
	c.mu.Lock()
	at := c.cursor
	wasPressed := c.pressed
	c.pressed = down
	if down {
		c.downAt = at
	}
	from := c.downAt
	c.mu.Unlock()
	if down {
		c.record(ActionDown, at)
		return
	}
	c.record(ActionUp, at)
	if wasPressed && c.OnDrop != nil {
		c.OnDrop(c, from, at)
	}
}

func (c *Canvas) DragTo(x, y int) {
	c.record(ActionDrag, image.Pt(x, y))
}

func (c *Canvas) record(kind ActionKind, at image.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = at
	c.actions = append(c.actions, Action{Kind: kind, X: at.X, Y: at.Y})
}

// Actions returns a copy of everything recorded so far.
func (c *Canvas) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func (c *Canvas) ResetActions() {
	c.mu.Lock()
	c.actions = nil
	c.mu.Unlock()
}

func (c *Canvas) Captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures
}

var _ screen.Port = (*Canvas)(nil)
