// Package screen describes the screen capture and mouse capability the bot
// drives. Concrete adapters live in sub-packages.
package screen

import (
	"image"

	"github.com/park285/cheese-board-bot/internal/palette"
)

// Frame is a captured screen. ColorAt returns a lowercase hex string without
// '#'; reads outside the frame return "000000".
type Frame interface {
	Bounds() image.Rectangle
	ColorAt(x, y int) string
}

// Port is the screen/input surface. PixelColor reads the live screen, unlike a
// Frame which is a snapshot.
type Port interface {
	CaptureScreen() (Frame, error)
	PixelColor(x, y int) string
	MoveMouse(x, y int)
	Click()
	Press(down bool)
	DragTo(x, y int)
}

// ImageFrame adapts any image to a Frame.
type ImageFrame struct {
	img image.Image
}

func NewImageFrame(img image.Image) *ImageFrame {
	return &ImageFrame{img: img}
}

// Image returns the wrapped image, nil for a nil frame.
func (f *ImageFrame) Image() image.Image {
	if f == nil {
		return nil
	}
	return f.img
}

func (f *ImageFrame) Bounds() image.Rectangle {
	if f == nil || f.img == nil {
		return image.Rectangle{}
	}
	return f.img.Bounds()
}

func (f *ImageFrame) ColorAt(x, y int) string {
	if f == nil || f.img == nil || !(image.Point{X: x, Y: y}).In(f.img.Bounds()) {
		return palette.Black.Hex()
	}
	if rgba, ok := f.img.(*image.RGBA); ok {
		c := rgba.RGBAAt(x, y)
		return palette.Color{R: c.R, G: c.G, B: c.B}.Hex()
	}
	return palette.FromColor(f.img.At(x, y)).Hex()
}
