// Package calibrate finds the on-screen board, decides which side the bot
// plays and measures the colors the detector needs.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/internal/screen"
)

var (
	ErrBoardNotFound  = errors.New("could not find chess board, make sure colors are correct")
	ErrBorderNotFound = errors.New("board border not found before the screen edge")
)

const DefaultStride = 100

// Options are the reference colors from configuration.
type Options struct {
	Light  palette.Color
	Dark   palette.Color
	Border palette.Color
	Stride int
}

type Calibrator struct {
	port   screen.Port
	opts   Options
	logger *zap.Logger
}

func New(port screen.Port, opts Options, logger *zap.Logger) *Calibrator {
	if opts.Stride <= 0 {
		opts.Stride = DefaultStride
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calibrator{port: port, opts: opts, logger: logger}
}

// Result is everything geometry calibration produces. Frame is the capture it
// was measured on.
type Result struct {
	Model *board.Model
	Side  board.Side
	Frame screen.Frame
}

// Calibrate captures the screen once, locates the board, reads the side from
// the top-left square and builds the square model.
func (c *Calibrator) Calibrate(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.Info("capturing_screen")
	frame, err := c.port.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}

	g, err := c.Locate(frame)
	if err != nil {
		return nil, err
	}
	side := c.DetectSide(g)
	c.logger.Info("playing_side", zap.String("side", side.String()))

	m, err := board.Build(g, side)
	if err != nil {
		return nil, fmt.Errorf("build board model: %w", err)
	}
	return &Result{Model: m, Side: side, Frame: frame}, nil
}

// Locate runs the coarse scan and border refinement on frame.
func (c *Calibrator) Locate(frame screen.Frame) (board.Geometry, error) {
	rough, ok := coarseScan(frame, c.opts.Light, c.opts.Dark, c.opts.Stride)
	if !ok {
		return board.Geometry{}, ErrBoardNotFound
	}
	c.logger.Debug("rough_location",
		zap.Int("min_x", rough.Min.X), zap.Int("max_x", rough.Max.X),
		zap.Int("min_y", rough.Min.Y), zap.Int("max_y", rough.Max.Y))

	refined, err := refine(frame, rough, c.opts.Border)
	if err != nil {
		return board.Geometry{}, err
	}
	g := board.NewGeometry(refined.Min.X, refined.Min.Y, refined.Max.X, refined.Max.Y)
	c.logger.Info("board_located",
		zap.Int("min_x", refined.Min.X), zap.Int("max_x", refined.Max.X),
		zap.Int("min_y", refined.Min.Y), zap.Int("max_y", refined.Max.Y),
		zap.Int("square_size", g.SquareSize))
	return g, nil
}

// DetectSide samples the center of the top-left square. A black piece there
// means the board is seen from White's side.
func (c *Calibrator) DetectSide(g board.Geometry) board.Side {
	at := g.Center(0, 0)
	name := palette.SideClassifier().ClassifyHex(c.port.PixelColor(at.X, at.Y))
	if name == palette.BlackPiece {
		return board.White
	}
	return board.Black
}

// coarseScan returns the bounding box (inclusive corners) of every stride
// point that exactly matches a square color.
func coarseScan(frame screen.Frame, light, dark palette.Color, stride int) (image.Rectangle, bool) {
	lightHex, darkHex := light.Hex(), dark.Hex()
	b := frame.Bounds()
	var box image.Rectangle
	found := false
	for x := b.Min.X; x < b.Max.X; x += stride {
		for y := b.Min.Y; y < b.Max.Y; y += stride {
			clr := frame.ColorAt(x, y)
			if clr != lightHex && clr != darkHex {
				continue
			}
			if !found {
				box = image.Rect(x, y, x, y)
				found = true
				continue
			}
			box.Min.X = min(box.Min.X, x)
			box.Min.Y = min(box.Min.Y, y)
			box.Max.X = max(box.Max.X, x)
			box.Max.Y = max(box.Max.Y, y)
		}
	}
	return box, found
}

// refine walks each edge outward until the next pixel is the border color.
// Order matters: each walk uses the edges already refined.
func refine(frame screen.Frame, box image.Rectangle, border palette.Color) (image.Rectangle, error) {
	borderHex := border.Hex()
	b := frame.Bounds()
	isBorder := func(x, y int) bool { return frame.ColorAt(x, y) == borderHex }

	for !isBorder(box.Min.X-1, box.Min.Y) {
		box.Min.X--
		if box.Min.X <= b.Min.X {
			return image.Rectangle{}, fmt.Errorf("left edge: %w", ErrBorderNotFound)
		}
	}
	for !isBorder(box.Min.X, box.Min.Y-1) {
		box.Min.Y--
		if box.Min.Y <= b.Min.Y {
			return image.Rectangle{}, fmt.Errorf("top edge: %w", ErrBorderNotFound)
		}
	}
	for !isBorder(box.Max.X+1, box.Max.Y) {
		box.Max.X++
		if box.Max.X >= b.Max.X-1 {
			return image.Rectangle{}, fmt.Errorf("right edge: %w", ErrBorderNotFound)
		}
	}
	for !isBorder(box.Max.X, box.Max.Y+1) {
		box.Max.Y++
		if box.Max.Y >= b.Max.Y-1 {
			return image.Rectangle{}, fmt.Errorf("bottom edge: %w", ErrBorderNotFound)
		}
	}
	return box, nil
}
