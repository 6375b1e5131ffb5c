package calibrate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/internal/screen"
)

const DefaultSettle = 250 * time.Millisecond

// PaletteCalibrator measures the piece and highlight colors by clicking
// squares of the starting position: b7 lights a light square, a7 a dark one.
type PaletteCalibrator struct {
	port   screen.Port
	settle time.Duration
	logger *zap.Logger
}

func NewPaletteCalibrator(port screen.Port, settle time.Duration, logger *zap.Logger) *PaletteCalibrator {
	if settle < 0 {
		settle = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaletteCalibrator{port: port, settle: settle, logger: logger}
}

func (p *PaletteCalibrator) Calibrate(ctx context.Context, m *board.Model) (palette.Computed, error) {
	var out palette.Computed
	p.logger.Info("computing_colors")

	a1 := m.MustLookup("a1")
	a6 := m.MustLookup("a6")
	a7 := m.MustLookup("a7")
	a8 := m.MustLookup("a8")
	b7 := m.MustLookup("b7")

	var err error
	if out.WhitePiece, err = p.sample(a1.Piece.X, a1.Piece.Y); err != nil {
		return out, fmt.Errorf("white piece: %w", err)
	}
	if out.BlackPiece, err = p.sample(a8.Piece.X, a8.Piece.Y); err != nil {
		return out, fmt.Errorf("black piece: %w", err)
	}

	// clear any selection left on the board
	p.port.MoveMouse(a6.Click.X, a6.Click.Y)
	if err := sleepCtx(ctx, p.settle); err != nil {
		return out, err
	}
	p.port.Click()

	for _, target := range []struct {
		sq  board.Square
		dst *palette.Color
	}{
		{b7, &out.LightHighlight},
		{a7, &out.DarkHighlight},
	} {
		if err := sleepCtx(ctx, p.settle); err != nil {
			return out, err
		}
		p.port.MoveMouse(target.sq.Click.X, target.sq.Click.Y)
		if err := sleepCtx(ctx, p.settle); err != nil {
			return out, err
		}
		p.port.Click()
		if err := sleepCtx(ctx, p.settle); err != nil {
			return out, err
		}
		c, err := p.sample(target.sq.Click.X, target.sq.Click.Y)
		if err != nil {
			return out, fmt.Errorf("highlight %s: %w", target.sq.Label, err)
		}
		*target.dst = c
	}

	// deselect a7
	p.port.MoveMouse(a7.Click.X, a7.Click.Y)
	if err := sleepCtx(ctx, p.settle); err != nil {
		return out, err
	}
	p.port.Click()

	out.MarkReady()
	p.logger.Info("colors_computed",
		zap.String("light_highlight", out.LightHighlight.String()),
		zap.String("dark_highlight", out.DarkHighlight.String()),
		zap.String("white", out.WhitePiece.String()),
		zap.String("black", out.BlackPiece.String()))
	return out, nil
}

func (p *PaletteCalibrator) sample(x, y int) (palette.Color, error) {
	return palette.ParseHex(p.port.PixelColor(x, y))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
