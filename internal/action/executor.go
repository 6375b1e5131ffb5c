// Package action performs moves on the board with synthetic mouse input.
package action

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/screen"
)

const DefaultDelay = 200 * time.Millisecond

// Executor drags a piece from one square's click point to another's. Nothing
// confirms the drop landed.
type Executor struct {
	port   screen.Port
	delay  time.Duration
	logger *zap.Logger
}

func NewExecutor(port screen.Port, delay time.Duration, logger *zap.Logger) *Executor {
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{port: port, delay: delay, logger: logger}
}

// Execute runs move, click, press, drag, release with a pause before each.
func (e *Executor) Execute(ctx context.Context, from, to board.Square) error {
	e.logger.Debug("drag_and_drop", zap.String("from", from.Label), zap.String("to", to.Label))
	steps := []func(){
		func() { e.port.MoveMouse(from.Click.X, from.Click.Y) },
		e.port.Click,
		func() { e.port.Press(true) },
		func() { e.port.DragTo(to.Click.X, to.Click.Y) },
		func() { e.port.Press(false) },
	}
	for _, step := range steps {
		if err := e.pause(ctx); err != nil {
			return err
		}
		step()
	}
	return nil
}

func (e *Executor) pause(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
