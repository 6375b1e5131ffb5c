package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/pkg/botdto"
)

// Sink is one event destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev botdto.Event) error
}

// Notifier fans events out to every sink. Delivery failures are logged and
// never reach the play loop.
type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
}

func NewNotifier(logger *zap.Logger, sinks ...Sink) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Notifier{sinks: kept, timeout: 3 * time.Second, logger: logger}
}

func (n *Notifier) Enabled() bool { return n != nil && len(n.sinks) > 0 }

func (n *Notifier) Notify(ctx context.Context, ev botdto.Event) {
	if !n.Enabled() {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	for _, s := range n.sinks {
		sctx, cancel := context.WithTimeout(ctx, n.timeout)
		err := s.Publish(sctx, ev)
		cancel()
		if err != nil {
			n.logger.Warn("notify_failed",
				zap.String("sink", s.Name()),
				zap.String("event", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}
