// Package chess relays the observed game to a UCI engine and reads back its
// moves.
package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/chess/uci"
)

var (
	ErrEngineTimeout = errors.New("engine did not answer bestmove in time")
	ErrInvalidToken  = errors.New("invalid move token")
)

// positionPrefix is the command head the move list is appended to. Engines
// treat any word after startpos as the moves keyword.
const positionPrefix = "position startpos move"

const DefaultMoveTime = 1000

// BestMove is the engine's answer to one search. Mate is set when the
// reported score is mate in one, i.e. this move ends the game. None is set
// when the engine had no legal move to give.
type BestMove struct {
	Token string
	Mate  bool
	None  bool
}

type Bridge struct {
	port    uci.Port
	history *History
	pacer   *Pacer
	limits  uci.Limits
	timeout time.Duration
	logger  *zap.Logger
}

func NewBridge(port uci.Port, history *History, pacer *Pacer, limits uci.Limits, logger *zap.Logger) *Bridge {
	if limits == (uci.Limits{}) {
		limits.MoveTimeMillis = DefaultMoveTime
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		port:    port,
		history: history,
		pacer:   pacer,
		limits:  limits,
		timeout: uci.SearchTimeout(limits),
		logger:  logger,
	}
}

// SetSearchTimeout overrides the guard derived from the search limits.
func (b *Bridge) SetSearchTimeout(d time.Duration) {
	if d > 0 {
		b.timeout = d
	}
}

func (b *Bridge) History() *History { return b.history }

// PositionCommand is the full move list as sent to the engine.
func (b *Bridge) PositionCommand() string {
	if b.history.Len() == 0 {
		return positionPrefix
	}
	return positionPrefix + " " + b.history.String()
}

// SubmitMove records token and resynchronises the engine with the whole game,
// followed by a board dump for anyone watching the engine log.
func (b *Bridge) SubmitMove(token string) error {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 4 {
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	b.history.Append(token)
	if err := b.port.Send(b.PositionCommand()); err != nil {
		return fmt.Errorf("send position: %w", err)
	}
	if err := b.port.Send("d"); err != nil {
		return fmt.Errorf("send d: %w", err)
	}
	return nil
}

// RequestBestMove paces like a human unless first is set, starts a search and
// reads engine output until bestmove.
func (b *Bridge) RequestBestMove(ctx context.Context, first bool) (BestMove, error) {
	if !first && b.pacer != nil {
		d := b.pacer.Delay()
		b.logger.Info("thinking", zap.Duration("delay", d))
		if err := sleep(ctx, d); err != nil {
			return BestMove{}, err
		}
	}

	goCmd, err := uci.GoCommand(b.limits)
	if err != nil {
		return BestMove{}, err
	}
	if err := b.port.Send(goCmd); err != nil {
		return BestMove{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var lastScore uci.Score
	for {
		line, err := b.port.ReadLine(searchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return BestMove{}, ErrEngineTimeout
			}
			return BestMove{}, fmt.Errorf("read engine: %w", err)
		}
		if score, ok := uci.ParseScore(line); ok {
			lastScore = score
			continue
		}
		token, ok := ParseBestMove(line)
		if !ok {
			continue
		}
		best := BestMove{Token: token, Mate: lastScore.IsMate && lastScore.Mate == 1}
		if token == "(none)" {
			best = BestMove{None: true}
		}
		b.logger.Info("best_move", zap.String("move", best.Token), zap.Bool("mate", best.Mate), zap.Bool("none", best.None))
		return best, nil
	}
}

// ParseBestMove returns the token of a "bestmove <token> [ponder ...]" line.
func ParseBestMove(line string) (string, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "bestmove" {
		return "", false
	}
	return parts[1], true
}

// ParseMateIn returns N for an info line scoring "mate N".
func ParseMateIn(line string) (int, bool) {
	score, ok := uci.ParseScore(line)
	if !ok || !score.IsMate {
		return 0, false
	}
	return score.Mate, true
}

func sleep(ctx context.Context, d time.Duration) error {
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
