// Package bot runs the play loop: wait for the opponent, relay to the
// engine, perform the reply, until mate.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/action"
	"github.com/park285/cheese-board-bot/internal/archive"
	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/chess"
	"github.com/park285/cheese-board-bot/internal/detect"
	"github.com/park285/cheese-board-bot/internal/domain"
	"github.com/park285/cheese-board-bot/internal/notify"
	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/pkg/botdto"
)

type Phase int

const (
	PhaseWaitOpponent Phase = iota
	PhaseThink
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseThink:
		return "think"
	case PhaseDone:
		return "done"
	default:
		return "wait_opponent"
	}
}

// SnapshotStore keeps the live game state; *store.Store implements it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *botdto.Snapshot) error
	AppendMove(ctx context.Context, id, token string) error
	Finish(ctx context.Context, id, outcome string) error
}

// Deps are the calibrated components a session drives. Store, Archive and
// Notifier are optional.
type Deps struct {
	Model    *board.Model
	Palette  palette.Computed
	Detector *detect.Detector
	Bridge   *chess.Bridge
	Executor *action.Executor

	Store    SnapshotStore
	Archive  archive.Repository
	Notifier *notify.Notifier
}

// Session owns all game state for one process run. It is driven from a
// single goroutine.
type Session struct {
	deps   Deps
	id     string
	logger *zap.Logger

	phase         Phase
	startedAt     time.Time
	engineMoves   int
	opponentMoves int
	endReason     string
	record        *domain.BotGame
}

func New(deps Deps, logger *zap.Logger) (*Session, error) {
	if deps.Model == nil || deps.Detector == nil || deps.Bridge == nil || deps.Executor == nil {
		return nil, errors.New("bot: model, detector, bridge and executor are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		deps:   deps,
		id:     id,
		logger: logger.With(zap.String("game", id), zap.String("side", deps.Model.Side().String())),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() Phase { return s.phase }

// Record is the archived game once Run has returned.
func (s *Session) Record() *domain.BotGame { return s.record }

// Run plays until the engine mates, has no move, or ctx ends. A mate or a
// position without moves returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.startedAt = time.Now().UTC()
	s.phase = PhaseWaitOpponent
	first := false
	if s.deps.Model.Side() == board.White {
		s.phase = PhaseThink
		first = true
	}
	s.logger.Info("game_started", zap.Stringer("phase", s.phase))
	s.saveSnapshot(ctx)
	s.publish(ctx, botdto.Event{Type: botdto.EventGameStarted})

	for {
		switch s.phase {
		case PhaseWaitOpponent:
			mv, err := s.deps.Detector.Wait(ctx)
			if err != nil {
				return s.finish(ctx, reasonFor(err), err)
			}
			token := mv.Token()
			if err := s.deps.Bridge.SubmitMove(token); err != nil {
				return s.finish(ctx, domain.EndError, err)
			}
			s.opponentMoves++
			s.moved(ctx, botdto.EventOpponentMove, token, false)
			s.phase = PhaseThink

		case PhaseThink:
			best, err := s.deps.Bridge.RequestBestMove(ctx, first)
			first = false
			if err != nil {
				return s.finish(ctx, reasonFor(err), err)
			}
			if best.None {
				s.endReason = domain.EndNoMove
				s.phase = PhaseDone
				continue
			}
			if err := s.play(ctx, best.Token); err != nil {
				return s.finish(ctx, reasonFor(err), err)
			}
			s.engineMoves++
			s.moved(ctx, botdto.EventEngineMove, best.Token, best.Mate)
			if best.Mate {
				s.endReason = domain.EndMate
				s.phase = PhaseDone
				continue
			}
			s.deps.Detector.Reset()
			s.phase = PhaseWaitOpponent

		case PhaseDone:
			return s.finish(ctx, s.endReason, nil)
		}
	}
}

// play records the engine's move before dragging it, the same order the
// opponent's moves take.
func (s *Session) play(ctx context.Context, token string) error {
	fromLabel, toLabel, err := board.SplitToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", chess.ErrInvalidToken, err)
	}
	from, ok := s.deps.Model.Lookup(fromLabel)
	if !ok {
		return fmt.Errorf("%w: %q", chess.ErrInvalidToken, token)
	}
	to, ok := s.deps.Model.Lookup(toLabel)
	if !ok {
		return fmt.Errorf("%w: %q", chess.ErrInvalidToken, token)
	}
	if err := s.deps.Bridge.SubmitMove(token); err != nil {
		return err
	}
	if err := s.deps.Executor.Execute(ctx, from, to); err != nil {
		return fmt.Errorf("perform %s: %w", token, err)
	}
	return nil
}

func (s *Session) moved(ctx context.Context, kind botdto.EventType, token string, mate bool) {
	replay := s.deps.Bridge.History().Replay()
	ev := botdto.Event{Type: kind, Move: token, Mate: mate}
	if replay.Complete(s.deps.Bridge.History()) && len(replay.SAN) > 0 {
		ev.SAN = replay.SAN[len(replay.SAN)-1]
		ev.FEN = replay.FEN()
	}
	s.appendMove(ctx, token)
	s.publish(ctx, ev)
}

func (s *Session) finish(ctx context.Context, reason string, cause error) error {
	s.phase = PhaseDone
	// persistence still runs when the play context was cancelled
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	history := s.deps.Bridge.History()
	replay := history.Replay()
	ended := time.Now().UTC()
	s.record = &domain.BotGame{
		GameUUID:      s.id,
		Side:          s.deps.Model.Side().String(),
		Result:        replay.Result(),
		ResultMethod:  replay.Method(),
		EndReason:     reason,
		MovesUCI:      history.Tokens(),
		MovesSAN:      replay.SAN,
		PGN:           replay.PGN(),
		FEN:           replay.FEN(),
		StartedAt:     s.startedAt,
		EndedAt:       ended,
		Duration:      ended.Sub(s.startedAt),
		EngineMoves:   s.engineMoves,
		OpponentMoves: s.opponentMoves,
	}
	if !replay.Complete(history) {
		s.logger.Warn("history_not_replayable", zap.Int("applied", replay.Applied), zap.Int("moves", history.Len()))
	}

	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("result", s.record.Result),
		zap.Int("moves", history.Len()),
	}
	if cause != nil {
		s.logger.Warn("game_stopped", append(fields, zap.Error(cause))...)
	} else {
		s.logger.Info("game_finished", fields...)
	}

	if s.deps.Archive != nil {
		id, err := s.deps.Archive.InsertGame(pctx, s.record)
		switch {
		case errors.Is(err, archive.ErrDuplicateGame):
			s.logger.Warn("archive_duplicate")
		case err != nil:
			s.logger.Warn("archive_failed", zap.Error(err))
		default:
			s.record.ID = id
		}
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.Finish(pctx, s.id, s.record.Result); err != nil {
			s.logger.Warn("snapshot_finish_failed", zap.Error(err))
		}
	}
	s.publish(pctx, botdto.Event{Type: botdto.EventGameFinished, Reason: reason, FEN: s.record.FEN})
	return cause
}

func (s *Session) saveSnapshot(ctx context.Context) {
	if s.deps.Store == nil {
		return
	}
	g := s.deps.Model.Geometry()
	snap := &botdto.Snapshot{
		GameID:     s.id,
		Side:       s.deps.Model.Side().String(),
		Phase:      s.phase.String(),
		OriginX:    g.Origin.X,
		OriginY:    g.Origin.Y,
		SquareSize: g.SquareSize,
		Palette: map[string]string{
			palette.LightHighlight: s.deps.Palette.LightHighlight.Hex(),
			palette.DarkHighlight:  s.deps.Palette.DarkHighlight.Hex(),
			palette.WhitePiece:     s.deps.Palette.WhitePiece.Hex(),
			palette.BlackPiece:     s.deps.Palette.BlackPiece.Hex(),
		},
		MovesUCI:  s.deps.Bridge.History().Tokens(),
		MoveCount: s.deps.Bridge.History().Len(),
		StartedAt: s.startedAt,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.deps.Store.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Warn("snapshot_save_failed", zap.Error(err))
	}
}

func (s *Session) appendMove(ctx context.Context, token string) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.AppendMove(ctx, s.id, token); err != nil {
		s.logger.Warn("snapshot_append_failed", zap.String("move", token), zap.Error(err))
	}
}

func (s *Session) publish(ctx context.Context, ev botdto.Event) {
	ev.GameID = s.id
	ev.Side = s.deps.Model.Side().String()
	ev.Ply = s.deps.Bridge.History().Len()
	s.deps.Notifier.Notify(ctx, ev)
}

func reasonFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.EndCanceled
	}
	return domain.EndError
}
