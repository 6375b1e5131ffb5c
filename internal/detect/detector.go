// Package detect watches the calibrated board for the opponent's move.
package detect

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/internal/screen"
)

// ErrPaletteNotReady is returned when the highlight and piece colors have not
// been measured yet.
var ErrPaletteNotReady = errors.New("computed palette not ready")

const DefaultInterval = time.Second

type State int

const (
	Idle State = iota
	Polling
	MoveResolved
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case MoveResolved:
		return "move_resolved"
	default:
		return "idle"
	}
}

type Move struct {
	From string
	To   string
}

func (m Move) Token() string { return m.From + m.To }

// LastMover exposes the most recent move token of the game record.
type LastMover interface {
	Last() string
}

type Config struct {
	Light    palette.Color
	Dark     palette.Color
	Interval time.Duration
}

// Detector is a poll-driven state machine. Its classifiers are built once.
type Detector struct {
	port     screen.Port
	model    *board.Model
	history  LastMover
	opponent string
	interval time.Duration
	logger   *zap.Logger

	squares *palette.Classifier
	pieces  *palette.Classifier

	state       State
	lastEmitted string
}

func New(port screen.Port, model *board.Model, computed palette.Computed, cfg Config, history LastMover, logger *zap.Logger) (*Detector, error) {
	if !computed.Ready() {
		return nil, ErrPaletteNotReady
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opponent := palette.BlackPiece
	if model.Side() == board.Black {
		opponent = palette.WhitePiece
	}
	return &Detector{
		port:     port,
		model:    model,
		history:  history,
		opponent: opponent,
		interval: cfg.Interval,
		logger:   logger,
		squares: palette.NewClassifier(
			palette.Entry{Name: palette.LightSquare, Color: cfg.Light},
			palette.Entry{Name: palette.DarkSquare, Color: cfg.Dark},
			palette.Entry{Name: palette.LightHighlight, Color: computed.LightHighlight},
			palette.Entry{Name: palette.DarkHighlight, Color: computed.DarkHighlight},
		),
		pieces: palette.NewClassifier(
			palette.Entry{Name: palette.LightHighlight, Color: computed.LightHighlight},
			palette.Entry{Name: palette.DarkHighlight, Color: computed.DarkHighlight},
			palette.Entry{Name: palette.WhitePiece, Color: computed.WhitePiece},
			palette.Entry{Name: palette.BlackPiece, Color: computed.BlackPiece},
		),
	}, nil
}

func (d *Detector) State() State { return d.state }

// Reset returns to Idle after the resolved move was consumed. The last
// emitted token is kept so the same frame cannot resolve twice.
func (d *Detector) Reset() { d.state = Idle }

// Candidates scans every square once and returns the labels of highlighted
// squares: empty origins first, squares holding an opponent piece after.
// Squares with an unreadable sample are left out.
func (d *Detector) Candidates() []string {
	var origins, targets []string
	for _, sq := range d.model.Squares() {
		bg, ok := d.sample(sq.Label, sq.Click.X, sq.Click.Y)
		if !ok || !palette.IsHighlight(d.squares.Classify(bg)) {
			continue
		}
		piece, ok := d.sample(sq.Label, sq.Piece.X, sq.Piece.Y)
		if !ok {
			continue
		}
		name := d.pieces.Classify(piece)
		switch {
		case palette.IsHighlight(name):
			origins = append([]string{sq.Label}, origins...)
		case name == d.opponent:
			targets = append(targets, sq.Label)
		}
	}
	return append(origins, targets...)
}

// sample reads one live pixel. An unreadable pixel drops the square for this
// tick rather than counting as black.
func (d *Detector) sample(label string, x, y int) (palette.Color, bool) {
	raw := d.port.PixelColor(x, y)
	c, err := palette.ParseHex(raw)
	if err != nil {
		d.logger.Debug("unreadable_pixel", zap.String("square", label), zap.String("sample", raw))
		return palette.Color{}, false
	}
	return c, true
}

// Poll runs one detection tick.
func (d *Detector) Poll() (Move, bool) {
	d.state = Polling
	labels := d.Candidates()
	if len(labels) != 2 {
		d.logger.Debug("no_move_yet", zap.Strings("candidates", labels))
		return Move{}, false
	}
	mv := Move{From: labels[0], To: labels[1]}
	token := mv.Token()
	if token == d.lastEmitted || (d.history != nil && token == d.history.Last()) {
		d.logger.Debug("stale_move", zap.String("move", token))
		return Move{}, false
	}
	d.state = MoveResolved
	d.lastEmitted = token
	d.logger.Info("opponent_played", zap.String("move", token))
	return mv, true
}

// Wait polls until a move resolves or ctx ends. There is no other timeout.
func (d *Detector) Wait(ctx context.Context) (Move, error) {
	d.logger.Info("waiting_on_opponent")
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			d.state = Idle
			return Move{}, ctx.Err()
		case <-timer.C:
		}
		if mv, ok := d.Poll(); ok {
			return mv, nil
		}
		timer.Reset(d.interval)
	}
}
