// Package botbuilder wires configuration into a ready-to-run bot session.
package botbuilder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/action"
	"github.com/park285/cheese-board-bot/internal/archive"
	"github.com/park285/cheese-board-bot/internal/bot"
	"github.com/park285/cheese-board-bot/internal/calibrate"
	"github.com/park285/cheese-board-bot/internal/chess"
	"github.com/park285/cheese-board-bot/internal/chess/uci"
	"github.com/park285/cheese-board-bot/internal/config"
	"github.com/park285/cheese-board-bot/internal/detect"
	"github.com/park285/cheese-board-bot/internal/notify"
	"github.com/park285/cheese-board-bot/internal/render"
	"github.com/park285/cheese-board-bot/internal/screen"
	"github.com/park285/cheese-board-bot/internal/store"
)

// Ports are the two outside surfaces the bot drives.
type Ports struct {
	Screen screen.Port
	Engine uci.Port
}

type Deps struct {
	Session     *bot.Session
	Calibration *calibrate.Result
	Snapshot    string

	closers []func() error
}

// Close releases everything New opened, last opened first.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// New starts the engine and assembles the session on port, normally the
// desktop adapter from screen/robot.
func New(ctx context.Context, cfg *config.AppConfig, port screen.Port, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required for chess engine")
	}

	engine, err := uci.NewSession(ctx, cfg.StockfishPath, uci.Options{Threads: cfg.EngineThreads, HashMB: cfg.EngineHashMB}, logger)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	deps, err := Assemble(ctx, cfg, Ports{Screen: port, Engine: engine}, logger)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	deps.closers = append([]func() error{engine.Close}, deps.closers...)
	return deps, nil
}

// Assemble calibrates the board on ports.Screen and builds the session
// around ports.Engine, which must already have completed its handshake.
func Assemble(ctx context.Context, cfg *config.AppConfig, ports Ports, logger *zap.Logger) (*Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = deps.Close()
		return nil, err
	}
	light, dark, border := cfg.Colors()

	res, err := calibrate.New(ports.Screen, calibrate.Options{
		Light:  light,
		Dark:   dark,
		Border: border,
		Stride: cfg.ScanStride,
	}, logger.Named("calibrate")).Calibrate(ctx)
	if err != nil {
		return fail(fmt.Errorf("calibrate board: %w", err))
	}
	deps.Calibration = res
	if dir := strings.TrimSpace(cfg.SnapshotDir); dir != "" {
		deps.Snapshot = writeSnapshot(dir, res, logger)
	}

	if err := uci.NewGame(ctx, ports.Engine); err != nil {
		return fail(fmt.Errorf("start engine game: %w", err))
	}

	computed, err := calibrate.NewPaletteCalibrator(ports.Screen, cfg.ClickSettle(), logger.Named("palette")).Calibrate(ctx, res.Model)
	if err != nil {
		return fail(fmt.Errorf("calibrate palette: %w", err))
	}

	history := chess.NewHistory()
	detector, err := detect.New(ports.Screen, res.Model, computed, detect.Config{
		Light:    light,
		Dark:     dark,
		Interval: cfg.PollInterval(),
	}, history, logger.Named("detect"))
	if err != nil {
		return fail(err)
	}
	bridge := chess.NewBridge(
		ports.Engine,
		history,
		chess.NewPacer(cfg.WaitMin(), cfg.WaitMax()),
		uci.Limits{MoveTimeMillis: cfg.EngineMoveTimeMs},
		logger.Named("engine"),
	)

	sessionDeps := bot.Deps{
		Model:    res.Model,
		Palette:  computed,
		Detector: detector,
		Bridge:   bridge,
		Executor: action.NewExecutor(ports.Screen, cfg.ActionDelay(), logger.Named("action")),
	}

	// Redis (optional)
	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		rdb, err := store.Open(ctx, url)
		if err != nil {
			return fail(err)
		}
		deps.closers = append(deps.closers, rdb.Close)
		sessionDeps.Store = store.NewStore(rdb)
	}

	// Archive (Postgres, in-memory when unset)
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := archive.Open(ctx, dsn)
		if err != nil {
			return fail(err)
		}
		deps.closers = append(deps.closers, db.Close)
		sessionDeps.Archive = archive.NewRepository(db)
	} else {
		sessionDeps.Archive = archive.NewMemoryRepository()
	}

	// Notifications (optional)
	var sinks []notify.Sink
	headers := func() map[string]string {
		h := map[string]string{}
		if token := strings.TrimSpace(cfg.NotifyToken); token != "" {
			h["Authorization"] = "Bearer " + token
		}
		return h
	}
	if url := strings.TrimSpace(cfg.NotifyWebhookURL); url != "" {
		sinks = append(sinks, notify.NewWebhook(url, notify.WithHeaderProvider(headers)))
	}
	if url := strings.TrimSpace(cfg.NotifyWSURL); url != "" {
		feed := notify.NewFeed(url, 3, logger.Named("notify"))
		feed.SetHeaderProvider(headers)
		feed.OnStateChange(func(s notify.FeedState) {
			logger.Info("notify_feed_state", zap.Stringer("state", s))
		})
		deps.closers = append(deps.closers, feed.Close)
		sinks = append(sinks, feed)
	}
	sessionDeps.Notifier = notify.NewNotifier(logger.Named("notify"), sinks...)

	session, err := bot.New(sessionDeps, logger.Named("bot"))
	if err != nil {
		return fail(err)
	}
	deps.Session = session
	return deps, nil
}

// writeSnapshot is best effort; a failure only costs the debug image.
func writeSnapshot(dir string, res *calibrate.Result, logger *zap.Logger) string {
	src, ok := res.Frame.(interface{ Image() image.Image })
	if !ok || src.Image() == nil {
		logger.Warn("snapshot_unsupported_frame")
		return ""
	}
	path, err := render.WriteSnapshot(dir, src.Image(), res.Model)
	if err != nil {
		logger.Warn("snapshot_failed", zap.Error(err))
		return ""
	}
	logger.Info("snapshot_written", zap.String("path", path))
	return path
}
