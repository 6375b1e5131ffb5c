package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/botbuilder"
	"github.com/park285/cheese-board-bot/internal/config"
	"github.com/park285/cheese-board-bot/internal/obslog"
	"github.com/park285/cheese-board-bot/internal/screen/robot"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		return 1
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := config.Load()
	if err != nil {
		obslog.Banner(os.Stderr, "config error: "+err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := robot.New(robot.WithDisplay(cfg.Display), robot.WithLogger(logger))
	deps, err := botbuilder.New(ctx, cfg, port, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		logger.Error("startup_failed", zap.Error(err))
		obslog.Banner(os.Stderr, err.Error())
		return 1
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown_error", zap.Error(err))
		}
	}()

	logger.Info("bot_ready",
		zap.String("game", deps.Session.ID()),
		zap.String("side", deps.Calibration.Side.String()),
		zap.String("snapshot", deps.Snapshot),
	)
	if err := deps.Session.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("interrupted")
			return 0
		}
		logger.Error("game_failed", zap.Error(err))
		obslog.Banner(os.Stderr, err.Error())
		return 1
	}
	if rec := deps.Session.Record(); rec != nil {
		logger.Info("game_over", zap.String("result", rec.Result), zap.String("reason", rec.EndReason), zap.String("pgn", rec.PGN))
	}
	return 0
}
