// Command boardcheck captures the screen, locates the board and writes an
// annotated snapshot. It never clicks.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/calibrate"
	"github.com/park285/cheese-board-bot/internal/config"
	"github.com/park285/cheese-board-bot/internal/obslog"
	"github.com/park285/cheese-board-bot/internal/render"
	"github.com/park285/cheese-board-bot/internal/screen"
	"github.com/park285/cheese-board-bot/internal/screen/robot"
	"github.com/park285/cheese-board-bot/internal/screen/screentest"
)

func main() {
	demo := flag.Bool("demo", false, "calibrate against a rendered board instead of the desktop")
	view := flag.String("view", "white", "with -demo, the side the board is rendered from (white|black)")
	moves := flag.String("moves", "", "with -demo, space separated UCI moves to set up")
	out := flag.String("out", "", "snapshot directory (default SNAPSHOT_DIR or .)")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := config.Load()
	if err != nil {
		obslog.Banner(os.Stderr, "config error: "+err.Error())
		os.Exit(1)
	}
	light, dark, border := cfg.Colors()

	var port screen.Port = robot.New(robot.WithDisplay(cfg.Display), robot.WithLogger(logger))
	if *demo {
		side, err := board.ParseSide(strings.ToLower(strings.TrimSpace(*view)))
		if err != nil {
			obslog.Banner(os.Stderr, "demo board: "+err.Error())
			os.Exit(1)
		}
		layout := render.DefaultLayout()
		layout.Flipped = side == board.Black
		tbl, err := screentest.NewTable(render.New(render.DefaultTheme(light, dark, border), layout), strings.Fields(*moves)...)
		if err != nil {
			obslog.Banner(os.Stderr, "demo board: "+err.Error())
			os.Exit(1)
		}
		port = tbl
	}

	res, err := calibrate.New(port, calibrate.Options{Light: light, Dark: dark, Border: border, Stride: cfg.ScanStride}, logger).
		Calibrate(context.Background())
	if err != nil {
		obslog.Banner(os.Stderr, err.Error())
		os.Exit(1)
	}
	g := res.Model.Geometry()
	logger.Info("board_found",
		zap.String("side", res.Side.String()),
		zap.Int("x", g.Origin.X),
		zap.Int("y", g.Origin.Y),
		zap.Int("width", g.Width),
		zap.Int("height", g.Height),
		zap.Int("square_size", g.SquareSize),
	)

	dir := *out
	if dir == "" {
		dir = cfg.SnapshotDir
	}
	if dir == "" {
		dir = "."
	}
	src, ok := res.Frame.(interface{ Image() image.Image })
	if !ok {
		logger.Warn("snapshot_unsupported_frame")
		return
	}
	path, err := render.WriteSnapshot(dir, src.Image(), res.Model)
	if err != nil {
		obslog.Banner(os.Stderr, "snapshot: "+err.Error())
		os.Exit(1)
	}
	fmt.Println(path)
}
