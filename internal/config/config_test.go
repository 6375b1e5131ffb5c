package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/cheese-board-bot/internal/palette"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	light, dark, border := cfg.Colors()
	if light != palette.MustHex("ededd6") || dark != palette.MustHex("80945f") || border != palette.MustHex("302e2b") {
		t.Fatalf("colors = %s %s %s", light, dark, border)
	}
	if cfg.WaitMin() != 1500*time.Millisecond || cfg.WaitMax() != 2500*time.Millisecond {
		t.Fatalf("wait = %v..%v", cfg.WaitMin(), cfg.WaitMax())
	}
	if cfg.EngineMoveTimeMs != 1000 || cfg.ScanStride != 100 || cfg.ClickSettle() != 250*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOARD_LIGHT_SQUARE", " #F0D9B5 ")
	t.Setenv("WAIT_MIN_MS", "0")
	t.Setenv("WAIT_MAX_MS", "100")
	t.Setenv("ENGINE_MOVETIME_MS", "not-a-number")
	t.Setenv("SCAN_STRIDE", "0")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LightSquare != "#F0D9B5" {
		t.Fatalf("light = %q", cfg.LightSquare)
	}
	if cfg.WaitMinMs != 0 || cfg.WaitMaxMs != 100 {
		t.Fatalf("wait = %d..%d", cfg.WaitMinMs, cfg.WaitMaxMs)
	}
	// bad or zero values fall back to defaults
	if cfg.EngineMoveTimeMs != 1000 || cfg.ScanStride != 100 {
		t.Fatalf("movetime=%d stride=%d", cfg.EngineMoveTimeMs, cfg.ScanStride)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("redis = %q", cfg.RedisURL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	data := []byte("dark_square: \"769656\"\nwait_min_ms: 500\nwait_max_ms: 900\nsnapshot_dir: /tmp/snaps\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BOT_CONFIG_FILE", path)
	t.Setenv("WAIT_MAX_MS", "1200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DarkSquare != "769656" || cfg.WaitMinMs != 500 || cfg.SnapshotDir != "/tmp/snaps" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.WaitMaxMs != 1200 {
		t.Fatalf("env should win over file, got %d", cfg.WaitMaxMs)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("bad color", func(t *testing.T) {
		t.Setenv("BOARD_BORDER", "302E2")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("inverted wait", func(t *testing.T) {
		t.Setenv("WAIT_MIN_MS", "3000")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("BOT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := Load(); err == nil {
			t.Fatalf("expected error")
		}
	})
}
