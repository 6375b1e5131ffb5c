package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/park285/cheese-board-bot/internal/palette"
)

type AppConfig struct {
	LightSquare string `yaml:"light_square"`
	DarkSquare  string `yaml:"dark_square"`
	Border      string `yaml:"border"`

	WaitMinMs int `yaml:"wait_min_ms"`
	WaitMaxMs int `yaml:"wait_max_ms"`

	StockfishPath    string `yaml:"stockfish_path"`
	EngineMoveTimeMs int    `yaml:"engine_movetime_ms"`
	EngineThreads    int    `yaml:"engine_threads"`
	EngineHashMB     int    `yaml:"engine_hash_mb"`

	PollIntervalMs int `yaml:"poll_interval_ms"`
	ScanStride     int `yaml:"scan_stride"`
	ClickSettleMs  int `yaml:"click_settle_ms"`
	ActionDelayMs  int `yaml:"action_delay_ms"`
	Display        int `yaml:"display"`

	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	NotifyWebhookURL string `yaml:"notify_webhook_url"`
	NotifyWSURL      string `yaml:"notify_ws_url"`
	NotifyToken      string `yaml:"notify_token"`
	SnapshotDir      string `yaml:"snapshot_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		LightSquare:      "EDEDD6",
		DarkSquare:       "80945F",
		Border:           "302E2B",
		WaitMinMs:        1500,
		WaitMaxMs:        2500,
		StockfishPath:    "stockfish",
		EngineMoveTimeMs: 1000,
		EngineThreads:    1,
		EngineHashMB:     16,
		PollIntervalMs:   1000,
		ScanStride:       100,
		ClickSettleMs:    250,
		ActionDelayMs:    200,
	}
}

// Load applies defaults, then the YAML file named by BOT_CONFIG_FILE, then
// environment overrides. Unparsable numeric overrides are ignored.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("BOT_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	setString(&cfg.LightSquare, "BOARD_LIGHT_SQUARE")
	setString(&cfg.DarkSquare, "BOARD_DARK_SQUARE")
	setString(&cfg.Border, "BOARD_BORDER")
	setInt(&cfg.WaitMinMs, "WAIT_MIN_MS", true)
	setInt(&cfg.WaitMaxMs, "WAIT_MAX_MS", true)

	setString(&cfg.StockfishPath, "STOCKFISH_PATH")
	setInt(&cfg.EngineMoveTimeMs, "ENGINE_MOVETIME_MS", false)
	setInt(&cfg.EngineThreads, "ENGINE_THREADS", false)
	setInt(&cfg.EngineHashMB, "ENGINE_HASH_MB", false)

	setInt(&cfg.PollIntervalMs, "POLL_INTERVAL_MS", false)
	setInt(&cfg.ScanStride, "SCAN_STRIDE", false)
	setInt(&cfg.ClickSettleMs, "CLICK_SETTLE_MS", true)
	setInt(&cfg.ActionDelayMs, "ACTION_DELAY_MS", true)
	setInt(&cfg.Display, "DISPLAY_INDEX", true)

	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.NotifyWebhookURL, "NOTIFY_WEBHOOK_URL")
	setString(&cfg.NotifyWSURL, "NOTIFY_WS_URL")
	setString(&cfg.NotifyToken, "NOTIFY_TOKEN")
	setString(&cfg.SnapshotDir, "SNAPSHOT_DIR")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) Validate() error {
	for name, v := range map[string]string{
		"BOARD_LIGHT_SQUARE": c.LightSquare,
		"BOARD_DARK_SQUARE":  c.DarkSquare,
		"BOARD_BORDER":       c.Border,
	} {
		if _, err := palette.ParseHex(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.WaitMinMs > c.WaitMaxMs {
		return fmt.Errorf("WAIT_MIN_MS (%d) must not exceed WAIT_MAX_MS (%d)", c.WaitMinMs, c.WaitMaxMs)
	}
	if c.StockfishPath == "" {
		return errors.New("STOCKFISH_PATH is required")
	}
	if c.EngineMoveTimeMs <= 0 || c.PollIntervalMs <= 0 || c.ScanStride <= 0 {
		return errors.New("ENGINE_MOVETIME_MS, POLL_INTERVAL_MS and SCAN_STRIDE must be positive")
	}
	if c.EngineHashMB <= 0 {
		return fmt.Errorf("ENGINE_HASH_MB must be > 0: %d", c.EngineHashMB)
	}
	return nil
}

// Colors returns the parsed reference colors. Call after Validate.
func (c *AppConfig) Colors() (light, dark, border palette.Color) {
	return palette.MustHex(c.LightSquare), palette.MustHex(c.DarkSquare), palette.MustHex(c.Border)
}

func (c *AppConfig) WaitMin() time.Duration      { return ms(c.WaitMinMs) }
func (c *AppConfig) WaitMax() time.Duration      { return ms(c.WaitMaxMs) }
func (c *AppConfig) PollInterval() time.Duration { return ms(c.PollIntervalMs) }
func (c *AppConfig) ClickSettle() time.Duration  { return ms(c.ClickSettleMs) }
func (c *AppConfig) ActionDelay() time.Duration  { return ms(c.ActionDelayMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string, allowZero bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return
	}
	*dst = n
}
