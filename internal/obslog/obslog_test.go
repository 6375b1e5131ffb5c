package obslog

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	Banner(&buf, "Could not find chess board")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("banner lines = %q", lines)
	}
	if !strings.Contains(lines[0], "########## ERROR ##########") {
		t.Fatalf("marker line = %q", lines[0])
	}
	if len(lines[1]) != bannerWidth || !strings.HasPrefix(lines[1], "Could not find chess board.") {
		t.Fatalf("message line = %q", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitFromEnvWritesFile(t *testing.T) {
	path := t.TempDir() + "/logs/bot.log"
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_FORMAT", "json")
	if err := InitFromEnv(); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	t.Cleanup(func() { Set(nil) })
	L().Info("hello")
	Sync()
}
