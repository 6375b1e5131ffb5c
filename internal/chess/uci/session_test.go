package uci

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fakeEngine = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo "id name shell"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) echo "info depth 1 score mate 1 pv d8h4"; echo "bestmove d8h4" ;;
    flood) i=0; while [ $i -lt 400 ]; do echo "info string $i"; i=$((i+1)); done ;;
    crash) exit 3 ;;
    quit) exit 0 ;;
  esac
done
`

func writeEngine(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte(fakeEngine), 0o755); err != nil {
		t.Fatalf("write engine: %v", err)
	}
	return path
}

func TestSessionSearch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := NewSession(ctx, writeEngine(t), Options{Threads: 1, HashMB: 16}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := NewGame(ctx, s); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := s.Send("go movetime 10"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var lines []string
	for {
		line, err := s.ReadLine(ctx)
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		lines = append(lines, line)
		if strings.HasPrefix(line, "bestmove") {
			break
		}
	}
	if len(lines) != 2 || lines[1] != "bestmove d8h4" {
		t.Fatalf("lines = %q", lines)
	}
	if score, ok := ParseScore(lines[0]); !ok || !score.IsMate || score.Mate != 1 {
		t.Fatalf("score = %+v, %v", score, ok)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSessionEngineExit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := NewSession(ctx, writeEngine(t), Options{HashMB: 16}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()
	if err := s.Send("crash"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := s.ReadLine(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestCloseStopsBlockedReader(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := NewSession(ctx, writeEngine(t), Options{HashMB: 16}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Send("flood"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// nobody reads, so the reader ends up parked on a full buffer
	for len(s.lines) < lineBuffer {
		if ctx.Err() != nil {
			t.Fatalf("buffer never filled: %d lines", len(s.lines))
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = s.Close()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("reader goroutine still running after Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewSessionMissingBinary(t *testing.T) {
	_, err := NewSession(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{HashMB: 16}, nil)
	if err == nil {
		t.Fatalf("expected start error")
	}
}
