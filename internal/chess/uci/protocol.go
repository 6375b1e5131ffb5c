package uci

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultReadyTimeout = 4 * time.Second

type Options struct {
	Threads int
	HashMB  int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

func validateOptions(opt Options) error {
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	return nil
}

// Handshake runs uci/uciok, applies options, then isready/readyok.
func Handshake(ctx context.Context, p Port, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := p.Send("uci"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := awaitToken(initCtx, p, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	for _, cmd := range []string{
		fmt.Sprintf("setoption name Threads value %d", threads),
		fmt.Sprintf("setoption name Hash value %d", opt.HashMB),
	} {
		if err := p.Send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}

	if err := p.Send("isready"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := awaitToken(initCtx, p, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame resets the engine's search state for a fresh game.
func NewGame(ctx context.Context, p Port) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := p.Send("ucinewgame"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}
	if err := p.Send("isready"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := awaitToken(readyCtx, p, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func awaitToken(ctx context.Context, p Port, token string) error {
	for {
		line, err := p.ReadLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

// GoCommand renders the search command, e.g. "go movetime 1000".
func GoCommand(l Limits) (string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return "", fmt.Errorf("no search limits specified")
	}
	return strings.Join(args, " "), nil
}

// SearchTimeout bounds how long a search may take before the engine is
// considered unresponsive.
func SearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		return time.Duration(l.MoveTimeMillis)*time.Millisecond*3 + 6*time.Second
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

// Score is the evaluation on an info line. Mate is moves to mate when IsMate,
// negative when the side to move is being mated.
type Score struct {
	CP     int
	Mate   int
	IsMate bool
}

// ParseScore extracts "score cp N" or "score mate N" from an info line.
func ParseScore(line string) (Score, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return Score{}, false
	}
	for i := 1; i+2 < len(parts); i++ {
		if parts[i] != "score" {
			continue
		}
		v, err := strconv.Atoi(parts[i+2])
		if err != nil {
			return Score{}, false
		}
		switch parts[i+1] {
		case "cp":
			return Score{CP: v}, true
		case "mate":
			return Score{Mate: v, IsMate: true}, true
		}
		return Score{}, false
	}
	return Score{}, false
}
