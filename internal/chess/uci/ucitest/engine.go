// Package ucitest provides a scripted in-memory engine for tests.
package ucitest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/park285/cheese-board-bot/internal/chess/uci"
)

// ErrExited simulates the engine process ending.
var ErrExited = errors.New("engine exited")

// Engine answers the handshake by itself and replies to each "go" with the
// next scripted search. A search with no script left produces no output.
type Engine struct {
	mu       sync.Mutex
	sent     []string
	searches [][]string
	pending  []string
	notify   chan struct{}
	exited   bool
}

func New(searches ...[]string) *Engine {
	return &Engine{searches: searches, notify: make(chan struct{}, 1)}
}

// Search queues the output of one more search.
func (e *Engine) Search(lines ...string) {
	e.mu.Lock()
	e.searches = append(e.searches, lines)
	e.mu.Unlock()
}

// BestMove queues a search that ends in bestmove token.
func (e *Engine) BestMove(token string) {
	e.Search("info depth 10 score cp 25 pv "+token, "bestmove "+token)
}

// Exit makes every later ReadLine fail.
func (e *Engine) Exit() {
	e.mu.Lock()
	e.exited = true
	e.mu.Unlock()
	e.wake()
}

func (e *Engine) Send(cmd string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited {
		return ErrExited
	}
	e.sent = append(e.sent, cmd)
	switch {
	case cmd == "uci":
		e.pending = append(e.pending, "id name ucitest", "uciok")
	case cmd == "isready":
		e.pending = append(e.pending, "readyok")
	case cmd == "d":
		e.pending = append(e.pending, " +---+---+---+---+---+---+---+---+", "Fen: scripted")
	case strings.HasPrefix(cmd, "go"):
		if len(e.searches) > 0 {
			e.pending = append(e.pending, e.searches[0]...)
			e.searches = e.searches[1:]
		}
	}
	e.wakeLocked()
	return nil
}

func (e *Engine) ReadLine(ctx context.Context) (string, error) {
	for {
		e.mu.Lock()
		if len(e.pending) > 0 {
			line := e.pending[0]
			e.pending = e.pending[1:]
			e.mu.Unlock()
			return line, nil
		}
		exited := e.exited
		e.mu.Unlock()
		if exited {
			return "", ErrExited
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-e.notify:
		}
	}
}

// Sent returns every command received so far.
func (e *Engine) Sent() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sent...)
}

// SentWithPrefix filters Sent by prefix.
func (e *Engine) SentWithPrefix(prefix string) []string {
	var out []string
	for _, cmd := range e.Sent() {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

func (e *Engine) wake() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wakeLocked()
}

func (e *Engine) wakeLocked() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

var _ uci.Port = (*Engine)(nil)
