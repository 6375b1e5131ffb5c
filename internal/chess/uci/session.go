package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by ReadLine once the engine's stdout has ended.
var ErrClosed = errors.New("engine output closed")

const lineBuffer = 256

// Port is the line-based engine channel: one command per Send, one trimmed
// output line per ReadLine.
type Port interface {
	Send(cmd string) error
	ReadLine(ctx context.Context) (string, error)
}

// Session is a running engine subprocess. A single reader goroutine drains
// stdout into a buffered channel so output is never lost between reads.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	mu     sync.Mutex
	lines  chan string
	done   chan struct{}
	stop   chan struct{}
	once   sync.Once
	closed bool
	err    error
	logger *zap.Logger
}

// NewSession starts the engine binary and completes the UCI handshake.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// not tied to ctx: the engine lives as long as the session, Close ends it
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		logger: logger,
	}
	go s.pump(bufio.NewReader(stdoutPipe))

	if err := Handshake(ctx, s, opt); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("engine_ready", zap.String("path", binaryPath), zap.Int("pid", cmd.Process.Pid))
	return s, nil
}

func (s *Session) pump(r *bufio.Reader) {
	defer close(s.done)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			s.logger.Debug("engine_out", zap.String("line", line))
			select {
			case s.lines <- line:
			case <-s.stop:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			return
		}
	}
}

func (s *Session) Send(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("engine_in", zap.String("line", cmd))
	_, err := io.WriteString(s.stdin, cmd+"\n")
	return err
}

func (s *Session) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-s.lines:
		return line, nil
	case <-s.done:
		// drain what the pump queued before it stopped
		select {
		case line := <-s.lines:
			return line, nil
		default:
		}
		if s.err != nil {
			return "", fmt.Errorf("%w: %v", ErrClosed, s.err)
		}
		return "", ErrClosed
	}
}

// Close stops the engine. The reader exits even when its buffer is full.
func (s *Session) Close() error {
	s.once.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}

var _ Port = (*Session)(nil)
