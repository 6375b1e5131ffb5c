package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-board-bot/pkg/botdto"
)

type FeedState int

const (
	FeedDisconnected FeedState = iota
	FeedConnecting
	FeedConnected
	FeedFailed
)

func (s FeedState) String() string {
	switch s {
	case FeedConnecting:
		return "connecting"
	case FeedConnected:
		return "connected"
	case FeedFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type StateCallback func(state FeedState)

var ErrFeedClosed = errors.New("event feed closed")

// Feed pushes events to a websocket observer. The bot is the dialing side;
// a dropped connection is redialed on the next Publish.
type Feed struct {
	wsURL string

	conn   *websocket.Conn
	state  FeedState
	connMu sync.Mutex

	stateCbs []StateCallback
	cbMu     sync.RWMutex

	maxDialAttempts int
	dialTimeout     time.Duration
	writeTimeout    time.Duration

	headerProvider HeaderProvider
	closed         bool
	logger         *zap.Logger
}

func NewFeed(wsURL string, maxDialAttempts int, logger *zap.Logger) *Feed {
	if maxDialAttempts <= 0 {
		maxDialAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		wsURL:           strings.TrimSpace(wsURL),
		state:           FeedDisconnected,
		maxDialAttempts: maxDialAttempts,
		dialTimeout:     10 * time.Second,
		writeTimeout:    5 * time.Second,
		logger:          logger,
	}
}

func (f *Feed) Name() string { return "websocket" }

// SetHeaderProvider injects headers into the websocket handshake.
func (f *Feed) SetHeaderProvider(h HeaderProvider) { f.headerProvider = h }

func (f *Feed) OnStateChange(cb StateCallback) {
	f.cbMu.Lock()
	defer f.cbMu.Unlock()
	f.stateCbs = append(f.stateCbs, cb)
}

func (f *Feed) State() FeedState {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	return f.state
}

// Connect dials the observer, retrying with backoff.
func (f *Feed) Connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	return f.connectLocked(ctx)
}

func (f *Feed) connectLocked(ctx context.Context) error {
	if f.closed {
		return ErrFeedClosed
	}
	if f.conn != nil {
		return nil
	}
	f.setStateLocked(FeedConnecting)

	var lastErr error
	for attempt := 1; attempt <= f.maxDialAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepWithContext(ctx, backoffDuration(attempt-1)); err != nil {
				break
			}
		}
		dialCtx, cancel := context.WithTimeout(ctx, f.dialTimeout)
		conn, _, err := websocket.Dial(dialCtx, f.wsURL, &websocket.DialOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
			HTTPHeader:      f.buildHeaders(),
		})
		cancel()
		if err != nil {
			lastErr = err
			f.logger.Debug("feed_dial_failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		// observers never send; CloseRead keeps control frames flowing
		conn.CloseRead(context.Background())
		f.conn = conn
		f.setStateLocked(FeedConnected)
		return nil
	}
	f.setStateLocked(FeedFailed)
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return lastErr
}

func (f *Feed) Publish(ctx context.Context, ev botdto.Event) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if err := f.connectLocked(ctx); err != nil {
		return err
	}

	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, f.writeTimeout)
		defer cancel()
	}
	if err := wsjson.Write(wctx, f.conn, ev); err != nil {
		_ = f.closeConnLocked(websocket.StatusGoingAway, "write failure")
		f.setStateLocked(FeedDisconnected)
		return err
	}
	return nil
}

func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	f.closed = true
	err := f.closeConnLocked(websocket.StatusNormalClosure, "close")
	f.setStateLocked(FeedDisconnected)
	return err
}

func (f *Feed) closeConnLocked(code websocket.StatusCode, reason string) error {
	if f.conn == nil {
		return nil
	}
	defer func() { f.conn = nil }()
	return f.conn.Close(code, reason)
}

func (f *Feed) setStateLocked(state FeedState) {
	if f.state == state {
		return
	}
	f.state = state

	f.cbMu.RLock()
	callbacks := make([]StateCallback, len(f.stateCbs))
	copy(callbacks, f.stateCbs)
	f.cbMu.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}

func (f *Feed) buildHeaders() http.Header {
	hdr := http.Header{}
	if f.headerProvider == nil {
		return hdr
	}
	for k, v := range f.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
