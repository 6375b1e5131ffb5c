package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-board-bot/internal/action"
	"github.com/park285/cheese-board-bot/internal/archive"
	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/chess"
	"github.com/park285/cheese-board-bot/internal/chess/uci"
	"github.com/park285/cheese-board-bot/internal/chess/uci/ucitest"
	"github.com/park285/cheese-board-bot/internal/detect"
	"github.com/park285/cheese-board-bot/internal/domain"
	"github.com/park285/cheese-board-bot/internal/notify"
	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/internal/render"
	"github.com/park285/cheese-board-bot/internal/screen/screentest"
	"github.com/park285/cheese-board-bot/internal/store"
	"github.com/park285/cheese-board-bot/pkg/botdto"
)

var theme = render.DefaultTheme(palette.MustHex("ededd6"), palette.MustHex("80945f"), palette.MustHex("302e2b"))

type eventLog struct {
	mu     sync.Mutex
	events []botdto.Event
}

func (l *eventLog) Name() string { return "test" }

func (l *eventLog) Publish(ctx context.Context, ev botdto.Event) error {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) summary() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, ev := range l.events {
		s := string(ev.Type)
		if ev.Move != "" {
			s += ":" + ev.Move
		}
		if ev.Mate {
			s += "#"
		}
		out = append(out, s)
	}
	return out
}

type fixture struct {
	table   *screentest.Table
	engine  *ucitest.Engine
	store   *store.Store
	archive archive.Repository
	events  *eventLog
	session *Session
}

func newFixture(t *testing.T, side board.Side, opening ...string) *fixture {
	t.Helper()
	layout := render.DefaultLayout()
	layout.Flipped = side == board.Black
	tbl, err := screentest.NewTable(render.New(theme, layout), opening...)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	model, err := board.Build(board.NewGeometry(130, 90, 609, 569), side)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	computed := palette.Computed{
		LightHighlight: theme.LightHighlight,
		DarkHighlight:  theme.DarkHighlight,
		WhitePiece:     theme.WhitePiece,
		BlackPiece:     theme.BlackPiece,
	}
	computed.MarkReady()

	eng := ucitest.New()
	history := chess.NewHistory()
	bridge := chess.NewBridge(eng, history, chess.NewPacer(0, 0), uci.Limits{MoveTimeMillis: 50}, nil)
	detector, err := detect.New(tbl, model, computed, detect.Config{Light: theme.Light, Dark: theme.Dark, Interval: time.Millisecond}, history, nil)
	if err != nil {
		t.Fatalf("detect.New: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		table:   tbl,
		engine:  eng,
		store:   store.NewStore(rdb),
		archive: archive.NewMemoryRepository(),
		events:  &eventLog{},
	}
	f.session, err = New(Deps{
		Model:    model,
		Palette:  computed,
		Detector: detector,
		Bridge:   bridge,
		Executor: action.NewExecutor(tbl, 0, nil),
		Store:    f.store,
		Archive:  f.archive,
		Notifier: notify.NewNotifier(nil, f.events),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func (f *fixture) run(t *testing.T, timeout time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.session.Run(ctx)
}

func mateIn1(token string) []string {
	return []string{"info depth 1 seldepth 1 score mate 1 pv " + token, "bestmove " + token}
}

func TestRunAsWhiteUntilMate(t *testing.T) {
	f := newFixture(t, board.White)
	f.table.Reply("e7e5", "b8c6", "g8f6")
	f.engine.BestMove("e2e4")
	f.engine.BestMove("f1c4")
	f.engine.BestMove("d1h5")
	f.engine.Search(mateIn1("h5f7")...)

	if err := f.run(t, 10*time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := f.table.Err(); err != nil {
		t.Fatalf("table: %v", err)
	}

	want := []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"}
	if diff := cmp.Diff(want, f.table.Moves()); diff != "" {
		t.Fatalf("board moves mismatch (-want +got):\n%s", diff)
	}

	rec := f.session.Record()
	if rec.Result != "1-0" || rec.ResultMethod != "checkmate" || rec.EndReason != domain.EndMate {
		t.Fatalf("record = %+v", rec)
	}
	if diff := cmp.Diff(want, rec.MovesUCI); diff != "" {
		t.Fatalf("record moves mismatch (-want +got):\n%s", diff)
	}
	if rec.EngineMoves != 4 || rec.OpponentMoves != 3 || rec.ID != 1 {
		t.Fatalf("counts = engine %d opponent %d id %d", rec.EngineMoves, rec.OpponentMoves, rec.ID)
	}
	if f.session.Phase() != PhaseDone {
		t.Fatalf("phase = %s", f.session.Phase())
	}

	// the mating move is performed and no search follows it
	if got := len(f.engine.SentWithPrefix("go")); got != 4 {
		t.Fatalf("go commands = %d, want 4", got)
	}
	if got := f.engine.SentWithPrefix("position"); got[len(got)-1] != "position startpos move e2e4 e7e5 f1c4 b8c6 d1h5 g8f6 h5f7" {
		t.Fatalf("last position = %q", got[len(got)-1])
	}

	wantEvents := []string{
		"game_started",
		"engine_move:e2e4", "opponent_move:e7e5",
		"engine_move:f1c4", "opponent_move:b8c6",
		"engine_move:d1h5", "opponent_move:g8f6",
		"engine_move:h5f7#", "game_finished",
	}
	if diff := cmp.Diff(wantEvents, f.events.summary()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAsBlackUntilMate(t *testing.T) {
	f := newFixture(t, board.Black, "f2f3")
	f.table.Reply("g2g4")
	f.engine.BestMove("e7e5")
	f.engine.Search(mateIn1("d8h4")...)

	if err := f.run(t, 10*time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := f.session.Record()
	var san []string
	for _, m := range rec.MovesSAN {
		san = append(san, strings.TrimRight(m, "+#"))
	}
	if diff := cmp.Diff([]string{"f3", "e5", "g4", "Qh4"}, san); diff != "" {
		t.Fatalf("SAN mismatch (-want +got):\n%s", diff)
	}
	if rec.Result != "0-1" || rec.Side != "black" {
		t.Fatalf("record = %+v", rec)
	}

	ctx := context.Background()
	snap, err := f.store.LoadSnapshot(ctx, f.session.ID())
	if err != nil || snap == nil {
		t.Fatalf("LoadSnapshot = %v, %v", snap, err)
	}
	if snap.Outcome != "0-1" || snap.MoveCount != 4 || snap.SquareSize != 60 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Palette[palette.WhitePiece] != theme.WhitePiece.Hex() {
		t.Fatalf("palette = %v", snap.Palette)
	}
	if cur, _ := f.store.Current(ctx); cur != "" {
		t.Fatalf("current game still set: %q", cur)
	}
	archived, err := f.archive.GetGameByUUID(ctx, f.session.ID())
	if err != nil || archived == nil || archived.Result != "0-1" {
		t.Fatalf("archived = %+v, %v", archived, err)
	}
}

func TestRunStopsWhenEngineHasNoMove(t *testing.T) {
	f := newFixture(t, board.White)
	f.engine.Search("info depth 0 score mate 0", "bestmove (none)")
	if err := f.run(t, 5*time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec := f.session.Record(); rec.EndReason != domain.EndNoMove || len(rec.MovesUCI) != 0 {
		t.Fatalf("record = %+v", rec)
	}
	if n := len(f.table.Actions()); n != 0 {
		t.Fatalf("%d mouse actions without a move", n)
	}
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	f := newFixture(t, board.Black)
	err := f.run(t, 30*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	rec := f.session.Record()
	if rec.EndReason != domain.EndCanceled || rec.Result != "*" {
		t.Fatalf("record = %+v", rec)
	}
	// the record is archived even though the play context ended
	if got, _ := f.archive.GetGameByUUID(context.Background(), f.session.ID()); got == nil {
		t.Fatalf("cancelled game not archived")
	}
}

func TestRunEngineExit(t *testing.T) {
	f := newFixture(t, board.White)
	f.engine.Exit()
	err := f.run(t, 5*time.Second)
	if err == nil {
		t.Fatalf("expected error")
	}
	if rec := f.session.Record(); rec.EndReason != domain.EndError {
		t.Fatalf("reason = %q", rec.EndReason)
	}
}

func TestRunRejectsBadEngineToken(t *testing.T) {
	f := newFixture(t, board.White)
	f.engine.Search("bestmove z9z9")
	err := f.run(t, 5*time.Second)
	if !errors.Is(err, chess.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(f.session.Record().MovesUCI) != 0 {
		t.Fatalf("bad token recorded: %v", f.session.Record().MovesUCI)
	}
}

func TestNewRequiresComponents(t *testing.T) {
	if _, err := New(Deps{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
