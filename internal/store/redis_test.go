package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-board-bot/pkg/botdto"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	snap := &botdto.Snapshot{
		GameID:     "g-1",
		Side:       "black",
		Phase:      "wait_opponent",
		OriginX:    130,
		OriginY:    90,
		SquareSize: 60,
		Palette:    map[string]string{"white": "f9f9f9"},
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	for _, mv := range []string{"e2e4", "e7e5", ""} {
		if err := s.AppendMove(ctx, "g-1", mv); err != nil {
			t.Fatalf("AppendMove: %v", err)
		}
	}

	got, err := s.LoadSnapshot(ctx, "g-1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	want := *snap
	want.MovesUCI = []string{"e2e4", "e7e5"}
	want.MoveCount = 2
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	cur, err := s.Current(ctx)
	if err != nil || cur != "g-1" {
		t.Fatalf("Current = %q, %v", cur, err)
	}
	if ttl := mr.TTL("cbb:game:g-1"); ttl != ttlGame {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	s, _ := newStore(t)
	got, err := s.LoadSnapshot(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("LoadSnapshot = %v, %v; want nil, nil", got, err)
	}
	cur, err := s.Current(context.Background())
	if err != nil || cur != "" {
		t.Fatalf("Current = %q, %v", cur, err)
	}
}

func TestFinishClearsCurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	if err := s.SaveSnapshot(ctx, &botdto.Snapshot{GameID: "g-2", Phase: "think"}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.Finish(ctx, "g-2", "1-0"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err := s.LoadSnapshot(ctx, "g-2")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Phase != "done" || got.Outcome != "1-0" {
		t.Fatalf("finished snapshot = %+v", got)
	}
	if cur, _ := s.Current(ctx); cur != "" {
		t.Fatalf("current still %q", cur)
	}
	if err := s.Finish(ctx, "unknown", "*"); err != nil {
		t.Fatalf("Finish unknown: %v", err)
	}
}

func TestSaveSnapshotRequiresID(t *testing.T) {
	s, _ := newStore(t)
	if err := s.SaveSnapshot(context.Background(), &botdto.Snapshot{}); err == nil {
		t.Fatalf("expected error")
	}
}
