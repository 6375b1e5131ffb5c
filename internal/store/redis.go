// Package store keeps the live state of the running game in Redis so an
// operator can inspect it while the bot plays.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-board-bot/pkg/botdto"
)

const ttlGame = 24 * time.Hour

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Open parses a redis:// URL and verifies the server answers.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (s *Store) keyGame(id string) string  { return "cbb:game:" + strings.TrimSpace(id) }
func (s *Store) keyMoves(id string) string { return s.keyGame(id) + ":moves" }
func (s *Store) keyCurrent() string        { return "cbb:current" }

// SaveSnapshot stores the snapshot and points the current-game key at it.
func (s *Store) SaveSnapshot(ctx context.Context, snap *botdto.Snapshot) error {
	if snap == nil || strings.TrimSpace(snap.GameID) == "" {
		return fmt.Errorf("snapshot without game id")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyGame(snap.GameID), raw, ttlGame).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyMoves(snap.GameID), ttlGame).Err()
	return s.rdb.Set(ctx, s.keyCurrent(), snap.GameID, ttlGame).Err()
}

// LoadSnapshot returns nil, nil when the game is unknown or expired.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (*botdto.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.keyGame(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap botdto.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	moves, err := s.Moves(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(moves) > 0 {
		snap.MovesUCI = moves
		snap.MoveCount = len(moves)
	}
	return &snap, nil
}

// Current returns the id of the game most recently saved, or "".
func (s *Store) Current(ctx context.Context) (string, error) {
	id, err := s.rdb.Get(ctx, s.keyCurrent()).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

func (s *Store) AppendMove(ctx context.Context, id, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.rdb.RPush(ctx, s.keyMoves(id), token).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyMoves(id), ttlGame).Err()
}

func (s *Store) Moves(ctx context.Context, id string) ([]string, error) {
	return s.rdb.LRange(ctx, s.keyMoves(id), 0, -1).Result()
}

// Finish records the outcome on the stored snapshot and releases the
// current-game pointer if it still names this game.
func (s *Store) Finish(ctx context.Context, id, outcome string) error {
	snap, err := s.LoadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	snap.Phase = "done"
	snap.Outcome = outcome
	snap.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyGame(id), raw, ttlGame).Err(); err != nil {
		return err
	}
	cur, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if cur == id {
		return s.rdb.Del(ctx, s.keyCurrent()).Err()
	}
	return nil
}
