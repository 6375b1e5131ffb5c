// Package archive stores finished games.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-board-bot/internal/domain"
)

var ErrDuplicateGame = errors.New("bot game already archived")

type Repository interface {
	InsertGame(ctx context.Context, game *domain.BotGame) (int64, error)
	GetRecentGames(ctx context.Context, limit int) ([]*domain.BotGame, error)
	GetGame(ctx context.Context, id int64) (*domain.BotGame, error)
	GetGameByUUID(ctx context.Context, gameUUID string) (*domain.BotGame, error)
}

const Schema = `
CREATE TABLE IF NOT EXISTS bot_games (
	id             BIGSERIAL PRIMARY KEY,
	game_uuid      TEXT NOT NULL UNIQUE,
	side           TEXT NOT NULL,
	result         TEXT NOT NULL,
	result_method  TEXT NOT NULL,
	end_reason     TEXT NOT NULL,
	moves_uci      JSONB NOT NULL,
	moves_san      JSONB NOT NULL,
	pgn            TEXT NOT NULL,
	fen            TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT,
	engine_moves   INT NOT NULL DEFAULT 0,
	opponent_moves INT NOT NULL DEFAULT 0
)`

const selectColumns = `
		id,
		game_uuid,
		side,
		result,
		result_method,
		end_reason,
		moves_uci,
		moves_san,
		pgn,
		fen,
		started_at,
		ended_at,
		duration_ms,
		engine_moves,
		opponent_moves`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Open connects to Postgres, applies Schema and returns a pooled handle.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.BotGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil bot game payload")
	}

	movesUCI, err := json.Marshal(nonNil(game.MovesUCI))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(game.MovesSAN))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO bot_games (
			game_uuid,
			side,
			result,
			result_method,
			end_reason,
			moves_uci,
			moves_san,
			pgn,
			fen,
			started_at,
			ended_at,
			duration_ms,
			engine_moves,
			opponent_moves
		)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (game_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.GameUUID,
		game.Side,
		game.Result,
		game.ResultMethod,
		game.EndReason,
		movesUCI,
		movesSAN,
		game.PGN,
		game.FEN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
		game.EngineMoves,
		game.OpponentMoves,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert bot game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*domain.BotGame, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + selectColumns + `
		FROM bot_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select bot games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.BotGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64) (*domain.BotGame, error) {
	query := `SELECT` + selectColumns + `
		FROM bot_games
		WHERE id = $1`
	game, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

func (r *repository) GetGameByUUID(ctx context.Context, gameUUID string) (*domain.BotGame, error) {
	query := `SELECT` + selectColumns + `
		FROM bot_games
		WHERE game_uuid = $1`
	game, err := scanGame(r.db.QueryRowContext(ctx, query, gameUUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.BotGame, error) {
	var (
		game         domain.BotGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.GameUUID,
		&game.Side,
		&game.Result,
		&game.ResultMethod,
		&game.EndReason,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.FEN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&game.EngineMoves,
		&game.OpponentMoves,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan bot game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
