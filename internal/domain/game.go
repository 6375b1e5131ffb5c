package domain

import "time"

// BotGame is one finished game as archived after the session loop stops.
type BotGame struct {
	ID            int64
	GameUUID      string
	Side          string
	Result        string
	ResultMethod  string
	EndReason     string
	MovesUCI      []string
	MovesSAN      []string
	PGN           string
	FEN           string
	StartedAt     time.Time
	EndedAt       time.Time
	Duration      time.Duration
	EngineMoves   int
	OpponentMoves int
}

const (
	EndMate     = "mate"
	EndNoMove   = "no_move"
	EndCanceled = "canceled"
	EndError    = "error"
)
