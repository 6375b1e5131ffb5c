package botdto

import "time"

type EventType string

const (
	EventGameStarted  EventType = "game_started"
	EventOpponentMove EventType = "opponent_move"
	EventEngineMove   EventType = "engine_move"
	EventGameFinished EventType = "game_finished"
)

// Event is what observers receive over the webhook and the websocket feed.
type Event struct {
	Type   EventType `json:"type"`
	GameID string    `json:"game_id"`
	Side   string    `json:"side"`
	Move   string    `json:"move,omitempty"`
	SAN    string    `json:"san,omitempty"`
	Ply    int       `json:"ply"`
	Mate   bool      `json:"mate,omitempty"`
	Reason string    `json:"reason,omitempty"`
	FEN    string    `json:"fen,omitempty"`
	At     time.Time `json:"at"`
}
