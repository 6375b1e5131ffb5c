package botdto

import "time"

// Snapshot is the live state of a running game as kept in Redis.
type Snapshot struct {
	GameID     string            `json:"game_id"`
	Side       string            `json:"side"`
	Phase      string            `json:"phase"`
	OriginX    int               `json:"origin_x"`
	OriginY    int               `json:"origin_y"`
	SquareSize int               `json:"square_size"`
	Palette    map[string]string `json:"palette,omitempty"`
	MovesUCI   []string          `json:"moves_uci"`
	MoveCount  int               `json:"move_count"`
	Outcome    string            `json:"outcome,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
