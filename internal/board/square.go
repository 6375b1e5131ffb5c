package board

import (
	"fmt"
	"image"
)

// Side is the color the bot plays. It is fixed before the model is built.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// ParseSide accepts "white"/"w" and "black"/"b".
func ParseSide(v string) (Side, error) {
	switch v {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown side %q", v)
}

// Square is one calibrated cell of the on-screen board.
type Square struct {
	Label string      `json:"label"`
	Click image.Point `json:"click"`
	Piece image.Point `json:"piece"`
}

// ValidLabel reports whether s is a file a-h followed by a rank 1-8.
func ValidLabel(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// SplitToken splits a 4-character move token such as "e2e4".
func SplitToken(token string) (from, to string, err error) {
	if len(token) < 4 {
		return "", "", fmt.Errorf("move token %q too short", token)
	}
	from, to = token[0:2], token[2:4]
	if !ValidLabel(from) || !ValidLabel(to) {
		return "", "", fmt.Errorf("move token %q has invalid squares", token)
	}
	return from, to, nil
}
