package chess

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// History is the append-only record of move tokens since the start position.
// It is owned by the control loop and not safe for concurrent use.
type History struct {
	tokens []string
}

func NewHistory(tokens ...string) *History {
	return &History{tokens: append([]string(nil), tokens...)}
}

func (h *History) Append(token string) {
	h.tokens = append(h.tokens, token)
}

// Last returns the most recent token, or "" before the first move.
func (h *History) Last() string {
	if len(h.tokens) == 0 {
		return ""
	}
	return h.tokens[len(h.tokens)-1]
}

func (h *History) Tokens() []string {
	return append([]string(nil), h.tokens...)
}

func (h *History) Len() int { return len(h.tokens) }

func (h *History) String() string { return strings.Join(h.tokens, " ") }

// Replay is the game rebuilt by the rules library. Applied counts the tokens
// the library accepted; replay stops at the first one it rejects.
type Replay struct {
	Game    *nchess.Game
	SAN     []string
	Applied int
}

func (h *History) Replay() Replay {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	r := Replay{Game: game}
	for _, token := range h.tokens {
		pos := game.Position()
		mv, err := notation.Decode(pos, strings.ToLower(token))
		if err != nil {
			break
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			break
		}
		r.SAN = append(r.SAN, san)
		r.Applied++
	}
	return r
}

// Complete reports whether every recorded token replayed.
func (r Replay) Complete(h *History) bool { return r.Applied == h.Len() }

func (r Replay) PGN() string { return r.Game.String() }

func (r Replay) FEN() string { return r.Game.FEN() }

// Result is "1-0", "0-1", "1/2-1/2" or "*".
func (r Replay) Result() string { return string(r.Game.Outcome()) }

func (r Replay) Method() string {
	return strings.ToLower(r.Game.Method().String())
}
