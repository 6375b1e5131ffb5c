package palette

import "strings"

// Entry is one named reference color.
type Entry struct {
	Name  string
	Color Color
}

// Classifier maps a sample to the nearest reference color. It is immutable
// once built so a single instance serves every polling tick of a phase.
type Classifier struct {
	entries []Entry
}

func NewClassifier(entries ...Entry) *Classifier {
	return &Classifier{entries: append([]Entry(nil), entries...)}
}

// Classify returns the name of the closest entry. Equal distances resolve to
// the entry declared first. An empty classifier returns "".
func (c *Classifier) Classify(sample Color) string {
	if c == nil || len(c.entries) == 0 {
		return ""
	}
	best := 0
	bestDist := Distance(sample, c.entries[0].Color)
	for i := 1; i < len(c.entries); i++ {
		if d := Distance(sample, c.entries[i].Color); d < bestDist {
			best, bestDist = i, d
		}
	}
	return c.entries[best].Name
}

// ClassifyHex classifies a screen hex string. Unreadable samples count as black.
func (c *Classifier) ClassifyHex(hex string) string {
	sample, err := ParseHex(hex)
	if err != nil {
		sample = Black
	}
	return c.Classify(sample)
}

// Reference names shared by the calibration and play phases.
const (
	LightSquare    = "light_square"
	DarkSquare     = "dark_square"
	LightHighlight = "light_highlight"
	DarkHighlight  = "dark_highlight"
	WhitePiece     = "white"
	BlackPiece     = "black"
)

// IsHighlight reports whether a classified name is one of the highlight colors.
func IsHighlight(name string) bool {
	return strings.HasSuffix(name, "highlight")
}

// Computed holds the colors measured on the live board by the palette
// calibration clicks.
type Computed struct {
	LightHighlight Color `json:"light_highlight"`
	DarkHighlight  Color `json:"dark_highlight"`
	WhitePiece     Color `json:"white"`
	BlackPiece     Color `json:"black"`

	ready bool
}

func (p *Computed) MarkReady() { p.ready = true }

func (p Computed) Ready() bool { return p.ready }

// SideClassifier is the pure black/white reference used before piece colors are known.
func SideClassifier() *Classifier {
	return NewClassifier(
		Entry{Name: WhitePiece, Color: White},
		Entry{Name: BlackPiece, Color: Black},
	)
}
