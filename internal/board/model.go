package board

import (
	"fmt"
	"image"
	"math"
)

const Size = 8

const (
	clickInset = 0.08
	pieceLift  = 0.2
)

// Geometry is the refined on-screen board: the top-left board pixel, the
// extent to the bottom-right board pixel, and the derived square size.
type Geometry struct {
	Origin     image.Point `json:"origin"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	SquareSize int         `json:"square_size"`
}

// NewGeometry derives the square size from the refined corners. Width and
// height are averaged so a slightly skewed capture still yields one size.
func NewGeometry(minX, minY, maxX, maxY int) Geometry {
	w := maxX - minX
	h := maxY - minY
	average := Round(float64(h+w) / 2)
	return Geometry{
		Origin:     image.Pt(minX, minY),
		Width:      w,
		Height:     h,
		SquareSize: Round(float64(average) / Size),
	}
}

// Center returns the middle of the cell at row/col in screen order.
func (g Geometry) Center(row, col int) image.Point {
	half := float64(g.SquareSize) / 2
	return image.Pt(
		Round(float64(g.Origin.X+col*g.SquareSize)+half),
		Round(float64(g.Origin.Y+row*g.SquareSize)+half),
	)
}

// Model is the fixed mapping of the 64 squares, in screen order starting at
// the top-left cell. It is never modified after Build.
type Model struct {
	geometry Geometry
	side     Side
	squares  [Size * Size]Square
	byLabel  map[string]int
}

// Build lays out the 64 squares. Rows run top to bottom, columns left to
// right; for Black the top-left cell is h1, for White it is a8.
func Build(g Geometry, side Side) (*Model, error) {
	if g.SquareSize <= 0 {
		return nil, fmt.Errorf("square size must be > 0: %d", g.SquareSize)
	}
	ranks := []byte{'1', '2', '3', '4', '5', '6', '7', '8'}
	files := []byte{'h', 'g', 'f', 'e', 'd', 'c', 'b', 'a'}
	if side == White {
		reverse(ranks)
		reverse(files)
	}

	m := &Model{geometry: g, side: side, byLabel: make(map[string]int, Size*Size)}
	size := g.SquareSize
	x, y := g.Origin.X, g.Origin.Y
	inset := Round(float64(size) * clickInset)
	lift := Round(float64(size) * pieceLift)

	for row := 0; row < Size; row++ {
		for j := 1; j <= Size; j++ {
			idx := row*Size + j - 1
			label := string([]byte{files[j-1], ranks[row]})
			m.squares[idx] = Square{
				Label: label,
				Click: image.Pt(j*size+x-inset, row*size+y+inset),
				Piece: image.Pt(
					Round(float64(j*size+x)-float64(size)/2),
					row*size+y+size-lift,
				),
			}
			m.byLabel[label] = idx
		}
	}
	return m, nil
}

func (m *Model) Geometry() Geometry { return m.geometry }

func (m *Model) Side() Side { return m.side }

// Squares returns a copy in screen order.
func (m *Model) Squares() []Square {
	out := make([]Square, len(m.squares))
	copy(out, m.squares[:])
	return out
}

func (m *Model) Lookup(label string) (Square, bool) {
	idx, ok := m.byLabel[label]
	if !ok {
		return Square{}, false
	}
	return m.squares[idx], true
}

// MustLookup is for labels that are known to exist, such as the fixed
// calibration squares.
func (m *Model) MustLookup(label string) Square {
	sq, ok := m.Lookup(label)
	if !ok {
		panic(fmt.Sprintf("board: unknown square %q", label))
	}
	return sq
}

// Round rounds half up, matching how screen coordinates were measured.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
