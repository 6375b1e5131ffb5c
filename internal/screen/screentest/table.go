package screentest

import (
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/render"
)

// Table is a Canvas that behaves like a board site: clicking a piece selects
// and highlights it, dragging a piece plays the move and highlights its two
// squares.
type Table struct {
	*Canvas

	mu       sync.Mutex
	r        *render.Renderer
	moves    []string
	replies  []string
	selected string
	err      error
}

func NewTable(r *render.Renderer, moves ...string) (*Table, error) {
	t := &Table{r: r, moves: append([]string(nil), moves...)}
	img, err := t.draw()
	if err != nil {
		return nil, err
	}
	t.Canvas = New(img)
	t.Canvas.OnClick = t.onClick
	t.Canvas.OnDrop = t.onDrop
	return t, nil
}

// Play makes a move on the table, as the opponent would.
func (t *Table) Play(move string) error {
	t.mu.Lock()
	t.moves = append(t.moves, move)
	t.selected = ""
	t.mu.Unlock()
	return t.redraw()
}

// Reply queues opponent answers. Each drop that plays a move is followed by
// the next queued reply, as if the opponent moved instantly.
func (t *Table) Reply(moves ...string) {
	t.mu.Lock()
	t.replies = append(t.replies, moves...)
	t.mu.Unlock()
}

// Moves returns every move played on the table so far.
func (t *Table) Moves() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.moves...)
}

// Err is the first failure inside a mouse callback, such as an illegal drop.
func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Table) onClick(_ *Canvas, at image.Point) {
	label, ok := t.squareAt(at)
	t.mu.Lock()
	switch {
	case !ok || label == t.selected:
		t.selected = ""
	default:
		t.selected = ""
		if pos, err := render.Position(t.moves...); err == nil {
			if sq, err := render.ParseSquare(label); err == nil && pos.Piece(sq) != nchess.NoPiece {
				t.selected = label
			}
		}
	}
	t.mu.Unlock()
	t.fail(t.redraw())
}

func (t *Table) onDrop(_ *Canvas, from, to image.Point) {
	src, ok1 := t.squareAt(from)
	dst, ok2 := t.squareAt(to)
	if !ok1 || !ok2 || src == dst {
		return
	}
	if err := t.Play(src + dst); err != nil {
		t.fail(err)
		return
	}
	t.mu.Lock()
	var reply string
	if len(t.replies) > 0 {
		reply, t.replies = t.replies[0], t.replies[1:]
	}
	t.mu.Unlock()
	if reply != "" {
		t.fail(t.Play(reply))
	}
}

func (t *Table) fail(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
}

func (t *Table) redraw() error {
	img, err := t.draw()
	if err != nil {
		return err
	}
	t.Canvas.SetImage(img)
	return nil
}

func (t *Table) draw() (*image.RGBA, error) {
	t.mu.Lock()
	moves := append([]string(nil), t.moves...)
	selected := t.selected
	t.mu.Unlock()

	pos, err := render.Position(moves...)
	if err != nil {
		return nil, err
	}
	var lit []string
	if n := len(moves); n > 0 {
		from, to, err := board.SplitToken(moves[n-1])
		if err != nil {
			return nil, err
		}
		lit = append(lit, from, to)
	}
	if selected != "" {
		lit = append(lit, selected)
	}
	return t.r.Render(render.Scene{Board: pos, Highlights: lit})
}

func (t *Table) squareAt(p image.Point) (string, bool) {
	l := t.r.Layout()
	if !p.In(l.BoardRect()) {
		return "", false
	}
	col := (p.X - l.Origin.X) / l.SquareSize
	row := (p.Y - l.Origin.Y) / l.SquareSize
	file, rank := col, board.Size-1-row
	if l.Flipped {
		file, rank = board.Size-1-col, row
	}
	label := fmt.Sprintf("%c%c", 'a'+file, '1'+rank)
	return label, board.ValidLabel(label)
}
