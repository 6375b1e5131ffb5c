// Package render draws synthetic screens of a chess board in a given palette.
// The bot never renders in production; tests and `boardcheck -demo` use it to
// produce frames the calibrator and detector can read.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/palette"
)

// Theme is the full on-screen palette of a board site.
type Theme struct {
	Background     palette.Color
	Border         palette.Color
	Light          palette.Color
	Dark           palette.Color
	LightHighlight palette.Color
	DarkHighlight  palette.Color
	WhitePiece     palette.Color
	BlackPiece     palette.Color
}

// DefaultTheme fills the colors the bot does not configure with values close
// to a common green board.
func DefaultTheme(light, dark, border palette.Color) Theme {
	return Theme{
		Background:     palette.MustHex("262421"),
		Border:         border,
		Light:          light,
		Dark:           dark,
		LightHighlight: palette.MustHex("f6f669"),
		DarkHighlight:  palette.MustHex("baca2b"),
		WhitePiece:     palette.MustHex("f9f9f9"),
		BlackPiece:     palette.MustHex("1a1917"),
	}
}

// Layout places the board on the screen. With Flipped the board is seen from
// Black's side (h1 top-left).
type Layout struct {
	Screen      image.Point
	Origin      image.Point
	SquareSize  int
	BorderWidth int
	Flipped     bool
}

func DefaultLayout() Layout {
	return Layout{
		Screen:      image.Pt(1000, 800),
		Origin:      image.Pt(130, 90),
		SquareSize:  60,
		BorderWidth: 6,
	}
}

func (l Layout) BoardRect() image.Rectangle {
	n := l.SquareSize * board.Size
	return image.Rect(l.Origin.X, l.Origin.Y, l.Origin.X+n, l.Origin.Y+n)
}

func (l Layout) cell(sq nchess.Square) (row, col int) {
	file, rank := int(sq.File()), int(sq.Rank())
	if l.Flipped {
		return rank, board.Size - 1 - file
	}
	return board.Size - 1 - rank, file
}

// SquareRect is the screen rectangle of sq.
func (l Layout) SquareRect(sq nchess.Square) image.Rectangle {
	row, col := l.cell(sq)
	x := l.Origin.X + col*l.SquareSize
	y := l.Origin.Y + row*l.SquareSize
	return image.Rect(x, y, x+l.SquareSize, y+l.SquareSize)
}

// Scene is what to draw: a position and the squares lit by the last move.
// A nil Board draws empty squares.
type Scene struct {
	Board      *nchess.Board
	Highlights []string
}

type Renderer struct {
	theme  Theme
	layout Layout
}

func New(theme Theme, layout Layout) *Renderer {
	return &Renderer{theme: theme, layout: layout}
}

func (r *Renderer) Theme() Theme   { return r.theme }
func (r *Renderer) Layout() Layout { return r.layout }

func (r *Renderer) Render(scene Scene) (*image.RGBA, error) {
	l := r.layout
	if l.SquareSize <= 0 {
		return nil, fmt.Errorf("square size must be > 0: %d", l.SquareSize)
	}
	img := image.NewRGBA(image.Rect(0, 0, l.Screen.X, l.Screen.Y))
	fill(img, img.Bounds(), r.theme.Background)

	boardRect := l.BoardRect()
	fill(img, boardRect.Inset(-l.BorderWidth), r.theme.Border)
	r.drawSquares(img)

	lit := make(map[nchess.Square]bool, len(scene.Highlights))
	for _, label := range scene.Highlights {
		sq, err := ParseSquare(label)
		if err != nil {
			return nil, err
		}
		lit[sq] = true
	}
	for sq := range lit {
		clr := r.theme.LightHighlight
		if isDark(sq) {
			clr = r.theme.DarkHighlight
		}
		fill(img, l.SquareRect(sq), clr)
	}

	if scene.Board != nil {
		if err := r.drawPieces(img, scene.Board); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (r *Renderer) RenderPNG(ctx context.Context, scene Scene) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	img, err := r.Render(scene)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawSquares(dst *image.RGBA) {
	for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
		for file := nchess.FileA; file <= nchess.FileH; file++ {
			sq := nchess.NewSquare(file, rank)
			clr := r.theme.Light
			if isDark(sq) {
				clr = r.theme.Dark
			}
			fill(dst, r.layout.SquareRect(sq), clr)
		}
	}
}

func (r *Renderer) drawPieces(dst *image.RGBA, b *nchess.Board) error {
	for sq, piece := range b.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		clr := r.theme.WhitePiece
		if piece.Color() == nchess.Black {
			clr = r.theme.BlackPiece
		}
		glyph, err := renderPieceImage(piece.Type(), clr, r.layout.SquareSize)
		if err != nil {
			return err
		}
		rect := r.layout.SquareRect(sq)
		draw.Draw(dst, rect, glyph, image.Point{}, draw.Over)
	}
	return nil
}

func isDark(sq nchess.Square) bool {
	return (int(sq.File())+int(sq.Rank()))%2 == 0
}

func fill(dst *image.RGBA, rect image.Rectangle, c palette.Color) {
	draw.Draw(dst, rect, image.NewUniform(c.RGBA()), image.Point{}, draw.Src)
}

// ParseSquare converts "e4" to the library square.
func ParseSquare(label string) (nchess.Square, error) {
	if !board.ValidLabel(label) {
		return nchess.NoSquare, fmt.Errorf("invalid square %q", label)
	}
	return nchess.NewSquare(nchess.File(label[0]-'a'), nchess.Rank(label[1]-'1')), nil
}

// Position replays UCI move tokens from the starting position.
func Position(moves ...string) (*nchess.Board, error) {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay %s: %w", mv, err)
		}
	}
	return game.Position().Board(), nil
}
