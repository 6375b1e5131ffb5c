package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/palette"
)

func testTheme() Theme {
	return DefaultTheme(palette.MustHex("ededd6"), palette.MustHex("80945f"), palette.MustHex("302e2b"))
}

func at(img *image.RGBA, p image.Point) palette.Color {
	c := img.RGBAAt(p.X, p.Y)
	return palette.Color{R: c.R, G: c.G, B: c.B}
}

func TestRenderStartingPosition(t *testing.T) {
	pos, err := Position()
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	r := New(testTheme(), DefaultLayout())
	img, err := r.Render(Scene{Board: pos})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	th := testTheme()
	m, err := board.Build(board.NewGeometry(130, 90, 609, 569), board.White)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cases := []struct {
		label        string
		click, piece palette.Color
	}{
		{"a1", th.Dark, th.WhitePiece},
		{"h1", th.Light, th.WhitePiece},
		{"a8", th.Light, th.BlackPiece},
		{"e4", th.Light, th.Light},
		{"e5", th.Dark, th.Dark},
		{"e7", th.Dark, th.BlackPiece},
	}
	for _, tc := range cases {
		sq := m.MustLookup(tc.label)
		if got := at(img, sq.Click); got != tc.click {
			t.Fatalf("%s click = %s, want %s", tc.label, got, tc.click)
		}
		if got := at(img, sq.Piece); got != tc.piece {
			t.Fatalf("%s piece = %s, want %s", tc.label, got, tc.piece)
		}
	}
	if got := at(img, image.Pt(127, 300)); got != th.Border {
		t.Fatalf("border = %s", got)
	}
	if got := at(img, image.Pt(5, 5)); got != th.Background {
		t.Fatalf("background = %s", got)
	}
}

func TestRenderHighlightsAndFlip(t *testing.T) {
	pos, err := Position("e2e4")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	l := DefaultLayout()
	l.Flipped = true
	img, err := New(testTheme(), l).Render(Scene{Board: pos, Highlights: []string{"e2", "e4"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	th := testTheme()
	m, _ := board.Build(board.NewGeometry(130, 90, 609, 569), board.Black)

	e2 := m.MustLookup("e2")
	if got := at(img, e2.Click); got != th.LightHighlight {
		t.Fatalf("e2 click = %s, want light highlight", got)
	}
	if got := at(img, e2.Piece); got != th.LightHighlight {
		t.Fatalf("e2 piece = %s, want empty highlight", got)
	}
	e4 := m.MustLookup("e4")
	if got := at(img, e4.Click); got != th.LightHighlight {
		t.Fatalf("e4 click = %s, want light highlight", got)
	}
	if got := at(img, e4.Piece); got != th.WhitePiece {
		t.Fatalf("e4 piece = %s, want white piece", got)
	}
	// h1 is top-left when flipped
	center := l.SquareRect(mustSquare(t, "h1")).Min.Add(image.Pt(30, 30))
	if got := at(img, center); got != th.WhitePiece {
		t.Fatalf("flipped top-left center = %s", got)
	}
}

func TestRenderRejectsBadHighlight(t *testing.T) {
	if _, err := New(testTheme(), DefaultLayout()).Render(Scene{Highlights: []string{"z9"}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderPNGHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(testTheme(), DefaultLayout()).RenderPNG(ctx, Scene{}); err == nil {
		t.Fatalf("expected context error")
	}
	data, err := New(testTheme(), DefaultLayout()).RenderPNG(context.Background(), Scene{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestWriteSnapshot(t *testing.T) {
	img, _ := New(testTheme(), DefaultLayout()).Render(Scene{})
	m, _ := board.Build(board.NewGeometry(130, 90, 609, 569), board.White)
	path, err := WriteSnapshot(t.TempDir(), img, m)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	out, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("snapshot bounds = %v", out.Bounds())
	}
	r, g, b, _ := out.At(m.MustLookup("e4").Click.X, m.MustLookup("e4").Click.Y).RGBA()
	if r>>8 != 230 || g>>8 != 40 || b>>8 != 40 {
		t.Fatalf("click marker missing")
	}
}

func mustSquare(t *testing.T, label string) nchess.Square {
	t.Helper()
	s, err := ParseSquare(label)
	if err != nil {
		t.Fatalf("ParseSquare: %v", err)
	}
	return s
}
