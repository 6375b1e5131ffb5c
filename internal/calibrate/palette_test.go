package calibrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/park285/cheese-board-bot/internal/board"
	"github.com/park285/cheese-board-bot/internal/palette"
	"github.com/park285/cheese-board-bot/internal/render"
	"github.com/park285/cheese-board-bot/internal/screen/screentest"
)

func TestPaletteCalibratorMeasuresColors(t *testing.T) {
	for _, flipped := range []bool{false, true} {
		theme := render.DefaultTheme(lightHex, darkHex, borderHex)
		tbl := newTable(t, theme, flipped)
		res, err := New(tbl, testOptions(0), nil).Calibrate(context.Background())
		if err != nil {
			t.Fatalf("Calibrate: %v", err)
		}

		got, err := NewPaletteCalibrator(tbl, 0, nil).Calibrate(context.Background(), res.Model)
		if err != nil {
			t.Fatalf("palette: %v", err)
		}
		if !got.Ready() {
			t.Fatalf("palette not marked ready")
		}
		want := palette.Computed{
			LightHighlight: theme.LightHighlight,
			DarkHighlight:  theme.DarkHighlight,
			WhitePiece:     theme.WhitePiece,
			BlackPiece:     theme.BlackPiece,
		}
		if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(palette.Computed{})); diff != "" {
			t.Fatalf("flipped=%v palette mismatch (-want +got):\n%s", flipped, diff)
		}

		// the script ends with nothing selected
		a7 := res.Model.MustLookup("a7")
		if c := tbl.PixelColor(a7.Click.X, a7.Click.Y); c != darkHex.Hex() {
			t.Fatalf("a7 still highlighted: %s", c)
		}
	}
}

func TestPaletteCalibratorClickScript(t *testing.T) {
	tbl := newTable(t, render.DefaultTheme(lightHex, darkHex, borderHex), false)
	m, _ := board.Build(board.NewGeometry(130, 90, 609, 569), board.White)
	if _, err := NewPaletteCalibrator(tbl, 0, nil).Calibrate(context.Background(), m); err != nil {
		t.Fatalf("palette: %v", err)
	}

	var want []screentest.Action
	for _, label := range []string{"a6", "b7", "a7", "a7"} {
		sq := m.MustLookup(label)
		want = append(want,
			screentest.Action{Kind: screentest.ActionMove, X: sq.Click.X, Y: sq.Click.Y},
			screentest.Action{Kind: screentest.ActionClick, X: sq.Click.X, Y: sq.Click.Y},
		)
	}
	if diff := cmp.Diff(want, tbl.Actions()); diff != "" {
		t.Fatalf("click script mismatch (-want +got):\n%s", diff)
	}
}

func TestPaletteCalibratorCancelled(t *testing.T) {
	tbl := newTable(t, render.DefaultTheme(lightHex, darkHex, borderHex), false)
	m, _ := board.Build(board.NewGeometry(130, 90, 609, 569), board.White)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPaletteCalibrator(tbl, time.Second, nil).Calibrate(ctx, m)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
