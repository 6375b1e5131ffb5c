package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-board-bot/internal/board"
)

var (
	clickMarkColor = color.RGBA{R: 230, G: 40, B: 40, A: 255}
	pieceMarkColor = color.RGBA{R: 40, G: 110, B: 230, A: 255}
	labelColor     = color.RGBA{R: 8, G: 214, B: 120, A: 255}
	frameColor     = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

const maxSnapshotWidth = 1600

// Annotate returns a copy of src with the calibrated rectangle, every click
// point (red), every piece point (blue) and the square labels drawn on top.
func Annotate(src image.Image, m *board.Model) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	xdraw.Draw(out, out.Bounds(), src, src.Bounds().Min, xdraw.Src)
	if m == nil {
		return out
	}

	g := m.Geometry()
	outline(out, image.Rect(g.Origin.X, g.Origin.Y, g.Origin.X+g.Width+1, g.Origin.Y+g.Height+1), frameColor)

	drawer := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}
	for _, sq := range m.Squares() {
		cross(out, sq.Click, clickMarkColor)
		cross(out, sq.Piece, pieceMarkColor)
		drawer.Dot = fixed.P(sq.Piece.X-7, sq.Piece.Y-g.SquareSize/3)
		drawer.DrawString(sq.Label)
	}
	return out
}

// WriteSnapshot annotates frame and writes it as a timestamped PNG under dir.
// Wide captures are scaled down.
func WriteSnapshot(dir string, frame image.Image, m *board.Model) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	img := image.Image(Annotate(frame, m))
	if w := img.Bounds().Dx(); w > maxSnapshotWidth {
		h := img.Bounds().Dy() * maxSnapshotWidth / w
		scaled := image.NewRGBA(image.Rect(0, 0, maxSnapshotWidth, h))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = scaled
	}

	path := filepath.Join(dir, fmt.Sprintf("calibration-%s.png", time.Now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return path, nil
}

func cross(img *image.RGBA, p image.Point, c color.RGBA) {
	for d := -3; d <= 3; d++ {
		setIn(img, p.X+d, p.Y, c)
		setIn(img, p.X, p.Y+d, c)
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		setIn(img, x, r.Min.Y, c)
		setIn(img, x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setIn(img, r.Min.X, y, c)
		setIn(img, r.Max.X-1, y, c)
	}
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
