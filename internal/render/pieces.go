package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/cheese-board-bot/internal/palette"
)

// Every glyph shares the neck and base so the square center and the piece
// sample point (80% down the cell) are always solid piece color.
const glyphBody = `<rect x="40" y="42" width="20" height="34" fill="%[1]s" stroke="none"/>` +
	`<rect x="22" y="72" width="56" height="18" fill="%[1]s" stroke="none"/>`

var glyphHeads = map[nchess.PieceType]string{
	nchess.Pawn:   `<circle cx="50" cy="40" r="14" fill="%[1]s" stroke="none"/>`,
	nchess.Rook:   `<rect x="30" y="20" width="40" height="24" fill="%[1]s" stroke="none"/>`,
	nchess.Knight: `<polygon points="34,46 44,14 70,28 62,46" fill="%[1]s" stroke="none"/>`,
	nchess.Bishop: `<ellipse cx="50" cy="34" rx="12" ry="20" fill="%[1]s" stroke="none"/>`,
	nchess.Queen:  `<circle cx="50" cy="36" r="20" fill="%[1]s" stroke="none"/>`,
	nchess.King:   `<rect x="44" y="10" width="12" height="34" fill="%[1]s" stroke="none"/><rect x="34" y="18" width="32" height="10" fill="%[1]s" stroke="none"/>`,
}

type pieceCacheKey struct {
	piece nchess.PieceType
	fill  palette.Color
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]*image.RGBA{}
	pieceCacheMu sync.RWMutex
)

func glyphSVG(pt nchess.PieceType, fill palette.Color) (string, error) {
	head, ok := glyphHeads[pt]
	if !ok {
		return "", fmt.Errorf("no glyph for piece type %v", pt)
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" width="100" height="100">`)
	fmt.Fprintf(&b, head, fill.String())
	fmt.Fprintf(&b, glyphBody, fill.String())
	b.WriteString(`</svg>`)
	return b.String(), nil
}

func renderPieceImage(pt nchess.PieceType, fill palette.Color, size int) (*image.RGBA, error) {
	key := pieceCacheKey{piece: pt, fill: fill, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := glyphSVG(pt, fill)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	hardenEdges(img, fill)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

// hardenEdges snaps antialiased coverage to either the exact fill or nothing,
// so every visible glyph pixel reads back as one palette color.
func hardenEdges(img *image.RGBA, fill palette.Color) {
	solid := fill.RGBA()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A >= 0x80 {
				img.SetRGBA(x, y, solid)
			} else {
				img.SetRGBA(x, y, color.RGBA{})
			}
		}
	}
}
