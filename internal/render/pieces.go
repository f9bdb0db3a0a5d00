package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// discSVG is the token body; the glyph is drawn on top separately.
const discSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">
<circle cx="50" cy="50" r="46" style="fill: #%s;stroke: #%s;stroke-width:5"/>
<circle cx="50" cy="50" r="37" style="fill:none;stroke: #%s;stroke-width:2.5"/>
</svg>`

var (
	discFill    = "f3dfb6"
	redInk      = color.NRGBA{R: 178, G: 24, B: 24, A: 255}
	blackInk    = color.NRGBA{R: 24, G: 24, B: 28, A: 255}
	redInkHex   = "b21818"
	blackInkHex = "18181c"
)

type pieceCacheKey struct {
	piece xiangqi.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece xiangqi.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	ink, inkHex := redInk, redInkHex
	if piece.Side() == xiangqi.Black {
		ink, inkHex = blackInk, blackInkHex
	}
	src := fmt.Sprintf(discSVG, discFill, inkHex, inkHex)
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG([]byte(src))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	drawGlyph(img, piece.Kind().Letter(), ink)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

// drawGlyph renders the piece letter with the 7x13 bitmap face and scales it up to
// roughly half the disc.
func drawGlyph(dst *image.RGBA, letter byte, ink color.Color) {
	face := basicfont.Face7x13
	glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
	d := &font.Drawer{Dst: glyph, Src: image.NewUniform(ink), Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(string(letter))

	size := dst.Bounds().Dx()
	h := size / 2
	w := h * face.Advance / face.Height
	x := (size - w) / 2
	y := (size - h) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), glyph, glyph.Bounds(), xdraw.Over, nil)
}

func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixed
}
