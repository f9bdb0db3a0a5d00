package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

type MoveHighlight struct {
	From xiangqi.Position
	To   xiangqi.Position
}

type RenderOptions struct {
	Highlight *MoveHighlight
	HUDHeader string
	HUDTurn   string
	// Check marks the general of this side, NoSide for none.
	Check xiangqi.Side
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *xiangqi.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

const (
	cell          = 60
	sideMargin    = 48
	topMargin     = 130
	bottomMargin  = 52
	pieceSize     = 54
	lineWidth     = 2
	panelRadius   = 12
	titleHeight   = 36
	turnHeight    = 28
	panelGap      = 12
	gapToBoard    = 8
	titlePaddingX = 24
	shadowOffsetY = 5
)

// Layout returns the image size for a full board.
func Layout() image.Point {
	return image.Point{
		X: cell*(xiangqi.Files-1) + sideMargin*2,
		Y: cell*(xiangqi.Ranks-1) + topMargin + bottomMargin,
	}
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *xiangqi.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	size := Layout()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	origin := image.Point{X: sideMargin, Y: topMargin}
	gridRect := image.Rect(origin.X, origin.Y, origin.X+cell*(xiangqi.Files-1), origin.Y+cell*(xiangqi.Ranks-1))
	boardRect := gridRect.Inset(-cell / 2)

	drawBoardShadow(img, boardRect)
	imagedraw.Draw(img, boardRect, image.NewUniform(woodColor), image.Point{}, imagedraw.Src)
	drawGrid(img, origin)
	drawRiver(img, origin)
	drawCoordinates(img, origin)
	drawHUD(img, opts, boardRect)
	drawHighlight(img, opts.Highlight, origin)

	for rank := 0; rank < xiangqi.Ranks; rank++ {
		for file := 0; file < xiangqi.Files; file++ {
			pc := board[rank][file]
			if pc == 0 {
				continue
			}
			p := xiangqi.Pos(file, rank)
			if opts.Check != xiangqi.NoSide && pc == xiangqi.MakePiece(opts.Check, xiangqi.General) {
				disc(img, pointAt(p, origin), pieceSize/2+6, checkGlowColor)
			}
			pieceImg, err := renderPieceImage(pc, pieceSize)
			if err != nil {
				return nil, err
			}
			c := pointAt(p, origin)
			at := image.Rect(c.X-pieceSize/2, c.Y-pieceSize/2, c.X+pieceSize/2, c.Y+pieceSize/2)
			imagedraw.Draw(img, at, pieceImg, image.Point{}, imagedraw.Over)
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor   = color.RGBA{R: 40, G: 44, B: 58, A: 255}
	woodColor         = color.RGBA{R: 233, G: 196, B: 140, A: 255}
	gridColor         = color.NRGBA{R: 92, G: 54, B: 24, A: 255}
	riverTextColor    = color.NRGBA{R: 120, G: 74, B: 36, A: 255}
	moveFromColor     = color.NRGBA{R: 148, G: 207, B: 255, A: 150}
	moveToColor       = color.NRGBA{R: 255, G: 228, B: 120, A: 170}
	checkGlowColor    = color.NRGBA{R: 235, G: 60, B: 60, A: 150}
	hudPanelColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor    = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor  = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor  = color.NRGBA{0, 0, 0, 60}
	coordinateColor   = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func pointAt(p xiangqi.Position, origin image.Point) image.Point {
	return image.Point{X: origin.X + p.File*cell, Y: origin.Y + p.Rank*cell}
}

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadowRect := image.Rect(boardRect.Min.X+4, boardRect.Min.Y+8, boardRect.Max.X+10, boardRect.Max.Y+12)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func hline(img *image.RGBA, x0, x1, y int) {
	imagedraw.Draw(img, image.Rect(x0, y-lineWidth/2, x1+1, y+lineWidth-lineWidth/2), image.NewUniform(gridColor), image.Point{}, imagedraw.Over)
}

func vline(img *image.RGBA, x, y0, y1 int) {
	imagedraw.Draw(img, image.Rect(x-lineWidth/2, y0, x+lineWidth-lineWidth/2, y1+1), image.NewUniform(gridColor), image.Point{}, imagedraw.Over)
}

// drawGrid draws rank lines across, file lines broken at the river except the two edges,
// and the palace diagonals.
func drawGrid(img *image.RGBA, origin image.Point) {
	right := origin.X + cell*(xiangqi.Files-1)
	bottom := origin.Y + cell*(xiangqi.Ranks-1)
	for r := 0; r < xiangqi.Ranks; r++ {
		hline(img, origin.X, right, origin.Y+r*cell)
	}
	riverTop := origin.Y + 4*cell
	riverBottom := origin.Y + 5*cell
	for f := 0; f < xiangqi.Files; f++ {
		x := origin.X + f*cell
		if f == 0 || f == xiangqi.Files-1 {
			vline(img, x, origin.Y, bottom)
			continue
		}
		vline(img, x, origin.Y, riverTop)
		vline(img, x, riverBottom, bottom)
	}
	for _, top := range []int{0, 7} {
		a := pointAt(xiangqi.Pos(3, top), origin)
		b := pointAt(xiangqi.Pos(5, top+2), origin)
		segment(img, a, b, lineWidth, gridColor)
		a = pointAt(xiangqi.Pos(5, top), origin)
		b = pointAt(xiangqi.Pos(3, top+2), origin)
		segment(img, a, b, lineWidth, gridColor)
	}
}

func drawRiver(img *image.RGBA, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}
	drawer.Src = image.NewUniform(riverTextColor)
	y := origin.Y + 4*cell + cell/2 + face.Ascent/2
	textAt(drawer, "CHU  RIVER", origin.X+2*cell, y)
	textAt(drawer, "HAN  BORDER", origin.X+6*cell, y)
}

// drawCoordinates labels files a..i under the board and ICCS ranks 0..9 on the left.
func drawCoordinates(img *image.RGBA, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(coordinateColor)}
	bottom := origin.Y + cell*(xiangqi.Ranks-1)
	for f := 0; f < xiangqi.Files; f++ {
		textAt(drawer, string(rune('a'+f)), origin.X+f*cell, bottom+cell/2+face.Ascent+4)
	}
	for r := 0; r < xiangqi.Ranks; r++ {
		textAt(drawer, strconv.Itoa(xiangqi.Ranks-1-r), origin.X-cell/2-12, origin.Y+r*cell+face.Ascent/2)
	}
}

func drawHighlight(img *image.RGBA, h *MoveHighlight, origin image.Point) {
	if h == nil || !h.From.Valid() || !h.To.Valid() {
		return
	}
	disc(img, pointAt(h.From, origin), pieceSize/2-4, moveFromColor)
	disc(img, pointAt(h.To, origin), pieceSize/2+4, moveToColor)
}

func drawHUD(img *image.RGBA, opts RenderOptions, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "Red vs Black"
	}
	turnText := strings.TrimSpace(opts.HUDTurn)
	if turnText == "" {
		turnText = "Turn"
	}

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - turnHeight
	titleBottom := turnTop - panelGap
	titleTop := titleBottom - titleHeight

	titleWidth := drawer.MeasureString(title).Round() + titlePaddingX*2
	if limit := boardRect.Dx(); titleWidth > limit {
		titleWidth = limit
	}
	turnWidth := drawer.MeasureString(turnText).Round() + titlePaddingX*2
	if limit := boardRect.Dx() - 40; turnWidth > limit {
		turnWidth = limit
	}

	titleLeft := boardRect.Min.X + (boardRect.Dx()-titleWidth)/2
	titleRect := image.Rect(titleLeft, titleTop, titleLeft+titleWidth, titleBottom)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)

	panel(img, titleRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	panel(img, turnRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)

	title = fitText(face, title, titleRect.Dx()-titlePaddingX*2)
	turnText = fitText(face, turnText, turnRect.Dx()-titlePaddingX*2)

	panel(img, titleRect, panelRadius, hudPanelColor)
	panel(img, turnRect, panelRadius, hudTurnPanelColor)
	textIn(drawer, titleRect, title, hudTextPrimary)
	textIn(drawer, turnRect, turnText, hudTurnTextColor)
}
