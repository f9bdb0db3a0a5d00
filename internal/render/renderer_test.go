package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
)

func TestRenderPNG_InitialBoard(t *testing.T) {
	r := NewSVGBoardRenderer()
	b := xiangqi.NewInitialBoard()
	raw, err := r.RenderPNG(context.Background(), &b, RenderOptions{
		HUDHeader: "alice vs bob",
		HUDTurn:   "Red to move",
		Highlight: &MoveHighlight{From: xiangqi.Pos(7, 7), To: xiangqi.Pos(4, 7)},
		Check:     xiangqi.Black,
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Layout()
	if got := img.Bounds().Size(); got != want {
		t.Fatalf("size: got %v want %v", got, want)
	}
	// centre of red's general disc carries the glyph or the disc fill, never the wood
	c := pointAt(xiangqi.Pos(4, 9), image.Point{X: sideMargin, Y: topMargin})
	if cr, cg, cb, _ := img.At(c.X+pieceSize/2-6, c.Y).RGBA(); cr>>8 == 233 && cg>>8 == 196 && cb>>8 == 140 {
		t.Fatalf("piece not drawn at general square")
	}
}

func TestRenderPNG_NilBoard(t *testing.T) {
	if _, err := NewSVGBoardRenderer().RenderPNG(context.Background(), nil, RenderOptions{}); err == nil {
		t.Fatalf("expected error for nil board")
	}
}

func TestRenderPNG_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := xiangqi.NewInitialBoard()
	if _, err := NewSVGBoardRenderer().RenderPNG(ctx, &b, RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPieceCache(t *testing.T) {
	a, err := renderPieceImage(xiangqi.MakePiece(xiangqi.Red, xiangqi.Cannon), 40)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := renderPieceImage(xiangqi.MakePiece(xiangqi.Red, xiangqi.Cannon), 40)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached image to be reused")
	}
	if got := a.Bounds().Dx(); got != 40 {
		t.Fatalf("piece size: got %d", got)
	}
}
