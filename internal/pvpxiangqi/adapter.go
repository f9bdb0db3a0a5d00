package pvpxiangqi

import (
	"context"
	"fmt"

	"github.com/park285/Cheese-Xiangqi-bot/internal/render"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
)

// ToState converts a game snapshot into the public DTO. BoardImage is left empty.
func ToState(g *Game) *xqdto.SessionState {
	if g == nil {
		return nil
	}
	st := &xqdto.SessionState{
		Room:      g.RoomID,
		GameID:    g.ID,
		Status:    string(g.Status),
		Turn:      g.Turn.String(),
		Board:     g.Board.Rows(),
		Moves:     make([]xqdto.MoveView, 0, len(g.Moves)),
		MoveCount: len(g.Moves),
		RedID:     g.RedID,
		BlackID:   g.BlackID,
		UpdatedAt: g.UpdatedAt,
	}
	for _, m := range g.Moves {
		st.Moves = append(st.Moves, MoveView(m))
	}
	if g.Regret != nil {
		st.PendingRegret = &xqdto.RegretView{RequesterID: g.Regret.RequesterID, Status: "PENDING", At: g.Regret.At}
	}
	if g.Result != nil {
		st.Result = &xqdto.ResultView{Winner: winnerLabel(g.Result.Winner), WinnerID: g.Result.WinnerID, Reason: string(g.Result.Reason)}
	}
	if g.Status == StatusPlaying {
		st.Check = xiangqi.IsInCheck(&g.Board, g.Turn)
	}
	return st
}

// MoveView converts one ledger entry.
func MoveView(m Move) xqdto.MoveView {
	return xqdto.MoveView{
		Seq:      m.Seq,
		PlayerID: m.PlayerID,
		Notation: m.Notation(),
		From:     xqdto.Square{X: m.From.File, Y: m.From.Rank},
		To:       xqdto.Square{X: m.To.File, Y: m.To.Rank},
		Piece:    int8(m.Piece),
		Captured: int8(m.Captured),
		At:       m.At,
	}
}

func winnerLabel(s xiangqi.Side) string {
	if s == xiangqi.NoSide {
		return "draw"
	}
	return s.String()
}

// RenderState is ToState plus a PNG of the board.
func RenderState(ctx context.Context, r render.BoardRenderer, g *Game) (*xqdto.SessionState, error) {
	st := ToState(g)
	if st == nil || r == nil {
		return st, nil
	}
	opts := render.RenderOptions{
		HUDHeader: fmt.Sprintf("%s vs %s", displayID(g.RedID), displayID(g.BlackID)),
		HUDTurn:   hudTurn(g),
	}
	if last := g.LastMove(); last != nil {
		opts.Highlight = &render.MoveHighlight{From: last.From, To: last.To}
	}
	if st.Check {
		opts.Check = g.Turn
	}
	png, err := r.RenderPNG(ctx, &g.Board, opts)
	if err != nil {
		return nil, err
	}
	st.BoardImage = png
	return st, nil
}

func hudTurn(g *Game) string {
	switch g.Status {
	case StatusWaiting:
		return "Waiting for opponent"
	case StatusFinished:
		if g.Result == nil {
			return "Finished"
		}
		if g.Result.Winner == xiangqi.NoSide {
			return fmt.Sprintf("Draw (%s)", g.Result.Reason)
		}
		return fmt.Sprintf("%s wins (%s)", sideTitle(g.Result.Winner), g.Result.Reason)
	}
	return fmt.Sprintf("%s - move %d", sideTitle(g.Turn), len(g.Moves)+1)
}

func sideTitle(s xiangqi.Side) string {
	if s == xiangqi.Red {
		return "Red"
	}
	return "Black"
}

func displayID(id string) string {
	if id == "" {
		return "?"
	}
	r := []rune(id)
	if len(r) > 10 {
		return string(r[:10])
	}
	return id
}
