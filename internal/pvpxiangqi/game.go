package pvpxiangqi

import (
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"go.uber.org/zap"
)

// The functions in this file are the state machine proper. They run only on the
// session worker and never touch g when they return an error.

func newGame(roomID, creatorID string, now time.Time) *Game {
	return &Game{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		RedID:     creatorID,
		Board:     xiangqi.NewInitialBoard(),
		Turn:      xiangqi.Red,
		Status:    StatusWaiting,
		Moves:     []Move{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (g *Game) join(playerID string, now time.Time) (*Outcome, error) {
	if g.Status != StatusWaiting {
		return nil, ErrNotWaiting
	}
	if playerID == g.RedID {
		return nil, ErrAlreadyJoined
	}
	g.BlackID = playerID
	g.Status = StatusPlaying
	g.Turn = xiangqi.Red
	g.StartedAt = now
	g.UpdatedAt = now
	return &Outcome{}, nil
}

func (g *Game) move(playerID string, from, to xiangqi.Position, now time.Time) (*Outcome, error) {
	if g.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	side := g.SideOf(playerID)
	if side == xiangqi.NoSide {
		return nil, ErrNotParticipant
	}
	if side != g.Turn {
		return nil, ErrOutOfTurn
	}
	if !from.Valid() || !to.Valid() {
		return nil, ErrInvalidCoordinate
	}
	pc := g.Board.Get(from)
	if pc == 0 {
		return nil, ErrEmptySource
	}
	if pc.Side() != side {
		return nil, ErrWrongOwner
	}
	if !xiangqi.IsLegalShape(&g.Board, from, to, pc) {
		return nil, ErrIllegalShape
	}
	if xiangqi.WouldExposeCheck(&g.Board, from, to, side) {
		return nil, ErrSelfCheck
	}

	moved, captured := g.Board.Apply(from, to)
	mv := Move{
		Seq:      len(g.Moves) + 1,
		PlayerID: playerID,
		From:     from,
		To:       to,
		Piece:    moved,
		Captured: captured,
		At:       now,
	}
	g.Moves = append(g.Moves, mv)
	g.Turn = side.Opponent()
	g.UpdatedAt = now

	out := &Outcome{Move: &mv}
	out.Finished = g.evaluateEnd(now)
	return out, nil
}

// evaluateEnd applies the end-of-game rules for the side to move.
func (g *Game) evaluateEnd(now time.Time) bool {
	v := xiangqi.Evaluate(&g.Board, g.Turn)
	switch {
	case v.MissingGeneral != xiangqi.NoSide:
		obslog.L().Error("xq_invariant_general_missing",
			zap.String("game_id", g.ID),
			zap.String("room_id", g.RoomID),
			zap.String("missing", v.MissingGeneral.String()),
			zap.Int("ply", len(g.Moves)),
			zap.String("board", g.Board.String()),
		)
		g.finish(v.MissingGeneral.Opponent(), ReasonCheckmate, now)
	case v.Checkmate:
		g.finish(g.Turn.Opponent(), ReasonCheckmate, now)
	case v.Stalemate:
		g.finish(xiangqi.NoSide, ReasonStalemate, now)
	default:
		return false
	}
	return true
}

func (g *Game) finish(winner xiangqi.Side, reason Reason, now time.Time) {
	g.Status = StatusFinished
	g.Regret = nil
	g.Result = &Result{Winner: winner, WinnerID: g.PlayerOf(winner), Reason: reason}
	g.EndedAt = now
	g.UpdatedAt = now
}

func (g *Game) requestRegret(playerID string, now time.Time) (*Outcome, error) {
	if g.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	if g.SideOf(playerID) == xiangqi.NoSide {
		return nil, ErrNotParticipant
	}
	if len(g.Moves) == 0 {
		return nil, ErrNoMovesYet
	}
	if g.Regret != nil {
		return nil, ErrNegotiationInProgress
	}
	g.Regret = &RegretNegotiation{RequesterID: playerID, At: now}
	g.UpdatedAt = now
	return &Outcome{Notify: g.Opponent(playerID)}, nil
}

func (g *Game) respondRegret(playerID string, accept bool, now time.Time) (*Outcome, error) {
	if g.Regret == nil {
		return nil, ErrNoPendingNegotiation
	}
	if playerID == g.Regret.RequesterID {
		return nil, ErrSelfResponse
	}
	if g.SideOf(playerID) == xiangqi.NoSide {
		return nil, ErrNotParticipant
	}
	out := &Outcome{Notify: g.Regret.RequesterID}
	g.Regret = nil
	g.UpdatedAt = now
	if !accept {
		return out, nil
	}
	last := g.Moves[len(g.Moves)-1]
	g.Moves = g.Moves[:len(g.Moves)-1]
	g.Board.Undo(last.From, last.To, last.Piece, last.Captured)
	g.Turn = last.Piece.Side()
	out.Move = &last
	return out, nil
}

func (g *Game) surrender(playerID string, now time.Time) (*Outcome, error) {
	if g.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	side := g.SideOf(playerID)
	if side == xiangqi.NoSide {
		return nil, ErrNotParticipant
	}
	g.finish(side.Opponent(), ReasonSurrender, now)
	return &Outcome{Finished: true}, nil
}

// sweep is the idle janitor. A Waiting room past idleTTL is abandoned without a result,
// a Playing room past idleTTL is finished as abandoned, and a takeback request older
// than regretTTL is dropped as if denied.
func (g *Game) sweep(now time.Time, idleTTL, regretTTL time.Duration) (*Outcome, error) {
	idle := idleTTL > 0 && now.Sub(g.UpdatedAt) >= idleTTL
	switch g.Status {
	case StatusWaiting:
		if idle {
			g.finish(xiangqi.NoSide, ReasonAbandoned, now)
			return &Outcome{Finished: true, Evicted: true}, nil
		}
	case StatusPlaying:
		if idle {
			g.finish(xiangqi.NoSide, ReasonAbandoned, now)
			return &Outcome{Finished: true, Evicted: true}, nil
		}
		if g.Regret != nil && regretTTL > 0 && now.Sub(g.Regret.At) >= regretTTL {
			out := &Outcome{Notify: g.Regret.RequesterID}
			g.Regret = nil
			return out, nil
		}
	}
	return nil, nil
}
