package pvpxiangqi

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newPlayingGame(t *testing.T) *Game {
	t.Helper()
	g := newGame("room-1", "red-user", t0)
	if _, err := g.join("black-user", t0); err != nil {
		t.Fatalf("join: %v", err)
	}
	return g
}

func boardOf(pieces map[xiangqi.Position]xiangqi.Piece) xiangqi.Board {
	var b xiangqi.Board
	for p, pc := range pieces {
		b.Set(p, pc)
	}
	return b
}

var (
	rGen     = xiangqi.MakePiece(xiangqi.Red, xiangqi.General)
	rChariot = xiangqi.MakePiece(xiangqi.Red, xiangqi.Chariot)
	bGen     = xiangqi.MakePiece(xiangqi.Black, xiangqi.General)
	bChariot = xiangqi.MakePiece(xiangqi.Black, xiangqi.Chariot)
	bHorse   = xiangqi.MakePiece(xiangqi.Black, xiangqi.Horse)
)

func TestJoin(t *testing.T) {
	g := newGame("room-1", "red-user", t0)
	if g.Status != StatusWaiting {
		t.Fatalf("new game status: %s", g.Status)
	}
	if _, err := g.join("red-user", t0); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("creator join: want ErrAlreadyJoined, got %v", err)
	}
	if _, err := g.join("black-user", t0.Add(time.Second)); err != nil {
		t.Fatalf("join: %v", err)
	}
	if g.Status != StatusPlaying || g.Turn != xiangqi.Red || g.BlackID != "black-user" {
		t.Fatalf("after join: status=%s turn=%s black=%q", g.Status, g.Turn, g.BlackID)
	}
	if !g.StartedAt.Equal(t0.Add(time.Second)) {
		t.Fatalf("start time not recorded: %v", g.StartedAt)
	}
	if _, err := g.join("third", t0); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("third join: want ErrNotWaiting, got %v", err)
	}
}

func TestMove_Rejections(t *testing.T) {
	waiting := newGame("room-1", "red-user", t0)
	if _, err := waiting.move("red-user", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), t0); KindOf(err) != KindNotPlaying {
		t.Fatalf("waiting: want not_playing, got %v", err)
	}

	g := newPlayingGame(t)
	before := g.Clone()
	cases := []struct {
		name     string
		player   string
		from, to xiangqi.Position
		want     Kind
	}{
		{"outsider", "someone", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), KindNotParticipant},
		{"black first", "black-user", xiangqi.Pos(4, 3), xiangqi.Pos(4, 4), KindOutOfTurn},
		{"off board", "red-user", xiangqi.Pos(9, 0), xiangqi.Pos(8, 0), KindInvalidCoordinate},
		{"off board target", "red-user", xiangqi.Pos(0, 9), xiangqi.Pos(0, 10), KindInvalidCoordinate},
		{"empty source", "red-user", xiangqi.Pos(4, 5), xiangqi.Pos(4, 4), KindEmptySource},
		{"enemy piece", "red-user", xiangqi.Pos(0, 0), xiangqi.Pos(0, 1), KindWrongOwner},
		{"soldier sideways", "red-user", xiangqi.Pos(4, 6), xiangqi.Pos(3, 6), KindIllegalShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.move(tc.player, tc.from, tc.to, t0)
			if got := KindOf(err); got != tc.want {
				t.Fatalf("want %s, got %v", tc.want, err)
			}
		})
	}
	if diff := cmp.Diff(before, g); diff != "" {
		t.Fatalf("rejected commands mutated the game (-want +got):\n%s", diff)
	}

	out, err := g.move("red-user", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), t0)
	if err != nil {
		t.Fatalf("soldier forward: %v", err)
	}
	if out.Move.Seq != 1 || g.Turn != xiangqi.Black || len(g.Moves) != 1 {
		t.Fatalf("after move: seq=%d turn=%s len=%d", out.Move.Seq, g.Turn, len(g.Moves))
	}
}

func TestMove_SelfCheck(t *testing.T) {
	g := newPlayingGame(t)
	g.Board = boardOf(map[xiangqi.Position]xiangqi.Piece{
		xiangqi.Pos(4, 9): rGen,
		xiangqi.Pos(4, 0): bChariot,
		xiangqi.Pos(3, 0): bGen,
	})
	before := g.Clone()
	if _, err := g.move("red-user", xiangqi.Pos(4, 9), xiangqi.Pos(4, 8), t0); !errors.Is(err, ErrSelfCheck) {
		t.Fatalf("general along attacked file: want ErrSelfCheck, got %v", err)
	}
	if _, err := g.move("red-user", xiangqi.Pos(4, 9), xiangqi.Pos(2, 9), t0); !errors.Is(err, ErrIllegalShape) {
		t.Fatalf("general two files: want ErrIllegalShape, got %v", err)
	}
	if diff := cmp.Diff(before, g); diff != "" {
		t.Fatalf("rejected move mutated the game (-want +got):\n%s", diff)
	}
	out, err := g.move("red-user", xiangqi.Pos(4, 9), xiangqi.Pos(3, 9), t0)
	if err != nil {
		t.Fatalf("general sidestep: %v", err)
	}
	if out.Finished {
		t.Fatalf("game should continue")
	}
}

func TestMove_Checkmate(t *testing.T) {
	g := newPlayingGame(t)
	g.Board = boardOf(map[xiangqi.Position]xiangqi.Piece{
		xiangqi.Pos(3, 9): rGen,
		xiangqi.Pos(0, 1): rChariot,
		xiangqi.Pos(8, 2): rChariot,
		xiangqi.Pos(4, 0): bGen,
	})
	out, err := g.move("red-user", xiangqi.Pos(8, 2), xiangqi.Pos(8, 0), t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("mating move: %v", err)
	}
	if !out.Finished || g.Status != StatusFinished {
		t.Fatalf("want finished, got status %s", g.Status)
	}
	want := &Result{Winner: xiangqi.Red, WinnerID: "red-user", Reason: ReasonCheckmate}
	if diff := cmp.Diff(want, g.Result); diff != "" {
		t.Fatalf("result (-want +got):\n%s", diff)
	}
	if _, err := g.move("black-user", xiangqi.Pos(4, 0), xiangqi.Pos(3, 0), t0); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("move after mate: want ErrNotPlaying, got %v", err)
	}
}

func TestMove_StalemateIsDraw(t *testing.T) {
	g := newPlayingGame(t)
	g.Board = boardOf(map[xiangqi.Position]xiangqi.Piece{
		xiangqi.Pos(5, 9): rGen,
		xiangqi.Pos(0, 1): rChariot,
		xiangqi.Pos(8, 5): rChariot,
		xiangqi.Pos(3, 0): bGen,
	})
	out, err := g.move("red-user", xiangqi.Pos(8, 5), xiangqi.Pos(4, 5), t0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !out.Finished {
		t.Fatalf("stalemate should end the game")
	}
	if g.Result.Winner != xiangqi.NoSide || g.Result.Reason != ReasonStalemate || g.Result.WinnerID != "" {
		t.Fatalf("want draw by stalemate, got %+v", g.Result)
	}
}

func TestMove_MissingGeneralEndsGame(t *testing.T) {
	g := newPlayingGame(t)
	g.Board = boardOf(map[xiangqi.Position]xiangqi.Piece{
		xiangqi.Pos(4, 9): rGen,
		xiangqi.Pos(0, 9): rChariot,
		xiangqi.Pos(8, 0): bHorse,
	})
	core, logs := observer.New(zapcore.ErrorLevel)
	defer obslog.Replace(zap.New(core))()

	out, err := g.move("red-user", xiangqi.Pos(0, 9), xiangqi.Pos(0, 8), t0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !out.Finished || g.Result.Winner != xiangqi.Red || g.Result.Reason != ReasonCheckmate {
		t.Fatalf("want red win, got %+v", g.Result)
	}
	flagged := logs.FilterMessage("xq_invariant_general_missing").All()
	if len(flagged) != 1 || flagged[0].ContextMap()["missing"] != "black" {
		t.Fatalf("missing general should be flagged once, got %+v", logs.All())
	}
}

func TestRegret_AcceptRestoresCapture(t *testing.T) {
	g := newPlayingGame(t)
	before := g.Clone()

	// red cannon takes the horse over the black cannon screen
	out, err := g.move("red-user", xiangqi.Pos(1, 7), xiangqi.Pos(1, 0), t0)
	if err != nil {
		t.Fatalf("cannon capture: %v", err)
	}
	if out.Move.Captured != bHorse {
		t.Fatalf("captured: got %d", out.Move.Captured)
	}

	out, err = g.requestRegret("red-user", t0)
	if err != nil {
		t.Fatalf("requestRegret: %v", err)
	}
	if out.Notify != "black-user" {
		t.Fatalf("notice owed to opponent, got %q", out.Notify)
	}
	if _, err := g.requestRegret("red-user", t0); !errors.Is(err, ErrNegotiationInProgress) {
		t.Fatalf("second request: want ErrNegotiationInProgress, got %v", err)
	}
	if _, err := g.requestRegret("black-user", t0); !errors.Is(err, ErrNegotiationInProgress) {
		t.Fatalf("opponent request: want ErrNegotiationInProgress, got %v", err)
	}
	if _, err := g.respondRegret("red-user", true, t0); !errors.Is(err, ErrSelfResponse) {
		t.Fatalf("self response: want ErrSelfResponse, got %v", err)
	}

	out, err = g.respondRegret("black-user", true, t0)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if out.Move == nil || out.Move.Seq != 1 {
		t.Fatalf("undone move missing: %+v", out.Move)
	}
	if diff := cmp.Diff(before.Board, g.Board); diff != "" {
		t.Fatalf("board not restored (-want +got):\n%s", diff)
	}
	if len(g.Moves) != 0 || g.Turn != xiangqi.Red || g.Regret != nil {
		t.Fatalf("after undo: moves=%d turn=%s regret=%v", len(g.Moves), g.Turn, g.Regret)
	}
	if _, err := g.respondRegret("black-user", true, t0); !errors.Is(err, ErrNoPendingNegotiation) {
		t.Fatalf("no pending: want ErrNoPendingNegotiation, got %v", err)
	}
	if _, err := g.requestRegret("red-user", t0); !errors.Is(err, ErrNoMovesYet) {
		t.Fatalf("empty ledger: want ErrNoMovesYet, got %v", err)
	}
}

func TestRegret_UndoesOnlyLastMove(t *testing.T) {
	g := newPlayingGame(t)
	if _, err := g.move("red-user", xiangqi.Pos(7, 7), xiangqi.Pos(4, 7), t0); err != nil {
		t.Fatalf("red: %v", err)
	}
	afterFirst := g.Clone()
	if _, err := g.move("black-user", xiangqi.Pos(7, 0), xiangqi.Pos(6, 2), t0); err != nil {
		t.Fatalf("black: %v", err)
	}
	if _, err := g.requestRegret("black-user", t0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := g.respondRegret("red-user", true, t0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if diff := cmp.Diff(afterFirst.Board, g.Board); diff != "" {
		t.Fatalf("board (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(afterFirst.Moves, g.Moves); diff != "" {
		t.Fatalf("ledger (-want +got):\n%s", diff)
	}
	if g.Turn != xiangqi.Black {
		t.Fatalf("turn should return to black, got %s", g.Turn)
	}
}

func TestRegret_Deny(t *testing.T) {
	g := newPlayingGame(t)
	if _, err := g.move("red-user", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	snap := g.Clone()
	if _, err := g.requestRegret("red-user", t0); err != nil {
		t.Fatalf("request: %v", err)
	}
	out, err := g.respondRegret("black-user", false, t0)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if out.Move != nil || out.Notify != "red-user" {
		t.Fatalf("deny outcome: %+v", out)
	}
	if diff := cmp.Diff(snap.Board, g.Board); diff != "" {
		t.Fatalf("deny changed the board (-want +got):\n%s", diff)
	}
	if g.Regret != nil || len(g.Moves) != 1 || g.Turn != xiangqi.Black {
		t.Fatalf("after deny: regret=%v moves=%d turn=%s", g.Regret, len(g.Moves), g.Turn)
	}
}

func TestSurrender(t *testing.T) {
	g := newPlayingGame(t)
	if _, err := g.move("red-user", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := g.requestRegret("red-user", t0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := g.surrender("outsider", t0); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider: want ErrNotParticipant, got %v", err)
	}
	out, err := g.surrender("black-user", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("surrender: %v", err)
	}
	if !out.Finished || g.Result.Winner != xiangqi.Red || g.Result.WinnerID != "red-user" || g.Result.Reason != ReasonSurrender {
		t.Fatalf("result: %+v", g.Result)
	}
	if g.Regret != nil {
		t.Fatalf("surrender should clear the pending negotiation")
	}
	if _, err := g.surrender("red-user", t0); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("surrender after finish: want ErrNotPlaying, got %v", err)
	}
	if _, err := g.respondRegret("black-user", true, t0); !errors.Is(err, ErrNoPendingNegotiation) {
		t.Fatalf("respond after finish: want ErrNoPendingNegotiation, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	idle, regret := time.Hour, 2*time.Minute

	w := newGame("room-w", "red-user", t0)
	if out, _ := w.sweep(t0.Add(time.Minute), idle, regret); out != nil {
		t.Fatalf("fresh waiting room should stay")
	}
	out, _ := w.sweep(t0.Add(2*time.Hour), idle, regret)
	if out == nil || !out.Evicted || w.Result.Reason != ReasonAbandoned {
		t.Fatalf("idle waiting room should be abandoned: %+v", out)
	}

	g := newPlayingGame(t)
	if _, err := g.move("red-user", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := g.requestRegret("red-user", t0); err != nil {
		t.Fatalf("request: %v", err)
	}
	out, _ = g.sweep(t0.Add(3*time.Minute), idle, regret)
	if out == nil || out.Evicted || g.Regret != nil || out.Notify != "red-user" {
		t.Fatalf("stale regret should be dropped: out=%+v regret=%v", out, g.Regret)
	}
	if len(g.Moves) != 1 {
		t.Fatalf("expired regret must not undo the move")
	}
	out, _ = g.sweep(t0.Add(2*time.Hour), idle, regret)
	if out == nil || !out.Evicted || g.Status != StatusFinished || g.Result.Winner != xiangqi.NoSide {
		t.Fatalf("idle game should be abandoned: %+v %+v", out, g.Result)
	}
}

func TestClone(t *testing.T) {
	fresh := newGame("room-1", "red-user", t0)
	c := fresh.Clone()
	if c.Moves == nil {
		t.Fatalf("clone of an empty ledger should stay non-nil")
	}
	if diff := cmp.Diff(fresh, c); diff != "" {
		t.Fatalf("clone differs (-want +got):\n%s", diff)
	}

	g := newPlayingGame(t)
	if _, err := g.move("red-user", xiangqi.Pos(4, 6), xiangqi.Pos(4, 5), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := g.requestRegret("red-user", t0); err != nil {
		t.Fatalf("request: %v", err)
	}
	c = g.Clone()
	c.Moves[0].PlayerID = "changed"
	c.Regret.RequesterID = "changed"
	c.Board.Set(xiangqi.Pos(4, 9), 0)
	if g.Moves[0].PlayerID != "red-user" || g.Regret.RequesterID != "red-user" || g.Board.Get(xiangqi.Pos(4, 9)) == 0 {
		t.Fatalf("clone shares state with the game")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(ErrOutOfTurn) != KindOutOfTurn {
		t.Fatalf("KindOf sentinel")
	}
	wrapped := errors.Join(errors.New("ctx"), &CommandError{Kind: KindSelfCheck})
	if !errors.Is(wrapped, ErrSelfCheck) || KindOf(wrapped) != KindSelfCheck {
		t.Fatalf("wrapped CommandError should match by kind")
	}
	if KindOf(ErrRoomExists) != "" {
		t.Fatalf("infrastructure errors have no kind")
	}
}
