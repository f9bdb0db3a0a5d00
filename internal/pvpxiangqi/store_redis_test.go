package pvpxiangqi

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSnapshotStore(rdb, time.Hour), mr
}

func TestSnapshotStore_PublishLoad(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	g := newPlayingGame(t)
	if _, err := g.move("red-user", xiangqi.Pos(7, 7), xiangqi.Pos(4, 7), t0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := s.Publish(ctx, g.Clone()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	st, err := s.Load(ctx, "room-1")
	if err != nil || st == nil {
		t.Fatalf("Load: %v", err)
	}
	if st.GameID != g.ID || st.Status != string(StatusPlaying) || st.Turn != "black" {
		t.Fatalf("snapshot header: %+v", st)
	}
	if st.MoveCount != 1 || st.LastMove().Notation != "h2e2" {
		t.Fatalf("snapshot moves: %+v", st.Moves)
	}
	if len(st.Board) != xiangqi.Ranks || st.Board[7][4] != int8(xiangqi.MakePiece(xiangqi.Red, xiangqi.Cannon)) {
		t.Fatalf("board row 7: %v", st.Board[7])
	}
	if ttl := mr.TTL(keyRoom("room-1")); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl: %v", ttl)
	}

	rooms, err := s.ActiveRooms(ctx)
	if err != nil || len(rooms) != 1 || rooms[0] != "room-1" {
		t.Fatalf("ActiveRooms: %v %v", rooms, err)
	}

	g.finish(xiangqi.Red, ReasonSurrender, t0)
	if err := s.Publish(ctx, g.Clone()); err != nil {
		t.Fatalf("Publish finished: %v", err)
	}
	rooms, _ = s.ActiveRooms(ctx)
	if len(rooms) != 0 {
		t.Fatalf("finished room should leave the active set: %v", rooms)
	}
	st, _ = s.Load(ctx, "room-1")
	if st.Result == nil || st.Result.Winner != "red" || st.Result.WinnerID != "red-user" {
		t.Fatalf("result: %+v", st.Result)
	}
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	st, err := s.Load(context.Background(), "nowhere")
	if err != nil || st != nil {
		t.Fatalf("want nil, nil; got %+v %v", st, err)
	}
}

func TestSnapshotStore_Subscribe(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := s.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	g := newPlayingGame(t)
	if err := s.Publish(ctx, g.Clone()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case st := <-ch:
		if st == nil || st.Room != "room-1" || st.Status != string(StatusPlaying) {
			t.Fatalf("event: %+v", st)
		}
	case <-ctx.Done():
		t.Fatalf("no snapshot received")
	}

	cancel()
	for range ch {
	}
}

func TestSessionPublishesThroughStore(t *testing.T) {
	s, _ := newTestStore(t)
	reg := NewRegistry(Options{Publisher: s, Sink: NewMemoryRepository()})
	t.Cleanup(reg.Close)
	ctx := context.Background()

	sess, err := reg.Create("room-9", "red-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sess.Join(ctx, "black-user"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	st, err := s.Load(ctx, "room-9")
	if err != nil || st == nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Status != string(StatusPlaying) || st.BlackID != "black-user" {
		t.Fatalf("stored state: %+v", st)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := redis.Options{Addr: "localhost:6380", Password: "secret", DB: 3}
	if opts.Addr != want.Addr || opts.Password != want.Password || opts.DB != want.DB {
		t.Fatalf("got %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
