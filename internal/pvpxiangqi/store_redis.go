package pvpxiangqi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultSnapshotTTL = 24 * time.Hour

// SnapshotStore keeps the latest public state of each room in Redis and publishes every
// snapshot on the room's events channel, so spectators in other processes can follow.
type SnapshotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotStore(rdb *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient dials REDIS_URL and pings it.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for snapshot store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func keyRoom(room string) string   { return "xq:room:" + strings.TrimSpace(room) }
func keyEvents(room string) string { return keyRoom(room) + ":events" }
func keyActive() string            { return "xq:rooms:active" }

// Publish implements Publisher.
func (s *SnapshotStore) Publish(ctx context.Context, g *Game) error {
	if s == nil || s.rdb == nil || g == nil {
		return nil
	}
	raw, err := json.Marshal(ToState(g))
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyRoom(g.RoomID), raw, s.ttl)
	if g.Status == StatusFinished {
		pipe.SRem(ctx, keyActive(), g.RoomID)
	} else {
		pipe.SAdd(ctx, keyActive(), g.RoomID)
	}
	pipe.Publish(ctx, keyEvents(g.RoomID), raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns the last published snapshot of room, or nil if none is stored.
func (s *SnapshotStore) Load(ctx context.Context, room string) (*xqdto.SessionState, error) {
	raw, err := s.rdb.Get(ctx, keyRoom(room)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st xqdto.SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ActiveRooms lists rooms whose last snapshot was not finished.
func (s *SnapshotStore) ActiveRooms(ctx context.Context) ([]string, error) {
	rooms, err := s.rdb.SMembers(ctx, keyActive()).Result()
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// Subscribe streams snapshots of room until ctx ends. The channel is closed afterwards.
func (s *SnapshotStore) Subscribe(ctx context.Context, room string) (<-chan *xqdto.SessionState, error) {
	sub := s.rdb.Subscribe(ctx, keyEvents(room))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan *xqdto.SessionState, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var st xqdto.SessionState
				if err := json.Unmarshal([]byte(msg.Payload), &st); err != nil {
					obslog.L().Warn("xq_snapshot_decode_error", zap.String("room_id", room), zap.Error(err))
					continue
				}
				select {
				case out <- &st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
