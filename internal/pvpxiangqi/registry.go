package pvpxiangqi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-Xiangqi-bot/internal/domain"
	"github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
	"go.uber.org/zap"
)

// ResultSink receives the record of every game that finishes after being played.
type ResultSink interface {
	SaveResult(ctx context.Context, rec *domain.XiangqiGame) error
}

// Publisher receives a snapshot after every accepted mutation.
type Publisher interface {
	Publish(ctx context.Context, g *Game) error
}

// env is shared by every session of a registry.
type env struct {
	sink      ResultSink
	pub       Publisher
	clock     func() time.Time
	idleTTL   time.Duration
	regretTTL time.Duration
	ioTimeout time.Duration
	detach    func(*Session)
}

// Options configures a Registry. Zero values fall back to defaults.
type Options struct {
	Sink      ResultSink
	Publisher Publisher
	// IdleTTL is how long a room may sit without a mutation before Sweep abandons it.
	IdleTTL time.Duration
	// RegretTTL is how long a takeback request may stay unanswered.
	RegretTTL time.Duration
	// IOTimeout bounds each call to Sink and Publisher.
	IOTimeout time.Duration
	Clock     func() time.Time
}

const (
	defaultIdleTTL   = time.Hour
	defaultRegretTTL = 2 * time.Minute
	defaultIOTimeout = 5 * time.Second
)

// Registry maps room ids to live sessions. Its lock only guards the map and is never
// held while waiting on a session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	env      *env
}

func NewRegistry(opts Options) *Registry {
	e := &env{
		sink:      opts.Sink,
		pub:       opts.Publisher,
		clock:     opts.Clock,
		idleTTL:   opts.IdleTTL,
		regretTTL: opts.RegretTTL,
		ioTimeout: opts.IOTimeout,
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.idleTTL <= 0 {
		e.idleTTL = defaultIdleTTL
	}
	if e.regretTTL <= 0 {
		e.regretTTL = defaultRegretTTL
	}
	if e.ioTimeout <= 0 {
		e.ioTimeout = defaultIOTimeout
	}
	r := &Registry{sessions: make(map[string]*Session), env: e}
	e.detach = r.detach
	return r
}

// Create opens a Waiting session for roomID with creatorID seated as red.
func (r *Registry) Create(roomID, creatorID string) (*Session, error) {
	roomID = strings.TrimSpace(roomID)
	creatorID = strings.TrimSpace(creatorID)
	if roomID == "" || creatorID == "" {
		return nil, ErrInvalidArgs
	}
	r.mu.Lock()
	if _, ok := r.sessions[roomID]; ok {
		r.mu.Unlock()
		return nil, ErrRoomExists
	}
	g := newGame(roomID, creatorID, r.env.clock())
	s := newSession(g, r.env)
	r.sessions[roomID] = s
	r.mu.Unlock()

	obslog.L().Info("xq_session_create",
		zap.String("room_id", roomID),
		zap.String("game_id", g.ID),
		zap.String("creator_id", creatorID),
	)
	return s, nil
}

// Get returns the live session for roomID.
func (r *Registry) Get(roomID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[strings.TrimSpace(roomID)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Remove unbinds roomID and stops its worker once the command in flight finishes.
func (r *Registry) Remove(roomID string) error {
	roomID = strings.TrimSpace(roomID)
	r.mu.Lock()
	s, ok := r.sessions[roomID]
	if ok {
		delete(r.sessions, roomID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	s.Close()
	obslog.L().Info("xq_session_remove", zap.String("room_id", roomID))
	return nil
}

// detach is called by a worker whose game just finished. It never waits on the worker.
func (r *Registry) detach(s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[s.room]; ok && cur == s {
		delete(r.sessions, s.room)
	}
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Rooms lists the room ids with a live session, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Lapse is a takeback request that expired unanswered. RequesterID is owed a notice.
type Lapse struct {
	Room        string
	RequesterID string
}

// SweepReport lists what one Sweep changed, sorted by room.
type SweepReport struct {
	Evicted []string
	Lapsed  []Lapse
}

// Sweep runs the idle check on every session. Rooms it abandoned are detached and
// reported in Evicted; expired takeback requests are reported in Lapsed.
func (r *Registry) Sweep(ctx context.Context) SweepReport {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	var rep SweepReport
	for _, s := range list {
		out, err := s.Do(ctx, Command{Kind: CmdSweep})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		switch {
		case out == nil:
		case out.Evicted:
			rep.Evicted = append(rep.Evicted, s.room)
		case out.Notify != "":
			rep.Lapsed = append(rep.Lapsed, Lapse{Room: s.room, RequesterID: out.Notify})
		}
	}
	sort.Strings(rep.Evicted)
	sort.Slice(rep.Lapsed, func(i, j int) bool { return rep.Lapsed[i].Room < rep.Lapsed[j].Room })
	return rep
}

// Close stops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		list = append(list, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, s := range list {
		s.Close()
	}
}
