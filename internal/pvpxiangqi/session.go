package pvpxiangqi

import (
	"context"
	"fmt"
	"sync"

	"github.com/park285/Cheese-Xiangqi-bot/internal/domain"
	"github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"go.uber.org/zap"
)

// CommandKind selects the operation a Command performs.
type CommandKind string

const (
	CmdJoin           CommandKind = "join"
	CmdMove           CommandKind = "move"
	CmdRegretRequest  CommandKind = "regret"
	CmdRegretResponse CommandKind = "regret_response"
	CmdSurrender      CommandKind = "surrender"
	CmdState          CommandKind = "state"
	CmdSweep          CommandKind = "sweep"
)

// Command is the unit of work a Session processes. Only the fields relevant to Kind are read.
type Command struct {
	Kind     CommandKind
	PlayerID string
	From     xiangqi.Position
	To       xiangqi.Position
	Accept   bool
}

type request struct {
	cmd   Command
	reply chan response
}

type response struct {
	out *Outcome
	err error
}

// Session owns one room's Game. A single worker goroutine applies commands in the
// order they arrive on the inbox; nothing else reads or writes the game.
type Session struct {
	room  string
	inbox chan request
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	game *Game
	env  *env
	// final is set by the worker before done closes when it stopped because the game ended.
	final *Game
}

func newSession(g *Game, e *env) *Session {
	s := &Session{
		room:  g.RoomID,
		inbox: make(chan request),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		game:  g,
		env:   e,
	}
	go s.run()
	return s
}

// Room returns the room id the session is bound to.
func (s *Session) Room() string { return s.room }

// Done is closed once the worker has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Do hands cmd to the worker and waits for its result. If ctx ends after the command
// was accepted the command still runs; only the wait is abandoned.
func (s *Session) Do(ctx context.Context, cmd Command) (*Outcome, error) {
	req := request{cmd: cmd, reply: make(chan response, 1)}
	select {
	case s.inbox <- req:
	case <-s.quit:
		return s.stopped(cmd)
	case <-s.done:
		return s.stopped(cmd)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.out, r.err
	case <-s.done:
		// the worker may reply and stop in the same step
		select {
		case r := <-req.reply:
			return r.out, r.err
		default:
			return s.stopped(cmd)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stopped answers a command that reached the session after its worker exited. Once the
// game has ended the rules still apply to the final position, so a late Move or Surrender
// is rejected with ErrNotPlaying. A session closed mid-game reports ErrSessionClosed.
func (s *Session) stopped(cmd Command) (*Outcome, error) {
	select {
	case <-s.done:
	default:
		// quit is closed but the worker is still finishing its last command
		<-s.done
	}
	if s.final == nil {
		return nil, ErrSessionClosed
	}
	g := s.final.Clone()
	if cmd.Kind == CmdState {
		return &Outcome{Game: g}, nil
	}
	out, err := s.apply(g, cmd)
	if err == nil {
		// a finished game accepts no mutation
		return nil, ErrNotPlaying
	}
	return out, err
}

func (s *Session) Join(ctx context.Context, playerID string) (*Outcome, error) {
	return s.Do(ctx, Command{Kind: CmdJoin, PlayerID: playerID})
}

func (s *Session) Move(ctx context.Context, playerID string, from, to xiangqi.Position) (*Outcome, error) {
	return s.Do(ctx, Command{Kind: CmdMove, PlayerID: playerID, From: from, To: to})
}

func (s *Session) RequestRegret(ctx context.Context, playerID string) (*Outcome, error) {
	return s.Do(ctx, Command{Kind: CmdRegretRequest, PlayerID: playerID})
}

func (s *Session) RespondRegret(ctx context.Context, playerID string, accept bool) (*Outcome, error) {
	return s.Do(ctx, Command{Kind: CmdRegretResponse, PlayerID: playerID, Accept: accept})
}

func (s *Session) Surrender(ctx context.Context, playerID string) (*Outcome, error) {
	return s.Do(ctx, Command{Kind: CmdSurrender, PlayerID: playerID})
}

// State returns a snapshot of the game.
func (s *Session) State(ctx context.Context) (*Game, error) {
	out, err := s.Do(ctx, Command{Kind: CmdState})
	if err != nil {
		return nil, err
	}
	return out.Game, nil
}

// Close stops the worker after the command in flight, if any, completes.
// Commands still waiting to be accepted get ErrSessionClosed.
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	s.publish(s.game.Clone())
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		select {
		case <-s.quit:
			return
		case req := <-s.inbox:
			out, err := s.handle(req.cmd)
			final := err == nil && out != nil && out.Finished
			if final {
				s.settle()
				s.final = s.game.Clone()
			}
			req.reply <- response{out: out, err: err}
			if final {
				return
			}
		}
	}
}

func (s *Session) handle(cmd Command) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("xq_command_panic",
				zap.String("room_id", s.room),
				zap.String("cmd", string(cmd.Kind)),
				zap.Any("panic", r),
			)
			out, err = nil, fmt.Errorf("xiangqi: %s failed: %v", cmd.Kind, r)
		}
	}()

	g := s.game
	if cmd.Kind == CmdState {
		return &Outcome{Game: g.Clone()}, nil
	}
	out, err = s.apply(g, cmd)
	if err != nil || out == nil {
		return out, err
	}
	out.Game = g.Clone()
	s.logOutcome(cmd, out)
	s.publish(g.Clone())
	return out, nil
}

// apply runs cmd against g under the rules of the state machine.
func (s *Session) apply(g *Game, cmd Command) (*Outcome, error) {
	now := s.env.clock()
	switch cmd.Kind {
	case CmdJoin:
		return g.join(cmd.PlayerID, now)
	case CmdMove:
		return g.move(cmd.PlayerID, cmd.From, cmd.To, now)
	case CmdRegretRequest:
		return g.requestRegret(cmd.PlayerID, now)
	case CmdRegretResponse:
		return g.respondRegret(cmd.PlayerID, cmd.Accept, now)
	case CmdSurrender:
		return g.surrender(cmd.PlayerID, now)
	case CmdSweep:
		return g.sweep(now, s.env.idleTTL, s.env.regretTTL)
	default:
		return nil, ErrInvalidArgs
	}
}

func (s *Session) logOutcome(cmd Command, out *Outcome) {
	g := out.Game
	base := []zap.Field{
		zap.String("room_id", g.RoomID),
		zap.String("game_id", g.ID),
		zap.String("user_id", cmd.PlayerID),
	}
	switch cmd.Kind {
	case CmdJoin:
		obslog.L().Info("xq_game_start", append(base, zap.String("red_id", g.RedID), zap.String("black_id", g.BlackID))...)
	case CmdMove:
		obslog.L().Info("xq_move", append(base,
			zap.String("move", out.Move.Notation()),
			zap.Int("seq", out.Move.Seq),
			zap.Int8("captured", int8(out.Move.Captured)),
			zap.String("turn", g.Turn.String()),
		)...)
	case CmdRegretRequest:
		obslog.L().Info("xq_regret_request", append(base, zap.String("notify", out.Notify))...)
	case CmdRegretResponse:
		obslog.L().Info("xq_regret_response", append(base, zap.Bool("accepted", out.Move != nil))...)
	case CmdSurrender:
		obslog.L().Info("xq_surrender", base...)
	case CmdSweep:
		if out.Evicted {
			obslog.L().Info("xq_session_evict", append(base, zap.Int("moves", len(g.Moves)))...)
		} else {
			obslog.L().Info("xq_regret_expired", append(base, zap.String("requester_id", out.Notify))...)
		}
	}
	if out.Finished && g.Result != nil {
		obslog.L().Info("xq_game_end",
			zap.String("room_id", g.RoomID),
			zap.String("game_id", g.ID),
			zap.String("winner", g.Result.Winner.String()),
			zap.String("reason", string(g.Result.Reason)),
			zap.Int("moves", len(g.Moves)),
		)
	}
}

func (s *Session) publish(g *Game) {
	if s.env.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.env.ioTimeout)
	defer cancel()
	if err := s.env.pub.Publish(ctx, g); err != nil {
		obslog.L().Warn("xq_snapshot_publish_error", zap.String("room_id", g.RoomID), zap.Error(err))
	}
}

// settle delivers the result of a finished game and detaches the session from its registry.
// A room abandoned before anyone joined has no result to deliver.
func (s *Session) settle() {
	g := s.game
	if s.env.sink != nil && !g.StartedAt.IsZero() {
		ctx, cancel := context.WithTimeout(context.Background(), s.env.ioTimeout)
		rec := RecordOf(g)
		if err := s.env.sink.SaveResult(ctx, rec); err != nil {
			obslog.L().Error("xq_result_persist_error", zap.String("game_id", g.ID), zap.String("reason", rec.Reason), zap.Error(err))
		} else {
			obslog.L().Info("xq_result_persist", zap.String("game_id", g.ID), zap.String("winner", rec.Winner), zap.String("reason", rec.Reason))
		}
		cancel()
	}
	if s.env.detach != nil {
		s.env.detach(s)
	}
}

// RecordOf converts a finished game into the persistence record.
func RecordOf(g *Game) *domain.XiangqiGame {
	rec := &domain.XiangqiGame{
		GameID:    g.ID,
		RoomID:    g.RoomID,
		RedID:     g.RedID,
		BlackID:   g.BlackID,
		Winner:    "draw",
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
		Moves:     make([]domain.XiangqiMove, 0, len(g.Moves)),
	}
	if g.Result != nil {
		if g.Result.Winner != xiangqi.NoSide {
			rec.Winner = g.Result.Winner.String()
		}
		rec.WinnerID = g.Result.WinnerID
		rec.Reason = string(g.Result.Reason)
	}
	for _, m := range g.Moves {
		rec.Moves = append(rec.Moves, domain.XiangqiMove{
			Seq:      m.Seq,
			PlayerID: m.PlayerID,
			From:     xiangqi.SquareName(m.From),
			To:       xiangqi.SquareName(m.To),
			Piece:    int8(m.Piece),
			Captured: int8(m.Captured),
			At:       m.At,
		})
	}
	if d := g.EndedAt.Sub(g.StartedAt); !g.StartedAt.IsZero() && d > 0 {
		rec.Duration = d
	}
	return rec
}
