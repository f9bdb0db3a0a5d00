package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/park285/Cheese-Xiangqi-bot/internal/domain"
	"github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
	"github.com/park285/Cheese-Xiangqi-bot/internal/pvpxiangqi"
	"github.com/park285/Cheese-Xiangqi-bot/internal/render"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
	"go.uber.org/zap"
)

// Error kinds for failures that are not rule rejections.
const (
	KindRoomExists    = "room_exists"
	KindNoSession     = "no_session"
	KindSessionClosed = "session_closed"
	KindInvalidArgs   = "invalid_args"
	KindTimeout       = "timeout"
	KindUnavailable   = "unavailable"
	KindInternal      = "internal"
)

// Catalog keys of side-channel messages. A takeback request is owed to the opponent,
// an expired one to the requester.
const (
	NoticeRegretRequest = "xq.notice.regret_request"
	NoticeRegretExpired = "xq.notice.regret_expired"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultHistoryLimit = 5
)

// Options configures a Dispatcher. Records and Renderer are optional.
type Options struct {
	Records  pvpxiangqi.Repository
	Renderer render.BoardRenderer
	// Timeout bounds one command, including the wait for the session worker.
	Timeout time.Duration
	// HistoryLimit caps the recent games attached to a record reply.
	HistoryLimit int
}

// Dispatcher routes typed requests to the room's session and turns the outcome into
// a Response. It never touches a Game directly.
type Dispatcher struct {
	reg      *pvpxiangqi.Registry
	records  pvpxiangqi.Repository
	renderer render.BoardRenderer
	timeout  time.Duration
	history  int
}

func New(reg *pvpxiangqi.Registry, opts Options) *Dispatcher {
	d := &Dispatcher{reg: reg, records: opts.Records, renderer: opts.Renderer, timeout: opts.Timeout, history: opts.HistoryLimit}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.history <= 0 {
		d.history = defaultHistoryLimit
	}
	return d
}

// HandleText parses a chat line addressed with prefix and handles it. ok is false when
// the line is not addressed to the bot.
func (d *Dispatcher) HandleText(ctx context.Context, prefix string, meta xqdto.RequestMeta, text string) (resp *xqdto.Response, ok bool) {
	body, ok := Addressed(prefix, text)
	if !ok {
		return nil, false
	}
	req, err := Parse(meta, body)
	if err != nil {
		return &xqdto.Response{Kind: req.Kind, ErrorKind: err.Error()}, true
	}
	return d.Handle(ctx, req), true
}

// Handle runs one command. Exactly one of Success or ErrorKind is set on the result.
func (d *Dispatcher) Handle(ctx context.Context, req xqdto.Request) *xqdto.Response {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp := &xqdto.Response{Kind: req.Kind}
	var err error
	switch req.Kind {
	case xqdto.CommandHelp:
	case xqdto.CommandRecord:
		err = d.record(ctx, req, resp)
	case xqdto.CommandCreate:
		err = d.create(ctx, req, resp)
	default:
		err = d.command(ctx, req, resp)
	}
	if err != nil {
		resp.ErrorKind = errorKind(err)
		d.logFailure(req, resp.ErrorKind, err)
		return resp
	}
	resp.Success = true
	return resp
}

func (d *Dispatcher) create(ctx context.Context, req xqdto.Request, resp *xqdto.Response) error {
	s, err := d.reg.Create(req.Meta.Room, req.Meta.PlayerID)
	if err != nil {
		return err
	}
	g, err := s.State(ctx)
	if err != nil {
		return err
	}
	resp.State = d.state(ctx, g, true)
	return nil
}

func (d *Dispatcher) record(ctx context.Context, req xqdto.Request, resp *xqdto.Response) error {
	if d.records == nil {
		return errUnavailable
	}
	rec, err := d.records.PlayerRecord(ctx, req.Meta.PlayerID)
	if err != nil {
		return err
	}
	games, err := d.records.RecentGames(ctx, req.Meta.PlayerID, d.history)
	if err != nil {
		return err
	}
	resp.Record = &xqdto.PlayerRecord{PlayerID: rec.PlayerID, Wins: rec.Wins, Losses: rec.Losses, Draws: rec.Draws}
	for _, g := range games {
		resp.Record.Recent = append(resp.Record.Recent, summarize(req.Meta.PlayerID, g))
	}
	return nil
}

func summarize(playerID string, g *domain.XiangqiGame) xqdto.GameSummary {
	sum := xqdto.GameSummary{Reason: g.Reason, MoveCount: len(g.Moves), EndedAt: g.EndedAt, Outcome: "draw"}
	sum.OpponentID = g.BlackID
	if playerID == g.BlackID {
		sum.OpponentID = g.RedID
	}
	switch g.WinnerID {
	case "":
	case playerID:
		sum.Outcome = "win"
	default:
		sum.Outcome = "loss"
	}
	return sum
}

func (d *Dispatcher) command(ctx context.Context, req xqdto.Request, resp *xqdto.Response) error {
	s, err := d.reg.Get(req.Meta.Room)
	if err != nil {
		return err
	}
	player := req.Meta.PlayerID

	var out *pvpxiangqi.Outcome
	image := true
	switch req.Kind {
	case xqdto.CommandJoin:
		out, err = s.Join(ctx, player)
	case xqdto.CommandMove:
		out, err = s.Move(ctx, player, position(req.From), position(req.To))
	case xqdto.CommandRegret:
		out, err = s.RequestRegret(ctx, player)
		image = false
	case xqdto.CommandRegretResponse:
		out, err = s.RespondRegret(ctx, player, req.Accept)
		image = req.Accept
	case xqdto.CommandSurrender:
		out, err = s.Surrender(ctx, player)
	case xqdto.CommandState, xqdto.CommandLedger:
		var g *pvpxiangqi.Game
		g, err = s.State(ctx)
		if err == nil {
			out = &pvpxiangqi.Outcome{Game: g}
		}
		image = req.Kind == xqdto.CommandState
	default:
		return pvpxiangqi.ErrInvalidArgs
	}
	if err != nil {
		return err
	}

	resp.State = d.state(ctx, out.Game, image)
	resp.Finished = out.Finished
	if out.Move != nil {
		mv := pvpxiangqi.MoveView(*out.Move)
		if req.Kind == xqdto.CommandRegretResponse {
			resp.Undone = &mv
		} else {
			resp.Move = &mv
		}
	}
	if req.Kind == xqdto.CommandRegret && out.Notify != "" {
		resp.Notice = &xqdto.Notice{PlayerID: out.Notify, Key: NoticeRegretRequest}
	}
	return nil
}

// state converts g, with a board image when withImage is set and a renderer is
// configured. A render failure still returns the text state.
func (d *Dispatcher) state(ctx context.Context, g *pvpxiangqi.Game, withImage bool) *xqdto.SessionState {
	if !withImage || d.renderer == nil {
		return pvpxiangqi.ToState(g)
	}
	st, err := pvpxiangqi.RenderState(ctx, d.renderer, g)
	if err != nil {
		obslog.L().Warn("xq_render_error", zap.String("room_id", g.RoomID), zap.Error(err))
		return pvpxiangqi.ToState(g)
	}
	return st
}

var errUnavailable = errors.New("record store not configured")

func errorKind(err error) string {
	if k := pvpxiangqi.KindOf(err); k != "" {
		return string(k)
	}
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return ErrUnknownCommand.Error()
	case errors.Is(err, ErrBadNotation):
		return ErrBadNotation.Error()
	case errors.Is(err, pvpxiangqi.ErrRoomExists):
		return KindRoomExists
	case errors.Is(err, pvpxiangqi.ErrNoSession):
		return KindNoSession
	case errors.Is(err, pvpxiangqi.ErrSessionClosed):
		return KindSessionClosed
	case errors.Is(err, pvpxiangqi.ErrInvalidArgs):
		return KindInvalidArgs
	case errors.Is(err, errUnavailable):
		return KindUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	default:
		return KindInternal
	}
}

func (d *Dispatcher) logFailure(req xqdto.Request, kind string, err error) {
	fields := []zap.Field{
		zap.String("room_id", req.Meta.Room),
		zap.String("user_id", req.Meta.PlayerID),
		zap.String("cmd", string(req.Kind)),
		zap.String("kind", kind),
	}
	switch kind {
	case KindInternal, KindTimeout:
		obslog.L().Warn("xq_command_error", append(fields, zap.Error(err))...)
	default:
		obslog.L().Debug("xq_command_rejected", fields...)
	}
}

func position(s xqdto.Square) xiangqi.Position {
	return xiangqi.Pos(s.X, s.Y)
}
