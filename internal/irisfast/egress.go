package irisfast

import (
    "context"
    "errors"
    "time"

    "go.uber.org/zap"
)

// Egress sends replies to a room over HTTP or the websocket.
type Egress interface {
    SendText(ctx context.Context, room, message string) error
    SendImage(ctx context.Context, room, imageBase64 string) error
}

const (
    ModeHTTP = "http"
    ModeWS   = "ws"
    ModeAuto = "auto"
)

var errWSUnavailable = errors.New("ws egress not available")

// NewEgress picks the transport for mode. In auto mode the websocket is tried first
// and a failed write falls back to HTTP once. dryrun logs websocket frames instead of
// writing them.
func NewEgress(mode string, dryrun bool, c *Client, ws WSClient, logger *zap.Logger) Egress {
    if logger == nil { logger = zap.NewNop() }
    w := &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
    h := &httpEgress{c: c}
    switch mode {
    case ModeWS:
        return w
    case ModeAuto:
        return &autoEgress{ws: w, http: h, logger: logger}
    default:
        return h
    }
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
    if h == nil || h.c == nil { return errors.New("http egress not available") }
    return h.c.SendMessage(ctx, room, message)
}

func (h *httpEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    if h == nil || h.c == nil { return errors.New("http egress not available") }
    return h.c.SendImage(ctx, room, imageBase64)
}

type wsEgress struct {
    ws     WSClient
    dryrun bool
    logger *zap.Logger
}

func (w *wsEgress) available() bool {
    return w != nil && w.ws != nil && w.ws.State() == WSStateConnected
}

func (w *wsEgress) send(ctx context.Context, kind, room, data string) error {
    if w == nil || w.ws == nil { return errWSUnavailable }
    if w.dryrun {
        w.logger.Info("ws_egress_dryrun", zap.String("type", kind), zap.String("room", room), zap.Int("bytes", len(data)))
        return nil
    }
    if _, ok := ctx.Deadline(); !ok {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
        defer cancel()
    }
    return w.ws.WriteJSON(ctx, &ReplyRequest{Type: kind, Room: room, Data: data})
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
    return w.send(ctx, "text", room, message)
}

func (w *wsEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    return w.send(ctx, "image", room, imageBase64)
}

type autoEgress struct {
    ws     *wsEgress
    http   *httpEgress
    logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
    if a.ws.available() {
        err := a.ws.SendText(ctx, room, message)
        if err == nil { return nil }
        a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room), zap.Error(err))
    }
    return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    if a.ws.available() {
        err := a.ws.SendImage(ctx, room, imageBase64)
        if err == nil { return nil }
        a.logger.Warn("egress_fallback", zap.String("type", "image"), zap.String("room", room), zap.Error(err))
    }
    return a.http.SendImage(ctx, room, imageBase64)
}
