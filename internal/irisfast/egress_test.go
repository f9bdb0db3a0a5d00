package irisfast

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "sync"
    "sync/atomic"
    "testing"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"
)

type fakeWS struct {
    mu       sync.Mutex
    state    WebSocketState
    writeErr error
    frames   []ReplyRequest
}

func (f *fakeWS) Connect(context.Context) error      { return nil }
func (f *fakeWS) State() WebSocketState              { f.mu.Lock(); defer f.mu.Unlock(); return f.state }
func (f *fakeWS) OnMessage(MessageCallback) int      { return 0 }
func (f *fakeWS) RemoveMessageCallback(int)          {}
func (f *fakeWS) OnStateChange(StateCallback) int    { return 0 }
func (f *fakeWS) Close(context.Context) error        { return nil }

func (f *fakeWS) WriteJSON(_ context.Context, v any) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.writeErr != nil { return f.writeErr }
    f.frames = append(f.frames, *v.(*ReplyRequest))
    return nil
}

func replyServer(t *testing.T) (*Client, *atomic.Int32) {
    t.Helper()
    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var req ReplyRequest
        body, _ := io.ReadAll(r.Body)
        if err := json.Unmarshal(body, &req); err != nil { t.Errorf("decode: %v", err) }
        calls.Add(1)
        w.WriteHeader(http.StatusOK)
    }))
    t.Cleanup(srv.Close)
    return NewClient(srv.URL), &calls
}

func TestEgress_WSWritesFrames(t *testing.T) {
    ws := &fakeWS{state: WSStateConnected}
    e := NewEgress(ModeWS, false, nil, ws, nil)
    if err := e.SendText(context.Background(), "r", "hi"); err != nil { t.Fatalf("SendText: %v", err) }
    if err := e.SendImage(context.Background(), "r", "aGk="); err != nil { t.Fatalf("SendImage: %v", err) }
    if len(ws.frames) != 2 || ws.frames[0].Type != "text" || ws.frames[1].Type != "image" || ws.frames[1].Data != "aGk=" {
        t.Fatalf("frames: %+v", ws.frames)
    }
}

func TestEgress_AutoFallsBackToHTTP(t *testing.T) {
    client, calls := replyServer(t)
    core, logs := observer.New(zapcore.WarnLevel)
    ws := &fakeWS{state: WSStateConnected, writeErr: errors.New("broken pipe")}
    e := NewEgress(ModeAuto, false, client, ws, zap.New(core))

    if err := e.SendText(context.Background(), "r", "hi"); err != nil { t.Fatalf("SendText: %v", err) }
    if calls.Load() != 1 { t.Fatalf("http should carry the reply, calls=%d", calls.Load()) }
    if logs.FilterMessage("egress_fallback").Len() != 1 { t.Fatalf("fallback should be logged once") }

    ws.mu.Lock()
    ws.state, ws.writeErr = WSStateDisconnected, nil
    ws.mu.Unlock()
    if err := e.SendImage(context.Background(), "r", "aGk="); err != nil { t.Fatalf("SendImage: %v", err) }
    if calls.Load() != 2 || len(ws.frames) != 0 { t.Fatalf("disconnected ws should be skipped") }
    if logs.FilterMessage("egress_fallback").Len() != 1 { t.Fatalf("skipping a down socket is not a fallback") }
}

func TestEgress_DryRun(t *testing.T) {
    core, logs := observer.New(zapcore.InfoLevel)
    ws := &fakeWS{state: WSStateConnected}
    e := NewEgress(ModeWS, true, nil, ws, zap.New(core))
    if err := e.SendText(context.Background(), "r", "hi"); err != nil { t.Fatalf("SendText: %v", err) }
    if len(ws.frames) != 0 || logs.FilterMessage("ws_egress_dryrun").Len() != 1 { t.Fatalf("dryrun should log instead of writing") }
}

func TestEgress_HTTPDefault(t *testing.T) {
    client, calls := replyServer(t)
    e := NewEgress("", false, client, nil, nil)
    if err := e.SendText(context.Background(), "r", "hi"); err != nil { t.Fatalf("SendText: %v", err) }
    if calls.Load() != 1 { t.Fatalf("calls=%d", calls.Load()) }
}
