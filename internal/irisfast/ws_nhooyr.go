package irisfast

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "sync"
    "time"

    "nhooyr.io/websocket"
    "nhooyr.io/websocket/wsjson"
)

type callbackEntry struct {
    id       int
    callback MessageCallback
}

type stateCallbackEntry struct {
    id       int
    callback StateCallback
}

// WebSocket is the Iris event stream. It reconnects with backoff and fans each inbound
// Message out to the registered callbacks on the reader goroutine.
type WebSocket struct {
    wsURL string

    conn   *websocket.Conn
    state  WebSocketState
    stateM sync.RWMutex
    // wsjson.Write is not safe for concurrent use
    writeM sync.Mutex

    msgCbs   []callbackEntry
    stateCbs []stateCallbackEntry
    nextCbID int
    cbM      sync.RWMutex

    maxReconnectAttempts int
    reconnectDelay       time.Duration
    pingInterval         time.Duration

    stopCh   chan struct{}
    stopOnce sync.Once
    wg       sync.WaitGroup

    rootCtx    context.Context
    rootCancel context.CancelFunc

    headerProvider HeaderProvider
}

var _ WSClient = (*WebSocket)(nil)

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *WebSocket {
    return &WebSocket{
        wsURL:                wsURL,
        state:                WSStateDisconnected,
        maxReconnectAttempts: maxReconnectAttempts,
        reconnectDelay:       reconnectDelay,
        pingInterval:         30 * time.Second,
        stopCh:               make(chan struct{}),
    }
}

// State returns the current connection state.
func (ws *WebSocket) State() WebSocketState {
    ws.stateM.RLock()
    defer ws.stateM.RUnlock()
    return ws.state
}

func (ws *WebSocket) current() *websocket.Conn {
    ws.stateM.RLock()
    defer ws.stateM.RUnlock()
    return ws.conn
}

func (ws *WebSocket) Connect(ctx context.Context) error {
    if s := ws.State(); s == WSStateConnected || s == WSStateConnecting {
        return nil
    }
    ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
    ws.setState(WSStateConnecting)

    dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := ws.dial(dialCtx); err != nil {
        ws.setState(WSStateFailed)
        ws.scheduleReconnect()
        return err
    }
    return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
    conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
        CompressionMode: websocket.CompressionNoContextTakeover,
        HTTPHeader:      ws.buildHeaders(),
    })
    if err != nil { return err }
    // raw chat records can exceed the 32KiB default
    conn.SetReadLimit(4 << 20)

    ws.stateM.Lock()
    ws.conn = conn
    ws.stateM.Unlock()
    ws.setState(WSStateConnected)

    ws.wg.Add(2)
    go ws.listen(conn)
    go ws.pingLoop(conn)
    return nil
}

// WriteJSON sends v as one text frame.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
    conn := ws.current()
    if conn == nil || ws.State() != WSStateConnected {
        return errors.New("ws not connected")
    }
    ws.writeM.Lock()
    defer ws.writeM.Unlock()
    return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
    defer ws.wg.Done()
    for {
        if ws.isStopping() { return }
        var msg Message
        if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
            if ws.isStopping() { return }
            ws.dropConn(conn, "reconnect")
            return
        }

        ws.cbM.RLock()
        callbacks := make([]callbackEntry, len(ws.msgCbs))
        copy(callbacks, ws.msgCbs)
        ws.cbM.RUnlock()
        for _, entry := range callbacks {
            if entry.callback != nil {
                entry.callback(&msg)
            }
        }
    }
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
    defer ws.wg.Done()
    t := time.NewTicker(ws.pingInterval)
    defer t.Stop()
    failures := 0
    for {
        select {
        case <-ws.stopCh:
            return
        case <-t.C:
            if ws.current() != conn { return }
            ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
            err := conn.Ping(ctx)
            cancel()
            if err == nil {
                failures = 0
                continue
            }
            failures++
            if failures >= 2 {
                if ws.isStopping() { return }
                ws.dropConn(conn, "ping failure")
                return
            }
        }
    }
}

// dropConn closes conn if it is still current and starts reconnecting. Reader and
// pinger can both notice a dead connection; only the first one acts.
func (ws *WebSocket) dropConn(conn *websocket.Conn, reason string) {
    ws.stateM.Lock()
    if ws.conn != conn {
        ws.stateM.Unlock()
        return
    }
    ws.conn = nil
    ws.stateM.Unlock()
    _ = conn.Close(websocket.StatusGoingAway, reason)
    ws.setState(WSStateDisconnected)
    ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
    if ws.maxReconnectAttempts <= 0 { return }
    ws.setState(WSStateReconnecting)

    go func() {
        for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
            select {
            case <-ws.stopCh:
                return
            case <-time.After(ws.reconnectDelay + backoff(attempt)):
            }
            dialCtx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
            err := ws.dial(dialCtx)
            cancel()
            if err == nil { return }
        }
        ws.setState(WSStateFailed)
    }()
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    ws.nextCbID++
    ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
    return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    for i, cb := range ws.msgCbs {
        if cb.id == id {
            ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
            break
        }
    }
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    ws.nextCbID++
    ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
    return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    for i, cb := range ws.stateCbs {
        if cb.id == id {
            ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
            break
        }
    }
}

func (ws *WebSocket) setState(state WebSocketState) {
    ws.stateM.Lock()
    ws.state = state
    ws.stateM.Unlock()

    ws.cbM.RLock()
    callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
    copy(callbacks, ws.stateCbs)
    ws.cbM.RUnlock()
    for _, entry := range callbacks {
        if entry.callback != nil {
            entry.callback(state)
        }
    }
}

func (ws *WebSocket) Close(ctx context.Context) error {
    ws.stopOnce.Do(func() { close(ws.stopCh) })
    ws.stateM.Lock()
    conn := ws.conn
    ws.conn = nil
    ws.stateM.Unlock()
    if conn != nil {
        _ = conn.Close(websocket.StatusNormalClosure, "close")
    }
    if ws.rootCancel != nil {
        ws.rootCancel()
    }

    done := make(chan struct{})
    go func() {
        ws.wg.Wait()
        close(done)
    }()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-done:
        ws.setState(WSStateDisconnected)
        return nil
    }
}

func (ws *WebSocket) isStopping() bool {
    select {
    case <-ws.stopCh:
        return true
    default:
        return false
    }
}

// SetHeaderProvider injects headers into every handshake, reconnects included.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
    ws.headerProvider = h
}

func (ws *WebSocket) buildHeaders() http.Header {
    hdr := http.Header{}
    if ws.headerProvider == nil { return hdr }
    for k, v := range ws.headerProvider() {
        if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" { continue }
        hdr.Set(k, v)
    }
    return hdr
}
