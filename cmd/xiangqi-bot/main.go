package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/park285/Cheese-Xiangqi-bot/internal/adapter/xqpresenter"
    appcfg "github.com/park285/Cheese-Xiangqi-bot/internal/config"
    "github.com/park285/Cheese-Xiangqi-bot/internal/dispatch"
    "github.com/park285/Cheese-Xiangqi-bot/internal/irisfast"
    "github.com/park285/Cheese-Xiangqi-bot/internal/obslog"
    "github.com/park285/Cheese-Xiangqi-bot/internal/xqbuilder"
    "github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
    "go.uber.org/zap"
)

func main() {
    if err := obslog.InitFromEnv(); err != nil {
        fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
    }
    defer obslog.Sync()
    logger := obslog.L()

    cfg, err := appcfg.Load()
    if err != nil {
        logger.Fatal("config_error", zap.Error(err))
    }

    headers := func() map[string]string {
        h := map[string]string{}
        if cfg.XUserID != "" {
            h["X-User-Id"] = cfg.XUserID
        }
        if cfg.XUserEmail != "" {
            h["X-User-Email"] = cfg.XUserEmail
        }
        if cfg.XSessionID != "" {
            h["X-Session-Id"] = cfg.XSessionID
        }
        return h
    }

    client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(headers), irisfast.WithRetry(3))

    ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
    ws.SetHeaderProvider(headers)
    ws.OnStateChange(func(state irisfast.WebSocketState) {
        logger.Info("ws_state", zap.String("state", state.String()))
    })

    deps, err := xqbuilder.New(cfg, logger)
    if err != nil {
        logger.Fatal("xiangqi_init_error", zap.Error(err))
    }

    egress := irisfast.NewEgress(string(cfg.Egress), cfg.EgressDryRun, client, ws, logger)
    presenter := xqpresenter.NewPresenter(egress, deps.Formatter)

    if deps.Store != nil {
        sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
        if rooms, err := deps.Store.ActiveRooms(sctx); err == nil && len(rooms) > 0 {
            // Sessions live in memory only; rooms left over from a previous run cannot resume.
            logger.Warn("xq_stale_rooms", zap.Strings("rooms", rooms))
        }
        scancel()
    }

    ws.OnMessage(func(msg *irisfast.Message) {
        if msg == nil || msg.Msg == "" {
            return
        }
        if !cfg.RoomAllowed(msg.Room) {
            logger.Debug("room_not_allowed", zap.String("room", msg.Room))
            return
        }
        meta := xqdto.RequestMeta{Room: msg.Room, Sender: msg.SenderName(), PlayerID: msg.UserID()}
        if meta.PlayerID == "" {
            return
        }
        deps.Names.Remember(meta.PlayerID, meta.Sender)
        // Avoid blocking the WS loop
        go handle(deps, presenter, cfg, meta, msg.Msg)
    })

    rootCtx, stop := context.WithCancel(context.Background())
    go janitor(rootCtx, deps, presenter, cfg.SweepInterval)

    cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    if err := ws.Connect(cctx); err != nil {
        cancel()
        logger.Fatal("ws_connect_error", zap.Error(err))
    }
    cancel()
    logger.Info("xiangqi_bot_started", zap.String("prefix", cfg.BotPrefix), zap.String("egress", string(cfg.Egress)))

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    sig := <-sigCh
    logger.Info("shutdown", zap.String("signal", sig.String()))

    stop()
    sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
    _ = ws.Close(sctx)
    scancel()
    deps.Close()
}

func handle(deps *xqbuilder.Deps, presenter *xqpresenter.Presenter, cfg *appcfg.AppConfig, meta xqdto.RequestMeta, text string) {
    defer func() {
        if r := recover(); r != nil {
            obslog.L().Error("xq_handler_panic", zap.Any("panic", r), zap.String("room", meta.Room))
        }
    }()
    ctx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout+10*time.Second)
    defer cancel()
    resp, ok := deps.Dispatcher.HandleText(ctx, cfg.BotPrefix, meta, text)
    if !ok {
        return
    }
    if err := presenter.Deliver(ctx, meta.Room, resp); err != nil {
        obslog.L().Warn("xq_deliver_error", zap.String("room", meta.Room), zap.String("command", string(resp.Kind)), zap.Error(err))
    }
}

// janitor abandons idle rooms, tells each evicted room why its game vanished and
// tells requesters whose takeback expired.
func janitor(ctx context.Context, deps *xqbuilder.Deps, presenter *xqpresenter.Presenter, every time.Duration) {
    t := time.NewTicker(every)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
        }
        sctx, cancel := context.WithTimeout(ctx, every)
        rep := deps.Registry.Sweep(sctx)
        for _, room := range rep.Evicted {
            if err := presenter.Text(sctx, room, deps.Formatter.Evicted()); err != nil {
                obslog.L().Warn("xq_evict_notice_error", zap.String("room", room), zap.Error(err))
            }
        }
        for _, l := range rep.Lapsed {
            n := &xqdto.Notice{PlayerID: l.RequesterID, Key: dispatch.NoticeRegretExpired}
            if err := presenter.Text(sctx, l.Room, deps.Formatter.Notice(n)); err != nil {
                obslog.L().Warn("xq_lapse_notice_error", zap.String("room", l.Room), zap.Error(err))
            }
        }
        cancel()
        if len(rep.Evicted)+len(rep.Lapsed) > 0 {
            obslog.L().Info("xq_sweep",
                zap.Int("evicted", len(rep.Evicted)),
                zap.Int("lapsed", len(rep.Lapsed)),
                zap.Int("live", deps.Registry.Len()),
            )
        }
    }
}
