package xqbuilder

import (
    "context"
    "fmt"
    "io"
    "strings"
    "time"

    "github.com/park285/Cheese-Xiangqi-bot/internal/adapter/xqpresenter"
    "github.com/park285/Cheese-Xiangqi-bot/internal/config"
    "github.com/park285/Cheese-Xiangqi-bot/internal/dispatch"
    "github.com/park285/Cheese-Xiangqi-bot/internal/msgcat"
    "github.com/park285/Cheese-Xiangqi-bot/internal/pvpxiangqi"
    "github.com/park285/Cheese-Xiangqi-bot/internal/render"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

type Deps struct {
    Registry   *pvpxiangqi.Registry
    Dispatcher *dispatch.Dispatcher
    Formatter  *xqpresenter.Formatter
    Names      *xqpresenter.Names
    Repo       pvpxiangqi.Repository
    // Store is nil when REDIS_URL is unset.
    Store *pvpxiangqi.SnapshotStore

    closers []io.Closer
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }

// New wires the game stack from cfg. Postgres and Redis are optional: without
// DATABASE_URL results go to an in-memory repository, and without REDIS_URL no
// snapshots are published.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
    if cfg == nil {
        return nil, fmt.Errorf("nil config")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    d := &Deps{Names: &xqpresenter.Names{}}

    // Repository
    if strings.TrimSpace(cfg.DatabaseURL) != "" {
        repo, err := pvpxiangqi.NewRepository(cfg.DatabaseURL)
        if err != nil {
            return nil, fmt.Errorf("init repository: %w", err)
        }
        d.Repo = repo
        if c, ok := repo.(io.Closer); ok {
            d.closers = append(d.closers, c)
        }
        logger.Info("xq_repository", zap.String("backend", "postgres"))
    } else {
        d.Repo = pvpxiangqi.NewMemoryRepository()
        logger.Warn("xq_repository", zap.String("backend", "memory"))
    }

    // Snapshots (Redis optional)
    var pub pvpxiangqi.Publisher
    if strings.TrimSpace(cfg.RedisURL) != "" {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        rdb, err := pvpxiangqi.NewRedisClient(ctx, cfg.RedisURL)
        cancel()
        if err != nil {
            d.Close()
            return nil, fmt.Errorf("init redis: %w", err)
        }
        d.attachStore(rdb, cfg.SnapshotTTL)
        pub = d.Store
    }

    cat, err := msgcat.New(cfg.TemplateDir)
    if err != nil {
        d.Close()
        return nil, fmt.Errorf("load messages: %w", err)
    }

    d.Registry = pvpxiangqi.NewRegistry(pvpxiangqi.Options{
        Sink:      d.Repo,
        Publisher: pub,
        IdleTTL:   cfg.SessionIdleTTL,
        RegretTTL: cfg.RegretTTL,
    })
    d.Dispatcher = dispatch.New(d.Registry, dispatch.Options{
        Records:      d.Repo,
        Renderer:     render.NewSVGBoardRenderer(),
        Timeout:      cfg.CommandTimeout,
        HistoryLimit: cfg.HistoryLimit,
    })
    d.Formatter = xqpresenter.NewFormatter(cat, prefixProvider{prefix: cfg.BotPrefix}, d.Names)
    return d, nil
}

func (d *Deps) attachStore(rdb *redis.Client, ttl time.Duration) {
    d.Store = pvpxiangqi.NewSnapshotStore(rdb, ttl)
    d.closers = append(d.closers, rdb)
}

// Close stops every session, then releases the stores.
func (d *Deps) Close() {
    if d == nil {
        return
    }
    if d.Registry != nil {
        d.Registry.Close()
    }
    for i := len(d.closers) - 1; i >= 0; i-- {
        _ = d.closers[i].Close()
    }
    d.closers = nil
}
