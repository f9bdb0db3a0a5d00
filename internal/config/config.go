package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EgressMode selects how replies reach Iris.
type EgressMode string

const (
	EgressHTTP EgressMode = "http"
	EgressWS   EgressMode = "ws"
	EgressAuto EgressMode = "auto"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	RedisURL    string
	DatabaseURL string

	AllowedRooms []string

	SessionIdleTTL time.Duration
	RegretTTL      time.Duration
	SweepInterval  time.Duration
	SnapshotTTL    time.Duration
	CommandTimeout time.Duration
	HistoryLimit   int

	TemplateDir  string
	Egress       EgressMode
	EgressDryRun bool
}

const (
	defaultIdleTTLSec       = 3600
	defaultRegretTTLSec     = 120
	defaultSweepIntervalSec = 60
	defaultSnapshotTTLSec   = 86400
	defaultCommandTimeoutMS = 5000
	defaultHistoryLimit     = 10
)

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		SessionIdleTTL: defaultIdleTTLSec * time.Second,
		RegretTTL:      defaultRegretTTLSec * time.Second,
		SweepInterval:  defaultSweepIntervalSec * time.Second,
		SnapshotTTL:    defaultSnapshotTTLSec * time.Second,
		CommandTimeout: defaultCommandTimeoutMS * time.Millisecond,
		HistoryLimit:   defaultHistoryLimit,
		Egress:         EgressAuto,
	}

	cfg.IrisBaseURL = env("IRIS_BASE_URL")
	cfg.IrisWSURL = env("IRIS_WS_URL")
	cfg.BotPrefix = env("BOT_PREFIX")

	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.AllowedRooms = splitList(env("ALLOWED_ROOMS"))
	cfg.TemplateDir = env("MSG_TEMPLATE_DIR")
	cfg.EgressDryRun, _ = strconv.ParseBool(env("EGRESS_DRYRUN"))

	var errs []error
	durations := []struct {
		key  string
		unit time.Duration
		dst  *time.Duration
	}{
		{"XQ_SESSION_IDLE_TTL", time.Second, &cfg.SessionIdleTTL},
		{"XQ_REGRET_TTL", time.Second, &cfg.RegretTTL},
		{"XQ_SWEEP_INTERVAL", time.Second, &cfg.SweepInterval},
		{"XQ_SNAPSHOT_TTL", time.Second, &cfg.SnapshotTTL},
		{"XQ_COMMAND_TIMEOUT", time.Millisecond, &cfg.CommandTimeout},
	}
	for _, d := range durations {
		v := env(d.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive integer, got %q", d.key, v))
			continue
		}
		*d.dst = time.Duration(n) * d.unit
	}
	if v := env("XQ_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}

	if v := strings.ToLower(env("EGRESS_MODE")); v != "" {
		switch EgressMode(v) {
		case EgressHTTP, EgressWS, EgressAuto:
			cfg.Egress = EgressMode(v)
		default:
			errs = append(errs, fmt.Errorf("EGRESS_MODE must be http, ws or auto, got %q", v))
		}
	}

	if cfg.IrisBaseURL == "" {
		errs = append(errs, errors.New("IRIS_BASE_URL is required"))
	}
	if cfg.IrisWSURL == "" {
		errs = append(errs, errors.New("IRIS_WS_URL is required"))
	}
	if cfg.BotPrefix == "" {
		errs = append(errs, errors.New("BOT_PREFIX is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// RoomAllowed reports whether the bot should answer in room. An empty allow list admits every room.
func (c *AppConfig) RoomAllowed(room string) bool {
	if c == nil || len(c.AllowedRooms) == 0 {
		return true
	}
	room = strings.TrimSpace(room)
	for _, r := range c.AllowedRooms {
		if r == room {
			return true
		}
	}
	return false
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
