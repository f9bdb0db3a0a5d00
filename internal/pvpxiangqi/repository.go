package pvpxiangqi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/Cheese-Xiangqi-bot/internal/domain"
)

// Repository persists finished games and per-player tallies.
type Repository interface {
	ResultSink
	PlayerRecord(ctx context.Context, playerID string) (*domain.XiangqiRecord, error)
	RecentGames(ctx context.Context, playerID string, limit int) ([]*domain.XiangqiGame, error)
}

type pgRepository struct {
	db *sql.DB
}

// Schema is the DDL the Postgres repository expects.
const Schema = `
CREATE TABLE IF NOT EXISTS xiangqi_games (
	game_id     TEXT PRIMARY KEY,
	room_id     TEXT NOT NULL,
	red_id      TEXT NOT NULL,
	black_id    TEXT NOT NULL,
	winner      TEXT NOT NULL,
	winner_id   TEXT,
	reason      TEXT NOT NULL,
	moves       JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS xiangqi_records (
	player_id      TEXT PRIMARY KEY,
	wins           INT NOT NULL DEFAULT 0,
	losses         INT NOT NULL DEFAULT 0,
	draws          INT NOT NULL DEFAULT 0,
	last_played_at TIMESTAMPTZ NOT NULL
);`

func NewRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &pgRepository{db: db}, nil
}

func (r *pgRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult inserts the game once and bumps both players' tallies in the same transaction.
// A repeated call for the same game id is a no-op.
func (r *pgRepository) SaveResult(ctx context.Context, g *domain.XiangqiGame) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesRaw, err := json.Marshal(g.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO xiangqi_games (
		game_id, room_id, red_id, black_id, winner, winner_id, reason,
		moves, started_at, ended_at, duration_ms
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	  ON CONFLICT (game_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, q,
		g.GameID, g.RoomID, g.RedID, g.BlackID,
		g.Winner, nullString(g.WinnerID), g.Reason,
		string(movesRaw), g.StartedAt, g.EndedAt, g.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert xiangqi_games: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}
	for _, t := range tallies(g) {
		const upsert = `INSERT INTO xiangqi_records (player_id, wins, losses, draws, last_played_at)
		  VALUES ($1,$2,$3,$4,$5)
		  ON CONFLICT (player_id) DO UPDATE SET
			wins = xiangqi_records.wins + EXCLUDED.wins,
			losses = xiangqi_records.losses + EXCLUDED.losses,
			draws = xiangqi_records.draws + EXCLUDED.draws,
			last_played_at = EXCLUDED.last_played_at`
		if _, err := tx.ExecContext(ctx, upsert, t.PlayerID, t.Wins, t.Losses, t.Draws, g.EndedAt); err != nil {
			return fmt.Errorf("upsert xiangqi_records: %w", err)
		}
	}
	return tx.Commit()
}

func (r *pgRepository) PlayerRecord(ctx context.Context, playerID string) (*domain.XiangqiRecord, error) {
	const q = `SELECT wins, losses, draws, last_played_at FROM xiangqi_records WHERE player_id = $1`
	rec := &domain.XiangqiRecord{PlayerID: playerID}
	err := r.db.QueryRowContext(ctx, q, playerID).Scan(&rec.Wins, &rec.Losses, &rec.Draws, &rec.LastPlayedAt)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *pgRepository) RecentGames(ctx context.Context, playerID string, limit int) ([]*domain.XiangqiGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT game_id, room_id, red_id, black_id, winner, COALESCE(winner_id, ''), reason,
		moves, started_at, ended_at, duration_ms
	  FROM xiangqi_games
	  WHERE red_id = $1 OR black_id = $1
	  ORDER BY ended_at DESC
	  LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.XiangqiGame
	for rows.Next() {
		var (
			g        domain.XiangqiGame
			movesRaw []byte
			ms       int64
		)
		if err := rows.Scan(&g.GameID, &g.RoomID, &g.RedID, &g.BlackID, &g.Winner, &g.WinnerID, &g.Reason,
			&movesRaw, &g.StartedAt, &g.EndedAt, &ms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(movesRaw, &g.Moves); err != nil {
			return nil, fmt.Errorf("decode moves for %s: %w", g.GameID, err)
		}
		g.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &g)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// tallies returns the record delta for each seated player.
func tallies(g *domain.XiangqiGame) []domain.XiangqiRecord {
	var out []domain.XiangqiRecord
	for _, id := range []string{g.RedID, g.BlackID} {
		if strings.TrimSpace(id) == "" {
			continue
		}
		t := domain.XiangqiRecord{PlayerID: id, LastPlayedAt: g.EndedAt}
		switch {
		case g.WinnerID == "":
			t.Draws = 1
		case g.WinnerID == id:
			t.Wins = 1
		default:
			t.Losses = 1
		}
		out = append(out, t)
	}
	return out
}
