package pvpxiangqi

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/Cheese-Xiangqi-bot/internal/domain"
)

// memrepo is the in-memory Repository used when no database is configured and in tests.
type memrepo struct {
	mu      sync.RWMutex
	games   map[string]*domain.XiangqiGame
	order   []string
	records map[string]*domain.XiangqiRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{
		games:   make(map[string]*domain.XiangqiGame),
		records: make(map[string]*domain.XiangqiRecord),
	}
}

func (m *memrepo) SaveResult(ctx context.Context, g *domain.XiangqiGame) error {
	if g == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.GameID]; exists {
		return nil
	}
	cp := *g
	cp.Moves = append([]domain.XiangqiMove(nil), g.Moves...)
	m.games[g.GameID] = &cp
	m.order = append(m.order, g.GameID)
	for _, t := range tallies(g) {
		rec, ok := m.records[t.PlayerID]
		if !ok {
			rec = &domain.XiangqiRecord{PlayerID: t.PlayerID}
			m.records[t.PlayerID] = rec
		}
		rec.Wins += t.Wins
		rec.Losses += t.Losses
		rec.Draws += t.Draws
		rec.LastPlayedAt = t.LastPlayedAt
	}
	return nil
}

func (m *memrepo) PlayerRecord(ctx context.Context, playerID string) (*domain.XiangqiRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.records[playerID]; ok {
		cp := *rec
		return &cp, nil
	}
	return &domain.XiangqiRecord{PlayerID: playerID}, nil
}

func (m *memrepo) RecentGames(ctx context.Context, playerID string, limit int) ([]*domain.XiangqiGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*domain.XiangqiGame
	for _, id := range m.order {
		g := m.games[id]
		if g.RedID != playerID && g.BlackID != playerID {
			continue
		}
		cp := *g
		items = append(items, &cp)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].EndedAt.After(items[j].EndedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
