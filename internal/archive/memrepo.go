package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-board-bot/internal/domain"
)

// memrepo is used when no DATABASE_URL is configured. Games live for the
// lifetime of the process.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID   map[int64]*domain.BotGame
	gamesByUUID map[string]*domain.BotGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:   make(map[int64]*domain.BotGame),
		gamesByUUID: make(map[string]*domain.BotGame),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.BotGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.GameUUID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesByUUID[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	stored := cloneGame(game)
	stored.ID = m.nextID
	m.gamesByID[stored.ID] = stored
	m.gamesByUUID[key] = stored
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, limit int) ([]*domain.BotGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*domain.BotGame, 0, len(m.gamesByID))
	for _, g := range m.gamesByID {
		items = append(items, cloneGame(g))
	}
	// EndedAt desc, then ID desc
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit <= 0 {
		limit = 10
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64) (*domain.BotGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByID[id]
	if !ok {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetGameByUUID(ctx context.Context, gameUUID string) (*domain.BotGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByUUID[strings.TrimSpace(gameUUID)]
	if !ok {
		return nil, nil
	}
	return cloneGame(g), nil
}

func cloneGame(g *domain.BotGame) *domain.BotGame {
	c := *g
	c.MovesUCI = append([]string(nil), g.MovesUCI...)
	c.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &c
}
