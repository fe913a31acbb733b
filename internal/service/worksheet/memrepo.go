package worksheet

import (
	"context"
	"sort"
	"sync"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
)

// memrepo is a development-only in-memory repository used when no DB is
// configured.
type memrepo struct {
	mu sync.RWMutex

	nextID      int64
	byRequestID map[string]*puzzle.Worksheet
	sheets      []*puzzle.Worksheet
}

func NewMemoryRepository() Repository {
	return &memrepo{byRequestID: make(map[string]*puzzle.Worksheet)}
}

func (m *memrepo) InsertWorksheet(ctx context.Context, ws *puzzle.Worksheet) (int64, error) {
	if ws == nil {
		return 0, ErrDuplicateWorksheet
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byRequestID[ws.RequestID]; exists {
		return 0, ErrDuplicateWorksheet
	}

	m.nextID++
	copy := *ws
	copy.ID = m.nextID
	copy.PuzzleIDs = append([]string(nil), ws.PuzzleIDs...)

	m.byRequestID[copy.RequestID] = &copy
	m.sheets = append(m.sheets, &copy)
	return copy.ID, nil
}

func (m *memrepo) GetRecentWorksheets(ctx context.Context, limit int) ([]*puzzle.Worksheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := append([]*puzzle.Worksheet(nil), m.sheets...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*puzzle.Worksheet, len(items))
	for i, ws := range items {
		copy := *ws
		out[i] = &copy
	}
	return out, nil
}
