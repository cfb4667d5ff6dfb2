package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// MemoryRepository keeps cart lines in process memory, keyed by line id.
type MemoryRepository struct {
	mu     sync.RWMutex
	lines  map[int64]models.CartLine
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lines: make(map[int64]models.CartLine)}
}

func (m *MemoryRepository) WithTx(*gorm.DB) Repository {
	return m
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CartLine
	for _, line := range m.lines {
		if line.UserID == userID {
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) Find(_ context.Context, userID, menuItemID int64) (*models.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, line := range m.lines {
		if line.UserID == userID && line.MenuItemID == menuItemID {
			found := line
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryRepository) Create(_ context.Context, line *models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.lines {
		if existing.UserID == line.UserID && existing.MenuItemID == line.MenuItemID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	line.ID = m.nextID
	now := time.Now().UTC()
	line.CreatedAt, line.UpdatedAt = now, now
	m.lines[line.ID] = *line
	return nil
}

func (m *MemoryRepository) UpdateQuantity(_ context.Context, id int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.lines[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	line.Quantity = quantity
	line.UpdatedAt = time.Now().UTC()
	m.lines[id] = line
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, userID, menuItemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, line := range m.lines {
		if line.UserID == userID && line.MenuItemID == menuItemID {
			delete(m.lines, id)
		}
	}
	return nil
}

func (m *MemoryRepository) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, line := range m.lines {
		if line.UserID == userID {
			delete(m.lines, id)
		}
	}
	return nil
}
