package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// MemorySource is an in-process Store used by the memory backend and tests.
type MemorySource struct {
	mu         sync.RWMutex
	sellers    map[int64]models.Seller
	items      map[int64]models.MenuItem
	nextSeller int64
	nextItem   int64
}

// NewMemorySource seeds the store. Rows with a zero id are assigned one.
func NewMemorySource(sellers []models.Seller, items []models.MenuItem) *MemorySource {
	m := &MemorySource{
		sellers: make(map[int64]models.Seller),
		items:   make(map[int64]models.MenuItem),
	}
	ctx := context.Background()
	for i := range sellers {
		seller := sellers[i]
		_ = m.CreateSeller(ctx, &seller)
	}
	for i := range items {
		item := items[i]
		_ = m.CreateMenuItem(ctx, &item)
	}
	return m
}

// Fixtures returns a small demo catalog for local runs of the memory backend.
func Fixtures() ([]models.Seller, []models.MenuItem) {
	sellers := []models.Seller{
		{ID: 1, Name: "Anatolian Grill", IsActive: true},
		{ID: 2, Name: "Bosphorus Pizza", IsActive: true},
	}
	items := []models.MenuItem{
		{ID: 1, SellerID: 1, Name: "Adana Kebab", Category: "mains", Price: decimal.RequireFromString("110.00"), IsAvailable: true},
		{ID: 2, SellerID: 1, Name: "Lentil Soup", Category: "starters", Price: decimal.RequireFromString("45.00"), IsAvailable: true},
		{ID: 3, SellerID: 1, Name: "Ayran", Category: "drinks", Price: decimal.RequireFromString("15.00"), IsAvailable: true},
		{ID: 4, SellerID: 2, Name: "Margherita", Category: "pizza", Price: decimal.RequireFromString("160.00"), IsAvailable: true},
		{ID: 5, SellerID: 2, Name: "Sucuklu Pide", Category: "pizza", Price: decimal.RequireFromString("140.00"), IsAvailable: true},
	}
	return sellers, items
}

func (m *MemorySource) GetSeller(_ context.Context, id int64) (*models.Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seller, ok := m.sellers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &seller, nil
}

func (m *MemorySource) ListSellers(context.Context) ([]models.Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Seller, 0, len(m.sellers))
	for _, seller := range m.sellers {
		if seller.IsActive {
			out = append(out, seller)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemorySource) GetMenuItem(_ context.Context, id int64) (*models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (m *MemorySource) GetMenuItems(_ context.Context, ids []int64) (map[int64]models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]models.MenuItem, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (m *MemorySource) ListMenu(_ context.Context, sellerID int64, includeUnavailable bool) ([]models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.MenuItem
	for _, item := range m.items {
		if item.SellerID != sellerID {
			continue
		}
		if !includeUnavailable && !item.IsAvailable {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemorySource) CreateSeller(_ context.Context, seller *models.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seller.ID == 0 {
		m.nextSeller++
		seller.ID = m.nextSeller
	} else if seller.ID > m.nextSeller {
		m.nextSeller = seller.ID
	}
	now := time.Now().UTC()
	seller.CreatedAt, seller.UpdatedAt = now, now
	m.sellers[seller.ID] = *seller
	return nil
}

func (m *MemorySource) CreateMenuItem(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == 0 {
		m.nextItem++
		item.ID = m.nextItem
	} else if item.ID > m.nextItem {
		m.nextItem = item.ID
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	m.items[item.ID] = *item
	return nil
}

func (m *MemorySource) UpdateMenuItem(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[item.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.Name = item.Name
	existing.Category = item.Category
	existing.Price = item.Price
	existing.IsAvailable = item.IsAvailable
	existing.UpdatedAt = time.Now().UTC()
	m.items[item.ID] = existing
	*item = existing
	return nil
}
