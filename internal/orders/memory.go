package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// MemoryRepository keeps orders in process memory for the memory backend.
type MemoryRepository struct {
	mu         sync.RWMutex
	orders     map[int64]models.Order
	numbers    map[string]int64
	nextID     int64
	nextLineID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:  make(map[int64]models.Order),
		numbers: make(map[string]int64),
	}
}

func (m *MemoryRepository) WithTx(*gorm.DB) Repository {
	return m
}

func (m *MemoryRepository) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.numbers[order.OrderNumber]; exists {
		return gorm.ErrDuplicatedKey
	}
	m.nextID++
	order.ID = m.nextID
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Lines {
		m.nextLineID++
		order.Lines[i].ID = m.nextLineID
		order.Lines[i].OrderID = order.ID
		order.Lines[i].CreatedAt = now
	}
	m.orders[order.ID] = cloneOrder(*order)
	m.numbers[order.OrderNumber] = order.ID
	return nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := cloneOrder(order)
	return &found, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to enums.OrderStatus, stamps map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	if at, ok := stamps["delivered_at"].(time.Time); ok {
		order.DeliveredAt = &at
	}
	if at, ok := stamps["cancelled_at"].(time.Time); ok {
		order.CancelledAt = &at
	}
	m.orders[id] = order
	return true, nil
}

func (m *MemoryRepository) AssignCourier(_ context.Context, id, courierID int64, eta time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.Status != enums.OrderStatusReady {
		return false, nil
	}
	order.CourierID = &courierID
	order.EstimatedDeliveryAt = &eta
	order.UpdatedAt = time.Now().UTC()
	m.orders[id] = order
	return true, nil
}

func (m *MemoryRepository) List(_ context.Context, filter ListFilter, beforeID int64, limit int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Order
	for _, order := range m.orders {
		if !matches(order, filter) || (beforeID > 0 && order.ID >= beforeID) {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Order
	for _, order := range m.orders {
		if order.Status == enums.OrderStatusPending && order.CreatedAt.Before(cutoff) {
			out = append(out, cloneOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(order models.Order, filter ListFilter) bool {
	if filter.UserID != nil && order.UserID != *filter.UserID {
		return false
	}
	if filter.SellerID != nil && order.SellerID != *filter.SellerID {
		return false
	}
	if filter.CourierID != nil && (order.CourierID == nil || *order.CourierID != *filter.CourierID) {
		return false
	}
	if filter.Status != nil && order.Status != *filter.Status {
		return false
	}
	return true
}

func cloneOrder(order models.Order) models.Order {
	order.Lines = append([]models.OrderLine(nil), order.Lines...)
	return order
}
