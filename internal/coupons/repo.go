package coupons

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// Repository persists coupons. Missing codes return gorm.ErrRecordNotFound.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	SetActive(ctx context.Context, code string, active bool) error
	List(ctx context.Context) ([]models.Coupon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Sellers").
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Create inserts the coupon and its seller scope rows together.
func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sellers := coupon.Sellers
		coupon.Sellers = nil
		if err := tx.Create(coupon).Error; err != nil {
			return err
		}
		for i := range sellers {
			sellers[i].CouponID = coupon.ID
		}
		if len(sellers) > 0 {
			if err := tx.Create(&sellers).Error; err != nil {
				return err
			}
		}
		coupon.Sellers = sellers
		return nil
	})
}

func (r *repository) SetActive(ctx context.Context, code string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ?", code).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Sellers").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// MemoryRepository is the in-process Repository for the memory backend.
type MemoryRepository struct {
	mu     sync.RWMutex
	byCode map[string]models.Coupon
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byCode: make(map[string]models.Coupon)}
}

func (m *MemoryRepository) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coupon, ok := m.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &coupon, nil
}

func (m *MemoryRepository) Create(_ context.Context, coupon *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byCode[coupon.Code]; exists {
		return gorm.ErrDuplicatedKey
	}
	m.nextID++
	coupon.ID = m.nextID
	coupon.CreatedAt = time.Now().UTC()
	coupon.UpdatedAt = coupon.CreatedAt
	for i := range coupon.Sellers {
		coupon.Sellers[i].CouponID = coupon.ID
	}
	stored := *coupon
	stored.Sellers = append([]models.CouponSeller(nil), coupon.Sellers...)
	m.byCode[coupon.Code] = stored
	return nil
}

func (m *MemoryRepository) SetActive(_ context.Context, code string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coupon, ok := m.byCode[code]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	coupon.IsActive = active
	coupon.UpdatedAt = time.Now().UTC()
	m.byCode[code] = coupon
	return nil
}

func (m *MemoryRepository) List(context.Context) ([]models.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Coupon, 0, len(m.byCode))
	for _, coupon := range m.byCode {
		out = append(out, coupon)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
