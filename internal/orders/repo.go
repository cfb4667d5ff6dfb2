package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their lines.
// Status writes are compare-and-set: they report false when the row was not
// in the expected status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to enums.OrderStatus, stamps map[string]any) (bool, error)
	AssignCourier(ctx context.Context, id, courierID int64, eta time.Time) (bool, error)
	// List returns up to limit orders with id < beforeID (no bound when 0), newest first.
	List(ctx context.Context, filter ListFilter, beforeID int64, limit int) ([]models.Order, error)
	// ListPendingBefore returns pending orders created before cutoff, oldest first.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its lines. Callers run it inside a transaction.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	lines := order.Lines
	order.Lines = nil
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		order.Lines = lines
		return err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		if err := r.db.WithContext(ctx).Create(&lines).Error; err != nil {
			return err
		}
	}
	order.Lines = lines
	return nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to enums.OrderStatus, stamps map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range stamps {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AssignCourier(ctx context.Context, id, courierID int64, eta time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusReady).
		Updates(map[string]any{
			"courier_id":            courierID,
			"estimated_delivery_at": eta,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, beforeID int64, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.CourierID != nil {
		query = query.Where("courier_id = ?", *filter.CourierID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	var rows []models.Order
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
