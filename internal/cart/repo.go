package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) Find(ctx context.Context, userID, menuItemID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND menu_item_id = ?", userID, menuItemID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, menuItemID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND menu_item_id = ?", userID, menuItemID).
		Delete(&models.CartLine{}).Error
}

func (r *repository) Clear(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartLine{}).Error
}
