package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// Repository is the gorm-backed Store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetSeller(ctx context.Context, id int64) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *Repository) ListSellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Order("id ASC").
		Find(&sellers).Error
	return sellers, err
}

func (r *Repository) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMenuItems returns the rows found; missing ids are simply absent from the map.
func (r *Repository) GetMenuItems(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error) {
	out := make(map[int64]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) ListMenu(ctx context.Context, sellerID int64, includeUnavailable bool) ([]models.MenuItem, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if !includeUnavailable {
		query = query.Where("is_available = ?", true)
	}
	var rows []models.MenuItem
	err := query.Order("category ASC").Order("name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateSeller(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *Repository) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateMenuItem writes the mutable columns. Placed orders keep their own line snapshots.
func (r *Repository) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	res := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":         item.Name,
			"category":     item.Category,
			"price":        item.Price,
			"is_available": item.IsAvailable,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
