package catalog

import (
	"context"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// Source is the read-only catalog surface. Lookups of a missing row return
// gorm.ErrRecordNotFound from every implementation.
type Source interface {
	GetSeller(ctx context.Context, id int64) (*models.Seller, error)
	ListSellers(ctx context.Context) ([]models.Seller, error)
	GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
	GetMenuItems(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error)
	ListMenu(ctx context.Context, sellerID int64, includeUnavailable bool) ([]models.MenuItem, error)
}

// Store adds the seller-side writes.
type Store interface {
	Source
	CreateSeller(ctx context.Context, seller *models.Seller) error
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *models.MenuItem) error
}
