package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
// Missing lines are reported as gorm.ErrRecordNotFound.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID int64) ([]models.CartLine, error)
	Find(ctx context.Context, userID, menuItemID int64) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) error
	UpdateQuantity(ctx context.Context, id int64, quantity int) error
	// Delete removes the (user, item) line if present.
	Delete(ctx context.Context, userID, menuItemID int64) error
	Clear(ctx context.Context, userID int64) error
}
