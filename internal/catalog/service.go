package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// Service exposes browsing for buyers and menu management for sellers.
type Service interface {
	ListSellers(ctx context.Context) ([]models.Seller, error)
	ListMenu(ctx context.Context, sellerID int64) ([]models.MenuItem, error)
	ListOwnMenu(ctx context.Context, sellerID int64) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, sellerID int64, input CreateMenuItemInput) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, sellerID, itemID int64, input UpdateMenuItemInput) (*models.MenuItem, error)
}

type CreateMenuItemInput struct {
	Name     string
	Category string
	Price    decimal.Decimal
}

// UpdateMenuItemInput carries optional changes; nil fields are left alone.
type UpdateMenuItemInput struct {
	Name        *string
	Category    *string
	Price       *decimal.Decimal
	IsAvailable *bool
}

type service struct {
	store Store
}

// NewService builds a catalog service over the provided store.
func NewService(store Store) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	return &service{store: store}, nil
}

func (s *service) ListSellers(ctx context.Context) ([]models.Seller, error) {
	sellers, err := s.store.ListSellers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
	}
	return sellers, nil
}

func (s *service) ListMenu(ctx context.Context, sellerID int64) ([]models.MenuItem, error) {
	if _, err := s.activeSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	items, err := s.store.ListMenu(ctx, sellerID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu")
	}
	return items, nil
}

func (s *service) ListOwnMenu(ctx context.Context, sellerID int64) ([]models.MenuItem, error) {
	items, err := s.store.ListMenu(ctx, sellerID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu")
	}
	return items, nil
}

func (s *service) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	item, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeItemNotFound, "menu item %d not found", id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return item, nil
}

func (s *service) CreateMenuItem(ctx context.Context, sellerID int64, input CreateMenuItemInput) (*models.MenuItem, error) {
	if _, err := s.activeSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	item := &models.MenuItem{
		SellerID:    sellerID,
		Name:        name,
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price,
		IsAvailable: true,
	}
	if err := s.store.CreateMenuItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
	}
	return item, nil
}

func (s *service) UpdateMenuItem(ctx context.Context, sellerID, itemID int64, input UpdateMenuItemInput) (*models.MenuItem, error) {
	item, err := s.GetMenuItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "menu item belongs to another seller")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		item.Name = name
	}
	if input.Category != nil {
		item.Category = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		item.Price = *input.Price
	}
	if input.IsAvailable != nil {
		item.IsAvailable = *input.IsAvailable
	}

	if err := s.store.UpdateMenuItem(ctx, item); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeItemNotFound, "menu item %d not found", itemID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
	}
	return item, nil
}

func (s *service) activeSeller(ctx context.Context, sellerID int64) (*models.Seller, error) {
	seller, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "seller %d not found", sellerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if !seller.IsActive {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "seller %d not found", sellerID)
	}
	return seller, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if !price.Equal(price.Round(types.MoneyScale)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price has more than two decimal places")
	}
	return nil
}
