package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/internal/catalog"
	"github.com/angelmondragon/foodhall-backend/internal/coupons"
	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/internal/pricing"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

// Service manages a user's cart. Mutations for one user are serialized by the user lock.
type Service interface {
	AddItem(ctx context.Context, userID, menuItemID int64, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, menuItemID int64) (*View, error)
	ChangeQuantity(ctx context.Context, userID, menuItemID int64, delta int) (*View, error)
	GetCart(ctx context.Context, userID int64) (*View, error)
	Quote(ctx context.Context, userID int64, couponCode string) (*View, error)
	Clear(ctx context.Context, userID int64) error

	// Snapshot prices the cart against the current catalog for checkout. Every
	// line must reference an existing, available item.
	Snapshot(ctx context.Context, userID int64) ([]pricing.Line, error)
	// ClearTx empties the cart inside tx. The caller must hold the user lock.
	ClearTx(ctx context.Context, tx *gorm.DB, userID int64) error
}

// CouponValidator is the slice of the coupon ledger the cart quote needs.
type CouponValidator interface {
	Validate(ctx context.Context, code string, sellerID int64, subtotal decimal.Decimal) (*coupons.Coupon, error)
}

// View is the cart joined with live catalog data and a quote over its available lines.
type View struct {
	UserID     int64
	Lines      []LineView
	Quote      pricing.Quote
	CouponCode *string
}

type LineView struct {
	MenuItemID int64
	SellerID   int64
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	LineTotal  decimal.Decimal
	Available  bool
}

type ServiceParams struct {
	Repo       Repository
	Catalog    catalog.Source
	Coupons    CouponValidator
	Calculator *pricing.Calculator
	Locker     locks.Locker
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	catalog    catalog.Source
	coupons    CouponValidator
	calculator *pricing.Calculator
	locker     locks.Locker
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon validator required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		coupons:    params.Coupons,
		calculator: params.Calculator,
		locker:     params.Locker,
		logg:       logg,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID, menuItemID int64, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	err := s.withUserLock(ctx, userID, func() error {
		return s.add(ctx, userID, menuItemID, quantity)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem is a no-op for items not in the cart.
func (s *service) RemoveItem(ctx context.Context, userID, menuItemID int64) (*View, error) {
	err := s.withUserLock(ctx, userID, func() error {
		if err := s.repo.Delete(ctx, userID, menuItemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// ChangeQuantity applies delta to the line. A result of zero or less removes
// the line. An absent line is added when delta is positive and left alone otherwise.
func (s *service) ChangeQuantity(ctx context.Context, userID, menuItemID int64, delta int) (*View, error) {
	err := s.withUserLock(ctx, userID, func() error {
		line, err := s.repo.Find(ctx, userID, menuItemID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
			}
			if delta <= 0 {
				return nil
			}
			return s.add(ctx, userID, menuItemID, delta)
		}

		next := line.Quantity + delta
		if next <= 0 {
			if err := s.repo.Delete(ctx, userID, menuItemID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
			}
			return nil
		}
		if err := s.repo.UpdateQuantity(ctx, line.ID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *service) GetCart(ctx context.Context, userID int64) (*View, error) {
	view, _, err := s.view(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.Quote = s.calculator.Price(availableLines(view.Lines), nil)
	return view, nil
}

// Quote prices the cart with an optional coupon. Coupon rejections are returned
// to the caller unchanged.
func (s *service) Quote(ctx context.Context, userID int64, couponCode string) (*View, error) {
	view, _, err := s.view(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := availableLines(view.Lines)
	code := strings.TrimSpace(couponCode)
	if code == "" || len(lines) == 0 {
		view.Quote = s.calculator.Price(lines, nil)
		return view, nil
	}

	sellerID, err := SingleSeller(lines)
	if err != nil {
		return nil, err
	}
	coupon, err := s.coupons.Validate(ctx, code, sellerID, pricing.Subtotal(lines))
	if err != nil {
		return nil, err
	}
	view.Quote = s.calculator.Price(lines, coupon)
	view.CouponCode = &coupon.Code
	return view, nil
}

func (s *service) Clear(ctx context.Context, userID int64) error {
	return s.withUserLock(ctx, userID, func() error {
		return s.ClearTx(ctx, nil, userID)
	})
}

func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, userID int64) error {
	if err := s.repo.WithTx(tx).Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) Snapshot(ctx context.Context, userID int64) ([]pricing.Line, error) {
	view, missing, err := s.view(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeItemNotFound, "menu item %d not found", missing[0]).
			WithDetails(map[string]any{"menu_item_ids": missing})
	}
	lines := make([]pricing.Line, 0, len(view.Lines))
	for _, line := range view.Lines {
		if !line.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item is not available").
				WithDetails(map[string]any{"menu_item_id": line.MenuItemID, "name": line.Name})
		}
		lines = append(lines, toPricingLine(line))
	}
	return lines, nil
}

func (s *service) add(ctx context.Context, userID, menuItemID int64, quantity int) error {
	item, err := s.catalog.GetMenuItem(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeItemNotFound, "menu item %d not found", menuItemID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	if !item.IsAvailable {
		return pkgerrors.New(pkgerrors.CodeValidation, "menu item is not available")
	}

	existing, err := s.repo.Find(ctx, userID, menuItemID)
	switch {
	case err == nil:
		if err := s.repo.UpdateQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		line := &models.CartLine{UserID: userID, MenuItemID: menuItemID, Quantity: quantity}
		if err := s.repo.Create(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	logCtx := s.logg.WithUserID(ctx, userID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{"menu_item_id": menuItemID, "quantity": quantity})
	s.logg.Debug(logCtx, "cart.item_added")
	return nil
}

// view joins the stored lines with the catalog. Lines whose item no longer
// exists are reported in missing and shown as unavailable.
func (s *service) view(ctx context.Context, userID int64) (*View, []int64, error) {
	stored, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	view := &View{UserID: userID, Lines: make([]LineView, 0, len(stored))}
	if len(stored) == 0 {
		return view, nil, nil
	}

	ids := make([]int64, 0, len(stored))
	for _, line := range stored {
		ids = append(ids, line.MenuItemID)
	}
	items, err := s.catalog.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu items")
	}

	var missing []int64
	for _, line := range stored {
		lv := LineView{MenuItemID: line.MenuItemID, Quantity: line.Quantity, UnitPrice: decimal.Zero, LineTotal: decimal.Zero}
		item, ok := items[line.MenuItemID]
		if !ok {
			missing = append(missing, line.MenuItemID)
			view.Lines = append(view.Lines, lv)
			continue
		}
		lv.SellerID = item.SellerID
		lv.Name = item.Name
		lv.UnitPrice = item.Price
		lv.Available = item.IsAvailable
		lv.LineTotal = toPricingLine(lv).Total()
		view.Lines = append(view.Lines, lv)
	}
	return view, missing, nil
}

func (s *service) withUserLock(ctx context.Context, userID int64, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func availableLines(lines []LineView) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		if line.Available {
			out = append(out, toPricingLine(line))
		}
	}
	return out
}

func toPricingLine(line LineView) pricing.Line {
	return pricing.Line{
		MenuItemID: line.MenuItemID,
		SellerID:   line.SellerID,
		Name:       line.Name,
		UnitPrice:  line.UnitPrice,
		Quantity:   line.Quantity,
	}
}

// SingleSeller returns the seller every line belongs to. Orders carry one seller.
func SingleSeller(lines []pricing.Line) (int64, error) {
	sellers := pricing.SellerIDs(lines)
	if len(sellers) != 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart contains items from multiple sellers")
	}
	return sellers[0], nil
}
