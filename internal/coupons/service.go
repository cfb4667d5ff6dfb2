package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// Service is the coupon ledger: validation for checkout and administration for admins.
type Service interface {
	Validate(ctx context.Context, code string, sellerID int64, subtotal decimal.Decimal) (*Coupon, error)
	Lookup(ctx context.Context, code string) (*Coupon, error)
	Get(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, input CreateInput) (*Coupon, error)
	SetActive(ctx context.Context, code string, active bool) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
}

type CreateInput struct {
	Code        string
	Type        enums.DiscountType
	Value       decimal.Decimal
	MaxDiscount *decimal.Decimal
	MinOrder    *decimal.Decimal
	// SellerIDs empty means the coupon applies to every seller.
	SellerIDs  []int64
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

type ServiceParams struct {
	Repo   Repository
	Cache  Cache
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo  Repository
	cache Cache
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	cache := params.Cache
	if cache == nil {
		cache = nopCache{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, cache: cache, logg: params.Logger, now: now}, nil
}

// Validate checks existence, then seller scope, then the minimum order.
func (s *service) Validate(ctx context.Context, code string, sellerID int64, subtotal decimal.Decimal) (*Coupon, error) {
	coupon, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.Scope.Includes(sellerID) {
		return nil, pkgerrors.Newf(pkgerrors.CodeCouponNotApplicable, "coupon %s does not apply to seller %d", coupon.Code, sellerID)
	}
	if coupon.MinOrder != nil && subtotal.LessThan(*coupon.MinOrder) {
		return nil, pkgerrors.Newf(pkgerrors.CodeMinimumOrderNotMet, "coupon %s requires a subtotal of at least %s", coupon.Code, types.FormatMoney(*coupon.MinOrder)).
			WithDetails(map[string]string{
				"min_order_amount": types.FormatMoney(*coupon.MinOrder),
				"subtotal":         types.FormatMoney(subtotal),
			})
	}
	return coupon, nil
}

// Lookup resolves a code that is usable right now. Inactive or expired coupons are not found.
func (s *service) Lookup(ctx context.Context, code string) (*Coupon, error) {
	coupon, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.usableAt(s.now()) {
		return nil, pkgerrors.Newf(pkgerrors.CodeCouponNotFound, "coupon %s not found", coupon.Code)
	}
	return coupon, nil
}

// Get returns the coupon regardless of its active window.
func (s *service) Get(ctx context.Context, code string) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "coupon code is empty")
	}
	if cached, ok := s.cache.Get(ctx, normalized); ok {
		coupon := fromModel(*cached)
		return &coupon, nil
	}
	row, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeCouponNotFound, "coupon %s not found", normalized)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	s.cache.Set(ctx, row)
	coupon := fromModel(*row)
	return &coupon, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Coupon, error) {
	scope := AllSellers()
	if len(input.SellerIDs) > 0 {
		var err error
		if scope, err = SpecificSellers(input.SellerIDs...); err != nil {
			return nil, err
		}
	}
	coupon := Coupon{
		Code:        NormalizeCode(input.Code),
		Type:        input.Type,
		Value:       input.Value,
		MaxDiscount: input.MaxDiscount,
		MinOrder:    input.MinOrder,
		Scope:       scope,
		Active:      true,
		ValidFrom:   input.ValidFrom,
		ValidUntil:  input.ValidUntil,
	}
	if err := coupon.validate(); err != nil {
		return nil, err
	}

	row := toModel(coupon)
	if err := s.repo.Create(ctx, &row); err != nil {
		if db.IsUniqueViolation(err, "coupons_code_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "coupon %s already exists", coupon.Code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	s.cache.Invalidate(ctx, row.Code)

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"coupon_code": row.Code, "discount_type": string(row.DiscountType)})
		s.logg.Info(logCtx, "coupon created")
	}
	created := fromModel(row)
	return &created, nil
}

func (s *service) SetActive(ctx context.Context, code string, active bool) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if err := s.repo.SetActive(ctx, normalized, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeCouponNotFound, "coupon %s not found", normalized)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	s.cache.Invalidate(ctx, normalized)
	return s.Get(ctx, normalized)
}

func (s *service) List(ctx context.Context) ([]Coupon, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	out := make([]Coupon, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}
