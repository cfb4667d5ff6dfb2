package coupons

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Scope is either every seller or an explicit non-empty set of sellers.
type Scope struct {
	all     bool
	sellers map[int64]struct{}
}

// AllSellers is the global scope.
func AllSellers() Scope {
	return Scope{all: true}
}

// SpecificSellers scopes a coupon to ids. An empty set is rejected so that
// "no sellers" can never be confused with "all sellers".
func SpecificSellers(ids ...int64) (Scope, error) {
	if len(ids) == 0 {
		return Scope{}, pkgerrors.New(pkgerrors.CodeValidation, "seller scope must name at least one seller")
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return Scope{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid seller id %d in scope", id)
		}
		set[id] = struct{}{}
	}
	return Scope{sellers: set}, nil
}

func (s Scope) IsAll() bool {
	return s.all
}

// Includes reports whether the coupon applies to sellerID.
func (s Scope) Includes(sellerID int64) bool {
	if s.all {
		return true
	}
	_, ok := s.sellers[sellerID]
	return ok
}

// SellerIDs returns the scoped sellers in ascending order, or nil for AllSellers.
func (s Scope) SellerIDs() []int64 {
	if s.all {
		return nil
	}
	out := make([]int64, 0, len(s.sellers))
	for id := range s.sellers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Coupon struct {
	ID          int64
	Code        string
	Type        enums.DiscountType
	Value       decimal.Decimal
	MaxDiscount *decimal.Decimal
	MinOrder    *decimal.Decimal
	Scope       Scope
	Active      bool
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	CreatedAt   time.Time
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Discount implements pricing.Discounter.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return ComputeDiscount(subtotal, c)
}

// ComputeDiscount returns min(value, subtotal) for fixed coupons and
// min(subtotal × value / 100, cap) for percentage coupons, rounded to cents.
func ComputeDiscount(subtotal decimal.Decimal, c Coupon) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch c.Type {
	case enums.DiscountTypeFixed:
		discount = decimal.Min(c.Value, subtotal)
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(types.MoneyScale)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
		discount = decimal.Min(discount, subtotal)
	default:
		return decimal.Zero
	}
	return discount.Round(types.MoneyScale)
}

// usableAt reports whether the coupon is switched on and inside its validity window.
func (c Coupon) usableAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && !now.Before(*c.ValidUntil) {
		return false
	}
	return true
}

// validate enforces the creation invariants.
func (c Coupon) validate() error {
	if c.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	switch c.Type {
	case enums.DiscountTypeFixed:
		if !c.Value.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "fixed discount value must be greater than 0")
		}
		if c.MaxDiscount != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "max discount applies to percentage coupons only")
		}
	case enums.DiscountTypePercentage:
		if !c.Value.IsPositive() || c.Value.GreaterThan(hundred) {
			return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount value must be in (0, 100]")
		}
		if c.MaxDiscount != nil && !c.MaxDiscount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "max discount must be greater than 0")
		}
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid discount type %q", c.Type)
	}
	if c.MinOrder != nil && c.MinOrder.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum order amount must be non-negative")
	}
	if !c.Scope.all && len(c.Scope.sellers) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller scope must name at least one seller")
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && !c.ValidFrom.Before(*c.ValidUntil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be before valid_until")
	}
	return nil
}

func fromModel(m models.Coupon) Coupon {
	scope := AllSellers()
	if !m.AllSellers {
		ids := make([]int64, 0, len(m.Sellers))
		for _, s := range m.Sellers {
			ids = append(ids, s.SellerID)
		}
		// a scoped row without sellers applies to nobody rather than everybody
		scope = Scope{sellers: make(map[int64]struct{}, len(ids))}
		for _, id := range ids {
			scope.sellers[id] = struct{}{}
		}
	}
	return Coupon{
		ID:          m.ID,
		Code:        m.Code,
		Type:        m.DiscountType,
		Value:       m.DiscountValue,
		MaxDiscount: m.MaxDiscountAmount,
		MinOrder:    m.MinOrderAmount,
		Scope:       scope,
		Active:      m.IsActive,
		ValidFrom:   m.ValidFrom,
		ValidUntil:  m.ValidUntil,
		CreatedAt:   m.CreatedAt,
	}
}

func toModel(c Coupon) models.Coupon {
	m := models.Coupon{
		ID:                c.ID,
		Code:              c.Code,
		DiscountType:      c.Type,
		DiscountValue:     c.Value,
		MaxDiscountAmount: c.MaxDiscount,
		MinOrderAmount:    c.MinOrder,
		AllSellers:        c.Scope.all,
		IsActive:          c.Active,
		ValidFrom:         c.ValidFrom,
		ValidUntil:        c.ValidUntil,
	}
	for _, id := range c.Scope.SellerIDs() {
		m.Sellers = append(m.Sellers, models.CouponSeller{SellerID: id})
	}
	return m
}
