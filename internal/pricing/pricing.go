// Package pricing turns cart lines and an optional discount into a quote.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// Line is one priced cart line. UnitPrice is the catalog price at computation time.
type Line struct {
	MenuItemID int64
	SellerID   int64
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Total is UnitPrice × Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discounter computes the discount for a subtotal. Coupons implement it.
type Discounter interface {
	Discount(subtotal decimal.Decimal) decimal.Decimal
}

type Quote struct {
	Subtotal       decimal.Decimal
	DeliveryFee    decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Calculator prices carts against one configured delivery fee. It holds no other state.
type Calculator struct {
	deliveryFee decimal.Decimal
}

func NewCalculator(deliveryFee decimal.Decimal) (*Calculator, error) {
	if deliveryFee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must be non-negative, got %s", deliveryFee)
	}
	return &Calculator{deliveryFee: deliveryFee.Round(types.MoneyScale)}, nil
}

// DeliveryFee returns the configured fee.
func (c *Calculator) DeliveryFee() decimal.Decimal {
	return c.deliveryFee
}

// Price computes subtotal, fee, discount and total. A nil discounter means no discount.
// The discount is clamped to [0, subtotal] and the total never drops below zero.
func (c *Calculator) Price(lines []Line, discounter Discounter) Quote {
	subtotal := Subtotal(lines)

	discount := decimal.Zero
	if discounter != nil {
		discount = discounter.Discount(subtotal).Round(types.MoneyScale)
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	total := subtotal.Add(c.deliveryFee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:       subtotal,
		DeliveryFee:    c.deliveryFee,
		DiscountAmount: discount,
		Total:          total,
	}
}

// Subtotal sums the line totals.
func Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}
	return subtotal.Round(types.MoneyScale)
}

// SellerIDs returns the distinct sellers referenced by lines, in first-seen order.
func SellerIDs(lines []Line) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	var out []int64
	for _, line := range lines {
		if _, ok := seen[line.SellerID]; ok {
			continue
		}
		seen[line.SellerID] = struct{}{}
		out = append(out, line.SellerID)
	}
	return out
}
