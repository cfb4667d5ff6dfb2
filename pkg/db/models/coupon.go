package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// Coupon is a discount code. When AllSellers is false the applicable sellers
// live in coupon_sellers.
type Coupon struct {
	ID                int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Code              string             `gorm:"column:code;not null;uniqueIndex:coupons_code_key"`
	DiscountType      enums.DiscountType `gorm:"column:discount_type;type:varchar(16);not null"`
	DiscountValue     decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountAmount *decimal.Decimal   `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	MinOrderAmount    *decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2)"`
	AllSellers        bool               `gorm:"column:all_sellers;not null"`
	IsActive          bool               `gorm:"column:is_active;not null"`
	ValidFrom         *time.Time         `gorm:"column:valid_from"`
	ValidUntil        *time.Time         `gorm:"column:valid_until"`
	Sellers           []CouponSeller     `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponSeller scopes a coupon to one seller.
type CouponSeller struct {
	CouponID int64 `gorm:"column:coupon_id;primaryKey"`
	SellerID int64 `gorm:"column:seller_id;primaryKey"`
}
