package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// Order is a placed order. Money fields are frozen at creation.
type Order struct {
	ID                  int64               `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber         string              `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID              int64               `gorm:"column:user_id;not null;index"`
	SellerID            int64               `gorm:"column:seller_id;not null;index"`
	CourierID           *int64              `gorm:"column:courier_id;index"`
	AddressID           int64               `gorm:"column:address_id;not null"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:varchar(16);not null"`
	Subtotal            decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee         decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	DiscountAmount      decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	CouponCode          *string             `gorm:"column:coupon_code"`
	TotalAmount         decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status              enums.OrderStatus   `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	EstimatedDeliveryAt *time.Time          `gorm:"column:estimated_delivery_at"`
	DeliveredAt         *time.Time          `gorm:"column:delivered_at"`
	CancelledAt         *time.Time          `gorm:"column:cancelled_at"`
	Lines               []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine snapshots a cart line at placement time.
type OrderLine struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    int64           `gorm:"column:order_id;not null;index"`
	MenuItemID int64           `gorm:"column:menu_item_id;not null"`
	Name       string          `gorm:"column:name;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	LineTotal  decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
