package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is a priced dish offered by a seller.
type MenuItem struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SellerID    int64           `gorm:"column:seller_id;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	Category    string          `gorm:"column:category;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsAvailable bool            `gorm:"column:is_available;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
