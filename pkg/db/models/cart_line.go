package models

import "time"

// CartLine is one (user, menu item, quantity) entry pending checkout.
type CartLine struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:cart_lines_user_item_key"`
	MenuItemID int64     `gorm:"column:menu_item_id;not null;uniqueIndex:cart_lines_user_item_key"`
	Quantity   int       `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
