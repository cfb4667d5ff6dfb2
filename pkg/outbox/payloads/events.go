package payloads

import (
	"time"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// Money fields are decimal strings with two fraction digits.

// OrderCreatedEvent is emitted once an order has been placed and paid for (wallet) or accepted (cash, card).
type OrderCreatedEvent struct {
	OrderID       int64               `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        int64               `json:"user_id"`
	SellerID      int64               `json:"seller_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Subtotal      string              `json:"subtotal"`
	DeliveryFee   string              `json:"delivery_fee"`
	Discount      string              `json:"discount"`
	Total         string              `json:"total"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
	LineCount     int                 `json:"line_count"`
}

// OrderStatusChangedEvent records a single lifecycle step.
type OrderStatusChangedEvent struct {
	OrderID   int64             `json:"order_id"`
	UserID    int64             `json:"user_id"`
	SellerID  int64             `json:"seller_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
	Refunded  *string           `json:"refunded,omitempty"`
}

// OrderCourierAssignedEvent notifies the courier fleet of an assignment.
type OrderCourierAssignedEvent struct {
	OrderID   int64 `json:"order_id"`
	SellerID  int64 `json:"seller_id"`
	CourierID int64 `json:"courier_id"`
}

// WalletTransactionRecordedEvent mirrors an appended ledger row.
type WalletTransactionRecordedEvent struct {
	TransactionID  int64                       `json:"transaction_id"`
	UserID         int64                       `json:"user_id"`
	Seq            int64                       `json:"seq"`
	Type           enums.WalletTransactionType `json:"type"`
	Amount         string                      `json:"amount"`
	BalanceAfter   string                      `json:"balance_after"`
	RelatedOrderID *int64                      `json:"related_order_id,omitempty"`
}
