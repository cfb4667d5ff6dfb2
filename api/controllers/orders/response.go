package orders

import (
	"time"

	internalorders "github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

type OrderResponse struct {
	ID                  int64               `json:"id"`
	OrderNumber         string              `json:"order_number"`
	UserID              int64               `json:"user_id"`
	SellerID            int64               `json:"seller_id"`
	CourierID           *int64              `json:"courier_id,omitempty"`
	AddressID           int64               `json:"address_id"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	Status              enums.OrderStatus   `json:"status"`
	Subtotal            string              `json:"subtotal"`
	DeliveryFee         string              `json:"delivery_fee"`
	DiscountAmount      string              `json:"discount_amount"`
	CouponCode          *string             `json:"coupon_code,omitempty"`
	TotalAmount         string              `json:"total_amount"`
	EstimatedDeliveryAt *time.Time          `json:"estimated_delivery_at,omitempty"`
	DeliveredAt         *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	Lines               []OrderLineResponse `json:"lines"`
}

type OrderLineResponse struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	LineTotal  string `json:"line_total"`
}

type OrderPageResponse struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderResponse(order *models.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLineResponse{
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			UnitPrice:  types.FormatMoney(line.UnitPrice),
			Quantity:   line.Quantity,
			LineTotal:  types.FormatMoney(line.LineTotal),
		})
	}
	return OrderResponse{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		UserID:              order.UserID,
		SellerID:            order.SellerID,
		CourierID:           order.CourierID,
		AddressID:           order.AddressID,
		PaymentMethod:       order.PaymentMethod,
		Status:              order.Status,
		Subtotal:            types.FormatMoney(order.Subtotal),
		DeliveryFee:         types.FormatMoney(order.DeliveryFee),
		DiscountAmount:      types.FormatMoney(order.DiscountAmount),
		CouponCode:          order.CouponCode,
		TotalAmount:         types.FormatMoney(order.TotalAmount),
		EstimatedDeliveryAt: order.EstimatedDeliveryAt,
		DeliveredAt:         order.DeliveredAt,
		CancelledAt:         order.CancelledAt,
		CreatedAt:           order.CreatedAt,
		Lines:               lines,
	}
}

func newOrderPageResponse(page *internalorders.OrderPage) OrderPageResponse {
	out := OrderPageResponse{
		Orders:     make([]OrderResponse, 0, len(page.Orders)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Orders {
		out.Orders = append(out.Orders, newOrderResponse(&page.Orders[i]))
	}
	return out
}
