package orders

import (
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/pagination"
)

// PlaceOrderInput is everything checkout needs from the caller. Prices come
// from the live catalog, never from the request.
type PlaceOrderInput struct {
	UserID        int64
	AddressID     int64
	PaymentMethod enums.PaymentMethod
	CouponCode    string
}

// ListFilter narrows an order listing. Nil fields do not filter.
type ListFilter struct {
	UserID    *int64
	SellerID  *int64
	CourierID *int64
	Status    *enums.OrderStatus
}

type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}
