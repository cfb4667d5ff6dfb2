package cartdto

// CartView is the priced cart returned by every cart endpoint.
type CartView struct {
	UserID      int64      `json:"user_id"`
	Lines       []CartLine `json:"lines"`
	Subtotal    string     `json:"subtotal"`
	DeliveryFee string     `json:"delivery_fee"`
	Discount    string     `json:"discount"`
	Total       string     `json:"total"`
	CouponCode  *string    `json:"coupon_code,omitempty"`
}

type CartLine struct {
	MenuItemID int64  `json:"menu_item_id"`
	SellerID   int64  `json:"seller_id"`
	Name       string `json:"name"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	LineTotal  string `json:"line_total"`
	Available  bool   `json:"available"`
}

type AddItemRequest struct {
	MenuItemID int64 `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,min=1,max=99"`
}

// ChangeQuantityRequest adjusts a line by delta; a result at or below zero removes it.
type ChangeQuantityRequest struct {
	Delta int `json:"delta" validate:"required,min=-99,max=99"`
}

type QuoteRequest struct {
	CouponCode string `json:"coupon_code" validate:"omitempty,max=64,coupon_code"`
}
