package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Seller{},
		&MenuItem{},
		&CartLine{},
		&Coupon{},
		&CouponSeller{},
		&WalletTransaction{},
		&Order{},
		&OrderLine{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
