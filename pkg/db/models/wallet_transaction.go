package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// WalletTransaction is an append-only wallet ledger entry. Amount is signed:
// credits are positive and debits negative. Seq is the per-user position.
type WalletTransaction struct {
	ID             int64                       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         int64                       `gorm:"column:user_id;not null;uniqueIndex:wallet_transactions_user_seq_key,priority:1"`
	Seq            int64                       `gorm:"column:seq;not null;uniqueIndex:wallet_transactions_user_seq_key,priority:2"`
	Type           enums.WalletTransactionType `gorm:"column:type;type:varchar(32);not null"`
	Amount         decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter   decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	RelatedOrderID *int64                      `gorm:"column:related_order_id"`
	Note           *string                     `gorm:"column:note"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
