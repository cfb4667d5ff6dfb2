package enums

import "fmt"

// WalletTransactionType classifies a wallet ledger entry.
type WalletTransactionType string

const (
	WalletTxDeposit      WalletTransactionType = "deposit"
	WalletTxWithdrawal   WalletTransactionType = "withdrawal"
	WalletTxOrderPayment WalletTransactionType = "order_payment"
	WalletTxRefund       WalletTransactionType = "refund"
	WalletTxCouponBonus  WalletTransactionType = "coupon_bonus"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTxDeposit,
	WalletTxWithdrawal,
	WalletTxOrderPayment,
	WalletTxRefund,
	WalletTxCouponBonus,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDebit reports whether entries of this type reduce the balance.
func (t WalletTransactionType) IsDebit() bool {
	return t == WalletTxWithdrawal || t == WalletTxOrderPayment
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
