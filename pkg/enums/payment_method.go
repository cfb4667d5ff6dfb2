package enums

import "fmt"

// PaymentMethod describes how a buyer settles an order. Only wallet orders
// move money inside the platform; card and cash are settled outside it.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodWallet     PaymentMethod = "wallet"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCreditCard, PaymentMethodCash, PaymentMethodWallet:
		return true
	}
	return false
}

// UsesWallet reports whether placing the order debits the buyer's wallet and
// cancelling it refunds the total.
func (p PaymentMethod) UsesWallet() bool {
	return p == PaymentMethodWallet
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	method := PaymentMethod(value)
	if !method.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return method, nil
}
