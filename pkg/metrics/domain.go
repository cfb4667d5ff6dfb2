package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts order and wallet activity.
type DomainMetrics struct {
	ordersPlaced       *prometheus.CounterVec
	orderTransitions   *prometheus.CounterVec
	walletTransactions *prometheus.CounterVec
	walletRejections   *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, by payment method.",
	}, []string{"payment_method"})
	orderTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions, by target status.",
	}, []string{"to"})
	walletTransactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_total",
		Help: "Wallet ledger entries appended, by type.",
	}, []string{"type"})
	walletRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_rejections_total",
		Help: "Wallet appends rejected for insufficient funds, by type.",
	}, []string{"type"})
	reg.MustRegister(ordersPlaced, orderTransitions, walletTransactions, walletRejections)
	return &DomainMetrics{
		ordersPlaced:       ordersPlaced,
		orderTransitions:   orderTransitions,
		walletTransactions: walletTransactions,
		walletRejections:   walletRejections,
	}
}

func (m *DomainMetrics) OrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *DomainMetrics) OrderTransitioned(to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) WalletAppended(txType string) {
	if m == nil || m.walletTransactions == nil {
		return
	}
	m.walletTransactions.WithLabelValues(normalizeLabel(txType)).Inc()
}

func (m *DomainMetrics) WalletRejected(txType string) {
	if m == nil || m.walletRejections == nil {
		return
	}
	m.walletRejections.WithLabelValues(normalizeLabel(txType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
