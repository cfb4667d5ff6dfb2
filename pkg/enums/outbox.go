package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregateWalletTransaction OutboxAggregateType = "wallet_transaction"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder || a == AggregateWalletTransaction
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated              OutboxEventType = "order_created"
	EventOrderStatusChanged        OutboxEventType = "order_status_changed"
	EventOrderCourierAssigned      OutboxEventType = "order_courier_assigned"
	EventWalletTransactionRecorded OutboxEventType = "wallet_transaction_recorded"
)

// Aggregate returns the aggregate every event of this type belongs to, or ""
// for an unknown type.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	switch e {
	case EventOrderCreated, EventOrderStatusChanged, EventOrderCourierAssigned:
		return AggregateOrder
	case EventWalletTransactionRecorded:
		return AggregateWalletTransaction
	}
	return ""
}

func (e OutboxEventType) IsValid() bool {
	return e.Aggregate() != ""
}
