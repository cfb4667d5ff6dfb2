package enums

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: the broker kept failing until attempts ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the event can never be published as is,
	// for example an unroutable type or an undecodable payload.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
