package enums

import "fmt"

// OutboxEventType names a domain event emitted through the transactional outbox.
type OutboxEventType string

const (
	OutboxEventPaymentPaid         OutboxEventType = "payment.paid"
	OutboxEventPaymentFailed       OutboxEventType = "payment.failed"
	OutboxEventPaymentRefunded     OutboxEventType = "payment.refunded"
	OutboxEventSubscriptionCreated OutboxEventType = "subscription.created"
	OutboxEventSubscriptionUpgrade OutboxEventType = "subscription.upgraded"
	OutboxEventCommissionPaid      OutboxEventType = "commission.paid"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventPaymentPaid,
	OutboxEventPaymentFailed,
	OutboxEventPaymentRefunded,
	OutboxEventSubscriptionCreated,
	OutboxEventSubscriptionUpgrade,
	OutboxEventCommissionPaid,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregatePayment      OutboxAggregateType = "payment"
	OutboxAggregateSubscription OutboxAggregateType = "subscription"
	OutboxAggregatePartner      OutboxAggregateType = "partner"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// OutboxDLQErrorReason classifies why an outbox event landed in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonResolveFailed OutboxDLQErrorReason = "resolve_failed"
	OutboxDLQReasonPublishFailed OutboxDLQErrorReason = "publish_failed"
	OutboxDLQReasonMaxAttempts   OutboxDLQErrorReason = "max_attempts_exceeded"
)
