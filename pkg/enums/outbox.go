package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateSupplier OutboxAggregateType = "supplier"
	AggregateAccount  OutboxAggregateType = "account"
	AggregatePlatform OutboxAggregateType = "platform"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSupplier,
	AggregateAccount,
	AggregatePlatform,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres. These rows are the
// authoritative audit log of committed transitions.
type OutboxEventType string

const (
	EventSupplierRegistered OutboxEventType = "supplier_registered"
	EventSupplierVerified   OutboxEventType = "supplier_verified"
	EventAccountDeposited   OutboxEventType = "account_deposited"
	EventOrderCreated       OutboxEventType = "order_created"
	EventMilestoneAdded     OutboxEventType = "milestone_added"
	EventOrderStarted       OutboxEventType = "order_started"
	EventMilestoneCompleted OutboxEventType = "milestone_completed"
	EventMilestoneApproved  OutboxEventType = "milestone_approved"
	EventPaymentReleased    OutboxEventType = "payment_released"
	EventDisputeRaised      OutboxEventType = "dispute_raised"
	EventDisputeResolved    OutboxEventType = "dispute_resolved"
	EventOrderCompleted     OutboxEventType = "order_completed"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventFeePercentUpdated  OutboxEventType = "fee_percent_updated"
	EventFeesWithdrawn      OutboxEventType = "fees_withdrawn"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSupplierRegistered,
	EventSupplierVerified,
	EventAccountDeposited,
	EventOrderCreated,
	EventMilestoneAdded,
	EventOrderStarted,
	EventMilestoneCompleted,
	EventMilestoneApproved,
	EventPaymentReleased,
	EventDisputeRaised,
	EventDisputeResolved,
	EventOrderCompleted,
	EventOrderCancelled,
	EventFeePercentUpdated,
	EventFeesWithdrawn,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
