package models

import (
	"encoding/json"
	"time"
)

// Event types emitted by the ledger and the engines.
const (
	EventOrderCreated            = "order_created"
	EventOrderUpdated            = "order_updated"
	EventOrderStatusChanged      = "order_status_changed"
	EventOrdersDeleted           = "orders_deleted"
	EventOrdersReplaced          = "orders_replaced"
	EventCollectionSlipCreated   = "collection_slip_created"
	EventDriverReturnSlipCreated = "driver_return_slip_created"
	EventMerchantSlipCreated     = "merchant_slip_created"
	EventMerchantSlipDelivered   = "merchant_slip_delivered"
)

// Event is a record of one completed mutation, queued for asynchronous
// publication. Core operations never block on, or fail because of, events.
type Event struct {
	ID            string    `json:"event_id"`
	Type          string    `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       []byte    `json:"payload"`
}

// Recorder receives events after a mutation completes. Implementations must
// not block the caller.
type Recorder interface {
	Record(e Event)
}

// NopRecorder discards events.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}

// NewEvent builds an event with a marshalled payload. Marshal failures are
// swallowed into an empty payload: event emission must never fail a mutation.
func NewEvent(eventType, aggregateType, aggregateID string, data interface{}) Event {
	payload, err := json.Marshal(data)

	if err != nil {
		payload = nil
	}

	return Event{
		ID:            GenerateID("evt"),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    GetCurrentTime(),
		Payload:       payload,
	}
}

// NewOrderStatusChangedEvent records a single order status transition.
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) Event {
	return NewEvent(EventOrderStatusChanged, "order", order.ID, map[string]interface{}{
		"order_id":   order.ID,
		"driver":     order.Driver,
		"merchant":   order.Merchant,
		"old_status": oldStatus,
		"new_status": order.Status,
	})
}
