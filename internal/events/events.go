// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types, also used as routing keys.
const (
	OrderPlaced        = "order.placed"
	OrderPaid          = "order.paid"
	OrderItemCancelled = "order.item_cancelled"
	OrderStatusChanged = "order.status_changed"
)

// Event is the JSON message body published for order changes.
type Event struct {
	Type        string     `json:"type"`
	OrderID     uuid.UUID  `json:"orderId"`
	OrderNumber string     `json:"orderNumber"`
	UserID      uuid.UUID  `json:"userId"`
	Status      string     `json:"status"`
	ItemID      *uuid.UUID `json:"itemId,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
}

// Publisher delivers order events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type nopPublisher struct {
	logger zerolog.Logger
}

// NewNopPublisher returns a Publisher that only logs events at debug level.
func NewNopPublisher(logger zerolog.Logger) Publisher {
	return &nopPublisher{logger: logger.With().Str("component", "nop-event-publisher").Logger()}
}

func (p *nopPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Debug().
		Str("type", event.Type).
		Str("order_id", event.OrderID.String()).
		Msg("event publishing disabled")
	return nil
}

func (p *nopPublisher) Close() error {
	return nil
}
