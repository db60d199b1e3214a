package event

import "time"

const (
	OrderStatusTopic        = "orders.status"
	EventOrderStatusChanged = "order.status.changed"
)

// OrderStatusEvent is published after an order changes status inside a
// committed transaction. Fulfilment consumers use it to start preparing paid orders.
type OrderStatusEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderID        string    `json:"order_id"`
	OrderType      string    `json:"order_type"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PaymentStatus  string    `json:"payment_status,omitempty"`
	TotalAmount    int64     `json:"total_amount"`
	Reason         string    `json:"reason,omitempty"`
	Source         string    `json:"source,omitempty"`
}
