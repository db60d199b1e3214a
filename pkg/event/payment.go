package event

import "time"

const (
	PaymentStatusTopic        = "payments.status"
	EventPaymentStatusChanged = "payment.status.changed"

	// PaymentStreamName is the JetStream stream retaining payment events.
	PaymentStreamName = "PAYMENT_EVENTS"
)

// PaymentStatusEvent describes the outcome of reconciling one gateway
// notification against an order or a reservation.
type PaymentStatusEvent struct {
	EventType         string    `json:"event_type"`
	OccurredAt        time.Time `json:"occurred_at"`
	Reference         string    `json:"reference"`
	TargetKind        string    `json:"target_kind"`
	TargetID          string    `json:"target_id"`
	TargetStatus      string    `json:"target_status"`
	PreviousStatus    string    `json:"previous_status,omitempty"`
	PaymentID         string    `json:"payment_id,omitempty"`
	TransactionID     string    `json:"transaction_id,omitempty"`
	TransactionStatus string    `json:"transaction_status,omitempty"`
	PaymentStatus     string    `json:"payment_status"`
	Amount            int64     `json:"amount"`
	PaymentMethod     string    `json:"payment_method,omitempty"`
	Source            string    `json:"source,omitempty"`
}
