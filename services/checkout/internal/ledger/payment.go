package ledger

import (
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/paymentstatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// Payment is the local record of one gateway transaction. TransactionID is
// unique: notifications for the same transaction update the same row.
type Payment struct {
	ID            uuid.UUID  `json:"id" bson:"_id"`
	TransactionID string     `json:"transaction_id" bson:"transaction_id"`
	TargetKind    TargetKind `json:"target_kind" bson:"target_kind"`
	TargetID      uuid.UUID  `json:"target_id" bson:"target_id"`
	Reference     string     `json:"reference" bson:"reference"`
	Amount        int64      `json:"amount" bson:"amount"`
	PaymentMethod string     `json:"payment_method" bson:"payment_method"`
	Status        string     `json:"status" bson:"status"`
	GatewayStatus string     `json:"gateway_status" bson:"gateway_status"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

func (p *Payment) GetID() uuid.UUID {
	return p.ID
}

func (p *Payment) ResourceType() string {
	return "payment"
}

func (p *Payment) SetID(id uuid.UUID) {
	p.ID = id
}

func NewPayment(ref Reference, transactionID string) *Payment {
	return &Payment{
		ID:            aqm.GenerateNewID(),
		TransactionID: transactionID,
		TargetKind:    ref.Kind,
		TargetID:      ref.ID,
		Reference:     ref.String(),
		Status:        paymentstatus.Statuses.Pending.Code(),
	}
}

func (p *Payment) EnsureID() {
	if p.ID == uuid.Nil {
		p.ID = aqm.GenerateNewID()
	}
}

func (p *Payment) BeforeCreate() {
	p.EnsureID()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
}

func (p *Payment) BeforeUpdate() {
	p.UpdatedAt = time.Now()
}

// PaymentStatusFor maps a raw gateway transaction status onto the local
// payment status. Unrecognized values map to pending; the raw value is kept
// in GatewayStatus.
func PaymentStatusFor(gatewayStatus string) paymentstatus.Status {
	switch gatewayStatus {
	case "capture", "settlement":
		return paymentstatus.Statuses.Success
	case "cancel", "deny":
		return paymentstatus.Statuses.Failed
	case "expire":
		return paymentstatus.Statuses.Expired
	case "refund", "partial_refund":
		return paymentstatus.Statuses.Refunded
	default:
		return paymentstatus.Statuses.Pending
	}
}
