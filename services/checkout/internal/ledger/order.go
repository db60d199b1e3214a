package ledger

import (
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/ordertype"
	"github.com/appetiteclub/dineflow/pkg/enums/paymentstatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

type Order struct {
	ID                    uuid.UUID  `json:"id" bson:"_id"`
	UserID                *uuid.UUID `json:"user_id,omitempty" bson:"user_id,omitempty"`
	OrderType             string     `json:"order_type" bson:"order_type"`
	Status                string     `json:"status" bson:"status"`
	TotalAmount           int64      `json:"total_amount" bson:"total_amount"`
	DiscountAmount        int64      `json:"discount_amount" bson:"discount_amount"`
	DiscountCode          string     `json:"discount_code,omitempty" bson:"discount_code,omitempty"`
	PaymentStatus         string     `json:"payment_status" bson:"payment_status"`
	PaymentID             *uuid.UUID `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	CustomerName          string     `json:"customer_name" bson:"customer_name"`
	CustomerEmail         string     `json:"customer_email" bson:"customer_email"`
	CustomerPhone         string     `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	DeliveryAddress       string     `json:"delivery_address,omitempty" bson:"delivery_address,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty" bson:"estimated_delivery_time,omitempty"`
	CreatedAt             time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" bson:"updated_at"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func NewOrder() *Order {
	return &Order{
		ID:            aqm.GenerateNewID(),
		Status:        orderstatus.Statuses.Pending.Code(),
		PaymentStatus: paymentstatus.Statuses.Pending.Code(),
	}
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = aqm.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

func (o *Order) Reference() Reference {
	return OrderReference(o.ID)
}

func (o *Order) IsPending() bool {
	return o.Status == orderstatus.Statuses.Pending.Code()
}

// ConsumesStock reports whether paying for this order draws down menu stock.
func (o *Order) ConsumesStock() bool {
	t := ordertype.ByName(o.OrderType)
	return t != nil && t.ConsumesStock()
}

// ApplyTotals sets the discount and total from the items' recomputed subtotals.
// The discount is capped at the gross sum so the total never goes negative.
func (o *Order) ApplyTotals(items []*OrderItem, discount int64) {
	gross := GrossOf(items)
	if discount < 0 {
		discount = 0
	}
	if discount > gross {
		discount = gross
	}
	o.DiscountAmount = discount
	o.TotalAmount = gross - discount
}

func (o *Order) MarkAsProcessing(paymentID uuid.UUID) {
	o.Status = orderstatus.Statuses.Processing.Code()
	o.PaymentStatus = paymentstatus.Statuses.Success.Code()
	if o.PaymentID == nil && paymentID != uuid.Nil {
		o.PaymentID = &paymentID
	}
	o.BeforeUpdate()
}

func (o *Order) MarkPaymentPending() {
	o.PaymentStatus = paymentstatus.Statuses.Pending.Code()
	o.BeforeUpdate()
}

func (o *Order) Cancel() {
	o.Status = orderstatus.Statuses.Cancelled.Code()
	o.PaymentStatus = paymentstatus.Statuses.Failed.Code()
	o.BeforeUpdate()
}

func (o *Order) Complete() {
	o.Status = orderstatus.Statuses.Completed.Code()
	o.BeforeUpdate()
}

// CanDelete reports whether an administrator may remove the order.
func (o *Order) CanDelete() bool {
	return o.Status != orderstatus.Statuses.Completed.Code()
}
