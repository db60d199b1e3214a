package ledger

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

type OrderItem struct {
	ID         uuid.UUID `json:"id" bson:"_id"`
	OrderID    uuid.UUID `json:"order_id" bson:"order_id"`
	MenuItemID uuid.UUID `json:"menu_item_id" bson:"menu_item_id"`
	Name       string    `json:"name" bson:"name"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	UnitPrice  int64     `json:"unit_price" bson:"unit_price"`
	Subtotal   int64     `json:"subtotal" bson:"subtotal"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (i *OrderItem) GetID() uuid.UUID {
	return i.ID
}

func (i *OrderItem) ResourceType() string {
	return "order-item"
}

func (i *OrderItem) SetID(id uuid.UUID) {
	i.ID = id
}

func NewOrderItem(orderID uuid.UUID) *OrderItem {
	return &OrderItem{
		ID:      aqm.GenerateNewID(),
		OrderID: orderID,
	}
}

func (i *OrderItem) EnsureID() {
	if i.ID == uuid.Nil {
		i.ID = aqm.GenerateNewID()
	}
}

// ComputeSubtotal derives the subtotal from quantity and unit price.
// Caller supplied subtotals are always overwritten.
func (i *OrderItem) ComputeSubtotal() {
	i.Subtotal = int64(i.Quantity) * i.UnitPrice
}

func (i *OrderItem) BeforeCreate() {
	i.EnsureID()
	i.ComputeSubtotal()
	now := time.Now()
	i.CreatedAt = now
	i.UpdatedAt = now
}

func (i *OrderItem) BeforeUpdate() {
	i.ComputeSubtotal()
	i.UpdatedAt = time.Now()
}

// GrossOf sums the subtotals of items.
func GrossOf(items []*OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * item.UnitPrice
	}
	return total
}
