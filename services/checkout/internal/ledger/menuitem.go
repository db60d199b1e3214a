package ledger

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

type MenuItem struct {
	ID            uuid.UUID `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	Price         int64     `json:"price" bson:"price"`
	StockQuantity int       `json:"stock_quantity" bson:"stock_quantity"`
	IsAvailable   bool      `json:"is_available" bson:"is_available"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

func (m *MenuItem) GetID() uuid.UUID {
	return m.ID
}

func (m *MenuItem) ResourceType() string {
	return "menu-item"
}

func (m *MenuItem) SetID(id uuid.UUID) {
	m.ID = id
}

func NewMenuItem() *MenuItem {
	return &MenuItem{
		ID:          aqm.GenerateNewID(),
		IsAvailable: true,
	}
}

func (m *MenuItem) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = aqm.GenerateNewID()
	}
}

func (m *MenuItem) BeforeCreate() {
	m.EnsureID()
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
}

func (m *MenuItem) BeforeUpdate() {
	m.UpdatedAt = time.Now()
}

// HasStock reports whether qty units can still be sold.
func (m *MenuItem) HasStock(qty int) bool {
	return m.StockQuantity >= qty
}
