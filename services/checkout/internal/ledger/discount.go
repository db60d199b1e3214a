package ledger

import (
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Discount struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Code      string    `json:"code" bson:"code"`
	Name      string    `json:"name" bson:"name"`
	Type      string    `json:"type" bson:"type"`
	Value     float64   `json:"value" bson:"value"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
	StartDate time.Time `json:"start_date" bson:"start_date"`
	EndDate   time.Time `json:"end_date" bson:"end_date"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (d *Discount) GetID() uuid.UUID {
	return d.ID
}

func (d *Discount) ResourceType() string {
	return "discount"
}

func (d *Discount) SetID(id uuid.UUID) {
	d.ID = id
}

func NewDiscount() *Discount {
	return &Discount{
		ID:       aqm.GenerateNewID(),
		Type:     DiscountPercentage,
		IsActive: true,
	}
}

func (d *Discount) BeforeCreate() {
	if d.ID == uuid.Nil {
		d.ID = aqm.GenerateNewID()
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
}

// IsValidAt reports whether the discount is active and now lies in
// [StartDate, EndDate], both bounds inclusive.
func (d *Discount) IsValidAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if now.Before(d.StartDate) {
		return false
	}
	if now.After(d.EndDate) {
		return false
	}
	return true
}

// AmountFor returns the reduction applied to gross, never more than gross.
// Percentages round half away from zero to the currency unit.
func (d *Discount) AmountFor(gross int64) int64 {
	if gross <= 0 || d.Value <= 0 {
		return 0
	}

	var amount int64
	switch d.Type {
	case DiscountPercentage:
		pct := decimal.NewFromFloat(d.Value)
		if pct.GreaterThan(decimal.NewFromInt(100)) {
			pct = decimal.NewFromInt(100)
		}
		amount = decimal.NewFromInt(gross).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	case DiscountFixed:
		amount = decimal.NewFromFloat(d.Value).Round(0).IntPart()
	default:
		return 0
	}

	if amount > gross {
		return gross
	}
	return amount
}
