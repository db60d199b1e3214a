package ledger

import (
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/tablestatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

type Table struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	TableNumber string    `json:"table_number" bson:"table_number"`
	Capacity    int       `json:"capacity" bson:"capacity"`
	Status      string    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) SetID(id uuid.UUID) {
	t.ID = id
}

func NewTable() *Table {
	return &Table{
		ID:     aqm.GenerateNewID(),
		Status: tablestatus.Statuses.Available.Code(),
	}
}

func (t *Table) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = aqm.GenerateNewID()
	}
}

func (t *Table) BeforeCreate() {
	t.EnsureID()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
}

func (t *Table) BeforeUpdate() {
	t.UpdatedAt = time.Now()
}

func (t *Table) IsAvailable() bool {
	return t.Status == tablestatus.Statuses.Available.Code()
}

func (t *Table) IsReserved() bool {
	return t.Status == tablestatus.Statuses.Reserved.Code()
}

// Fits reports whether the table seats partySize guests.
func (t *Table) Fits(partySize int) bool {
	return t.Capacity >= partySize
}

func (t *Table) Reserve() {
	t.Status = tablestatus.Statuses.Reserved.Code()
	t.BeforeUpdate()
}

func (t *Table) Release() {
	t.Status = tablestatus.Statuses.Available.Code()
	t.BeforeUpdate()
}
