package ledger

import (
	"fmt"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Reservation struct {
	ID                 uuid.UUID  `json:"id" bson:"_id"`
	UserID             *uuid.UUID `json:"user_id,omitempty" bson:"user_id,omitempty"`
	TableID            uuid.UUID  `json:"table_id" bson:"table_id"`
	PaymentID          *uuid.UUID `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	ReservationDate    string     `json:"reservation_date" bson:"reservation_date"`
	ReservationTime    string     `json:"reservation_time" bson:"reservation_time"`
	ScheduledAt        time.Time  `json:"scheduled_at" bson:"scheduled_at"`
	NumberOfGuests     int        `json:"number_of_guests" bson:"number_of_guests"`
	Status             string     `json:"status" bson:"status"`
	BookingFee         int64      `json:"booking_fee" bson:"booking_fee"`
	SpecialRequests    string     `json:"special_requests,omitempty" bson:"special_requests,omitempty"`
	CustomerName       string     `json:"customer_name" bson:"customer_name"`
	CustomerEmail      string     `json:"customer_email" bson:"customer_email"`
	CustomerPhone      string     `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}

func (r *Reservation) GetID() uuid.UUID {
	return r.ID
}

func (r *Reservation) ResourceType() string {
	return "reservation"
}

func (r *Reservation) SetID(id uuid.UUID) {
	r.ID = id
}

func NewReservation() *Reservation {
	return &Reservation{
		ID:     aqm.GenerateNewID(),
		Status: reservationstatus.Statuses.Pending.Code(),
	}
}

func (r *Reservation) EnsureID() {
	if r.ID == uuid.Nil {
		r.ID = aqm.GenerateNewID()
	}
}

func (r *Reservation) BeforeCreate() {
	r.EnsureID()
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
}

func (r *Reservation) BeforeUpdate() {
	r.UpdatedAt = time.Now()
}

func (r *Reservation) Reference() Reference {
	return BookingReference(r.ID)
}

func (r *Reservation) IsPending() bool {
	return r.Status == reservationstatus.Statuses.Pending.Code()
}

// SetSlot stores the requested date and time together with their combined instant.
func (r *Reservation) SetSlot(at time.Time) {
	r.ReservationDate = at.Format(DateLayout)
	r.ReservationTime = at.Format(TimeLayout)
	r.ScheduledAt = at
}

func (r *Reservation) Confirm(paymentID uuid.UUID) {
	r.Status = reservationstatus.Statuses.Confirmed.Code()
	if r.PaymentID == nil && paymentID != uuid.Nil {
		r.PaymentID = &paymentID
	}
	r.BeforeUpdate()
}

func (r *Reservation) Cancel(reason string) {
	now := time.Now()
	r.Status = reservationstatus.Statuses.Cancelled.Code()
	r.CancelledAt = &now
	r.CancellationReason = reason
	r.BeforeUpdate()
}

// ParseSlot combines a calendar date and a wall clock time in loc.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, fmt.Sprintf("%s %s", date, clock), loc)
	if err != nil {
		return time.Time{}, NewValidationError("invalid reservation date or time %q %q", date, clock)
	}
	return at, nil
}
