package ledger

import (
	"strings"

	"github.com/google/uuid"
)

// TargetKind names the entity a payment settles.
type TargetKind string

const (
	TargetOrder       TargetKind = "order"
	TargetReservation TargetKind = "reservation"
)

const (
	OrderReferencePrefix   = "ORDER-"
	BookingReferencePrefix = "BOOKING-"
)

// Reference is the external order id handed to the payment gateway.
type Reference struct {
	Kind TargetKind
	ID   uuid.UUID
}

func OrderReference(id uuid.UUID) Reference {
	return Reference{Kind: TargetOrder, ID: id}
}

func BookingReference(id uuid.UUID) Reference {
	return Reference{Kind: TargetReservation, ID: id}
}

func (r Reference) String() string {
	switch r.Kind {
	case TargetOrder:
		return OrderReferencePrefix + r.ID.String()
	case TargetReservation:
		return BookingReferencePrefix + r.ID.String()
	default:
		return r.ID.String()
	}
}

func (r Reference) IsZero() bool {
	return r.ID == uuid.Nil
}

// ParseReference strips the fixed prefix and resolves the internal id.
func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, NewValidationError("missing order reference")
	}

	var kind TargetKind
	var rest string
	switch {
	case strings.HasPrefix(raw, OrderReferencePrefix):
		kind = TargetOrder
		rest = strings.TrimPrefix(raw, OrderReferencePrefix)
	case strings.HasPrefix(raw, BookingReferencePrefix):
		kind = TargetReservation
		rest = strings.TrimPrefix(raw, BookingReferencePrefix)
	default:
		return Reference{}, NewValidationError("unrecognized order reference %q", raw)
	}

	id, err := uuid.Parse(rest)
	if err != nil {
		return Reference{}, NewValidationError("malformed order reference %q", raw)
	}

	return Reference{Kind: kind, ID: id}, nil
}
