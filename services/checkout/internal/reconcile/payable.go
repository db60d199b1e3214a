package reconcile

import (
	"context"
	"fmt"

	"github.com/appetiteclub/dineflow/pkg/enums/paymentstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/google/uuid"
)

// Transition describes what a committed reconciliation changed.
type Transition struct {
	From          string
	To            string
	PaymentStatus string
	Table         *ledger.TableChange
	Stock         map[uuid.UUID]int
}

// Payable is anything a gateway transaction settles. Each hook mutates the
// target and persists it only if it is still pending; a nil Transition means
// another writer settled it first and nothing was applied.
type Payable interface {
	Reference() ledger.Reference
	CurrentStatus() string
	IsPending() bool
	Amount() int64
	OnSuccess(ctx context.Context, repos ledger.Repos, payment *ledger.Payment) (*Transition, error)
	OnFailure(ctx context.Context, repos ledger.Repos, reason string) (*Transition, error)
	OnPending(ctx context.Context, repos ledger.Repos) (*Transition, error)
}

// LoadPayable resolves ref to its variant, or (nil, nil) if it does not exist.
func LoadPayable(ctx context.Context, repos ledger.Repos, ref ledger.Reference) (Payable, error) {
	switch ref.Kind {
	case ledger.TargetOrder:
		order, err := repos.Orders.Get(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("cannot load order: %w", err)
		}
		if order == nil {
			return nil, nil
		}
		return &OrderPayable{order: order}, nil
	case ledger.TargetReservation:
		reservation, err := repos.Reservations.Get(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("cannot load reservation: %w", err)
		}
		if reservation == nil {
			return nil, nil
		}
		return &ReservationPayable{reservation: reservation}, nil
	default:
		return nil, ledger.NewValidationError("unknown payable kind %q", ref.Kind)
	}
}

type OrderPayable struct {
	order *ledger.Order
}

func NewOrderPayable(order *ledger.Order) *OrderPayable {
	return &OrderPayable{order: order}
}

func (p *OrderPayable) Order() *ledger.Order {
	return p.order
}

func (p *OrderPayable) Reference() ledger.Reference {
	return p.order.Reference()
}

func (p *OrderPayable) CurrentStatus() string {
	return p.order.Status
}

func (p *OrderPayable) IsPending() bool {
	return p.order.IsPending()
}

func (p *OrderPayable) Amount() int64 {
	return p.order.TotalAmount
}

// OnSuccess moves the order to processing and, for takeaway and delivery,
// draws down stock for every line.
func (p *OrderPayable) OnSuccess(ctx context.Context, repos ledger.Repos, payment *ledger.Payment) (*Transition, error) {
	from := p.order.Status
	var paymentID uuid.UUID
	if payment != nil {
		paymentID = payment.ID
	}

	p.order.MarkAsProcessing(paymentID)
	if ok, err := p.save(ctx, repos, from); err != nil || !ok {
		return nil, err
	}

	t := &Transition{From: from, To: p.order.Status, PaymentStatus: p.order.PaymentStatus}
	if !p.order.ConsumesStock() {
		return t, nil
	}

	items, err := repos.OrderItems.ListByOrder(ctx, p.order.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot list order items: %w", err)
	}

	t.Stock = make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if err := repos.MenuItems.DecrementStock(ctx, item.MenuItemID, item.Quantity); err != nil {
			return nil, fmt.Errorf("cannot decrement stock of %s: %w", item.MenuItemID, err)
		}
		t.Stock[item.MenuItemID] += item.Quantity
	}

	return t, nil
}

func (p *OrderPayable) OnFailure(ctx context.Context, repos ledger.Repos, reason string) (*Transition, error) {
	from := p.order.Status
	p.order.Cancel()
	if ok, err := p.save(ctx, repos, from); err != nil || !ok {
		return nil, err
	}
	return &Transition{From: from, To: p.order.Status, PaymentStatus: p.order.PaymentStatus}, nil
}

func (p *OrderPayable) OnPending(ctx context.Context, repos ledger.Repos) (*Transition, error) {
	from := p.order.Status
	p.order.MarkPaymentPending()
	if ok, err := p.save(ctx, repos, from); err != nil || !ok {
		return nil, err
	}
	return &Transition{From: from, To: p.order.Status, PaymentStatus: p.order.PaymentStatus}, nil
}

func (p *OrderPayable) save(ctx context.Context, repos ledger.Repos, expected string) (bool, error) {
	ok, err := repos.Orders.SaveIfStatus(ctx, p.order, expected)
	if err != nil {
		return false, fmt.Errorf("cannot save order: %w", err)
	}
	return ok, nil
}

type ReservationPayable struct {
	reservation *ledger.Reservation
}

func NewReservationPayable(reservation *ledger.Reservation) *ReservationPayable {
	return &ReservationPayable{reservation: reservation}
}

func (p *ReservationPayable) Reservation() *ledger.Reservation {
	return p.reservation
}

func (p *ReservationPayable) Reference() ledger.Reference {
	return p.reservation.Reference()
}

func (p *ReservationPayable) CurrentStatus() string {
	return p.reservation.Status
}

func (p *ReservationPayable) IsPending() bool {
	return p.reservation.IsPending()
}

func (p *ReservationPayable) Amount() int64 {
	return p.reservation.BookingFee
}

// OnSuccess confirms the reservation and holds its table.
func (p *ReservationPayable) OnSuccess(ctx context.Context, repos ledger.Repos, payment *ledger.Payment) (*Transition, error) {
	from := p.reservation.Status
	var paymentID uuid.UUID
	if payment != nil {
		paymentID = payment.ID
	}

	p.reservation.Confirm(paymentID)
	if ok, err := p.save(ctx, repos, from); err != nil || !ok {
		return nil, err
	}

	change, err := ledger.HoldTableFor(ctx, repos, p.reservation, "reservation.confirmed")
	if err != nil {
		return nil, err
	}

	return &Transition{
		From:          from,
		To:            p.reservation.Status,
		PaymentStatus: paymentStatusOf(payment),
		Table:         change,
	}, nil
}

// OnFailure cancels the reservation. Its table returns to available unless
// another confirmed reservation holds it.
func (p *ReservationPayable) OnFailure(ctx context.Context, repos ledger.Repos, reason string) (*Transition, error) {
	from := p.reservation.Status
	p.reservation.Cancel(reason)
	if ok, err := p.save(ctx, repos, from); err != nil || !ok {
		return nil, err
	}

	change, err := ledger.ReleaseTableFor(ctx, repos, p.reservation, "reservation.cancelled")
	if err != nil {
		return nil, err
	}

	return &Transition{
		From:          from,
		To:            reservationstatus.Statuses.Cancelled.Code(),
		PaymentStatus: paymentstatus.Statuses.Failed.Code(),
		Table:         change,
	}, nil
}

func (p *ReservationPayable) OnPending(ctx context.Context, repos ledger.Repos) (*Transition, error) {
	from := p.reservation.Status
	p.reservation.BeforeUpdate()
	if ok, err := p.save(ctx, repos, from); err != nil || !ok {
		return nil, err
	}
	return &Transition{From: from, To: p.reservation.Status, PaymentStatus: paymentstatus.Statuses.Pending.Code()}, nil
}

func (p *ReservationPayable) save(ctx context.Context, repos ledger.Repos, expected string) (bool, error) {
	ok, err := repos.Reservations.SaveIfStatus(ctx, p.reservation, expected)
	if err != nil {
		return false, fmt.Errorf("cannot save reservation: %w", err)
	}
	return ok, nil
}

func paymentStatusOf(payment *ledger.Payment) string {
	if payment == nil {
		return ""
	}
	return payment.Status
}
