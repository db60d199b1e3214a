package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/ordertype"
	"github.com/appetiteclub/dineflow/pkg/enums/paymentstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/google/uuid"
)

func TestParseReference(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	tests := []struct {
		name    string
		raw     string
		want    Reference
		wantErr bool
	}{
		{name: "order", raw: "ORDER-" + id.String(), want: OrderReference(id)},
		{name: "booking", raw: "BOOKING-" + id.String(), want: BookingReference(id)},
		{name: "trimsSpaces", raw: "  ORDER-" + id.String() + " ", want: OrderReference(id)},
		{name: "empty", raw: "", wantErr: true},
		{name: "unknownPrefix", raw: "INVOICE-" + id.String(), wantErr: true},
		{name: "bareID", raw: id.String(), wantErr: true},
		{name: "malformedID", raw: "ORDER-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReference() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if KindOf(err) != KindValidation {
					t.Errorf("KindOf() = %s, want validation", KindOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseReference() = %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.want.String() {
				t.Errorf("String() = %s, want %s", got.String(), tt.want.String())
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		wantStatus int
		wantMsg    string
	}{
		{name: "validation", err: NewValidationError("cart is empty"), wantKind: KindValidation, wantStatus: http.StatusBadRequest, wantMsg: "cart is empty"},
		{name: "notFound", err: NewNotFoundError("order %s not found", "x"), wantKind: KindNotFound, wantStatus: http.StatusNotFound, wantMsg: "order x not found"},
		{name: "conflict", err: NewConflictError("no table"), wantKind: KindConflict, wantStatus: http.StatusConflict, wantMsg: "no table"},
		{name: "gateway", err: NewGatewayError("gateway down", errors.New("dial")), wantKind: KindGateway, wantStatus: http.StatusBadGateway, wantMsg: "gateway down"},
		{name: "reconciliation", err: NewReconciliationError("retry", errors.New("io")), wantKind: KindReconciliation, wantStatus: http.StatusInternalServerError, wantMsg: "retry"},
		{name: "wrapped", err: fmt.Errorf("outer: %w", NewConflictError("busy")), wantKind: KindConflict, wantStatus: http.StatusConflict, wantMsg: "busy"},
		{name: "plain", err: errors.New("boom"), wantKind: "", wantStatus: http.StatusInternalServerError, wantMsg: "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.wantKind {
				t.Errorf("KindOf() = %q, want %q", got, tt.wantKind)
			}
			if got := HTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
			if got := MessageOf(tt.err); got != tt.wantMsg {
				t.Errorf("MessageOf() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestGatewayErrorUnwraps(t *testing.T) {
	cause := errors.New("dial tcp")
	err := NewGatewayError("gateway down", cause)

	if !errors.Is(err, cause) {
		t.Error("gateway error should unwrap to its cause")
	}
}

func TestOrderApplyTotals(t *testing.T) {
	item := func(qty int, price int64) *OrderItem {
		i := NewOrderItem(uuid.New())
		i.Quantity = qty
		i.UnitPrice = price
		return i
	}

	tests := []struct {
		name         string
		items        []*OrderItem
		discount     int64
		wantTotal    int64
		wantDiscount int64
	}{
		{name: "noDiscount", items: []*OrderItem{item(2, 10000)}, discount: 0, wantTotal: 20000, wantDiscount: 0},
		{name: "withDiscount", items: []*OrderItem{item(2, 10000), item(1, 5000)}, discount: 2500, wantTotal: 22500, wantDiscount: 2500},
		{name: "capsAtGross", items: []*OrderItem{item(1, 5000)}, discount: 9000, wantTotal: 0, wantDiscount: 5000},
		{name: "negativeDiscount", items: []*OrderItem{item(1, 5000)}, discount: -100, wantTotal: 5000, wantDiscount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrder()
			o.ApplyTotals(tt.items, tt.discount)

			if o.TotalAmount != tt.wantTotal {
				t.Errorf("TotalAmount = %d, want %d", o.TotalAmount, tt.wantTotal)
			}
			if o.DiscountAmount != tt.wantDiscount {
				t.Errorf("DiscountAmount = %d, want %d", o.DiscountAmount, tt.wantDiscount)
			}
		})
	}
}

func TestOrderItemSubtotalIsRecomputed(t *testing.T) {
	i := NewOrderItem(uuid.New())
	i.Quantity = 3
	i.UnitPrice = 7000
	i.Subtotal = 1

	i.BeforeCreate()

	if i.Subtotal != 21000 {
		t.Errorf("Subtotal = %d, want 21000", i.Subtotal)
	}
}

func TestOrderTransitions(t *testing.T) {
	paymentID := uuid.New()

	o := NewOrder()
	if !o.IsPending() {
		t.Fatal("new order should be pending")
	}

	o.MarkAsProcessing(paymentID)
	if o.Status != orderstatus.Statuses.Processing.Code() || o.PaymentStatus != paymentstatus.Statuses.Success.Code() {
		t.Errorf("after MarkAsProcessing status = %s/%s", o.Status, o.PaymentStatus)
	}
	if o.PaymentID == nil || *o.PaymentID != paymentID {
		t.Error("payment id should be linked")
	}

	other := uuid.New()
	o.MarkAsProcessing(other)
	if *o.PaymentID != paymentID {
		t.Error("linked payment id should not be replaced")
	}

	o.Complete()
	if o.CanDelete() {
		t.Error("completed orders cannot be deleted")
	}
}

func TestOrderConsumesStock(t *testing.T) {
	tests := []struct {
		kind string
		want bool
	}{
		{kind: ordertype.Types.DineIn.Code(), want: false},
		{kind: ordertype.Types.Takeaway.Code(), want: true},
		{kind: ordertype.Types.Delivery.Code(), want: true},
		{kind: "catering", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			o := &Order{OrderType: tt.kind}
			if got := o.ConsumesStock(); got != tt.want {
				t.Errorf("ConsumesStock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReservationCancel(t *testing.T) {
	r := NewReservation()
	r.Cancel("payment expired")

	if r.Status != reservationstatus.Statuses.Cancelled.Code() {
		t.Errorf("Status = %s, want cancelled", r.Status)
	}
	if r.CancelledAt == nil {
		t.Error("CancelledAt should be set")
	}
	if r.CancellationReason != "payment expired" {
		t.Errorf("CancellationReason = %q", r.CancellationReason)
	}
}

func TestParseSlot(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)

	at, err := ParseSlot("2025-03-14", "19:30", jakarta)
	if err != nil {
		t.Fatalf("ParseSlot() error = %v", err)
	}
	want := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("ParseSlot() = %s, want %s", at, want)
	}

	r := NewReservation()
	r.SetSlot(at)
	if r.ReservationDate != "2025-03-14" || r.ReservationTime != "19:30" {
		t.Errorf("SetSlot() = %s %s", r.ReservationDate, r.ReservationTime)
	}

	if _, err := ParseSlot("14/03/2025", "19:30", nil); KindOf(err) != KindValidation {
		t.Errorf("ParseSlot() bad date error = %v, want validation", err)
	}
	if _, err := ParseSlot("2025-03-14", "7pm", nil); KindOf(err) != KindValidation {
		t.Errorf("ParseSlot() bad time error = %v, want validation", err)
	}
}

func TestPaymentStatusFor(t *testing.T) {
	tests := []struct {
		gateway string
		want    paymentstatus.Status
	}{
		{gateway: "capture", want: paymentstatus.Statuses.Success},
		{gateway: "settlement", want: paymentstatus.Statuses.Success},
		{gateway: "cancel", want: paymentstatus.Statuses.Failed},
		{gateway: "deny", want: paymentstatus.Statuses.Failed},
		{gateway: "expire", want: paymentstatus.Statuses.Expired},
		{gateway: "refund", want: paymentstatus.Statuses.Refunded},
		{gateway: "pending", want: paymentstatus.Statuses.Pending},
		{gateway: "authorize", want: paymentstatus.Statuses.Pending},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			if got := PaymentStatusFor(tt.gateway); got != tt.want {
				t.Errorf("PaymentStatusFor() = %s, want %s", got.Code(), tt.want.Code())
			}
		})
	}
}

func TestDiscountIsValidAt(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		discount Discount
		want     bool
	}{
		{name: "inWindow", discount: Discount{IsActive: true, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}, want: true},
		{name: "startBoundary", discount: Discount{IsActive: true, StartDate: now, EndDate: now.Add(time.Hour)}, want: true},
		{name: "endBoundary", discount: Discount{IsActive: true, StartDate: now.Add(-time.Hour), EndDate: now}, want: true},
		{name: "expired", discount: Discount{IsActive: true, StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour)}, want: false},
		{name: "notYet", discount: Discount{IsActive: true, StartDate: now.Add(time.Hour), EndDate: now.Add(48 * time.Hour)}, want: false},
		{name: "inactive", discount: Discount{IsActive: false, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.discount.IsValidAt(now); got != tt.want {
				t.Errorf("IsValidAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscountAmountFor(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		gross    int64
		want     int64
	}{
		{name: "percentage", discount: Discount{Type: DiscountPercentage, Value: 10}, gross: 25000, want: 2500},
		{name: "percentageRounds", discount: Discount{Type: DiscountPercentage, Value: 12.5}, gross: 333, want: 42},
		{name: "percentageCapped", discount: Discount{Type: DiscountPercentage, Value: 150}, gross: 8000, want: 8000},
		{name: "fixed", discount: Discount{Type: DiscountFixed, Value: 5000}, gross: 25000, want: 5000},
		{name: "fixedCapped", discount: Discount{Type: DiscountFixed, Value: 50000}, gross: 25000, want: 25000},
		{name: "unknownType", discount: Discount{Type: "bogo", Value: 1}, gross: 25000, want: 0},
		{name: "zeroGross", discount: Discount{Type: DiscountFixed, Value: 5000}, gross: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.discount.AmountFor(tt.gross); got != tt.want {
				t.Errorf("AmountFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
