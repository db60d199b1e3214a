package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/ordertype"
	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/pkg/event"
	"github.com/appetiteclub/dineflow/services/checkout/internal/availability"
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/notify"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	discountLineID   = "DISCOUNT"
	bookingFeeLineID = "BOOKING-FEE"
)

// Orchestrator turns carts and booking requests into pending orders and
// reservations paired with a gateway checkout token.
type Orchestrator struct {
	store    ledger.Store
	gateway  gateway.Gateway
	notifier *notify.Notifier
	cfg      Config
	logger   aqm.Logger
	now      func() time.Time
}

func NewOrchestrator(store ledger.Store, gw gateway.Gateway, notifier *notify.Notifier, cfg Config, logger aqm.Logger) *Orchestrator {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Window <= 0 {
		cfg.Window = availability.DefaultWindow
	}
	return &Orchestrator{
		store:    store,
		gateway:  gw,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Checkout creates a pending order with its items and requests a gateway
// token in one transaction. A gateway failure rolls the order back.
func (o *Orchestrator) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if errs := ValidateCheckout(req); len(errs) > 0 {
		return nil, ledger.NewValidationError("%s", strings.Join(errs, "; "))
	}

	now := o.now()
	orderType := ordertype.ByName(req.OrderType)

	// The id, and so the gateway reference, stays fixed if the transaction
	// is retried; a token already issued for it is reused.
	orderID := aqm.GenerateNewID()
	var result *CheckoutResult
	var token *gateway.Token

	err := o.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		order := ledger.NewOrder()
		order.ID = orderID
		order.UserID = req.Customer.UserID
		order.OrderType = orderType.Code()
		order.CustomerName = strings.TrimSpace(req.Customer.Name)
		order.CustomerEmail = strings.TrimSpace(req.Customer.Email)
		order.CustomerPhone = strings.TrimSpace(req.Customer.Phone)

		items, err := o.buildItems(ctx, repos, order, req.Items)
		if err != nil {
			return err
		}

		discount, code := o.resolveDiscount(ctx, repos, req.DiscountCode, ledger.GrossOf(items), now)
		order.DiscountCode = code
		order.ApplyTotals(items, discount)
		if order.TotalAmount <= 0 {
			return ledger.NewValidationError("order total must be positive")
		}

		if *orderType == ordertype.Types.Delivery {
			order.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
			eta := now.Add(o.cfg.DeliveryETA)
			order.EstimatedDeliveryTime = &eta
		}

		order.BeforeCreate()
		if err := repos.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("cannot create order: %w", err)
		}

		for _, item := range items {
			item.OrderID = order.ID
			item.BeforeCreate()
			if err := repos.OrderItems.Create(ctx, item); err != nil {
				return fmt.Errorf("cannot create order item: %w", err)
			}
		}

		ref := order.Reference().String()
		if token == nil {
			lines := orderLines(items, order.DiscountAmount, order.DiscountCode)
			token, err = o.requestToken(ctx, ref, order.TotalAmount, lines, req.Customer)
			if err != nil {
				return err
			}
		}

		result = &CheckoutResult{
			Order:     order,
			Items:     items,
			Reference: ref,
			Token:     token,
			Callbacks: o.cfg.Callbacks,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("order checked out", "reference", result.Reference, "total", result.Order.TotalAmount, "discount", result.Order.DiscountAmount)
	return result, nil
}

func (o *Orchestrator) buildItems(ctx context.Context, repos ledger.Repos, order *ledger.Order, cart []CartItem) ([]*ledger.OrderItem, error) {
	requested := make(map[uuid.UUID]int, len(cart))
	menu := make(map[uuid.UUID]*ledger.MenuItem, len(cart))
	items := make([]*ledger.OrderItem, 0, len(cart))

	for _, line := range cart {
		mi, ok := menu[line.MenuItemID]
		if !ok {
			var err error
			mi, err = repos.MenuItems.Get(ctx, line.MenuItemID)
			if err != nil {
				return nil, fmt.Errorf("cannot load menu item: %w", err)
			}
			if mi == nil {
				return nil, ledger.NewNotFoundError("menu item %s not found", line.MenuItemID)
			}
			menu[line.MenuItemID] = mi
		}

		if !mi.IsAvailable {
			return nil, ledger.NewConflictError("%s is not available", mi.Name)
		}
		if mi.Price <= 0 {
			return nil, ledger.NewValidationError("%s has no price", mi.Name)
		}
		if line.UnitPrice > 0 && line.UnitPrice != mi.Price {
			o.logger.Debug("cart price differs from menu", "menu_item_id", mi.ID.String(), "cart_price", line.UnitPrice, "menu_price", mi.Price)
		}

		requested[mi.ID] += line.Quantity

		item := ledger.NewOrderItem(order.ID)
		item.MenuItemID = mi.ID
		item.Name = mi.Name
		item.Quantity = line.Quantity
		item.UnitPrice = mi.Price
		item.ComputeSubtotal()
		items = append(items, item)
	}

	if order.ConsumesStock() {
		for id, qty := range requested {
			if mi := menu[id]; !mi.HasStock(qty) {
				return nil, ledger.NewConflictError("only %d of %s left", mi.StockQuantity, mi.Name)
			}
		}
	}

	return items, nil
}

// resolveDiscount returns the discount for gross. Unknown, inactive or
// expired codes yield zero; checkout proceeds without a discount.
func (o *Orchestrator) resolveDiscount(ctx context.Context, repos ledger.Repos, code string, gross int64, now time.Time) (int64, string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ""
	}

	d, err := repos.Discounts.GetByCode(ctx, code)
	if err != nil {
		o.logger.Error("cannot load discount", "code", code, "error", err)
		return 0, ""
	}
	if d == nil || !d.IsValidAt(now) {
		o.logger.Info("ignoring invalid discount code", "code", code)
		return 0, ""
	}

	return d.AmountFor(gross), d.Code
}

// BookTable reserves the best fitting free table, or the requested one,
// and requests a gateway token for the booking fee.
func (o *Orchestrator) BookTable(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	at, err := o.bookingSlot(req, true)
	if err != nil {
		return nil, err
	}

	reservationID := aqm.GenerateNewID()
	var result *BookingResult
	var token *gateway.Token

	err = o.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		table, err := o.pickTable(ctx, repos, req, at)
		if err != nil {
			return err
		}

		reservation := o.newReservation(req, table, at)
		reservation.ID = reservationID
		reservation.BeforeCreate()
		if err := repos.Reservations.Create(ctx, reservation); err != nil {
			return fmt.Errorf("cannot create reservation: %w", err)
		}

		ref := reservation.Reference().String()
		if token == nil {
			lines := []gateway.LineItem{{
				ID:       bookingFeeLineID,
				Name:     fmt.Sprintf("Table %s booking fee", table.TableNumber),
				Price:    reservation.BookingFee,
				Quantity: 1,
			}}
			token, err = o.requestToken(ctx, ref, reservation.BookingFee, lines, req.Customer)
			if err != nil {
				return err
			}
		}

		result = &BookingResult{
			Reservation: reservation,
			Table:       table,
			Reference:   ref,
			Token:       token,
			Callbacks:   o.cfg.Callbacks,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("table booked", "reference", result.Reference, "table", result.Table.TableNumber, "scheduled_at", at.Format(time.RFC3339))
	return result, nil
}

// ReserveDirect books a table on behalf of staff. No payment is involved:
// the reservation is confirmed and its table held in the same transaction.
func (o *Orchestrator) ReserveDirect(ctx context.Context, req BookingRequest) (*ledger.Reservation, error) {
	at, err := o.bookingSlot(req, false)
	if err != nil {
		return nil, err
	}

	var reservation *ledger.Reservation
	var change *ledger.TableChange

	err = o.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		table, err := o.pickTable(ctx, repos, req, at)
		if err != nil {
			return err
		}

		reservation = o.newReservation(req, table, at)
		reservation.BookingFee = 0
		reservation.Status = reservationstatus.Statuses.Confirmed.Code()
		reservation.BeforeCreate()
		if err := repos.Reservations.Create(ctx, reservation); err != nil {
			return fmt.Errorf("cannot create reservation: %w", err)
		}

		change, err = ledger.HoldTableFor(ctx, repos, reservation, "reservation.confirmed")
		return err
	})
	if err != nil {
		return nil, err
	}

	o.announceTable(ctx, change)
	return reservation, nil
}

// CancelReservation cancels a reservation on behalf of staff, releasing its table.
func (o *Orchestrator) CancelReservation(ctx context.Context, id uuid.UUID, reason string) (*ledger.Reservation, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by staff"
	}

	var reservation *ledger.Reservation
	var change *ledger.TableChange

	err := o.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		var err error
		reservation, err = repos.Reservations.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("cannot load reservation: %w", err)
		}
		if reservation == nil {
			return ledger.NewNotFoundError("reservation %s not found", id)
		}

		current := reservation.Status
		if current == reservationstatus.Statuses.Cancelled.Code() || current == reservationstatus.Statuses.Completed.Code() {
			return ledger.NewConflictError("reservation is already %s", current)
		}

		reservation.Cancel(reason)
		ok, err := repos.Reservations.SaveIfStatus(ctx, reservation, current)
		if err != nil {
			return fmt.Errorf("cannot cancel reservation: %w", err)
		}
		if !ok {
			return ledger.NewConflictError("reservation changed concurrently")
		}

		change, err = ledger.ReleaseTableFor(ctx, repos, reservation, "reservation.cancelled")
		return err
	})
	if err != nil {
		return nil, err
	}

	o.announceTable(ctx, change)
	return reservation, nil
}

// CompleteOrder moves a paid order from processing to completed.
func (o *Orchestrator) CompleteOrder(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	var order *ledger.Order

	err := o.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		var err error
		order, err = repos.Orders.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("cannot load order: %w", err)
		}
		if order == nil {
			return ledger.NewNotFoundError("order %s not found", id)
		}

		processing := orderstatus.Statuses.Processing.Code()
		if order.Status != processing {
			return ledger.NewConflictError("order is %s, only processing orders can be completed", order.Status)
		}

		order.Complete()
		ok, err := repos.Orders.SaveIfStatus(ctx, order, processing)
		if err != nil {
			return fmt.Errorf("cannot complete order: %w", err)
		}
		if !ok {
			return ledger.NewConflictError("order changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notifier.OrderChanged(ctx, event.OrderStatusEvent{
		OrderID:        order.ID.String(),
		OrderType:      order.OrderType,
		Status:         order.Status,
		PreviousStatus: orderstatus.Statuses.Processing.Code(),
		PaymentStatus:  order.PaymentStatus,
		TotalAmount:    order.TotalAmount,
		Reason:         "order.completed",
	})
	return order, nil
}

// DeleteOrder removes an order and its items. Completed orders are kept.
func (o *Orchestrator) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return o.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		order, err := repos.Orders.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("cannot load order: %w", err)
		}
		if order == nil {
			return ledger.NewNotFoundError("order %s not found", id)
		}
		if !order.CanDelete() {
			return ledger.NewConflictError("completed orders cannot be deleted")
		}

		if err := repos.OrderItems.DeleteByOrder(ctx, id); err != nil {
			return fmt.Errorf("cannot delete order items: %w", err)
		}
		if err := repos.Orders.Delete(ctx, id); err != nil {
			return fmt.Errorf("cannot delete order: %w", err)
		}
		return nil
	})
}

// ValidateDiscount reports explicitly why a code cannot be used.
func (o *Orchestrator) ValidateDiscount(ctx context.Context, code string, amount int64) (*DiscountQuote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ledger.NewValidationError("discount code is required")
	}
	if amount < 0 {
		return nil, ledger.NewValidationError("amount must not be negative")
	}

	d, err := o.store.Repos().Discounts.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("cannot load discount: %w", err)
	}
	if d == nil {
		return nil, ledger.NewNotFoundError("discount code %s not found", code)
	}

	now := o.now()
	switch {
	case !d.IsActive:
		return nil, ledger.NewValidationError("discount code %s is not active", code)
	case now.Before(d.StartDate):
		return nil, ledger.NewValidationError("discount code %s is not valid yet", code)
	case now.After(d.EndDate):
		return nil, ledger.NewValidationError("discount code %s has expired", code)
	}

	off := d.AmountFor(amount)
	return &DiscountQuote{
		Code:     d.Code,
		Type:     d.Type,
		Value:    d.Value,
		Amount:   amount,
		Discount: off,
		Total:    amount - off,
	}, nil
}

// CheckAvailability lists the tables that can seat partySize at date and clock.
func (o *Orchestrator) CheckAvailability(ctx context.Context, date, clock string, partySize int) (*AvailabilityResult, error) {
	if partySize < 1 {
		return nil, ledger.NewValidationError("party_size must be at least 1")
	}
	at, err := ledger.ParseSlot(date, clock, o.cfg.Location)
	if err != nil {
		return nil, err
	}

	repos := o.store.Repos()
	checker := availability.NewChecker(repos.Tables, repos.Reservations, o.cfg.Window)
	tables, err := checker.FindAvailableTables(ctx, at, partySize)
	if err != nil {
		return nil, err
	}

	return &AvailabilityResult{Available: len(tables) > 0, Tables: tables}, nil
}

// IsTableAvailable reports whether a specific table is free at date and clock.
func (o *Orchestrator) IsTableAvailable(ctx context.Context, tableID uuid.UUID, date, clock string) (bool, error) {
	at, err := ledger.ParseSlot(date, clock, o.cfg.Location)
	if err != nil {
		return false, err
	}

	repos := o.store.Repos()
	checker := availability.NewChecker(repos.Tables, repos.Reservations, o.cfg.Window)
	return checker.IsTableAvailable(ctx, tableID, at)
}

// bookingSlot validates the request and resolves its instant. Opening
// hours are inclusive. With requireLead, same-day slots must be at least
// MinLead ahead.
func (o *Orchestrator) bookingSlot(req BookingRequest, requireLead bool) (time.Time, error) {
	if errs := ValidateBooking(req); len(errs) > 0 {
		return time.Time{}, ledger.NewValidationError("%s", strings.Join(errs, "; "))
	}

	at, err := ledger.ParseSlot(req.Date, req.Time, o.cfg.Location)
	if err != nil {
		return time.Time{}, err
	}

	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, o.cfg.Location)
	offset := at.Sub(midnight)
	if offset < o.cfg.OpenAt || offset > o.cfg.CloseAt {
		return time.Time{}, ledger.NewValidationError("reservations are accepted between %s and %s",
			midnight.Add(o.cfg.OpenAt).Format(ledger.TimeLayout), midnight.Add(o.cfg.CloseAt).Format(ledger.TimeLayout))
	}

	now := o.now().In(o.cfg.Location)
	if at.Before(now) {
		return time.Time{}, ledger.NewValidationError("reservation time is in the past")
	}
	if requireLead && sameDay(at, now) && at.Before(now.Add(o.cfg.MinLead)) {
		return time.Time{}, ledger.NewValidationError("same-day reservations must be made at least %s ahead", o.cfg.MinLead)
	}

	return at, nil
}

func (o *Orchestrator) pickTable(ctx context.Context, repos ledger.Repos, req BookingRequest, at time.Time) (*ledger.Table, error) {
	checker := availability.NewChecker(repos.Tables, repos.Reservations, o.cfg.Window)

	if req.TableID == nil {
		tables, err := checker.FindAvailableTables(ctx, at, req.PartySize)
		if err != nil {
			return nil, err
		}
		// Candidates were read before locking; confirm each one under its lock.
		for _, table := range tables {
			if err := repos.Tables.Lock(ctx, table.ID); err != nil {
				return nil, err
			}
			free, err := checker.IsTableAvailable(ctx, table.ID, at)
			if err != nil {
				return nil, err
			}
			if free {
				return table, nil
			}
		}
		return nil, ledger.NewConflictError("no table available for %d guests at %s", req.PartySize, at.Format("2006-01-02 15:04"))
	}

	if err := repos.Tables.Lock(ctx, *req.TableID); err != nil {
		if ledger.IsNotFound(err) {
			return nil, ledger.NewNotFoundError("table %s not found", *req.TableID)
		}
		return nil, err
	}

	table, err := repos.Tables.Get(ctx, *req.TableID)
	if err != nil {
		return nil, fmt.Errorf("cannot load table: %w", err)
	}
	if table == nil {
		return nil, ledger.NewNotFoundError("table %s not found", *req.TableID)
	}
	if !table.Fits(req.PartySize) {
		return nil, ledger.NewConflictError("table %s seats %d, party of %d requested", table.TableNumber, table.Capacity, req.PartySize)
	}
	if !table.IsAvailable() {
		return nil, ledger.NewConflictError("table %s is %s", table.TableNumber, table.Status)
	}

	free, err := checker.IsTableAvailable(ctx, table.ID, at)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ledger.NewConflictError("table %s is already booked around %s", table.TableNumber, at.Format(ledger.TimeLayout))
	}

	return table, nil
}

func (o *Orchestrator) newReservation(req BookingRequest, table *ledger.Table, at time.Time) *ledger.Reservation {
	r := ledger.NewReservation()
	r.UserID = req.Customer.UserID
	r.TableID = table.ID
	r.SetSlot(at)
	r.NumberOfGuests = req.PartySize
	r.BookingFee = o.cfg.BookingFee
	r.SpecialRequests = strings.TrimSpace(req.SpecialRequests)
	r.CustomerName = strings.TrimSpace(req.Customer.Name)
	r.CustomerEmail = strings.TrimSpace(req.Customer.Email)
	r.CustomerPhone = strings.TrimSpace(req.Customer.Phone)
	return r
}

func (o *Orchestrator) requestToken(ctx context.Context, ref string, gross int64, lines []gateway.LineItem, c Customer) (*gateway.Token, error) {
	first, last := splitName(c.Name)
	token, err := o.gateway.CreateTransaction(ctx, gateway.TransactionRequest{
		Reference:   ref,
		GrossAmount: gross,
		Items:       lines,
		Customer: gateway.Customer{
			FirstName: first,
			LastName:  last,
			Email:     strings.TrimSpace(c.Email),
			Phone:     strings.TrimSpace(c.Phone),
		},
		Callbacks: o.cfg.Callbacks,
	})
	if err != nil {
		o.logger.Error("gateway token request failed", "reference", ref, "error", err)
		return nil, ledger.NewGatewayError("payment gateway is unavailable, please try again", err)
	}
	return token, nil
}

func (o *Orchestrator) announceTable(ctx context.Context, change *ledger.TableChange) {
	if change == nil {
		return
	}
	o.notifier.TableChanged(ctx, event.TableStatusEvent{
		TableID:        change.TableID.String(),
		TableNumber:    change.TableNumber,
		ReservationID:  change.ReservationID.String(),
		Status:         change.To,
		PreviousStatus: change.From,
		Reason:         change.Reason,
	})
}

// orderLines builds the gateway breakdown. A discount becomes one negative
// line so the lines sum to the charged total.
func orderLines(items []*ledger.OrderItem, discount int64, code string) []gateway.LineItem {
	lines := make([]gateway.LineItem, 0, len(items)+1)
	for _, item := range items {
		lines = append(lines, gateway.LineItem{
			ID:       item.MenuItemID.String(),
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: int32(item.Quantity),
		})
	}
	if discount > 0 {
		name := "Discount"
		if code != "" {
			name = "Discount " + code
		}
		lines = append(lines, gateway.LineItem{
			ID:       discountLineID,
			Name:     name,
			Price:    -discount,
			Quantity: 1,
		})
	}
	return lines
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
