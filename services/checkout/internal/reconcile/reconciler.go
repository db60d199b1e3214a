package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/appetiteclub/dineflow/pkg/enums/paymentstatus"
	"github.com/appetiteclub/dineflow/pkg/event"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/notify"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification is the gateway payload delivered to the notification
// endpoint and, in part, to the finish redirect.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	StatusCode        string `json:"status_code,omitempty"`
	SignatureKey      string `json:"signature_key,omitempty"`
	FraudStatus       string `json:"fraud_status,omitempty"`
}

type Outcome string

const (
	// OutcomeApplied means the target transitioned in this call.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadySettled means the target had left pending before; only
	// the payment row was refreshed.
	OutcomeAlreadySettled Outcome = "already_settled"
	// OutcomeIgnored means the status is unknown; only the payment row was written.
	OutcomeIgnored Outcome = "ignored"
)

type Result struct {
	Reference     string            `json:"reference"`
	TargetKind    ledger.TargetKind `json:"target_kind"`
	TargetID      uuid.UUID         `json:"target_id"`
	Bucket        string            `json:"bucket"`
	Outcome       Outcome           `json:"outcome"`
	TargetStatus  string            `json:"target_status"`
	PaymentStatus string            `json:"payment_status,omitempty"`
	Payment       *ledger.Payment   `json:"payment,omitempty"`
}

// Reconciler applies gateway facts to orders and reservations. Every entry
// point (server notification, finish redirect, error and cancel redirects,
// the sweeper) goes through it, so the same facts always yield the same state.
type Reconciler struct {
	store    ledger.Store
	notifier *notify.Notifier
	audit    *AuditLogger
	logger   aqm.Logger
}

func NewReconciler(store ledger.Store, notifier *notify.Notifier, audit *AuditLogger, logger aqm.Logger) *Reconciler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if audit == nil {
		audit = NewAuditLogger(logger)
	}
	return &Reconciler{
		store:    store,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

// Reconcile upserts the payment keyed by transaction id and transitions its
// target, all in one transaction. Replaying a notification is a no-op apart
// from the payment's updated timestamp.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (*Result, error) {
	n.OrderID = strings.TrimSpace(n.OrderID)
	n.TransactionStatus = strings.TrimSpace(strings.ToLower(n.TransactionStatus))
	n.TransactionID = strings.TrimSpace(n.TransactionID)

	if n.OrderID == "" || n.TransactionStatus == "" {
		return nil, ledger.NewValidationError("notification is missing order_id or transaction_status")
	}
	if n.TransactionID == "" {
		return nil, ledger.NewValidationError("notification is missing transaction_id")
	}

	ref, err := ledger.ParseReference(n.OrderID)
	if err != nil {
		return nil, err
	}

	amount, err := ParseAmount(n.GrossAmount)
	if err != nil {
		return nil, err
	}

	bucket := Classify(n.TransactionStatus)

	var result *Result
	var transition *Transition

	err = r.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		result, transition = nil, nil

		payable, err := LoadPayable(ctx, repos, ref)
		if err != nil {
			return err
		}
		if payable == nil {
			return ledger.NewNotFoundError("%s not found", n.OrderID)
		}

		payment, err := r.upsertPayment(ctx, repos, ref, n, amount)
		if err != nil {
			return err
		}

		if bucket == BucketSuccess && amount != payable.Amount() {
			r.logger.Info("paid amount differs from amount due", "reference", n.OrderID, "paid", amount, "due", payable.Amount())
		}

		result = &Result{
			Reference:     ref.String(),
			TargetKind:    ref.Kind,
			TargetID:      ref.ID,
			Bucket:        bucket.String(),
			Outcome:       OutcomeIgnored,
			TargetStatus:  payable.CurrentStatus(),
			PaymentStatus: payment.Status,
			Payment:       payment,
		}

		if bucket == BucketUnknown {
			return nil
		}

		transition, err = r.apply(ctx, repos, payable, bucket, payment, "payment "+n.TransactionStatus)
		if err != nil {
			return err
		}
		if transition == nil {
			result.Outcome = OutcomeAlreadySettled
			return nil
		}

		result.Outcome = OutcomeApplied
		result.TargetStatus = transition.To
		return nil
	})
	if err != nil {
		return nil, r.wrap(err)
	}

	if result.Outcome == OutcomeIgnored {
		r.audit.LogUnknownStatus(ctx, n)
	}

	r.logger.Info("payment notification reconciled",
		"reference", result.Reference,
		"transaction_id", n.TransactionID,
		"transaction_status", n.TransactionStatus,
		"outcome", string(result.Outcome),
		"target_status", result.TargetStatus,
	)

	r.announce(ctx, result, transition, n.TransactionStatus)
	return result, nil
}

// CancelPending cancels the target if it is still pending. It serves the
// error and cancel redirects, which carry no transaction, and the sweeper.
func (r *Reconciler) CancelPending(ctx context.Context, ref ledger.Reference, reason string) (*Result, error) {
	var result *Result
	var transition *Transition

	err := r.store.RunInTx(ctx, func(ctx context.Context, repos ledger.Repos) error {
		result, transition = nil, nil

		payable, err := LoadPayable(ctx, repos, ref)
		if err != nil {
			return err
		}
		if payable == nil {
			return ledger.NewNotFoundError("%s not found", ref.String())
		}

		result = &Result{
			Reference:    ref.String(),
			TargetKind:   ref.Kind,
			TargetID:     ref.ID,
			Bucket:       BucketFailure.String(),
			Outcome:      OutcomeAlreadySettled,
			TargetStatus: payable.CurrentStatus(),
		}

		transition, err = r.apply(ctx, repos, payable, BucketFailure, nil, reason)
		if err != nil {
			return err
		}
		if transition != nil {
			result.Outcome = OutcomeApplied
			result.TargetStatus = transition.To
			result.PaymentStatus = transition.PaymentStatus
		}
		return nil
	})
	if err != nil {
		return nil, r.wrap(err)
	}

	r.logger.Info("pending payable cancelled", "reference", result.Reference, "reason", reason, "outcome", string(result.Outcome))
	r.announce(ctx, result, transition, "")
	return result, nil
}

// apply is the single state transition routine. Only pending targets move;
// anything else has been settled already and is left untouched.
func (r *Reconciler) apply(ctx context.Context, repos ledger.Repos, p Payable, bucket Bucket, payment *ledger.Payment, reason string) (*Transition, error) {
	if !p.IsPending() {
		return nil, nil
	}

	switch bucket {
	case BucketSuccess:
		return p.OnSuccess(ctx, repos, payment)
	case BucketFailure:
		return p.OnFailure(ctx, repos, reason)
	case BucketPending:
		return p.OnPending(ctx, repos)
	default:
		return nil, nil
	}
}

// upsertPayment writes the notification's facts keyed by transaction id.
// A stored final status is never downgraded back to pending by a late
// pending notification.
func (r *Reconciler) upsertPayment(ctx context.Context, repos ledger.Repos, ref ledger.Reference, n Notification, amount int64) (*ledger.Payment, error) {
	existing, err := repos.Payments.GetByTransactionID(ctx, n.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("cannot load payment: %w", err)
	}

	payment := ledger.NewPayment(ref, n.TransactionID)
	payment.Amount = amount
	payment.PaymentMethod = n.PaymentType
	payment.Status = ledger.PaymentStatusFor(n.TransactionStatus).Code()
	payment.GatewayStatus = n.TransactionStatus

	if existing != nil {
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
		pending := paymentstatus.Statuses.Pending.Code()
		if existing.Status != pending && payment.Status == pending {
			payment.Status = existing.Status
			payment.GatewayStatus = existing.GatewayStatus
		}
		payment.BeforeUpdate()
	} else {
		payment.BeforeCreate()
	}

	stored, err := repos.Payments.Upsert(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("cannot upsert payment: %w", err)
	}
	return stored, nil
}

func (r *Reconciler) wrap(err error) error {
	if ledger.KindOf(err) != "" {
		return err
	}
	return ledger.NewReconciliationError("could not record payment outcome, retry later", err)
}

func (r *Reconciler) announce(ctx context.Context, res *Result, t *Transition, transactionStatus string) {
	if res == nil {
		return
	}

	evt := event.PaymentStatusEvent{
		Reference:         res.Reference,
		TargetKind:        string(res.TargetKind),
		TargetID:          res.TargetID.String(),
		TargetStatus:      res.TargetStatus,
		TransactionStatus: transactionStatus,
		PaymentStatus:     res.PaymentStatus,
	}
	if res.Payment != nil {
		evt.PaymentID = res.Payment.ID.String()
		evt.TransactionID = res.Payment.TransactionID
		evt.Amount = res.Payment.Amount
		evt.PaymentMethod = res.Payment.PaymentMethod
	}
	if t != nil {
		evt.PreviousStatus = t.From
	}
	r.notifier.PaymentChanged(ctx, evt)

	if t == nil {
		return
	}

	if t.Table != nil {
		r.notifier.TableChanged(ctx, event.TableStatusEvent{
			TableID:        t.Table.TableID.String(),
			TableNumber:    t.Table.TableNumber,
			ReservationID:  t.Table.ReservationID.String(),
			Status:         t.Table.To,
			PreviousStatus: t.Table.From,
			Reason:         t.Table.Reason,
		})
	}

	if res.TargetKind == ledger.TargetOrder && t.From != t.To {
		r.notifier.OrderChanged(ctx, event.OrderStatusEvent{
			OrderID:        res.TargetID.String(),
			Status:         t.To,
			PreviousStatus: t.From,
			PaymentStatus:  t.PaymentStatus,
			Reason:         "payment." + res.Bucket,
		})
	}
}

// ParseAmount converts a gateway amount such as "20000.00" to whole units.
// An empty amount is zero.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, ledger.NewValidationError("invalid gross_amount %q", raw)
	}
	return d.Round(0).IntPart(), nil
}
