package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const paymentColumns = `id, transaction_id, target_kind, target_id, reference, amount,
	payment_method, status, gateway_status, created_at, updated_at`

type PaymentRepo struct {
	q querier
}

// Upsert keys on transaction_id. Identity columns keep their first values.
func (r *PaymentRepo) Upsert(ctx context.Context, payment *ledger.Payment) (*ledger.Payment, error) {
	if payment == nil {
		return nil, fmt.Errorf("payment is nil")
	}
	if payment.TransactionID == "" {
		return nil, ledger.NewValidationError("payment has no transaction id")
	}
	payment.EnsureID()

	row := r.q.QueryRow(ctx, `INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (transaction_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			payment_method = EXCLUDED.payment_method,
			status = EXCLUDED.status,
			gateway_status = EXCLUDED.gateway_status,
			updated_at = EXCLUDED.updated_at
		RETURNING `+paymentColumns,
		payment.ID, payment.TransactionID, string(payment.TargetKind), payment.TargetID, payment.Reference,
		payment.Amount, payment.PaymentMethod, payment.Status, payment.GatewayStatus,
		payment.CreatedAt, payment.UpdatedAt)

	stored, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("cannot upsert payment: %w", err)
	}
	return stored, nil
}

func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Payment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepo) ListByTarget(ctx context.Context, kind ledger.TargetKind, targetID uuid.UUID) ([]*ledger.Payment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE target_kind = $1 AND target_id = $2 ORDER BY created_at`, string(kind), targetID)
	if err != nil {
		return nil, fmt.Errorf("cannot list payments: %w", err)
	}
	defer rows.Close()

	var result []*ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan payment: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanPayment(row pgx.Row) (*ledger.Payment, error) {
	var p ledger.Payment
	var kind string
	err := row.Scan(&p.ID, &p.TransactionID, &kind, &p.TargetID, &p.Reference, &p.Amount,
		&p.PaymentMethod, &p.Status, &p.GatewayStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.TargetKind = ledger.TargetKind(kind)
	return &p, nil
}
