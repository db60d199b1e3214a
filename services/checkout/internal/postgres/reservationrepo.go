package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const reservationColumns = `id, user_id, table_id, payment_id, reservation_date, reservation_time,
	scheduled_at, number_of_guests, status, booking_fee, special_requests, customer_name,
	customer_email, customer_phone, cancelled_at, cancellation_reason, created_at, updated_at`

type ReservationRepo struct {
	q querier
}

func (r *ReservationRepo) Create(ctx context.Context, res *ledger.Reservation) error {
	if res == nil {
		return fmt.Errorf("reservation is nil")
	}

	_, err := r.q.Exec(ctx, `INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		res.ID, nullUUID(res.UserID), res.TableID, nullUUID(res.PaymentID), res.ReservationDate,
		res.ReservationTime, res.ScheduledAt, res.NumberOfGuests, res.Status, res.BookingFee,
		res.SpecialRequests, res.CustomerName, res.CustomerEmail, res.CustomerPhone, res.CancelledAt,
		res.CancellationReason, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.NewConflictError("reservation %s already exists", res.ID)
		}
		return fmt.Errorf("cannot create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	row := r.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepo) Save(ctx context.Context, res *ledger.Reservation) error {
	ok, err := r.update(ctx, res, "")
	if err != nil {
		return err
	}
	if !ok {
		return ledger.NewNotFoundError("reservation %s not found", res.ID)
	}
	return nil
}

func (r *ReservationRepo) SaveIfStatus(ctx context.Context, res *ledger.Reservation, expected string) (bool, error) {
	return r.update(ctx, res, expected)
}

func (r *ReservationRepo) update(ctx context.Context, res *ledger.Reservation, expected string) (bool, error) {
	if res == nil {
		return false, fmt.Errorf("reservation is nil")
	}

	tag, err := r.q.Exec(ctx, `UPDATE reservations SET
			table_id = $2, payment_id = $3, reservation_date = $4, reservation_time = $5,
			scheduled_at = $6, number_of_guests = $7, status = $8, booking_fee = $9,
			special_requests = $10, customer_name = $11, customer_email = $12, customer_phone = $13,
			cancelled_at = $14, cancellation_reason = $15, updated_at = $16
		WHERE id = $1 AND ($17::text = '' OR status = $17::text)`,
		res.ID, res.TableID, nullUUID(res.PaymentID), res.ReservationDate, res.ReservationTime,
		res.ScheduledAt, res.NumberOfGuests, res.Status, res.BookingFee, res.SpecialRequests,
		res.CustomerName, res.CustomerEmail, res.CustomerPhone, res.CancelledAt,
		res.CancellationReason, res.UpdatedAt, expected)
	if err != nil {
		return false, fmt.Errorf("cannot update reservation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReservationRepo) ListActiveByTables(ctx context.Context, tableIDs []uuid.UUID, from, to time.Time) ([]*ledger.Reservation, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}

	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE table_id = ANY($1) AND status <> $2 AND scheduled_at BETWEEN $3 AND $4
		ORDER BY scheduled_at`,
		tableIDs, reservationstatus.Statuses.Cancelled.Code(), from, to)
}

func (r *ReservationRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]*ledger.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		reservationstatus.Statuses.Pending.Code(), before)
}

func (r *ReservationRepo) CountConfirmedByTable(ctx context.Context, tableID uuid.UUID, excludeID uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM reservations
		WHERE table_id = $1 AND status = $2 AND id <> $3`,
		tableID, reservationstatus.Statuses.Confirmed.Code(), excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("cannot count reservations: %w", err)
	}
	return n, nil
}

func (r *ReservationRepo) list(ctx context.Context, sql string, args ...any) ([]*ledger.Reservation, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list reservations: %w", err)
	}
	defer rows.Close()

	var result []*ledger.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan reservation: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func scanReservation(row pgx.Row) (*ledger.Reservation, error) {
	var res ledger.Reservation
	var userID, paymentID uuid.NullUUID
	err := row.Scan(&res.ID, &userID, &res.TableID, &paymentID, &res.ReservationDate,
		&res.ReservationTime, &res.ScheduledAt, &res.NumberOfGuests, &res.Status, &res.BookingFee,
		&res.SpecialRequests, &res.CustomerName, &res.CustomerEmail, &res.CustomerPhone,
		&res.CancelledAt, &res.CancellationReason, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.UserID = uuidPtr(userID)
	res.PaymentID = uuidPtr(paymentID)
	return &res, nil
}
