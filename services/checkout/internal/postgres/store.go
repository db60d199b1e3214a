package postgres

import (
	"context"
	"errors"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const uniqueViolation = "23505"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL ledger.
type Store struct {
	*DB
}

func NewStore(config *aqm.Config, logger aqm.Logger) *Store {
	return &Store{DB: NewDB(config, logger)}
}

func (s *Store) Repos() ledger.Repos {
	return reposFor(s.Pool)
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos ledger.Repos) error) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(ctx, reposFor(tx))
	})
}

func reposFor(q querier) ledger.Repos {
	return ledger.Repos{
		Orders:       &OrderRepo{q: q},
		OrderItems:   &OrderItemRepo{q: q},
		Payments:     &PaymentRepo{q: q},
		Reservations: &ReservationRepo{q: q},
		Tables:       &TableRepo{q: q},
		MenuItems:    &MenuItemRepo{q: q},
		Discounts:    &DiscountRepo{q: q},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
