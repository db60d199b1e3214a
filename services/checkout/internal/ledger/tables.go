package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// TableChange records a table flip made inside a transaction, to be
// announced once it commits.
type TableChange struct {
	TableID       uuid.UUID
	TableNumber   string
	ReservationID uuid.UUID
	From          string
	To            string
	Reason        string
}

// HoldTableFor marks the reservation's table reserved. Tables that are not
// available (occupied, under maintenance, already reserved) are left alone.
func HoldTableFor(ctx context.Context, repos Repos, r *Reservation, reason string) (*TableChange, error) {
	table, err := repos.Tables.Get(ctx, r.TableID)
	if err != nil {
		return nil, fmt.Errorf("cannot load table: %w", err)
	}
	if table == nil || !table.IsAvailable() {
		return nil, nil
	}

	from := table.Status
	table.Reserve()
	if err := repos.Tables.Save(ctx, table); err != nil {
		return nil, fmt.Errorf("cannot reserve table: %w", err)
	}

	return &TableChange{
		TableID:       table.ID,
		TableNumber:   table.TableNumber,
		ReservationID: r.ID,
		From:          from,
		To:            table.Status,
		Reason:        reason,
	}, nil
}

// ReleaseTableFor returns the reservation's table to available unless
// another confirmed reservation still holds it.
func ReleaseTableFor(ctx context.Context, repos Repos, r *Reservation, reason string) (*TableChange, error) {
	table, err := repos.Tables.Get(ctx, r.TableID)
	if err != nil {
		return nil, fmt.Errorf("cannot load table: %w", err)
	}
	if table == nil || !table.IsReserved() {
		return nil, nil
	}

	holders, err := repos.Reservations.CountConfirmedByTable(ctx, table.ID, r.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot count table reservations: %w", err)
	}
	if holders > 0 {
		return nil, nil
	}

	from := table.Status
	table.Release()
	if err := repos.Tables.Save(ctx, table); err != nil {
		return nil, fmt.Errorf("cannot release table: %w", err)
	}

	return &TableChange{
		TableID:       table.ID,
		TableNumber:   table.TableNumber,
		ReservationID: r.ID,
		From:          from,
		To:            table.Status,
		Reason:        reason,
	}, nil
}
