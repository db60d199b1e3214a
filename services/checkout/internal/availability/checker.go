package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/tablestatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/google/uuid"
)

// DefaultWindow is the margin around a requested slot in which another
// reservation of the same table conflicts.
const DefaultWindow = 2 * time.Hour

type Checker struct {
	tables       ledger.TableRepo
	reservations ledger.ReservationRepo
	window       time.Duration
}

func NewChecker(tables ledger.TableRepo, reservations ledger.ReservationRepo, window time.Duration) *Checker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Checker{
		tables:       tables,
		reservations: reservations,
		window:       window,
	}
}

// Conflicts reports whether two slots are within window of each other.
// Slots exactly window apart conflict.
func Conflicts(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// IsTableAvailable reports whether no non-cancelled reservation of the table
// falls within the window around at. It does not look at the table's base status.
func (c *Checker) IsTableAvailable(ctx context.Context, tableID uuid.UUID, at time.Time) (bool, error) {
	table, err := c.tables.Get(ctx, tableID)
	if err != nil {
		return false, fmt.Errorf("cannot load table: %w", err)
	}
	if table == nil {
		return false, ledger.NewNotFoundError("table %s not found", tableID)
	}

	busy, err := c.busyTables(ctx, []uuid.UUID{tableID}, at)
	if err != nil {
		return false, err
	}

	return !busy[tableID], nil
}

// FindAvailableTables lists tables with base status available, enough
// capacity for partySize and no conflicting reservation, smallest first.
func (c *Checker) FindAvailableTables(ctx context.Context, at time.Time, partySize int) ([]*ledger.Table, error) {
	candidates, err := c.tables.ListByStatus(ctx, tablestatus.Statuses.Available.Code())
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}

	var fitting []*ledger.Table
	var ids []uuid.UUID
	for _, t := range candidates {
		if !t.IsAvailable() || !t.Fits(partySize) {
			continue
		}
		fitting = append(fitting, t)
		ids = append(ids, t.ID)
	}

	if len(fitting) == 0 {
		return []*ledger.Table{}, nil
	}

	busy, err := c.busyTables(ctx, ids, at)
	if err != nil {
		return nil, err
	}

	free := make([]*ledger.Table, 0, len(fitting))
	for _, t := range fitting {
		if !busy[t.ID] {
			free = append(free, t)
		}
	}

	sort.SliceStable(free, func(i, j int) bool {
		if free[i].Capacity != free[j].Capacity {
			return free[i].Capacity < free[j].Capacity
		}
		return free[i].TableNumber < free[j].TableNumber
	})

	return free, nil
}

func (c *Checker) busyTables(ctx context.Context, tableIDs []uuid.UUID, at time.Time) (map[uuid.UUID]bool, error) {
	reservations, err := c.reservations.ListActiveByTables(ctx, tableIDs, at.Add(-c.window), at.Add(c.window))
	if err != nil {
		return nil, fmt.Errorf("cannot list reservations: %w", err)
	}

	busy := make(map[uuid.UUID]bool, len(tableIDs))
	for _, r := range reservations {
		status := reservationstatus.ByName(r.Status)
		if status != nil && !status.Blocks() {
			continue
		}
		if Conflicts(r.ScheduledAt, at, c.window) {
			busy[r.TableID] = true
		}
	}

	return busy, nil
}
