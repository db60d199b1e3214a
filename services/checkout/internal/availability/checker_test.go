package availability

import (
	"context"
	"testing"
	"time"

	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/pkg/enums/tablestatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/memory"
	"github.com/google/uuid"
)

var slot = time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)

func addTable(t *testing.T, store *memory.Store, number string, capacity int, status string) *ledger.Table {
	t.Helper()
	table := ledger.NewTable()
	table.TableNumber = number
	table.Capacity = capacity
	table.Status = status
	table.BeforeCreate()
	if err := store.Repos().Tables.Create(context.Background(), table); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func addReservation(t *testing.T, store *memory.Store, table *ledger.Table, at time.Time, status string) {
	t.Helper()
	r := ledger.NewReservation()
	r.TableID = table.ID
	r.SetSlot(at)
	r.NumberOfGuests = 2
	r.Status = status
	r.BeforeCreate()
	if err := store.Repos().Reservations.Create(context.Background(), r); err != nil {
		t.Fatalf("create reservation: %v", err)
	}
}

func newChecker(store *memory.Store) *Checker {
	repos := store.Repos()
	return NewChecker(repos.Tables, repos.Reservations, 0)
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{name: "sameTime", offset: 0, want: true},
		{name: "oneHourLater", offset: time.Hour, want: true},
		{name: "exactlyTwoHoursLater", offset: 2 * time.Hour, want: true},
		{name: "exactlyTwoHoursEarlier", offset: -2 * time.Hour, want: true},
		{name: "justOverTwoHours", offset: 2*time.Hour + time.Minute, want: false},
		{name: "threeHoursEarlier", offset: -3 * time.Hour, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Conflicts(slot, slot.Add(tt.offset), DefaultWindow); got != tt.want {
				t.Errorf("Conflicts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTableAvailable(t *testing.T) {
	tests := []struct {
		name     string
		existing time.Time
		status   string
		want     bool
	}{
		{
			name:     "noConflict",
			existing: slot.Add(3 * time.Hour),
			status:   reservationstatus.Statuses.Confirmed.Code(),
			want:     true,
		},
		{
			name:     "boundaryConflicts",
			existing: slot.Add(2 * time.Hour),
			status:   reservationstatus.Statuses.Pending.Code(),
			want:     false,
		},
		{
			name:     "cancelledNeverBlocks",
			existing: slot,
			status:   reservationstatus.Statuses.Cancelled.Code(),
			want:     true,
		},
		{
			name:     "completedBlocks",
			existing: slot.Add(-time.Hour),
			status:   reservationstatus.Statuses.Completed.Code(),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			table := addTable(t, store, "T1", 4, tablestatus.Statuses.Available.Code())
			addReservation(t, store, table, tt.existing, tt.status)

			got, err := newChecker(store).IsTableAvailable(context.Background(), table.ID, slot)
			if err != nil {
				t.Fatalf("IsTableAvailable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsTableAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTableAvailableAcrossMidnight(t *testing.T) {
	store := memory.NewStore()
	table := addTable(t, store, "T1", 4, tablestatus.Statuses.Available.Code())
	late := time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	addReservation(t, store, table, late, reservationstatus.Statuses.Confirmed.Code())

	// 00:30 next day is one hour after 23:30 even though the dates differ.
	got, err := newChecker(store).IsTableAvailable(context.Background(), table.ID, late.Add(time.Hour))
	if err != nil {
		t.Fatalf("IsTableAvailable() error = %v", err)
	}
	if got {
		t.Error("IsTableAvailable() = true, want false across midnight")
	}
}

func TestIsTableAvailableUnknownTable(t *testing.T) {
	store := memory.NewStore()

	_, err := newChecker(store).IsTableAvailable(context.Background(), uuid.New(), slot)
	if !ledger.IsNotFound(err) {
		t.Errorf("IsTableAvailable() error = %v, want not found", err)
	}
}

func TestFindAvailableTables(t *testing.T) {
	store := memory.NewStore()
	small := addTable(t, store, "T1", 2, tablestatus.Statuses.Available.Code())
	medium := addTable(t, store, "T2", 4, tablestatus.Statuses.Available.Code())
	booked := addTable(t, store, "T3", 4, tablestatus.Statuses.Available.Code())
	large := addTable(t, store, "T4", 8, tablestatus.Statuses.Available.Code())
	addTable(t, store, "T5", 6, tablestatus.Statuses.Maintenance.Code())
	addTable(t, store, "T6", 6, tablestatus.Statuses.Occupied.Code())
	addReservation(t, store, booked, slot.Add(90*time.Minute), reservationstatus.Statuses.Confirmed.Code())

	tests := []struct {
		name      string
		partySize int
		want      []string
	}{
		{name: "couple", partySize: 2, want: []string{small.TableNumber, medium.TableNumber, large.TableNumber}},
		{name: "four", partySize: 4, want: []string{medium.TableNumber, large.TableNumber}},
		{name: "six", partySize: 6, want: []string{large.TableNumber}},
		{name: "tooMany", partySize: 10, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newChecker(store).FindAvailableTables(context.Background(), slot, tt.partySize)
			if err != nil {
				t.Fatalf("FindAvailableTables() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FindAvailableTables() returned %d tables, want %d", len(got), len(tt.want))
			}
			for i, table := range got {
				if table.TableNumber != tt.want[i] {
					t.Errorf("table[%d] = %s, want %s", i, table.TableNumber, tt.want[i])
				}
			}
		})
	}
}
