package seeding

import (
	"context"
	"testing"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/memory"
)

func TestLoadSeeds(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "embedded", data: string(seedJSON)},
		{name: "empty", data: "", wantErr: true},
		{name: "malformed", data: "{", wantErr: true},
		{name: "noTables", data: `{"tables": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := loadSeeds([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadSeeds() error = %v", err)
			}
			if len(doc.MenuItems) == 0 || len(doc.Discounts) == 0 {
				t.Errorf("embedded seeds missing menu items or discounts")
			}
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	logger := aqm.NewNoopLogger()

	if err := Apply(ctx, store, logger); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	if err := Apply(ctx, store, logger); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	doc, _ := loadSeeds(seedJSON)
	repos := store.Repos()

	tables, err := repos.Tables.List(ctx)
	if err != nil {
		t.Fatalf("List tables error = %v", err)
	}
	if len(tables) != len(doc.Tables) {
		t.Errorf("tables = %d, want %d", len(tables), len(doc.Tables))
	}

	items, err := repos.MenuItems.List(ctx)
	if err != nil {
		t.Fatalf("List menu items error = %v", err)
	}
	if len(items) != len(doc.MenuItems) {
		t.Errorf("menu items = %d, want %d", len(items), len(doc.MenuItems))
	}
	for _, item := range items {
		if !item.IsAvailable {
			t.Errorf("menu item %s should be available", item.Name)
		}
	}

	d, err := repos.Discounts.GetByCode(ctx, "welcome10")
	if err != nil || d == nil {
		t.Fatalf("GetByCode() = %v, %v", d, err)
	}
	if d.Type != ledger.DiscountPercentage {
		t.Errorf("discount type = %q, want %q", d.Type, ledger.DiscountPercentage)
	}
	if !d.EndDate.After(time.Now()) {
		t.Errorf("seed discount already expired: %v", d.EndDate)
	}
}

func TestApplyRequiresStore(t *testing.T) {
	if err := Apply(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestSeedIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "T01", want: "t01"},
		{in: "Gado-Gado", want: "gado_gado"},
		{in: "Es Teh Manis", want: "es_teh_manis"},
		{in: "  ", want: "unknown"},
		{in: "!!!", want: "seed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := seedIdentifier(tt.in); got != tt.want {
				t.Errorf("seedIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
