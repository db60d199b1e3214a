package seeding

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/seed"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const seedApplication = "checkout"

//go:embed seed.json
var seedJSON []byte

type seedDocument struct {
	Tables    []tableSeed    `json:"tables"`
	MenuItems []menuItemSeed `json:"menu_items"`
	Discounts []discountSeed `json:"discounts"`
}

type tableSeed struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
}

type menuItemSeed struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

type discountSeed struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	ValidDays int     `json:"valid_days"`
}

func loadSeeds(data []byte) (*seedDocument, error) {
	if len(data) == 0 {
		return nil, errors.New("seed file is empty")
	}

	var doc seedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, errors.New("seed file does not contain tables")
	}
	return &doc, nil
}

// Apply ensures the reference tables, menu items and discounts exist.
// On MongoDB applied seeds are tracked; other stores rely on each seed
// being a no-op when its row is already there.
func Apply(ctx context.Context, store ledger.Store, logger aqm.Logger) error {
	if store == nil {
		return errors.New("store is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	doc, err := loadSeeds(seedJSON)
	if err != nil {
		return err
	}

	defs := buildDefinitions(doc, store.Repos(), time.Now(), logger)
	if len(defs) == 0 {
		logger.Info("No seeds to apply")
		return nil
	}

	if tracker, ok := trackerFromStore(store); ok {
		logger.Info("Applying tracked seeds", "count", len(defs))
		return seed.Apply(ctx, tracker, defs, seedApplication)
	}

	logger.Info("Applying seeds", "count", len(defs))
	for _, def := range defs {
		if err := def.Run(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", def.ID, err)
		}
	}
	return nil
}

type mongoDatabaseProvider interface {
	GetDatabase() *mongo.Database
}

func trackerFromStore(store ledger.Store) (seed.Tracker, bool) {
	provider, ok := store.(mongoDatabaseProvider)
	if !ok {
		return nil, false
	}
	db := provider.GetDatabase()
	if db == nil {
		return nil, false
	}
	return seed.NewMongoTracker(db), true
}

func buildDefinitions(doc *seedDocument, repos ledger.Repos, now time.Time, logger aqm.Logger) []seed.Seed {
	var defs []seed.Seed

	for _, s := range doc.Tables {
		t := s
		if strings.TrimSpace(t.Number) == "" {
			logger.Info("Skipping seed table with empty number")
			continue
		}
		defs = append(defs, seed.Seed{
			ID:          fmt.Sprintf("2025-03-01_table_%s", seedIdentifier(t.Number)),
			Description: fmt.Sprintf("Ensure table %s exists", t.Number),
			Run: func(ctx context.Context) error {
				return t.ensure(ctx, repos.Tables, logger)
			},
		})
	}

	for _, s := range doc.MenuItems {
		m := s
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		defs = append(defs, seed.Seed{
			ID:          fmt.Sprintf("2025-03-01_menu_%s", seedIdentifier(m.Name)),
			Description: fmt.Sprintf("Ensure menu item %s exists", m.Name),
			Run: func(ctx context.Context) error {
				return m.ensure(ctx, repos.MenuItems, logger)
			},
		})
	}

	for _, s := range doc.Discounts {
		d := s
		if strings.TrimSpace(d.Code) == "" {
			continue
		}
		defs = append(defs, seed.Seed{
			ID:          fmt.Sprintf("2025-03-01_discount_%s", seedIdentifier(d.Code)),
			Description: fmt.Sprintf("Ensure discount %s exists", d.Code),
			Run: func(ctx context.Context) error {
				return d.ensure(ctx, repos.Discounts, now, logger)
			},
		})
	}

	return defs
}

func seedIdentifier(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}

	replacer := strings.NewReplacer("-", "_", " ", "_", "/", "_", "\\", "_")
	value = replacer.Replace(value)

	var builder strings.Builder
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			builder.WriteRune(r)
		}
	}

	result := builder.String()
	if result == "" {
		return "seed"
	}
	return result
}

func (s tableSeed) ensure(ctx context.Context, repo ledger.TableRepo, logger aqm.Logger) error {
	existing, err := repo.GetByNumber(ctx, s.Number)
	if err != nil {
		return fmt.Errorf("lookup table %s: %w", s.Number, err)
	}
	if existing != nil {
		logger.Debug("Seed table already exists", "number", s.Number)
		return nil
	}

	table := ledger.NewTable()
	table.TableNumber = s.Number
	table.Capacity = s.Capacity
	table.BeforeCreate()

	if err := repo.Create(ctx, table); err != nil {
		return fmt.Errorf("create seed table %s: %w", s.Number, err)
	}
	logger.Info("Seed table created", "number", s.Number, "id", table.ID.String())
	return nil
}

func (s menuItemSeed) ensure(ctx context.Context, repo ledger.MenuItemRepo, logger aqm.Logger) error {
	existing, err := repo.GetByName(ctx, s.Name)
	if err != nil {
		return fmt.Errorf("lookup menu item %s: %w", s.Name, err)
	}
	if existing != nil {
		logger.Debug("Seed menu item already exists", "name", s.Name)
		return nil
	}

	item := ledger.NewMenuItem()
	item.Name = s.Name
	item.Price = s.Price
	item.StockQuantity = s.Stock
	item.BeforeCreate()

	if err := repo.Create(ctx, item); err != nil {
		return fmt.Errorf("create seed menu item %s: %w", s.Name, err)
	}
	logger.Info("Seed menu item created", "name", s.Name, "id", item.ID.String())
	return nil
}

func (s discountSeed) ensure(ctx context.Context, repo ledger.DiscountRepo, now time.Time, logger aqm.Logger) error {
	existing, err := repo.GetByCode(ctx, s.Code)
	if err != nil {
		return fmt.Errorf("lookup discount %s: %w", s.Code, err)
	}
	if existing != nil {
		logger.Debug("Seed discount already exists", "code", s.Code)
		return nil
	}

	days := s.ValidDays
	if days <= 0 {
		days = 30
	}

	discount := ledger.NewDiscount()
	discount.Code = s.Code
	discount.Name = s.Name
	discount.Type = s.Type
	discount.Value = s.Value
	discount.StartDate = now.Truncate(24 * time.Hour)
	discount.EndDate = discount.StartDate.AddDate(0, 0, days)
	discount.BeforeCreate()

	if err := repo.Create(ctx, discount); err != nil {
		return fmt.Errorf("create seed discount %s: %w", s.Code, err)
	}
	logger.Info("Seed discount created", "code", s.Code, "id", discount.ID.String())
	return nil
}

// SeedingFunc returns an aqm lifecycle OnStart-compatible function which
// applies the seeds in the background.
func SeedingFunc(seedCtx context.Context, store ledger.Store, logger aqm.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		logger.Info("Starting checkout seeding in background")
		go func() {
			if err := Apply(seedCtx, store, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Checkout seeds failed: %v", err)
			} else if err == nil {
				logger.Info("Checkout seeding completed")
			}
		}()
		return nil
	}
}

// StopFunc returns an aqm lifecycle OnStop-compatible function which calls
// cancelFunc to stop any background seeding goroutine.
func StopFunc(cancelFunc context.CancelFunc) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if cancelFunc != nil {
			cancelFunc()
		}
		return nil
	}
}
