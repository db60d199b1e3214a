package mongo

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

const (
	ordersCollection       = "orders"
	orderItemsCollection   = "order_items"
	paymentsCollection     = "payments"
	reservationsCollection = "reservations"
	tablesCollection       = "tables"
	menuItemsCollection    = "menu_items"
	discountsCollection    = "discounts"
)

// caseInsensitive matches codes and names regardless of case.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Store is the MongoDB ledger. Transactions need a replica set.
type Store struct {
	*BaseRepo
}

func NewStore(config *aqm.Config, logger aqm.Logger) *Store {
	return &Store{BaseRepo: NewBaseRepo(config, logger)}
}

func (s *Store) Start(ctx context.Context) error {
	if err := s.BaseRepo.Start(ctx); err != nil {
		return err
	}
	return s.EnsureIndexes(ctx)
}

func (s *Store) Repos() ledger.Repos {
	db := s.GetDatabase()
	return ledger.Repos{
		Orders:       &OrderRepo{collection: db.Collection(ordersCollection)},
		OrderItems:   &OrderItemRepo{collection: db.Collection(orderItemsCollection)},
		Payments:     &PaymentRepo{collection: db.Collection(paymentsCollection)},
		Reservations: &ReservationRepo{collection: db.Collection(reservationsCollection)},
		Tables:       &TableRepo{collection: db.Collection(tablesCollection)},
		MenuItems:    &MenuItemRepo{collection: db.Collection(menuItemsCollection)},
		Discounts:    &DiscountRepo{collection: db.Collection(discountsCollection)},
	}
}

// RunInTx runs fn inside a session transaction. The driver retries fn on
// transient transaction errors.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos ledger.Repos) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("cannot start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s.Repos())
	})
	return err
}

// EnsureIndexes creates the indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	db := s.GetDatabase()

	indexes := map[string][]mongo.IndexModel{
		ordersCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		orderItemsCollection: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "target_kind", Value: 1}, {Key: "target_id", Value: 1}}},
		},
		reservationsCollection: {
			{Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "scheduled_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		tablesCollection: {
			{Keys: bson.D{{Key: "table_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		menuItemsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetCollation(caseInsensitive)},
		},
		discountsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create %s indexes: %w", name, err)
		}
	}

	s.logger.Info("MongoDB indexes ensured")
	return nil
}

// Drop removes every ledger collection.
func (s *Store) Drop(ctx context.Context) error {
	db := s.GetDatabase()
	for _, name := range []string{
		ordersCollection, orderItemsCollection, paymentsCollection,
		reservationsCollection, tablesCollection, menuItemsCollection, discountsCollection,
	} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("cannot drop %s: %w", name, err)
		}
	}
	return nil
}

func duplicateErr(err error, format string, args ...interface{}) error {
	if mongo.IsDuplicateKeyError(err) {
		return ledger.NewConflictError(format, args...)
	}
	return nil
}
