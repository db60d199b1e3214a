package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

type MenuItemRepo struct {
	collection *mongo.Collection
}

func (r *MenuItemRepo) Create(ctx context.Context, item *ledger.MenuItem) error {
	if item == nil {
		return fmt.Errorf("menu item is nil")
	}

	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("cannot create menu item: %w", err)
	}
	return nil
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.MenuItem, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne())
}

func (r *MenuItemRepo) GetByName(ctx context.Context, name string) (*ledger.MenuItem, error) {
	return r.findOne(ctx, bson.M{"name": name}, options.FindOne().SetCollation(caseInsensitive))
}

func (r *MenuItemRepo) List(ctx context.Context) ([]*ledger.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ledger.MenuItem
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}
	return result, nil
}

// DecrementStock subtracts qty in a single update pipeline, flooring at zero.
func (r *MenuItemRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stock_quantity", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$subtract", Value: bson.A{"$stock_quantity", qty}}},
			}}}},
			{Key: "updated_at", Value: time.Now()},
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return fmt.Errorf("cannot decrement stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.NewNotFoundError("menu item %s not found", id)
	}
	return nil
}

func (r *MenuItemRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*ledger.MenuItem, error) {
	var item ledger.MenuItem
	err := r.collection.FindOne(ctx, filter, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return &item, nil
}

type DiscountRepo struct {
	collection *mongo.Collection
}

func (r *DiscountRepo) Create(ctx context.Context, discount *ledger.Discount) error {
	if discount == nil {
		return fmt.Errorf("discount is nil")
	}

	if _, err := r.collection.InsertOne(ctx, discount); err != nil {
		if cerr := duplicateErr(err, "discount %s already exists", discount.Code); cerr != nil {
			return cerr
		}
		return fmt.Errorf("cannot create discount: %w", err)
	}
	return nil
}

func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*ledger.Discount, error) {
	var discount ledger.Discount
	opts := options.FindOne().SetCollation(caseInsensitive)
	err := r.collection.FindOne(ctx, bson.M{"code": code}, opts).Decode(&discount)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get discount: %w", err)
	}
	return &discount, nil
}
