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

	"github.com/appetiteclub/dineflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

type OrderRepo struct {
	collection *mongo.Collection
}

func (r *OrderRepo) Create(ctx context.Context, order *ledger.Order) error {
	if order == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if cerr := duplicateErr(err, "order %s already exists", order.ID); cerr != nil {
			return cerr
		}
		return fmt.Errorf("cannot create order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	var order ledger.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepo) Save(ctx context.Context, order *ledger.Order) error {
	if order == nil {
		return fmt.Errorf("order is nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.NewNotFoundError("order %s not found", order.ID)
	}
	return nil
}

func (r *OrderRepo) SaveIfStatus(ctx context.Context, order *ledger.Order, expected string) (bool, error) {
	if order == nil {
		return false, fmt.Errorf("order is nil")
	}

	filter := bson.M{"_id": order.ID, "status": expected}
	result, err := r.collection.ReplaceOne(ctx, filter, order)
	if err != nil {
		return false, fmt.Errorf("cannot update order: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *OrderRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]*ledger.Order, error) {
	filter := bson.M{
		"status":     orderstatus.Statuses.Pending.Code(),
		"created_at": bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list pending orders: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ledger.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}
	return result, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return ledger.NewNotFoundError("order %s not found", id)
	}
	return nil
}

type OrderItemRepo struct {
	collection *mongo.Collection
}

func (r *OrderItemRepo) Create(ctx context.Context, item *ledger.OrderItem) error {
	if item == nil {
		return fmt.Errorf("order item is nil")
	}

	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("cannot create order item: %w", err)
	}
	return nil
}

func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*ledger.OrderItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list order items: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ledger.OrderItem
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode order items: %w", err)
	}
	return result, nil
}

func (r *OrderItemRepo) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"order_id": orderID}); err != nil {
		return fmt.Errorf("cannot delete order items: %w", err)
	}
	return nil
}
