package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

type TableRepo struct {
	collection *mongo.Collection
}

func (r *TableRepo) Create(ctx context.Context, table *ledger.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	if _, err := r.collection.InsertOne(ctx, table); err != nil {
		if cerr := duplicateErr(err, "table %s already exists", table.TableNumber); cerr != nil {
			return cerr
		}
		return fmt.Errorf("cannot create table: %w", err)
	}
	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Table, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *TableRepo) GetByNumber(ctx context.Context, number string) (*ledger.Table, error) {
	return r.findOne(ctx, bson.M{"table_number": number})
}

func (r *TableRepo) List(ctx context.Context) ([]*ledger.Table, error) {
	return r.find(ctx, bson.M{})
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*ledger.Table, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *TableRepo) Save(ctx context.Context, table *ledger.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": table.ID}, table)
	if err != nil {
		return fmt.Errorf("cannot update table: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.NewNotFoundError("table %s not found", table.ID)
	}
	return nil
}

// Lock writes to the table document so a concurrent transaction touching
// the same table fails with a write conflict and is retried.
func (r *TableRepo) Lock(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"lock_seq": 1}})
	if err != nil {
		return fmt.Errorf("cannot lock table: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.NewNotFoundError("table %s not found", id)
	}
	return nil
}

func (r *TableRepo) findOne(ctx context.Context, filter bson.M) (*ledger.Table, error) {
	var table ledger.Table
	err := r.collection.FindOne(ctx, filter).Decode(&table)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return &table, nil
}

func (r *TableRepo) find(ctx context.Context, filter bson.M) ([]*ledger.Table, error) {
	opts := options.Find().SetSort(bson.D{{Key: "table_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ledger.Table
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}
	return result, nil
}
