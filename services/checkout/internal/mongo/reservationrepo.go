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

	"github.com/appetiteclub/dineflow/pkg/enums/reservationstatus"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

type ReservationRepo struct {
	collection *mongo.Collection
}

func (r *ReservationRepo) Create(ctx context.Context, reservation *ledger.Reservation) error {
	if reservation == nil {
		return fmt.Errorf("reservation is nil")
	}

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		if cerr := duplicateErr(err, "reservation %s already exists", reservation.ID); cerr != nil {
			return cerr
		}
		return fmt.Errorf("cannot create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	var reservation ledger.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get reservation: %w", err)
	}
	return &reservation, nil
}

func (r *ReservationRepo) Save(ctx context.Context, reservation *ledger.Reservation) error {
	if reservation == nil {
		return fmt.Errorf("reservation is nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": reservation.ID}, reservation)
	if err != nil {
		return fmt.Errorf("cannot update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.NewNotFoundError("reservation %s not found", reservation.ID)
	}
	return nil
}

func (r *ReservationRepo) SaveIfStatus(ctx context.Context, reservation *ledger.Reservation, expected string) (bool, error) {
	if reservation == nil {
		return false, fmt.Errorf("reservation is nil")
	}

	filter := bson.M{"_id": reservation.ID, "status": expected}
	result, err := r.collection.ReplaceOne(ctx, filter, reservation)
	if err != nil {
		return false, fmt.Errorf("cannot update reservation: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *ReservationRepo) ListActiveByTables(ctx context.Context, tableIDs []uuid.UUID, from, to time.Time) ([]*ledger.Reservation, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"table_id":     bson.M{"$in": tableIDs},
		"status":       bson.M{"$ne": reservationstatus.Statuses.Cancelled.Code()},
		"scheduled_at": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *ReservationRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]*ledger.Reservation, error) {
	filter := bson.M{
		"status":     reservationstatus.Statuses.Pending.Code(),
		"created_at": bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *ReservationRepo) CountConfirmedByTable(ctx context.Context, tableID uuid.UUID, excludeID uuid.UUID) (int, error) {
	filter := bson.M{
		"table_id": tableID,
		"status":   reservationstatus.Statuses.Confirmed.Code(),
		"_id":      bson.M{"$ne": excludeID},
	}

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("cannot count reservations: %w", err)
	}
	return int(n), nil
}

func (r *ReservationRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*ledger.Reservation, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ledger.Reservation
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode reservations: %w", err)
	}
	return result, nil
}
