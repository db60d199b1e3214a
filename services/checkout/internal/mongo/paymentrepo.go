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

type PaymentRepo struct {
	collection *mongo.Collection
}

// Upsert keys on transaction_id. Identity fields are written only on insert.
func (r *PaymentRepo) Upsert(ctx context.Context, payment *ledger.Payment) (*ledger.Payment, error) {
	if payment == nil {
		return nil, fmt.Errorf("payment is nil")
	}
	if payment.TransactionID == "" {
		return nil, ledger.NewValidationError("payment has no transaction id")
	}
	payment.EnsureID()

	filter := bson.M{"transaction_id": payment.TransactionID}
	update := bson.M{
		"$set": bson.M{
			"amount":         payment.Amount,
			"payment_method": payment.PaymentMethod,
			"status":         payment.Status,
			"gateway_status": payment.GatewayStatus,
			"updated_at":     payment.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":         payment.ID,
			"target_kind": payment.TargetKind,
			"target_id":   payment.TargetID,
			"reference":   payment.Reference,
			"created_at":  payment.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored ledger.Payment
	// A racing insert of the same transaction_id aborts the surrounding
	// transaction. Write conflicts keep their transient label and are rerun
	// by WithTransaction; a duplicate key fails the callback and the gateway
	// redelivers, which then matches the stored row.
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, fmt.Errorf("cannot upsert payment: %w", err)
	}
	return &stored, nil
}

func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Payment, error) {
	var payment ledger.Payment
	err := r.collection.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get payment: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepo) ListByTarget(ctx context.Context, kind ledger.TargetKind, targetID uuid.UUID) ([]*ledger.Payment, error) {
	filter := bson.M{"target_kind": kind, "target_id": targetID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list payments: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ledger.Payment
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode payments: %w", err)
	}
	return result, nil
}
