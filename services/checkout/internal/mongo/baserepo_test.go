package mongo

import (
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
)

func TestRegistryStoresUUIDAsString(t *testing.T) {
	reg := newRegistry()
	userID := uuid.New()

	order := ledger.NewOrder()
	order.UserID = &userID
	order.OrderType = "takeaway"

	data, err := bson.MarshalWithRegistry(reg, order)
	if err != nil {
		t.Fatalf("MarshalWithRegistry() error = %v", err)
	}

	raw := bson.Raw(data)
	if got, ok := raw.Lookup("_id").StringValueOK(); !ok || got != order.ID.String() {
		t.Errorf("_id = %v, want string %s", raw.Lookup("_id"), order.ID)
	}
	if got, ok := raw.Lookup("user_id").StringValueOK(); !ok || got != userID.String() {
		t.Errorf("user_id = %v, want string %s", raw.Lookup("user_id"), userID)
	}

	var decoded ledger.Order
	if err := bson.UnmarshalWithRegistry(reg, data, &decoded); err != nil {
		t.Fatalf("UnmarshalWithRegistry() error = %v", err)
	}
	if decoded.ID != order.ID {
		t.Errorf("ID = %s, want %s", decoded.ID, order.ID)
	}
	if decoded.UserID == nil || *decoded.UserID != userID {
		t.Errorf("UserID = %v, want %s", decoded.UserID, userID)
	}
}

func TestRegistryDecodesMissingOptionalUUID(t *testing.T) {
	reg := newRegistry()
	order := ledger.NewOrder()

	data, err := bson.MarshalWithRegistry(reg, order)
	if err != nil {
		t.Fatalf("MarshalWithRegistry() error = %v", err)
	}

	var decoded ledger.Order
	if err := bson.UnmarshalWithRegistry(reg, data, &decoded); err != nil {
		t.Fatalf("UnmarshalWithRegistry() error = %v", err)
	}
	if decoded.UserID != nil {
		t.Errorf("UserID = %v, want nil", decoded.UserID)
	}
}

func TestRegistryRejectsMalformedUUID(t *testing.T) {
	reg := newRegistry()
	data, err := bson.Marshal(bson.M{"_id": "not-a-uuid"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded ledger.Order
	if err := bson.UnmarshalWithRegistry(reg, data, &decoded); err == nil {
		t.Error("UnmarshalWithRegistry() should fail on a malformed id")
	}
}
