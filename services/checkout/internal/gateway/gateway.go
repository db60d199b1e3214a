package gateway

import (
	"context"
	"errors"
)

// ErrTransactionNotFound is returned by TransactionStatus when the gateway
// has no transaction for the reference.
var ErrTransactionNotFound = errors.New("gateway transaction not found")

type LineItem struct {
	ID       string
	Name     string
	Price    int64
	Quantity int32
}

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type Callbacks struct {
	Finish string `json:"finish,omitempty"`
	Error  string `json:"error,omitempty"`
	Cancel string `json:"cancel,omitempty"`
}

type TransactionRequest struct {
	Reference   string
	GrossAmount int64
	Items       []LineItem
	Customer    Customer
	Callbacks   Callbacks
}

// Token is the opaque checkout session handed to the payer.
type Token struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Status is the gateway's current view of a transaction.
type Status struct {
	Reference         string
	TransactionID     string
	TransactionStatus string
	StatusCode        string
	GrossAmount       string
	PaymentType       string
	FraudStatus       string
	SignatureKey      string
}

type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Token, error)
	TransactionStatus(ctx context.Context, reference string) (*Status, error)
}

// LineItemsTotal sums price times quantity over items.
func LineItemsTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}
