package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aquamarinepk/aqm"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

type MidtransConfig struct {
	ServerKey   string
	Environment string
}

// Midtrans talks to Snap for checkout tokens and to the Core API for
// transaction status. Each instance owns its clients; nothing is global.
type Midtrans struct {
	snap   snap.Client
	core   coreapi.Client
	logger aqm.Logger
}

func NewMidtrans(cfg MidtransConfig, logger aqm.Logger) (*Midtrans, error) {
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return nil, errors.New("midtrans server key is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	env := midtrans.Sandbox
	if strings.EqualFold(cfg.Environment, "production") {
		env = midtrans.Production
	}

	m := &Midtrans{logger: logger}
	m.snap.New(cfg.ServerKey, env)
	m.core.New(cfg.ServerKey, env)
	return m, nil
}

func NewMidtransFromConfig(config *aqm.Config, logger aqm.Logger) (*Midtrans, error) {
	serverKey, _ := config.GetString("gateway.server_key")
	return NewMidtrans(MidtransConfig{
		ServerKey:   serverKey,
		Environment: config.GetStringOrDef("gateway.environment", "sandbox"),
	}, logger)
}

func (m *Midtrans) CreateTransaction(ctx context.Context, req TransactionRequest) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    item.ID,
			Name:  truncate(item.Name, 50),
			Price: item.Price,
			Qty:   item.Quantity,
		})
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FirstName,
			LName: req.Customer.LastName,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: &items,
	}
	if req.Callbacks.Finish != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.Callbacks.Finish}
	}

	resp, mErr := m.snap.CreateTransaction(snapReq)
	if mErr != nil {
		m.logger.Error("snap transaction failed", "reference", req.Reference, "status_code", mErr.StatusCode, "error", mErr.Message)
		return nil, fmt.Errorf("snap create transaction: %s", mErr.GetMessage())
	}
	if resp == nil || resp.Token == "" {
		return nil, errors.New("snap returned an empty token")
	}

	return &Token{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func (m *Midtrans) TransactionStatus(ctx context.Context, reference string) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, mErr := m.core.CheckTransaction(reference)
	if mErr != nil {
		if mErr.StatusCode == http.StatusNotFound {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("core api check transaction: %s", mErr.GetMessage())
	}
	if resp == nil {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode == "404" {
		return nil, ErrTransactionNotFound
	}

	return &Status{
		Reference:         resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		StatusCode:        resp.StatusCode,
		GrossAmount:       resp.GrossAmount,
		PaymentType:       resp.PaymentType,
		FraudStatus:       resp.FraudStatus,
		SignatureKey:      resp.SignatureKey,
	}, nil
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
