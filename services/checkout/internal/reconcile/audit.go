package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aquamarinepk/aqm"
)

// AuditEntry records a gateway interaction that was not, or could not be,
// turned into a state transition.
type AuditEntry struct {
	Action        string          `json:"action"`
	Reference     string          `json:"reference"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
}

type AuditLogger struct {
	logger aqm.Logger
}

func NewAuditLogger(logger aqm.Logger) *AuditLogger {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) Log(ctx context.Context, entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	a.logger.Info("audit",
		"action", entry.Action,
		"reference", entry.Reference,
		"transaction_id", entry.TransactionID,
		"status", entry.Status,
		"payload", string(entry.Payload),
		"success", entry.Success,
		"timestamp", entry.Timestamp.Format(time.RFC3339),
		"error", entry.Error,
	)
}

// LogUnknownStatus records a notification whose status maps to no transition.
func (a *AuditLogger) LogUnknownStatus(ctx context.Context, n Notification) {
	payload, _ := json.Marshal(n)
	a.Log(ctx, AuditEntry{
		Action:        "unknown-transaction-status",
		Reference:     n.OrderID,
		TransactionID: n.TransactionID,
		Status:        n.TransactionStatus,
		Payload:       payload,
		Success:       true,
	})
}

func (a *AuditLogger) LogSignatureRejected(ctx context.Context, n Notification) {
	a.Log(ctx, AuditEntry{
		Action:        "signature-rejected",
		Reference:     n.OrderID,
		TransactionID: n.TransactionID,
		Status:        n.TransactionStatus,
		Success:       false,
		Error:         "signature mismatch",
	})
}

func (a *AuditLogger) LogRedirectCancel(ctx context.Context, action, reference string, err error) {
	entry := AuditEntry{
		Action:    action,
		Reference: reference,
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	a.Log(ctx, entry)
}
