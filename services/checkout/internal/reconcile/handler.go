package reconcile

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/session"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 20

type HandlerDeps struct {
	Reconciler *Reconciler
	Gateway    gateway.Gateway
	Sessions   *session.Store
	Audit      *AuditLogger
	// ServerKey signs notifications. When VerifySignature is unset the
	// notification body is not trusted and the facts come from Gateway.
	ServerKey       string
	VerifySignature bool
}

type Handler struct {
	reconciler      *Reconciler
	gateway         gateway.Gateway
	sessions        *session.Store
	audit           *AuditLogger
	serverKey       string
	verifySignature bool
	logger          aqm.Logger
	config          *aqm.Config
	tlm             *telemetry.HTTP
}

// RedirectResponse is returned by the client redirect endpoints.
type RedirectResponse struct {
	Message string  `json:"message"`
	Result  *Result `json:"result,omitempty"`
}

func NewHandler(hd HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if hd.Audit == nil {
		hd.Audit = NewAuditLogger(logger)
	}

	h := &Handler{
		reconciler:      hd.Reconciler,
		gateway:         hd.Gateway,
		sessions:        hd.Sessions,
		audit:           hd.Audit,
		serverKey:       hd.ServerKey,
		verifySignature: hd.VerifySignature,
		logger:          logger,
		config:          config,
		tlm:             telemetry.NewHTTP(),
	}

	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/notification", h.Notification)
		r.Get("/finish", h.Finish)
		r.Get("/error", h.Error)
		r.Post("/error", h.Error)
		r.Get("/cancel", h.Cancel)
		r.Post("/cancel", h.Cancel)
	})
}

// Notification handles the gateway's server to server callback. Any
// non-2xx answer makes the gateway retry, so storage failures return 500.
func (h *Handler) Notification(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Notification")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	n, ok := h.decodeNotification(w, r, log)
	if !ok {
		return
	}

	if h.verifySignature && !gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, h.serverKey, n.SignatureKey) {
		h.audit.LogSignatureRejected(ctx, n)
		aqm.RespondError(w, http.StatusForbidden, "Invalid signature")
		return
	}

	if !h.verifySignature && h.gateway != nil {
		reference := strings.TrimSpace(n.OrderID)
		if reference == "" {
			aqm.RespondError(w, http.StatusBadRequest, "Missing order_id")
			return
		}
		if n, ok = h.gatewayNotification(w, r, reference); !ok {
			return
		}
	}

	result, err := h.reconciler.Reconcile(ctx, n)
	if err != nil {
		h.respondError(w, log, "cannot reconcile notification", err)
		return
	}

	aqm.RespondSuccess(w, result)
}

// Finish handles the browser redirect after the payment popup reports
// completion. The query string comes from the browser, so the transaction
// facts are taken from the gateway's status API.
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Finish")
	defer finish()

	log := h.log(r)
	ctx := r.Context()
	q := r.URL.Query()

	reference := strings.TrimSpace(q.Get("order_id"))
	if reference == "" {
		aqm.RespondError(w, http.StatusBadRequest, "Missing order_id parameter")
		return
	}

	n := Notification{
		OrderID:           reference,
		TransactionID:     q.Get("transaction_id"),
		TransactionStatus: q.Get("transaction_status"),
		GrossAmount:       q.Get("gross_amount"),
		PaymentType:       q.Get("payment_type"),
		StatusCode:        q.Get("status_code"),
	}

	if h.gateway != nil {
		var ok bool
		if n, ok = h.gatewayNotification(w, r, reference); !ok {
			return
		}
	}

	result, err := h.reconciler.Reconcile(ctx, n)
	if err != nil {
		h.respondError(w, log, "cannot reconcile finish redirect", err)
		return
	}

	aqm.RespondSuccess(w, RedirectResponse{Message: finishMessage(result), Result: result})
}

// Error handles the browser redirect after a failed payment attempt.
func (h *Handler) Error(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Error")
	defer finish()

	h.cancelFromSession(w, r, "payment-error", "payment failed", "Payment failed, please try again")
}

// Cancel handles the browser redirect after the payer closed the popup.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Cancel")
	defer finish()

	h.cancelFromSession(w, r, "payment-cancel", "payment cancelled by customer", "Payment was cancelled")
}

// cancelFromSession cancels the checkout remembered in the session cookie.
// Without a remembered reference only the failure message is returned.
func (h *Handler) cancelFromSession(w http.ResponseWriter, r *http.Request, action, reason, message string) {
	log := h.log(r)
	ctx := r.Context()

	var reference string
	var ok bool
	if h.sessions != nil {
		reference, ok = h.sessions.Recall(w, r)
	}
	if !ok {
		log.Debug("no checkout remembered for redirect", "action", action)
		aqm.RespondSuccess(w, RedirectResponse{Message: message})
		return
	}

	ref, err := ledger.ParseReference(reference)
	if err != nil {
		h.audit.LogRedirectCancel(ctx, action, reference, err)
		aqm.RespondSuccess(w, RedirectResponse{Message: message})
		return
	}

	result, err := h.reconciler.CancelPending(ctx, ref, reason)
	h.audit.LogRedirectCancel(ctx, action, reference, err)
	if err != nil {
		h.respondError(w, log, "cannot cancel pending checkout", err)
		return
	}

	aqm.RespondSuccess(w, RedirectResponse{Message: message, Result: result})
}

// NotificationFromStatus adapts the gateway's status view to a notification.
// gatewayNotification reads the authoritative transaction facts for
// reference. On failure the response is already written.
func (h *Handler) gatewayNotification(w http.ResponseWriter, r *http.Request, reference string) (Notification, bool) {
	status, err := h.gateway.TransactionStatus(r.Context(), reference)
	if errors.Is(err, gateway.ErrTransactionNotFound) {
		aqm.RespondError(w, http.StatusNotFound, "Payment not found")
		return Notification{}, false
	}
	if err != nil {
		h.log(r).Error("cannot fetch transaction status", "reference", reference, "error", err)
		aqm.RespondError(w, http.StatusBadGateway, "Payment gateway is unavailable")
		return Notification{}, false
	}

	n := NotificationFromStatus(status)
	n.OrderID = reference
	return n, true
}

func NotificationFromStatus(s *gateway.Status) Notification {
	return Notification{
		OrderID:           s.Reference,
		TransactionID:     s.TransactionID,
		TransactionStatus: s.TransactionStatus,
		GrossAmount:       s.GrossAmount,
		PaymentType:       s.PaymentType,
		StatusCode:        s.StatusCode,
		SignatureKey:      s.SignatureKey,
		FraudStatus:       s.FraudStatus,
	}
}

func finishMessage(res *Result) string {
	switch res.Bucket {
	case BucketSuccess.String():
		return "Payment received"
	case BucketFailure.String():
		return "Payment failed"
	case BucketPending.String():
		return "Waiting for payment"
	default:
		return "Payment status is being verified"
	}
}

// Helper methods

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

func (h *Handler) respondError(w http.ResponseWriter, log aqm.Logger, msg string, err error) {
	status := ledger.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err)
	} else {
		log.Debug(msg, "error", err)
	}
	aqm.RespondError(w, status, ledger.MessageOf(err))
}

func (h *Handler) decodeNotification(w http.ResponseWriter, r *http.Request, log aqm.Logger) (Notification, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return Notification{}, false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Request body is empty")
		return Notification{}, false
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		log.Debug("error decoding JSON", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return Notification{}, false
	}

	return n, true
}
