package checkout

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/appetiteclub/dineflow/services/checkout/internal/session"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type HandlerDeps struct {
	Orchestrator *Orchestrator
	Repos        ledger.Repos
	Sessions     *session.Store
}

type Handler struct {
	orchestrator *Orchestrator
	repos        ledger.Repos
	sessions     *session.Store
	logger       aqm.Logger
	config       *aqm.Config
	tlm          *telemetry.HTTP
}

func NewHandler(hd HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		orchestrator: hd.Orchestrator,
		repos:        hd.Repos,
		sessions:     hd.Sessions,
		logger:       logger,
		config:       config,
		tlm:          telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
	r.Post("/bookings", h.BookTable)
	r.Get("/availability", h.CheckAvailability)
	r.Get("/discounts/{code}/validate", h.ValidateDiscount)

	r.Get("/orders/{id}", h.GetOrder)
	r.Get("/reservations/{id}", h.GetReservation)
	r.Get("/tables", h.ListTables)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/reservations", h.CreateReservation)
		r.Post("/reservations/{id}/cancel", h.CancelReservation)
		r.Post("/orders/{id}/complete", h.CompleteOrder)
		r.Delete("/orders/{id}", h.DeleteOrder)
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Checkout")
	defer finish()

	log := h.log(r)

	var req CheckoutRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	result, err := h.orchestrator.Checkout(r.Context(), req)
	if err != nil {
		h.respondError(w, log, "checkout failed", err)
		return
	}

	h.remember(w, log, result.Reference)

	links := aqm.RESTfulLinksFor(result.Order)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, result, links...)
}

func (h *Handler) BookTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.BookTable")
	defer finish()

	log := h.log(r)

	var req BookingRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	result, err := h.orchestrator.BookTable(r.Context(), req)
	if err != nil {
		h.respondError(w, log, "booking failed", err)
		return
	}

	h.remember(w, log, result.Reference)

	links := aqm.RESTfulLinksFor(result.Reservation)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, result, links...)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CheckAvailability")
	defer finish()

	log := h.log(r)
	ctx := r.Context()
	q := r.URL.Query()

	date, clock := q.Get("date"), q.Get("time")

	if raw := q.Get("table_id"); raw != "" {
		tableID, err := uuid.Parse(raw)
		if err != nil {
			aqm.RespondError(w, http.StatusBadRequest, "Invalid table_id parameter")
			return
		}

		free, err := h.orchestrator.IsTableAvailable(ctx, tableID, date, clock)
		if err != nil {
			h.respondError(w, log, "availability check failed", err)
			return
		}

		aqm.RespondSuccess(w, AvailabilityResult{Available: free})
		return
	}

	partySize, err := strconv.Atoi(q.Get("party_size"))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid party_size parameter")
		return
	}

	result, err := h.orchestrator.CheckAvailability(ctx, date, clock, partySize)
	if err != nil {
		h.respondError(w, log, "availability check failed", err)
		return
	}

	aqm.RespondSuccess(w, result)
}

func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ValidateDiscount")
	defer finish()

	log := h.log(r)

	var amount int64
	if raw := r.URL.Query().Get("amount"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			aqm.RespondError(w, http.StatusBadRequest, "Invalid amount parameter")
			return
		}
		amount = v
	}

	quote, err := h.orchestrator.ValidateDiscount(r.Context(), chi.URLParam(r, "code"), amount)
	if err != nil {
		h.respondError(w, log, "discount validation failed", err)
		return
	}

	aqm.RespondSuccess(w, quote)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.repos.Orders.Get(ctx, id)
	if err != nil {
		log.Error("error loading order", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve order")
		return
	}
	if order == nil {
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	items, err := h.repos.OrderItems.ListByOrder(ctx, id)
	if err != nil {
		log.Error("error loading order items", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve order")
		return
	}

	links := aqm.RESTfulLinksFor(order)
	aqm.RespondSuccess(w, map[string]interface{}{
		"order": order,
		"items": items,
	}, links...)
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetReservation")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	reservation, err := h.repos.Reservations.Get(r.Context(), id)
	if err != nil {
		log.Error("error loading reservation", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve reservation")
		return
	}
	if reservation == nil {
		aqm.RespondError(w, http.StatusNotFound, "Reservation not found")
		return
	}

	links := aqm.RESTfulLinksFor(reservation)
	aqm.RespondSuccess(w, reservation, links...)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var tables []*ledger.Table
	var err error
	if status := r.URL.Query().Get("status"); status != "" {
		tables, err = h.repos.Tables.ListByStatus(ctx, status)
	} else {
		tables, err = h.repos.Tables.List(ctx)
	}
	if err != nil {
		log.Error("error retrieving tables", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve tables")
		return
	}

	aqm.RespondCollection(w, tables, "table")
}

// Admin handlers

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateReservation")
	defer finish()

	log := h.log(r)

	var req BookingRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	reservation, err := h.orchestrator.ReserveDirect(r.Context(), req)
	if err != nil {
		h.respondError(w, log, "cannot create reservation", err)
		return
	}

	links := aqm.RESTfulLinksFor(reservation)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, reservation, links...)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelReservation")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req CancelReservationRequest
	if r.ContentLength > 0 && !h.decodePayload(w, r, log, &req) {
		return
	}

	reservation, err := h.orchestrator.CancelReservation(r.Context(), id, req.Reason)
	if err != nil {
		h.respondError(w, log, "cannot cancel reservation", err)
		return
	}

	links := aqm.RESTfulLinksFor(reservation)
	aqm.RespondSuccess(w, reservation, links...)
}

func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CompleteOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.orchestrator.CompleteOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, log, "cannot complete order", err)
		return
	}

	links := aqm.RESTfulLinksFor(order)
	aqm.RespondSuccess(w, order, links...)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.orchestrator.DeleteOrder(r.Context(), id); err != nil {
		h.respondError(w, log, "cannot delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

func (h *Handler) remember(w http.ResponseWriter, log aqm.Logger, reference string) {
	if h.sessions == nil {
		return
	}
	if _, err := h.sessions.Remember(w, reference); err != nil {
		log.Error("cannot remember checkout reference", "reference", reference, "error", err)
	}
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

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log aqm.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		aqm.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr, "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log aqm.Logger, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Request body is empty")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("error decoding JSON", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}
