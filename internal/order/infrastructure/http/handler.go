package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shopflow/internal/order/application"
	"github.com/dmehra2102/shopflow/internal/order/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/httpx"
	"github.com/dmehra2102/shopflow/pkg/idempotency"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	idem    idempotency.Store
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, idem idempotency.Store) *Handler {
	return &Handler{
		log:     log,
		service: service,
		idem:    idem,
		tracer:  otel.Tracer("order-http"),
	}
}

type updateStatusReq struct {
	Status domain.Status `json:"status"`
}

func (h *Handler) Register(r chi.Router) {
	r.With(idempotency.Middleware(h.log, h.idem, "checkout")).Post("/checkout", h.checkout)
	r.With(idempotency.Middleware(h.log, h.idem, "orders")).Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req application.CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, err := h.service.Checkout(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.Int("order.id", o.ID))
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var d domain.Draft
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, err := h.service.Create(ctx, d)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.Int("order.id", o.ID))
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.List(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, err := orderID(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.Int("order.id", id))

	o, err := h.service.Get(ctx, id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	id, err := orderID(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	var req updateStatusReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.Int("order.id", id), attribute.String("order.status", string(req.Status)))

	o, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func orderID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, apperr.Invalidf("order id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}
