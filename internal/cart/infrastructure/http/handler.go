package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shopflow/internal/cart/application"
	"github.com/dmehra2102/shopflow/internal/cart/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/httpx"
)

const heartbeat = 15 * time.Second

// ChangeFeed is where the event stream reads cart changes from: the cart
// service itself, or a broadcaster fed from Redis when several processes
// share one store.
type ChangeFeed interface {
	Subscribe(fn func(domain.ChangeEvent)) (unsubscribe func())
}

type Handler struct {
	log     *slog.Logger
	service *application.Service
	feed    ChangeFeed
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, feed ChangeFeed) *Handler {
	return &Handler{
		log:     log,
		service: service,
		feed:    feed,
		tracer:  otel.Tracer("cart-http"),
	}
}

type addItemReq struct {
	ProductID int  `json:"productId"`
	Quantity  *int `json:"quantity"`
}

type setQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cart", h.list)
	r.Get("/cart/count", h.count)
	r.Get("/cart/summary", h.summary)
	r.Get("/cart/events", h.events)
	r.Post("/cart/items", h.add)
	r.Put("/cart/items/{productId}", h.setQuantity)
	r.Delete("/cart/items/{productId}", h.remove)
	r.Delete("/cart", h.clear)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListCart")
	defer span.End()

	items, err := h.service.List(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartCount")
	defer span.End()

	n, err := h.service.Count(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartSummary")
	defer span.End()

	sum, err := h.service.Summary(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sum)
}

// add defaults a missing quantity to one.
func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddToCart")
	defer span.End()

	var req addItemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	span.SetAttributes(attribute.Int("product.id", req.ProductID), attribute.Int("cart.quantity", qty))

	if err := h.service.Add(ctx, req.ProductID, qty); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetCartQuantity")
	defer span.End()

	id, err := productID(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	var req setQuantityReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if err := h.service.SetQuantity(ctx, id, req.Quantity); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveFromCart")
	defer span.End()

	id, err := productID(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if err := h.service.Remove(ctx, id); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	if err := h.service.Clear(ctx); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events streams cart changes as server-sent events until the client goes
// away. A slow client misses events rather than stalling the cart.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, h.log, errors.New("response writer cannot stream"))
		return
	}

	ch := make(chan domain.ChangeEvent, 8)
	unsubscribe := h.feed.Subscribe(func(ev domain.ChangeEvent) {
		select {
		case ch <- ev:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Error("cart event encode failed", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func productID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || id <= 0 {
		return 0, apperr.Invalidf("product id %q", chi.URLParam(r, "productId"))
	}
	return id, nil
}
