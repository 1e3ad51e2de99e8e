package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shopflow/internal/catalog/application"
	"github.com/dmehra2102/shopflow/internal/catalog/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/httpx"
)

const maxCriteriaBody = 64 << 10

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products/browse", h.browseByCriteria)
	r.Get("/products/featured", h.featured)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/related", h.related)
	r.Get("/categories", h.categories)
	r.Get("/categories/{slug}/products", h.categoryProducts)
	r.Get("/search", h.search)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, "ListProducts", application.Scope{})
}

func (h *Handler) categoryProducts(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, "CategoryProducts", application.Scope{Category: chi.URLParam(r, "slug")})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, "SearchProducts", application.Scope{Query: r.URL.Query().Get("q")}, "q")
}

// browseByCriteria takes the criteria as a JSON body. The scope still comes
// from the query string: category=<slug> or q=<text>.
func (h *Handler) browseByCriteria(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := application.Scope{Category: q.Get("category"), Query: q.Get("q")}
	h.runBrowse(w, r, "BrowseProducts", scope, func() (domain.Criteria, error) {
		return domain.DecodeCriteria(http.MaxBytesReader(w, r.Body, maxCriteriaBody))
	})
}

func (h *Handler) browse(w http.ResponseWriter, r *http.Request, op string, scope application.Scope, extra ...string) {
	h.runBrowse(w, r, op, scope, func() (domain.Criteria, error) {
		return domain.ParseQuery(r.URL.Query(), extra...)
	})
}

func (h *Handler) runBrowse(w http.ResponseWriter, r *http.Request, op string, scope application.Scope, parse func() (domain.Criteria, error)) {
	ctx, span := h.tracer.Start(r.Context(), op)
	defer span.End()

	criteria, err := parse()
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(
		attribute.String("catalog.category", scope.Category),
		attribute.String("catalog.query", scope.Query),
		attribute.String("catalog.sort", string(criteria.Sort)),
	)

	res, err := h.service.Browse(ctx, scope, criteria)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) featured(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "FeaturedProducts")
	defer span.End()

	products, err := h.service.Featured(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(products))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, err := productID(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.Int("product.id", id))

	p, err := h.service.ByID(ctx, id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// related resolves the product first so an unknown id is a 404 rather than
// an empty list.
func (h *Handler) related(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RelatedProducts")
	defer span.End()

	id, err := productID(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	p, err := h.service.ByID(ctx, id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	products, err := h.service.Related(ctx, p.Category, p.ID)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(products))
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Categories")
	defer span.End()

	cats, err := h.service.Categories(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(cats))
}

func productID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, apperr.Invalidf("product id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
