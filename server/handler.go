package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"productcatalog/domain"
	"productcatalog/query"
	"productcatalog/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// envelope mirrors the { success, data } body of the products API.
type envelope struct {
	Success bool                     `json:"success"`
	Data    any                      `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Errors  []domain.ValidationError `json:"errors,omitempty"`
}

type handler struct {
	cat Catalog
	log *zap.Logger
}

func (h *handler) respond(w http.ResponseWriter, status int, body envelope) {
	b, err := json.Marshal(body)
	if err != nil {
		h.log.Error("encode response", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func (h *handler) ok(w http.ResponseWriter, status int, data any) {
	h.respond(w, status, envelope{Success: true, Data: data})
}

func (h *handler) fail(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, envelope{Error: msg})
}

// failErr maps domain errors onto status codes.
func (h *handler) failErr(w http.ResponseWriter, err error) {
	var vfe *domain.ValidationFailedError
	switch {
	case errors.As(err, &vfe):
		h.respond(w, http.StatusUnprocessableEntity, envelope{Error: "validation failed", Errors: vfe.Errors})
	case domain.IsProductNotFoundError(err):
		h.fail(w, http.StatusNotFound, err.Error())
	case domain.IsInvalidProductError(err):
		h.fail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		h.fail(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	list := h.cat.Products()
	// data must be an array even when the catalog is empty
	if list == nil {
		list = []domain.Product{}
	}
	h.ok(w, http.StatusOK, list)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.cat.GetByID(id)
	if !ok {
		h.failErr(w, domain.NewProductNotFoundError(id))
		return
	}
	h.ok(w, http.StatusOK, p)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, h.cat.Stats())
}

func (h *handler) query(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.failErr(w, err)
		return
	}
	if err := q.Validate(); err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, http.StatusOK, h.cat.Run(q))
}

func (h *handler) decodeForm(w http.ResponseWriter, r *http.Request) (domain.ProductForm, bool) {
	var form domain.ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.log.Debug("decode request body", zap.Error(err))
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return form, false
	}
	return form, true
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	p, err := h.cat.CreateFromForm(form)
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, http.StatusCreated, p)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	p, err := h.cat.UpdateFromForm(chi.URLParam(r, "id"), form)
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, http.StatusOK, p)
}

// patch merges only the fields present in the body.
func (h *handler) patch(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.log.Debug("decode request body", zap.Error(err))
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Empty() {
		h.fail(w, http.StatusBadRequest, "no fields to update")
		return
	}
	p, err := h.cat.Patch(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, http.StatusOK, p)
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.cat.Remove(chi.URLParam(r, "id")); err != nil {
		h.failErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseQuery reads query.Query from URL parameters. Absent parameters keep
// the defaults.
func parseQuery(r *http.Request) (query.Query, error) {
	v := r.URL.Query()
	q := query.DefaultQuery()

	q.Category = domain.Category(v.Get("category"))
	q.SearchQuery = v.Get("search")
	if s := v.Get("sortBy"); s != "" {
		q.SortBy = domain.SortKey(s)
	}
	if s := v.Get("sortOrder"); s != "" {
		q.SortOrder = domain.SortOrder(s)
	}
	if s := v.Get("priceRange"); s != "" {
		pr, ok := domain.PriceRangeByKey(s)
		if !ok {
			return q, domain.NewInvalidProductError("priceRange", "unknown price range", s)
		}
		q.ProductFilters = pr.Filters(q.ProductFilters)
	}

	for _, p := range []struct {
		name string
		dst  **float64
	}{{"minPrice", &q.MinPrice}, {"maxPrice", &q.MaxPrice}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		d, err := validation.ParsePrice(s)
		if err != nil {
			return q, domain.NewInvalidProductError(p.name, "must be a number", s)
		}
		f := d.InexactFloat64()
		*p.dst = &f
	}

	if s := v.Get("inStock"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, domain.NewInvalidProductError("inStock", "must be true or false", s)
		}
		q.InStock = &b
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"limit", &q.Limit}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, domain.NewInvalidProductError(p.name, "must be an integer", s)
		}
		*p.dst = n
	}
	return q, nil
}
