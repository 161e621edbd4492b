package view

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web/auth"
	"github.com/xcono/parkrest/web/response"
)

// Handler serves /ui/{plural} and /ui/{plural}/form. Both pages require
// the same bearer token as the API and apply the same access rules.
type Handler struct {
	factory  *service.Factory
	renderer *Renderer
}

func NewHandler(factory *service.Factory, renderer *Renderer) *Handler {
	return &Handler{factory: factory, renderer: renderer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.WriteMethodNotAllowed(w, r.Method)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/ui"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		response.WriteError(w, apperr.Validation("entity name required"))
		return
	}

	svc, err := h.factory.ServiceByPlural(parts[0])
	if err != nil {
		response.WriteError(w, err)
		return
	}

	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		response.WriteError(w, apperr.Unauthorized("authentication required"))
		return
	}

	if len(parts) == 2 && parts[1] == "form" {
		var record store.Record
		if raw := r.URL.Query().Get("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				response.WriteError(w, apperr.Validation("invalid record id", goerr.V("id", raw)))
				return
			}
			record, err = svc.GetByID(r.Context(), principal, id)
			if err != nil {
				response.WriteError(w, err)
				return
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.renderer.RenderForm(w, svc.Schema(), record); err != nil {
			response.WriteError(w, err)
		}
		return
	}
	if len(parts) > 1 {
		response.WriteError(w, apperr.NotFound("no such page"))
		return
	}

	view, err := svc.ViewConfig("table")
	if err != nil {
		response.WriteError(w, err)
		return
	}

	result, err := svc.List(r.Context(), principal, pageFromQuery(r))
	if err != nil {
		response.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderTable(w, svc.Schema(), view, result); err != nil {
		response.WriteError(w, err)
	}
}

func pageFromQuery(r *http.Request) store.Page {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}
	return store.Page{Page: page, Limit: limit, Search: q.Get("search")}
}
