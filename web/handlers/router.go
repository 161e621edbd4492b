package handlers

import (
	"net/http"
	"strings"

	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/web/auth"
	"github.com/xcono/parkrest/web/response"
)

// Router resolves the entity from the URL and delegates to the handler
// for the HTTP method. Every entity shares the same handlers; behavior
// differences come from the entity schema, not from per-entity code.
type Router struct {
	factory *service.Factory

	listHandler   *ListHandler
	getHandler    *GetHandler
	createHandler *CreateHandler
	updateHandler *UpdateHandler
	deleteHandler *DeleteHandler
	bulkHandler   *BulkHandler
	metaHandler   *MetaHandler
}

// NewRouter creates a router over all registered entities.
func NewRouter(factory *service.Factory) *Router {
	return &Router{
		factory:       factory,
		listHandler:   &ListHandler{},
		getHandler:    &GetHandler{},
		createHandler: &CreateHandler{},
		updateHandler: &UpdateHandler{},
		deleteHandler: &DeleteHandler{},
		bulkHandler:   &BulkHandler{},
		metaHandler:   &MetaHandler{},
	}
}

// HandleEntity serves /api/{plural}, /api/{plural}/bulk,
// /api/{plural}/fields and /api/{plural}/{id}.
func (rt *Router) HandleEntity(w http.ResponseWriter, req *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(req.URL.Path, "/api"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		response.WriteError(w, apperr.Validation("entity name required"))
		return
	}

	svc, err := rt.factory.ServiceByPlural(parts[0])
	if err != nil {
		response.WriteError(w, err)
		return
	}

	principal, ok := auth.PrincipalFrom(req.Context())
	if !ok {
		response.WriteError(w, apperr.Unauthorized("authentication required"))
		return
	}

	if len(parts) == 1 {
		switch req.Method {
		case http.MethodGet:
			rt.listHandler.Handle(w, req, svc, principal)
		case http.MethodPost:
			rt.createHandler.Handle(w, req, svc, principal)
		default:
			response.WriteMethodNotAllowed(w, req.Method)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "bulk":
			if req.Method != http.MethodPost {
				response.WriteMethodNotAllowed(w, req.Method)
				return
			}
			rt.bulkHandler.Handle(w, req, svc, principal)
			return
		case "fields":
			if req.Method != http.MethodGet {
				response.WriteMethodNotAllowed(w, req.Method)
				return
			}
			rt.metaHandler.Handle(w, req, svc)
			return
		}

		id, err := parseID(parts[1])
		if err != nil {
			response.WriteError(w, err)
			return
		}
		switch req.Method {
		case http.MethodGet:
			rt.getHandler.Handle(w, req, svc, principal, id)
		case http.MethodPut:
			rt.updateHandler.Handle(w, req, svc, principal, id)
		case http.MethodDelete:
			rt.deleteHandler.Handle(w, req, svc, principal, id)
		default:
			response.WriteMethodNotAllowed(w, req.Method)
		}
		return
	}

	response.WriteError(w, apperr.NotFound("no such route"))
}
