package handlers

import (
	"net/http"

	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/web/response"
)

// ListHandler handles GET requests for one page of records.
type ListHandler struct{}

// Handle handles list requests.
func (h *ListHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService, principal service.Principal) {
	result, err := svc.List(r.Context(), principal, parsePage(r))
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteList(w, svc.Schema().PluralName, result)
}
