package handlers

import (
	"net/http"

	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/web/response"
)

// GetHandler handles GET requests for a single record.
type GetHandler struct{}

// Handle handles single-record requests.
func (h *GetHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService, principal service.Principal, id int64) {
	record, err := svc.GetByID(r.Context(), principal, id)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteRecord(w, record)
}
