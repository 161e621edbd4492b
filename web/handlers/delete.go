package handlers

import (
	"net/http"

	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/web/response"
)

// DeleteHandler handles DELETE requests.
type DeleteHandler struct{}

// Handle handles delete requests.
func (h *DeleteHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService, principal service.Principal, id int64) {
	if err := svc.Delete(r.Context(), principal, id); err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteMessage(w, http.StatusOK, svc.Schema().DisplayName+" deleted successfully")
}
