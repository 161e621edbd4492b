package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web/response"
)

// UpdateHandler handles PUT requests for partial record updates.
type UpdateHandler struct{}

// Handle handles update requests.
func (h *UpdateHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService, principal service.Principal, id int64) {
	var input store.Record
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, apperr.Validation("invalid JSON in request body"))
		return
	}

	record, err := svc.Update(r.Context(), principal, id, input)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	s := svc.Schema()
	response.WriteMutation(w, http.StatusOK,
		s.DisplayName+" updated successfully", s.Name, record)
}
