package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web/response"
)

// CreateHandler handles POST requests for record creation.
type CreateHandler struct{}

// Handle handles create requests.
func (h *CreateHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService, principal service.Principal) {
	var input store.Record
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, apperr.Validation("invalid JSON in request body"))
		return
	}

	record, err := svc.Create(r.Context(), principal, input)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	s := svc.Schema()
	response.WriteMutation(w, http.StatusCreated,
		s.DisplayName+" created successfully", s.Name, record)
}
