package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web/response"
)

// BulkHandler handles POST requests for transactional batch creation.
type BulkHandler struct{}

// Handle handles bulk create requests. The batch either commits as a
// whole or not at all.
func (h *BulkHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService, principal service.Principal) {
	var inputs []store.Record
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		response.WriteError(w, apperr.Validation("request body must be a JSON array"))
		return
	}

	created, err := svc.BulkCreate(r.Context(), principal, inputs)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	message := fmt.Sprintf("%d %s created successfully",
		len(created), svc.Schema().DisplayNamePlural)
	response.WriteBulk(w, message, created)
}
