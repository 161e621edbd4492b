package handlers

import (
	"net/http"

	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/web/response"
)

// MetaHandler handles GET requests for the entity's presentation
// metadata, so generic clients can render forms and tables without
// entity-specific code.
type MetaHandler struct{}

// Handle handles metadata requests.
func (h *MetaHandler) Handle(w http.ResponseWriter, r *http.Request, svc *service.EntityService) {
	s := svc.Schema()
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"name":              s.Name,
		"pluralName":        s.PluralName,
		"displayName":       s.DisplayName,
		"displayNamePlural": s.DisplayNamePlural,
		"icon":              s.Icon,
		"fields":            svc.FieldDefinitions(),
		"views":             s.Views,
	})
}
