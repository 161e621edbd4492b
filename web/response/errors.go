package response

import (
	"net/http"

	"github.com/xcono/parkrest/apperr"
	"github.com/zeromicro/go-zero/core/logx"
)

// WriteError maps a classified error onto its HTTP status. Unclassified
// errors are logged and surface as an opaque 500 so internals never leak
// to clients.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err))
	case apperr.IsConstraint(err):
		writeJSON(w, http.StatusConflict, errorBody(err))
	case apperr.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	case apperr.IsUnauthorized(err):
		writeJSON(w, http.StatusUnauthorized, errorBody(err))
	case apperr.IsForbidden(err):
		writeJSON(w, http.StatusForbidden, errorBody(err))
	case apperr.IsConfig(err):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	default:
		logx.Errorw("unhandled error", logx.Field("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "internal server error",
		})
	}
}

// WriteMethodNotAllowed rejects an unsupported HTTP method.
func WriteMethodNotAllowed(w http.ResponseWriter, method string) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"message": "method not allowed: " + method,
	})
}

// Failures use the same {message} envelope as successful mutations.
func errorBody(err error) map[string]any {
	return map[string]any{"message": err.Error()}
}
