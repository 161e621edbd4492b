package response

import (
	"encoding/json"
	"net/http"

	"github.com/xcono/parkrest/store"
)

// WriteList writes one page of records keyed by the entity's plural name:
// {"total": 12, "page": 1, "vehicles": [...]}.
func WriteList(w http.ResponseWriter, plural string, result store.Result) {
	items := result.Items
	if items == nil {
		items = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": result.Total,
		"page":  result.Page,
		plural:  items,
	})
}

// WriteRecord writes a single record as a bare object.
func WriteRecord(w http.ResponseWriter, record store.Record) {
	writeJSON(w, http.StatusOK, record)
}

// WriteMutation writes a mutation result: a human-readable message plus
// the affected record keyed by the entity's singular name.
func WriteMutation(w http.ResponseWriter, statusCode int, message, entity string, record store.Record) {
	writeJSON(w, statusCode, map[string]any{
		"message": message,
		entity:    record,
	})
}

// WriteBulk writes the result of a batch insert.
func WriteBulk(w http.ResponseWriter, message string, created []store.Record) {
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": message,
		"created": created,
	})
}

// WriteMessage writes a bare message object.
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"message": message})
}

// WriteJSON writes an arbitrary payload with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	writeJSON(w, statusCode, payload)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
