package handlers

import (
	"net/http"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/store"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// parsePage reads pagination and search parameters from the query
// string. Missing or malformed values fall back to the defaults instead
// of failing the request.
func parsePage(r *http.Request) store.Page {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}

	return store.Page{Page: page, Limit: limit, Search: q.Get("search")}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid record id", goerr.V("id", raw))
	}
	return id, nil
}
