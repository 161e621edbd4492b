// Package client is a stateful API consumer for one entity collection.
// It tracks the current page, search term and loading state, debounces
// rapid search changes and discards out-of-order responses, so callers
// always observe the result of the newest request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/store"
)

const defaultDebounce = 300 * time.Millisecond

// State is a point-in-time snapshot of the client.
type State struct {
	Data    []store.Record
	Loading bool
	Err     error
	Total   int
	Page    int
	Limit   int
	Search  string
}

// EntityClient fetches and mutates one entity collection.
type EntityClient struct {
	base     string
	plural   string
	entity   string
	token    string
	http     *http.Client
	debounce time.Duration

	mu      sync.Mutex
	data    []store.Record
	err     error
	loading bool
	total   int
	page    int
	limit   int
	search  string
	seq     uint64
	timer   *time.Timer
}

// Option configures an EntityClient.
type Option func(*EntityClient)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *EntityClient) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *EntityClient) { c.http = hc }
}

// WithDebounce overrides the search debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(c *EntityClient) { c.debounce = d }
}

// WithLimit sets the page size.
func WithLimit(limit int) Option {
	return func(c *EntityClient) { c.limit = limit }
}

// New builds a client for /api/{plural} on the given base URL. The
// entity name keys mutation response envelopes.
func New(base, plural, entity string, opts ...Option) *EntityClient {
	c := &EntityClient{
		base:     base,
		plural:   plural,
		entity:   entity,
		http:     http.DefaultClient,
		debounce: defaultDebounce,
		page:     1,
		limit:    10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current client state.
func (c *EntityClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Data:    c.data,
		Loading: c.loading,
		Err:     c.err,
		Total:   c.total,
		Page:    c.page,
		Limit:   c.limit,
		Search:  c.search,
	}
}

// Fetch loads the current page. A completion is discarded whenever a
// newer request has been issued since, even one still in flight, so
// state only ever reflects the newest query.
func (c *EntityClient) Fetch(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.seq++
	seq := c.seq
	page, limit, search := c.page, c.limit, c.search
	c.mu.Unlock()

	items, total, gotPage, err := c.fetchPage(ctx, page, limit, search)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.seq {
		// Superseded while in flight; the newer request owns the state.
		return nil
	}
	c.loading = false
	if err != nil {
		// Prior data stays visible alongside the error.
		c.err = err
		return err
	}
	c.err = nil
	c.data = items
	c.total = total
	c.page = gotPage
	return nil
}

// SetPage jumps to a page and fetches it immediately.
func (c *EntityClient) SetPage(ctx context.Context, page int) error {
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// SetLimit changes the page size and fetches the first page.
func (c *EntityClient) SetLimit(ctx context.Context, limit int) error {
	c.mu.Lock()
	c.limit = limit
	c.page = 1
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// SetSearch stores a new search term and schedules a fetch after the
// debounce interval. Rapid successive calls collapse into one request
// for the final term. The page resets to 1.
func (c *EntityClient) SetSearch(term string) {
	c.mu.Lock()
	c.search = term
	c.page = 1
	c.loading = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.Fetch(context.Background())
	})
	c.mu.Unlock()
}

// Create posts a record and refreshes the current page.
func (c *EntityClient) Create(ctx context.Context, record store.Record) (store.Record, error) {
	created, err := c.mutate(ctx, http.MethodPost, c.collectionURL(), record)
	if err != nil {
		return nil, err
	}
	c.Fetch(ctx)
	return created, nil
}

// Update puts a partial record and refreshes the current page.
func (c *EntityClient) Update(ctx context.Context, id int64, record store.Record) (store.Record, error) {
	updated, err := c.mutate(ctx, http.MethodPut, c.recordURL(id), record)
	if err != nil {
		return nil, err
	}
	c.Fetch(ctx)
	return updated, nil
}

// Delete removes a record and refreshes the current page.
func (c *EntityClient) Delete(ctx context.Context, id int64) error {
	resp, err := c.send(ctx, http.MethodDelete, c.recordURL(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	c.Fetch(ctx)
	return nil
}

// BulkCreate posts a batch and refreshes the current page.
func (c *EntityClient) BulkCreate(ctx context.Context, records []store.Record) ([]store.Record, error) {
	resp, err := c.send(ctx, http.MethodPost, c.collectionURL()+"/bulk", records)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var envelope struct {
		Created []store.Record `json:"created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, goerr.Wrap(err, "failed to decode bulk response")
	}
	c.Fetch(ctx)
	return envelope.Created, nil
}

func (c *EntityClient) fetchPage(ctx context.Context, page, limit int, search string) ([]store.Record, int, int, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if search != "" {
		query.Set("search", search)
	}

	resp, err := c.send(ctx, http.MethodGet, c.collectionURL()+"?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, 0, 0, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, goerr.Wrap(err, "failed to read list response")
	}
	return c.decodeList(body, page)
}

// decodeList accepts both the standard envelope and a bare array, the
// two shapes list endpoints are known to produce.
func (c *EntityClient) decodeList(body []byte, requestedPage int) ([]store.Record, int, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []store.Record
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, 0, goerr.Wrap(err, "failed to decode list response")
		}
		return items, len(items), requestedPage, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, 0, 0, goerr.Wrap(err, "failed to decode list response")
	}

	var total, page int
	if raw, ok := envelope["total"]; ok {
		json.Unmarshal(raw, &total)
	}
	if raw, ok := envelope["page"]; ok {
		json.Unmarshal(raw, &page)
	}
	if page == 0 {
		page = requestedPage
	}

	var items []store.Record
	if raw, ok := envelope[c.plural]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, 0, goerr.Wrap(err, "failed to decode records",
				goerr.V("key", c.plural))
		}
	}
	return items, total, page, nil
}

func (c *EntityClient) mutate(ctx context.Context, method, target string, record store.Record) (store.Record, error) {
	resp, err := c.send(ctx, method, target, record)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, goerr.Wrap(err, "failed to decode mutation response")
	}
	var record2 store.Record
	if raw, ok := envelope[c.entity]; ok {
		if err := json.Unmarshal(raw, &record2); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("key", c.entity))
		}
	}
	return record2, nil
}

func (c *EntityClient) send(ctx context.Context, method, target string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V("url", target))
	}
	return resp, nil
}

func (c *EntityClient) collectionURL() string {
	return c.base + "/api/" + c.plural
}

func (c *EntityClient) recordURL(id int64) string {
	return c.collectionURL() + "/" + strconv.FormatInt(id, 10)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Message string `json:"message"`
	}
	message := ""
	if json.Unmarshal(body, &payload) == nil {
		message = payload.Message
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return goerr.New(message, goerr.V("status", resp.StatusCode))
}
