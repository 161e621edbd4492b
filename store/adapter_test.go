package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/huandu/go-sqlbuilder"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/migrate"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
)

func setupDB(t *testing.T) (*store.Executor, *schema.Registry) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	exec := store.NewExecutor(db)
	registry := schema.DefaultRegistry()
	require.NoError(t, migrate.CreateTables(context.Background(), exec, registry, sqlbuilder.SQLite))
	return exec, registry
}

func vehicleAdapter(t *testing.T, exec *store.Executor, registry *schema.Registry) *store.Adapter {
	t.Helper()
	s, err := registry.Resolve("vehicle")
	require.NoError(t, err)
	return store.NewAdapter(exec, s, sqlbuilder.SQLite)
}

func seedUser(t *testing.T, exec *store.Executor, registry *schema.Registry) int64 {
	t.Helper()
	s, err := registry.Resolve("user")
	require.NoError(t, err)
	users := store.NewAdapter(exec, s, sqlbuilder.SQLite)

	rec, err := users.Create(context.Background(), store.Record{
		"name": "Alice", "email": fmt.Sprintf("alice%d@example.com", nextEmail()), "password": "x", "role": "user",
	})
	require.NoError(t, err)
	return rec["id"].(int64)
}

var emailSeq int

func nextEmail() int {
	emailSeq++
	return emailSeq
}

func vehicleFields(plate string, userID int64) store.Record {
	return store.Record{
		"plateNumber": plate,
		"vehicleType": "Car",
		"size":        "Medium",
		"model":       "Corolla",
		"color":       "Blue",
		"year":        2020,
		"userId":      userID,
	}
}

func TestCreateRoundTrip(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	created, err := adapter.Create(ctx, vehicleFields("ABC123", userID))
	require.NoError(t, err)

	id, ok := created["id"].(int64)
	require.True(t, ok, "primary key assigned")

	got, err := adapter.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "ABC123", got["plateNumber"])
	assert.Equal(t, "Car", got["vehicleType"])
	assert.Equal(t, "Medium", got["size"])
	assert.Equal(t, userID, got["userId"])
	// Omitted optional field filled from its declared default.
	assert.Equal(t, "Available", got["status"])
}

func TestCreateDuplicatePlateIsConstraintError(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	_, err := adapter.Create(ctx, vehicleFields("ABC123", userID))
	require.NoError(t, err)

	_, err = adapter.Create(ctx, vehicleFields("ABC123", userID))
	require.Error(t, err)
	assert.True(t, apperr.IsConstraint(err), "expected constraint error, got: %v", err)
}

func TestCreateMissingOwnerIsConstraintError(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	ctx := context.Background()

	_, err := adapter.Create(ctx, vehicleFields("ABC123", 999))
	require.Error(t, err)
	assert.True(t, apperr.IsConstraint(err), "expected constraint error, got: %v", err)
}

func TestGetByIDNotFound(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)

	_, err := adapter.GetByID(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdatePartialMerge(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	created, err := adapter.Create(ctx, vehicleFields("ABC123", userID))
	require.NoError(t, err)
	id := created["id"].(int64)

	updated, err := adapter.Update(ctx, id, store.Record{"color": "Red"})
	require.NoError(t, err)

	assert.Equal(t, "Red", updated["color"])
	// Untouched fields keep their prior values.
	assert.Equal(t, "ABC123", updated["plateNumber"])
	assert.Equal(t, "Corolla", updated["model"])
}

func TestUpdateIsIdempotent(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	created, err := adapter.Create(ctx, vehicleFields("ABC123", userID))
	require.NoError(t, err)
	id := created["id"].(int64)

	patch := store.Record{"status": "Parked", "color": "Green"}
	once, err := adapter.Update(ctx, id, patch)
	require.NoError(t, err)
	twice, err := adapter.Update(ctx, id, patch)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestUpdateUnknownID(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)

	_, err := adapter.Update(context.Background(), 404, store.Record{"color": "Red"})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteTwiceIsNotFound(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	created, err := adapter.Create(ctx, vehicleFields("ABC123", userID))
	require.NoError(t, err)
	id := created["id"].(int64)

	require.NoError(t, adapter.Delete(ctx, id))

	err = adapter.Delete(ctx, id)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSearchPagination(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := adapter.Create(ctx, vehicleFields(fmt.Sprintf("PLT%03d", i), userID))
		require.NoError(t, err)
	}

	tests := []struct {
		page      int
		wantItems int
	}{
		{1, 5},
		{2, 5},
		{3, 2},
		{4, 0}, // out of range pages yield an empty slice, not an error
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			result, err := adapter.Search(ctx, store.Page{Page: tt.page, Limit: 5})
			require.NoError(t, err)
			assert.Equal(t, 12, result.Total)
			assert.Equal(t, tt.page, result.Page)
			assert.Len(t, result.Items, tt.wantItems)
			assert.LessOrEqual(t, len(result.Items), 5)
		})
	}
}

func TestSearchOrderedByDescendingCreation(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	for _, plate := range []string{"OLD111", "MID222", "NEW333"} {
		_, err := adapter.Create(ctx, vehicleFields(plate, userID))
		require.NoError(t, err)
	}

	result, err := adapter.Search(ctx, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "NEW333", result.Items[0]["plateNumber"])
	assert.Equal(t, "OLD111", result.Items[2]["plateNumber"])
}

func TestEmptySearchMatchesAll(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := adapter.Create(ctx, vehicleFields(fmt.Sprintf("PLT%03d", i), userID))
		require.NoError(t, err)
	}

	noParam, err := adapter.Search(ctx, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	empty, err := adapter.Search(ctx, store.Page{Page: 1, Limit: 10, Search: ""})
	require.NoError(t, err)

	assert.Equal(t, noParam.Total, empty.Total)
	assert.Equal(t, len(noParam.Items), len(empty.Items))
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	fields := vehicleFields("RAB123", userID)
	fields["model"] = "Landcruiser"
	_, err := adapter.Create(ctx, fields)
	require.NoError(t, err)
	_, err = adapter.Create(ctx, vehicleFields("XYZ789", userID))
	require.NoError(t, err)

	// Substring of model, mixed case.
	result, err := adapter.Search(ctx, store.Page{Page: 1, Limit: 10, Search: "CRUIS"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "RAB123", result.Items[0]["plateNumber"])
	assert.Equal(t, 1, result.Total)

	// Searchable fields are ORed: plate matches too.
	result, err = adapter.Search(ctx, store.Page{Page: 1, Limit: 10, Search: "xyz"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "XYZ789", result.Items[0]["plateNumber"])
}

func TestSearchOwnerScoped(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	alice := seedUser(t, exec, registry)
	bob := seedUser(t, exec, registry)
	ctx := context.Background()

	_, err := adapter.Create(ctx, vehicleFields("AAA111", alice))
	require.NoError(t, err)
	_, err = adapter.Create(ctx, vehicleFields("AAA222", alice))
	require.NoError(t, err)
	_, err = adapter.Create(ctx, vehicleFields("BBB111", bob))
	require.NoError(t, err)

	scoped, err := adapter.Search(ctx, store.Page{Page: 1, Limit: 10, Owner: alice})
	require.NoError(t, err)
	assert.Equal(t, 2, scoped.Total)
	for _, item := range scoped.Items {
		assert.Equal(t, alice, item["userId"])
	}

	// Owner scoping composes with the search predicate.
	scoped, err = adapter.Search(ctx, store.Page{Page: 1, Limit: 10, Search: "111", Owner: alice})
	require.NoError(t, err)
	require.Len(t, scoped.Items, 1)
	assert.Equal(t, "AAA111", scoped.Items[0]["plateNumber"])
}

func TestBulkCreateAllOrNothing(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	// Second record duplicates the first plate: the whole batch must
	// roll back, nothing commits.
	_, err := adapter.BulkCreate(ctx, []store.Record{
		vehicleFields("BULK01", userID),
		vehicleFields("BULK01", userID),
		vehicleFields("BULK02", userID),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConstraint(err), "expected constraint error, got: %v", err)

	result, err := adapter.Search(ctx, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestBulkCreateSuccess(t *testing.T) {
	exec, registry := setupDB(t)
	adapter := vehicleAdapter(t, exec, registry)
	userID := seedUser(t, exec, registry)
	ctx := context.Background()

	created, err := adapter.BulkCreate(ctx, []store.Record{
		vehicleFields("BULK01", userID),
		vehicleFields("BULK02", userID),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "BULK01", created[0]["plateNumber"])
	assert.Equal(t, "BULK02", created[1]["plateNumber"])
}
