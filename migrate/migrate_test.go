package migrate_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xcono/parkrest/migrate"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
	"golang.org/x/crypto/bcrypt"
)

func openMemory(t *testing.T) *store.Executor {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewExecutor(db)
}

func TestCreateTablesIsIdempotent(t *testing.T) {
	exec := openMemory(t)
	registry := schema.DefaultRegistry()
	ctx := context.Background()

	require.NoError(t, migrate.CreateTables(ctx, exec, registry, sqlbuilder.SQLite))
	require.NoError(t, migrate.CreateTables(ctx, exec, registry, sqlbuilder.SQLite))

	rows, err := exec.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())

	for _, want := range []string{"users", "vehicles", "requests", "slots"} {
		assert.Contains(t, tables, want)
	}
}

func TestTableDDLShape(t *testing.T) {
	registry := schema.DefaultRegistry()
	s, err := registry.Resolve("vehicle")
	require.NoError(t, err)

	ddl, err := migrate.TableDDL(registry, s, sqlbuilder.SQLite)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ddl, "CREATE TABLE IF NOT EXISTS vehicles"))
	assert.Contains(t, ddl, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, ddl, "plateNumber TEXT NOT NULL UNIQUE")
	assert.Contains(t, ddl, "status TEXT DEFAULT 'Available'")
	assert.Contains(t, ddl, "FOREIGN KEY (userId) REFERENCES users (id)")
}

func TestTableDDLResolvesRelationTarget(t *testing.T) {
	// The FK target comes from the registered schema, not from naive
	// pluralization of the relation name.
	registry := schema.NewRegistry()
	require.NoError(t, registry.Register(schema.EntitySchema{
		Name:              "person",
		PluralName:        "people",
		DisplayName:       "Person",
		DisplayNamePlural: "People",
		Icon:              schema.IconUser,
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeNumber, Primary: true},
			{Name: "name", Type: schema.TypeText, Required: true},
		},
	}))
	require.NoError(t, registry.Register(schema.EntitySchema{
		Name:              "badge",
		PluralName:        "badges",
		DisplayName:       "Badge",
		DisplayNamePlural: "Badges",
		Icon:              schema.IconUser,
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeNumber, Primary: true},
			{Name: "personId", Type: schema.TypeRelation, RelationTo: "person", DisplayField: "name"},
		},
	}))
	require.NoError(t, registry.Finalize())

	s, err := registry.Resolve("badge")
	require.NoError(t, err)
	ddl, err := migrate.TableDDL(registry, s, sqlbuilder.SQLite)
	require.NoError(t, err)

	assert.Contains(t, ddl, "FOREIGN KEY (personId) REFERENCES people (id)")
	assert.NotContains(t, ddl, "persons")
}

func TestTableDDLFlavors(t *testing.T) {
	registry := schema.DefaultRegistry()
	s, err := registry.Resolve("user")
	require.NoError(t, err)

	mysqlDDL, err := migrate.TableDDL(registry, s, sqlbuilder.MySQL)
	require.NoError(t, err)
	assert.Contains(t, mysqlDDL, "id INT AUTO_INCREMENT PRIMARY KEY")
	assert.Contains(t, mysqlDDL, "email VARCHAR(255) NOT NULL UNIQUE")

	pgDDL, err := migrate.TableDDL(registry, s, sqlbuilder.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, pgDDL, "id SERIAL PRIMARY KEY")
	assert.Contains(t, pgDDL, "email TEXT NOT NULL UNIQUE")
}

func TestSeedAdmin(t *testing.T) {
	exec := openMemory(t)
	registry := schema.DefaultRegistry()
	ctx := context.Background()

	require.NoError(t, migrate.CreateTables(ctx, exec, registry, sqlbuilder.SQLite))
	require.NoError(t, migrate.SeedAdmin(ctx, exec, sqlbuilder.SQLite, "admin@example.com", "changeme"))
	// Seeding again must not create a duplicate.
	require.NoError(t, migrate.SeedAdmin(ctx, exec, sqlbuilder.SQLite, "admin@example.com", "changeme"))

	var count int
	err := exec.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", "admin@example.com").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var role, hashed string
	err = exec.QueryRow(ctx, "SELECT role, password FROM users WHERE email = ?", "admin@example.com").Scan(&role, &hashed)
	require.NoError(t, err)
	assert.Equal(t, "admin", role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("changeme")))
}
