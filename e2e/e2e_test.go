package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/xcono/parkrest/client"
	"github.com/xcono/parkrest/migrate"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web"
	"github.com/xcono/parkrest/web/auth"

	_ "github.com/go-sql-driver/mysql"
)

var serverURL string

// TestMain starts one MySQL container and one API server shared by every
// test in the package.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcmysql.RunContainer(ctx,
		testcontainers.WithImage("mysql:8.4"),
		tcmysql.WithDatabase("parkrest"),
		tcmysql.WithUsername("testuser"),
		tcmysql.WithPassword("testpass"),
	)
	if err != nil {
		log.Fatalf("failed to start mysql container: %v", err)
	}
	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			log.Printf("warning: failed to terminate container: %v", err)
		}
	}()

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}
	dsn := "mysql://" + uri

	db, err := schema.OpenDB(dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	registry := schema.DefaultRegistry()
	exec := store.NewExecutor(db)
	flavor := store.FlavorForDSN(dsn)

	if err := migrate.CreateTables(ctx, exec, registry, flavor); err != nil {
		log.Fatalf("failed to create tables: %v", err)
	}
	if err := migrate.SeedAdmin(ctx, exec, flavor, "admin@parkrest.local", "admin-secret"); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	factory := service.NewFactory(registry, exec, flavor)
	issuer := auth.NewTokenIssuer("e2e-secret", time.Hour)
	server := httptest.NewServer(web.NewMux(factory, exec, flavor, issuer))
	defer server.Close()
	serverURL = server.URL

	os.Exit(m.Run())
}

type session struct {
	token string
	user  map[string]any
}

func register(t *testing.T, name, email, password string) *session {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, password)
	resp, err := http.Post(serverURL+"/auth/register", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d", resp.StatusCode)
	}

	var payload struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return &session{token: payload.Token, user: payload.User}
}

func login(t *testing.T, email, password string) *session {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	resp, err := http.Post(serverURL+"/auth/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}

	var payload struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return &session{token: payload.Token, user: payload.User}
}

func vehicleRecord(plate string) store.Record {
	return store.Record{
		"plateNumber": plate,
		"vehicleType": "Car",
		"size":        "Medium",
		"model":       "Corolla",
		"color":       "Blue",
		"year":        2020,
	}
}

func TestFullVehicleLifecycle(t *testing.T) {
	user := register(t, "Eve", "eve@example.com", "hunter2")
	ctx := context.Background()

	vehicles := client.New(serverURL, "vehicles", "vehicle", client.WithToken(user.token))

	created, err := vehicles.Create(ctx, vehicleRecord("E2E001"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created["status"] != "Available" {
		t.Errorf("expected default status Available, got %v", created["status"])
	}
	if _, ok := created["userId"]; ok {
		t.Error("owner field leaked into response")
	}

	id := int64(created["id"].(float64))
	updated, err := vehicles.Update(ctx, id, store.Record{"status": "Parked"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated["status"] != "Parked" {
		t.Errorf("expected Parked, got %v", updated["status"])
	}
	if updated["plateNumber"] != "E2E001" {
		t.Errorf("partial update clobbered plate: %v", updated["plateNumber"])
	}

	// Duplicate plates are rejected by the unique constraint.
	if _, err := vehicles.Create(ctx, vehicleRecord("E2E001")); err == nil {
		t.Error("expected duplicate plate to fail")
	}

	if err := vehicles.Delete(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := vehicles.Delete(ctx, id); err == nil {
		t.Error("expected second delete to fail")
	}
}

func TestOwnershipAcrossUsers(t *testing.T) {
	owner := register(t, "Olive", "olive@example.com", "hunter2")
	other := register(t, "Oscar", "oscar@example.com", "hunter2")
	admin := login(t, "admin@parkrest.local", "admin-secret")
	ctx := context.Background()

	ownerClient := client.New(serverURL, "vehicles", "vehicle", client.WithToken(owner.token))
	created, err := ownerClient.Create(ctx, vehicleRecord("OWN001"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := int64(created["id"].(float64))

	otherClient := client.New(serverURL, "vehicles", "vehicle", client.WithToken(other.token))
	if _, err := otherClient.Update(ctx, id, store.Record{"color": "Red"}); err == nil {
		t.Error("expected foreign update to fail")
	}
	if err := otherClient.Fetch(ctx); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	for _, item := range otherClient.State().Data {
		if item["plateNumber"] == "OWN001" {
			t.Error("foreign vehicle visible in scoped list")
		}
	}

	adminClient := client.New(serverURL, "vehicles", "vehicle", client.WithToken(admin.token))
	if _, err := adminClient.Update(ctx, id, store.Record{"status": "Pending"}); err != nil {
		t.Errorf("admin update failed: %v", err)
	}
}

func TestAdminOnlySlotManagement(t *testing.T) {
	user := register(t, "Sam", "sam@example.com", "hunter2")
	admin := login(t, "admin@parkrest.local", "admin-secret")
	ctx := context.Background()

	slot := store.Record{
		"slotNumber": "E2E-01", "size": "Large", "vehicleType": "Truck", "location": "Level 2",
	}

	userClient := client.New(serverURL, "slots", "slot", client.WithToken(user.token))
	if _, err := userClient.Create(ctx, slot); err == nil {
		t.Error("expected slot creation to be admin-only")
	}

	adminClient := client.New(serverURL, "slots", "slot", client.WithToken(admin.token))
	created, err := adminClient.Create(ctx, slot)
	if err != nil {
		t.Fatalf("admin slot creation failed: %v", err)
	}
	if created["status"] != "Available" {
		t.Errorf("expected default status, got %v", created["status"])
	}
}

func TestBulkRequestFlow(t *testing.T) {
	user := register(t, "Bea", "bea@example.com", "hunter2")
	ctx := context.Background()

	vehicles := client.New(serverURL, "vehicles", "vehicle", client.WithToken(user.token))
	created, err := vehicles.BulkCreate(ctx, []store.Record{
		vehicleRecord("BLK001"),
		vehicleRecord("BLK002"),
		vehicleRecord("BLK003"),
	})
	if err != nil {
		t.Fatalf("bulk create failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 created, got %d", len(created))
	}

	// A batch with a duplicate inside rolls back entirely.
	_, err = vehicles.BulkCreate(ctx, []store.Record{
		vehicleRecord("BLK004"),
		vehicleRecord("BLK004"),
	})
	if err == nil {
		t.Fatal("expected duplicate batch to fail")
	}
	vehicles.SetSearch("BLK004")
	time.Sleep(time.Second)
	if total := vehicles.State().Total; total != 0 {
		t.Errorf("expected rollback to leave nothing, found %d", total)
	}
}

func TestServerRenderedTable(t *testing.T) {
	admin := login(t, "admin@parkrest.local", "admin-secret")

	req, err := http.NewRequest(http.MethodGet, serverURL+"/ui/vehicles", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+admin.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML, got %q", ct)
	}
}

