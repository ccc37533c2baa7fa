//go:build integration

package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"inventory-monitor-api/internal"
	"inventory-monitor-api/internal/auth"
	"inventory-monitor-api/internal/config"
	"inventory-monitor-api/internal/testutil"
)

const testJWTSecret = "supersecretkeyforintegrationtestingonly"

var testServer *internal.Server
var testDB *sql.DB

func TestMain(m *testing.M) {
	// Skip if not running integration tests
	if os.Getenv("INTEGRATION") != "1" {
		os.Exit(0)
	}

	// Setup test database
	testDB = testutil.NewTestDB(&testing.T{})

	// Reset schema for clean state
	testutil.ResetSchema(&testing.T{}, testDB)

	// Create test config
	rt, err := config.LoadRuntime("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "runtime config:", err)
		os.Exit(1)
	}
	rt.RateLimitPerSec = 0 // no throttling inside tests
	cfg := &config.Config{
		JWTSecret:   testJWTSecret,
		JWTIssuer:   "inventory-monitor-api",
		JWTAudience: "inventory-monitor-api",
		JWTExpiry:   24 * time.Hour,
		Runtime:     rt,
	}

	// Create test server with the metrics surface enabled
	os.Setenv("ENABLE_METRICS", "true")
	testServer = internal.NewServer(testutil.TestDSN(), cfg)

	// Run tests
	code := m.Run()

	// Cleanup
	if testServer != nil {
		testServer.Close(context.Background())
	}
	if testDB != nil {
		testDB.Close()
	}

	os.Exit(code)
}

// authToken issues a token with the given roles for request helpers.
func authToken(t *testing.T, roles ...string) string {
	t.Helper()
	jwtManager := auth.NewJWTManager(
		testJWTSecret,
		"inventory-monitor-api",
		"inventory-monitor-api",
		24*time.Hour,
	)
	token, err := jwtManager.GenerateToken(1, roles)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	return token
}

// doRequest runs a request with an admin token through the full router.
func doRequest(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRequestAs(t, method, path, body, "admin")
}

func doRequestAs(t *testing.T, method, path string, body interface{}, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Authorization", "Bearer "+authToken(t, roles...))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	testutil.RequireIntegration(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	testServer.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got '%s'", w.Body.String())
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	testutil.RequireIntegration(t)

	// Drive one request through the middleware so the counter exists.
	req := httptest.NewRequest("GET", "/health", nil)
	testServer.Router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("Expected metrics output to contain http_requests_total")
	}
}

func TestUnauthorizedAccess(t *testing.T) {
	testutil.RequireIntegration(t)

	req := httptest.NewRequest("GET", "/assets", nil)
	w := httptest.NewRecorder()

	testServer.Router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestInvalidToken(t *testing.T) {
	testutil.RequireIntegration(t)

	req := httptest.NewRequest("GET", "/assets", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	w := httptest.NewRecorder()

	testServer.Router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestValidToken(t *testing.T) {
	testutil.RequireIntegration(t)

	w := doRequestAs(t, "GET", "/assets", nil, "viewer")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestInsufficientPermissions(t *testing.T) {
	testutil.RequireIntegration(t)

	// Viewers can read but never write.
	w := doRequestAs(t, "POST", "/assets", map[string]string{"serial": "PERM-1"}, "viewer")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}
