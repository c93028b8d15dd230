package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouterFixtureWithOrigins(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	users := newMemUserRepo()
	deps := APIDeps{
		Auth:         NewRepositoryAuthService(users),
		Tokens:       NewTokenService("test-secret", 30),
		Users:        users,
		Customers:    newMemCustomerRepo(),
		Partnerships: newMemPartnershipRepo(),
		Financials:   &memFinancialRepo{},
		Activity:     &memActivityRepo{},
		Recorder:     NewActivityRecorder(nil),
	}
	return NewRouter(Config{AllowedOrigins: origins}, deps)
}

func TestCORSPreflightAllowedByDefault(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	router := newRouterFixtureWithOrigins(t, []string{"https://admin.kampus.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	router := newRouterFixtureWithOrigins(t, []string{"https://admin.kampus.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://admin.kampus.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.kampus.com" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestSystemStatusEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "gokhan@kampus.com", "owner-pass", nil)

	w := f.do(t, http.MethodGet, "/api/system-status", f.token(t, "gokhan@kampus.com"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if _, ok := body["queue"]; !ok {
		t.Fatalf("missing queue section: %v", body)
	}
	if _, ok := body["workers"]; !ok {
		t.Fatalf("missing workers section: %v", body)
	}
}
