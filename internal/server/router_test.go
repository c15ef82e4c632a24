package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skillforge/skillforge-backend/internal/catalog"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	"github.com/skillforge/skillforge-backend/internal/server"
	"github.com/skillforge/skillforge-backend/internal/services"
)

func TestRouterCatalogSearch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	all := repos.NewAll(tx, log)

	model := catalog.New(tx, all.Policies, nil, time.Minute, log)
	svc := services.NewCatalogService(model, log)
	router := server.NewRouter(server.RouterConfig{DB: tx, Catalog: svc})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/catalog/search", strings.NewReader(`{"limit":5}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from catalog search, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"courses"`) {
		t.Fatalf("expected a page document, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/catalog/search", strings.NewReader(`{"limit":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed filter, got %d", w.Code)
	}
}

func TestRouterHealthz(t *testing.T) {
	router := server.NewRouter(server.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", w.Code)
	}

	// No catalog service wired means no catalog route.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/catalog/search", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without catalog wiring, got %d", w.Code)
	}
}
