package db

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
)

func openTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "nested", "pathoreport.db")
}

func TestHealthHandler_Healthy(t *testing.T) {
	db, err := Open(context.Background(), openTestDB(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler(db)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string    `json:"status"`
		Pool   PoolStats `json:"pool"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
	if body.Pool.SchemaVersion != 1 {
		t.Errorf("expected schema version 1, got %d", body.Pool.SchemaVersion)
	}
	if body.Pool.MaxOpenConns != 1 {
		t.Errorf("expected max open conns 1, got %d", body.Pool.MaxOpenConns)
	}
}

func TestHealthHandler_Closed(t *testing.T) {
	db, err := Open(context.Background(), openTestDB(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler(db)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
