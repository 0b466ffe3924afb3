package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRecoveryConvertsPanicToJSON(t *testing.T) {
	f := newFixture(t, 1.0)
	f.router.GET("/api/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	resp := f.do(t, http.MethodGet, "/api/boom", "", nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("expected JSON error body, got %s", resp.Body.String())
	}
	if !strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("expected JSON content type, got %s", resp.Header().Get("Content-Type"))
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, 1.0)

	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "components") {
		t.Fatalf("expected component breakdown: %s", resp.Body.String())
	}
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t, 1.0)

	resp := f.do(t, http.MethodGet, "/healthz", "", map[string]string{"X-Request-ID": "req-echo"})
	if resp.Header().Get("X-Request-ID") != "req-echo" {
		t.Fatalf("expected request id echo, got %q", resp.Header().Get("X-Request-ID"))
	}
}
