package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/namastexlabs/automagik-omni/internal/server"
)

func newKeyedEcho(apiKey string, skip func(c echo.Context) bool) *echo.Echo {
	e := echo.New()
	e.Use(server.APIKeyMiddleware(apiKey, skip))
	e.GET("/protected", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	return e
}

func request(e *echo.Echo, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()
	skip := func(c echo.Context) bool { return c.Request().URL.Path == "/health" }
	e := newKeyedEcho("secret", skip)

	if rec := request(e, "/protected", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key status = %d, want 401", rec.Code)
	}
	if rec := request(e, "/protected", map[string]string{"x-api-key": "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", rec.Code)
	}
	if rec := request(e, "/protected", map[string]string{"x-api-key": "secret"}); rec.Code != http.StatusOK {
		t.Fatalf("valid key status = %d, want 200", rec.Code)
	}
	if rec := request(e, "/protected", map[string]string{"Authorization": "Bearer secret"}); rec.Code != http.StatusOK {
		t.Fatalf("bearer key status = %d, want 200", rec.Code)
	}
	if rec := request(e, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("skipped route status = %d, want 200", rec.Code)
	}
}

func TestAPIKeyMiddlewareDisabled(t *testing.T) {
	t.Parallel()
	e := newKeyedEcho("", nil)
	if rec := request(e, "/protected", nil); rec.Code != http.StatusOK {
		t.Fatalf("empty configured key status = %d, want 200 (check disabled)", rec.Code)
	}
}
