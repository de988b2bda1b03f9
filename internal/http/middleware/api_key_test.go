package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
)

func run(t *testing.T, configured, sent string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sent != "" {
		req.Header.Set("X-API-Key", sent)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := APIKeyMiddleware(configured)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestAPIKeyMiddleware(t *testing.T) {
	if rec := run(t, "secret", "secret"); rec.Code != http.StatusOK {
		t.Fatalf("valid key rejected: %d", rec.Code)
	}
	if rec := run(t, "secret", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid key accepted: %d", rec.Code)
	}
	if rec := run(t, "secret", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key accepted: %d", rec.Code)
	}
	// empty configured key disables the check
	if rec := run(t, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("open mode rejected: %d", rec.Code)
	}
}
