package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func preflight(handler http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/tables/products/click", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, "+TerminalHeader)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsConfiguredTill(t *testing.T) {
	handler := CORSMiddleware([]string{"http://till.local"}, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := preflight(handler, "http://till.local")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://till.local" {
		t.Errorf("Expected till origin to be allowed, got %q", got)
	}

	w = preflight(handler, "http://elsewhere.local")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Unexpected origin allowed: %q", got)
	}
}

func TestDefaultStackDisablesCaching(t *testing.T) {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	stack := DefaultMiddlewareStack()
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tables/state/", nil))

	if w.Header().Get("Cache-Control") == "" {
		t.Error("Expected no-cache headers on state responses")
	}
}
