package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(t *testing.T, allowed []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	handler := CORSMiddleware(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	req := httptest.NewRequest(method, "/api/pois/discover", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, reached
}

func TestCORSAllowedOrigin(t *testing.T) {
	rec, reached := corsRequest(t, []string{"http://localhost:3000"}, http.MethodGet, "http://localhost:3000")
	if !reached {
		t.Fatal("handler not reached for allowed origin")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORSUnknownOriginPassesThroughWithoutHeaders(t *testing.T) {
	rec, reached := corsRequest(t, []string{"http://localhost:3000"}, http.MethodGet, "http://evil.example")
	if !reached {
		t.Fatal("handler not reached")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Allow-Origin %q for unknown origin", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec, reached := corsRequest(t, []string{"http://localhost:3000"}, http.MethodOptions, "http://localhost:3000")
	if reached {
		t.Error("preflight should be answered by the middleware")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight missing Allow-Methods header")
	}
}

func TestCORSWildcard(t *testing.T) {
	rec, _ := corsRequest(t, []string{"*"}, http.MethodGet, "http://anywhere.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://anywhere.example" {
		t.Errorf("wildcard Allow-Origin = %q", got)
	}
}

func TestAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://one.example,https://two.example")
	got := AllowedOrigins()
	if len(got) != 2 || got[0] != "https://one.example" || got[1] != "https://two.example" {
		t.Errorf("AllowedOrigins = %v", got)
	}

	t.Setenv("ALLOWED_ORIGINS", "")
	got = AllowedOrigins()
	if len(got) != len(defaultAllowedOrigins) {
		t.Errorf("AllowedOrigins default = %v", got)
	}
}
