package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// traceID runs one request through the middleware and returns the id seen by
// the inner handler and the one echoed on the response.
func traceID(t *testing.T, incoming string) (inContext, inHeader string) {
	t.Helper()
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inContext = RequestIDFromRequest(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	if incoming != "" {
		req.Header.Set("X-Request-Id", incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return inContext, rec.Header().Get("X-Request-Id")
}

func TestWithRequestID(t *testing.T) {
	t.Run("propagates incoming header", func(t *testing.T) {
		inContext, inHeader := traceID(t, "trace-abc-123")
		if inContext != "trace-abc-123" || inHeader != "trace-abc-123" {
			t.Fatalf("context %q header %q, want incoming id in both", inContext, inHeader)
		}
	})

	t.Run("generates when missing", func(t *testing.T) {
		inContext, inHeader := traceID(t, "")
		if inContext == "" || inContext != inHeader {
			t.Fatalf("context %q header %q, want one generated id in both", inContext, inHeader)
		}
		if len(inContext) != 24 {
			t.Fatalf("generated id %q, want 12-byte hex", inContext)
		}
	})

	t.Run("generated ids differ per request", func(t *testing.T) {
		first, _ := traceID(t, "")
		second, _ := traceID(t, "")
		if first == second {
			t.Fatalf("two requests share id %q", first)
		}
	})
}

func TestRequestIDFromContextDefaults(t *testing.T) {
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("nil context id = %q, want empty", got)
	}
	if got := RequestIDFromRequest(nil); got != "" {
		t.Fatalf("nil request id = %q, want empty", got)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	if got := RequestIDFromRequest(req); got != "" {
		t.Fatalf("bare request id = %q, want empty", got)
	}
}
