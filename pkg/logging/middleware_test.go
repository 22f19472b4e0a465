package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo, false)
	defer SetOutput(&bytes.Buffer{}, slog.LevelInfo, false)

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "abcdef0123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/terms/GO:1", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if got == "" || got != seen {
				t.Errorf("header id %q, context id %q", got, seen)
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("request id = %q, want %q", got, tt.incoming)
			}
			if !strings.Contains(buf.String(), "request rejected") || !strings.Contains(buf.String(), "status=404") {
				t.Errorf("log output %q", buf.String())
			}
		})
	}
}
