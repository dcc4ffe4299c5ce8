package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/teamsync/internal/middleware"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		status    int
		wantLevel string
	}{
		{"state poll is debug", http.MethodGet, "/api/state", http.StatusOK, "level=DEBUG"},
		{"failed poll is info", http.MethodGet, "/api/state", http.StatusInternalServerError, "level=INFO"},
		{"message is info", http.MethodPost, "/api/messages", http.StatusAccepted, "level=INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("hello"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, "path="+tt.path)
			assert.Contains(t, out, "bytes=5")
		})
	}
}
