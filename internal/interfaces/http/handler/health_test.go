package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Ready(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := checkerFunc(func(context.Context) error { return nil })
	down := checkerFunc(func(context.Context) error { return errors.New("connection refused") })

	blocked := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	tests := []struct {
		name   string
		h      *HealthHandler
		status int
		failed string
	}{
		{name: "all ok", h: NewHealthHandler(ok, ok, filepath.Join(t.TempDir(), "out"), "v1"), status: http.StatusOK},
		{name: "redis down", h: NewHealthHandler(ok, down, t.TempDir(), "v1"), status: http.StatusServiceUnavailable, failed: "redis"},
		{name: "output root is a file", h: NewHealthHandler(ok, ok, blocked, "v1"), status: http.StatusServiceUnavailable, failed: "output_root"},
		{name: "postgres missing", h: NewHealthHandler(nil, ok, t.TempDir(), "v1"), status: http.StatusServiceUnavailable, failed: "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/ready", tt.h.Ready)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.status, w.Code)
			var resp readinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Checks, 3)
			if tt.failed != "" {
				assert.Equal(t, "not_ready", resp.Status)
				assert.NotEqual(t, "ok", resp.Checks[tt.failed].Status)
			}
		})
	}
}
