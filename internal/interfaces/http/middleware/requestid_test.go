package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	tests := []struct {
		name string
		in   string
		keep bool
	}{
		{name: "client id kept", in: "req-123_abc.1", keep: true},
		{name: "missing", in: ""},
		{name: "newline injection", in: "abc\nlevel=ERROR"},
		{name: "too long", in: strings.Repeat("a", maxRequestIDLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.in != "" {
				req.Header.Set(RequestIDHeader, tt.in)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.keep {
				assert.Equal(t, tt.in, got)
			} else {
				assert.NotEqual(t, tt.in, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestRouteLabelAndTraceFilter(t *testing.T) {
	assert.Equal(t, "unknown", routeLabel(""))
	assert.Equal(t, "/static", routeLabel("/static/:dir/*filepath"))
	assert.Equal(t, "/deploy", routeLabel("/deploy/:key/*filepath"))
	assert.Equal(t, "/api/v1/apps/:id", routeLabel("/api/v1/apps/:id"))

	assert.False(t, traced(httptest.NewRequest(http.MethodGet, "/health", nil)))
	assert.False(t, traced(httptest.NewRequest(http.MethodGet, "/deploy/abc123/index.html", nil)))
	assert.True(t, traced(httptest.NewRequest(http.MethodGet, "/api/v1/apps/1/chat/gen/code", nil)))
}
