package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	r := newRouter()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
}

func TestRequestIDPreservesUpstreamValue(t *testing.T) {
	r := newRouter()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(RequestIDHeader))
}

func TestSecurityHeadersSetsExpectedHeaders(t *testing.T) {
	r := newRouter()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestAllowedHTTPMethodsRejectsTrace(t *testing.T) {
	r := newRouter()
	r.Use(AllowedHTTPMethods())
	r.Handle(http.MethodTrace, "/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodTrace, "/x", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAllowedHTTPMethodsAcceptsGet(t *testing.T) {
	r := newRouter()
	r.Use(AllowedHTTPMethods())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultSizeLimiterRejectsOversizedBody(t *testing.T) {
	r := newRouter()
	r.Use(DefaultSizeLimiter())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.ContentLength = MaxRequestBodySize + 1
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestGzipWithExclusionsSkipsExcludedPath(t *testing.T) {
	r := newRouter()
	r.Use(GzipWithExclusions(DefaultCompression, []string{"/ws"}))
	r.GET("/ws", func(c *gin.Context) { c.String(http.StatusOK, "plain") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Equal(t, "", w.Header().Get("Content-Encoding"))
}

func TestGzipCompressesWhenAccepted(t *testing.T) {
	r := newRouter()
	r.Use(Gzip(DefaultCompression))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "hello world") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}
