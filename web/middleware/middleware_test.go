package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"problem-relay/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(2, 0)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	assert.Equal(t, 0, tb.Remaining())
}

func TestClientRateLimiterEvictsOldest(t *testing.T) {
	limiter, err := NewClientRateLimiter(RateLimiterConfig{RequestsPerMinute: 1, BurstSize: 1, CacheSize: 2}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	limiter.Allow("b")
	limiter.Allow("c")
	assert.Equal(t, 2, limiter.Tracked())

	// "a" was evicted so it starts with a fresh bucket
	assert.True(t, limiter.Allow("a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, err := NewClientRateLimiter(RateLimiterConfig{RequestsPerMinute: 1, BurstSize: 1}, zap.NewNop())
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/chat", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"result": "ok"})
	})

	send := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		if session != "" {
			req.Header.Set(ClientKeyHeader, session)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("s1").Code)
	w := send("s1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	// a different session has its own budget
	assert.Equal(t, http.StatusOK, send("s2").Code)
}

func TestSessionParam(t *testing.T) {
	r := gin.New()
	r.GET("/api/sessions/:id", SessionParam(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SessionIDKey))
	})

	tests := []struct {
		path string
		code int
	}{
		{"/api/sessions/abc-123", http.StatusOK},
		{"/api/sessions/a.b", http.StatusBadRequest},
		{"/api/sessions/x%20y", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	prom := metrics.NewProm("mw_test")
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop(), prom))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/api/models", func(c *gin.Context) { c.JSON(http.StatusOK, []string{}) })

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
