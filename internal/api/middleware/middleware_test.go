package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func echo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subject": c.GetString("subject"), "request_id": c.GetString("request_id")})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantStatus int
		wantAllow  string
		wantCreds  string
	}{
		{name: "wildcard", origins: []string{"*"}, origin: "http://localhost:3000", wantStatus: http.StatusOK, wantAllow: "*"},
		{name: "listed origin", origins: []string{"http://ops.local"}, origin: "http://ops.local", wantStatus: http.StatusOK, wantAllow: "http://ops.local", wantCreds: "true"},
		{name: "unlisted origin", origins: []string{"http://ops.local"}, origin: "http://evil.local", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCORSConfig()
			cfg.AllowOrigins = tt.origins
			router := setupTestRouter()
			router.Use(CORS(cfg))
			router.GET("/status", echo)

			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2, IdleTTL: time.Minute}))
	router.GET("/status", echo)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLimitersSweepIdleClients(t *testing.T) {
	l := &limiters{
		cfg:     RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute},
		clients: make(map[string]*client),
		swept:   time.Unix(0, 0),
	}
	start := time.Unix(1000, 0)
	l.get("a", start)
	l.get("b", start.Add(50*time.Second))
	assert.Equal(t, 2, l.size())

	l.get("c", start.Add(100*time.Second))
	assert.Equal(t, 2, l.size())
}

func TestAuth(t *testing.T) {
	secret := []byte("s3cret")
	valid, err := IssueToken(secret, "operator", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, "operator", -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), "operator", time.Hour)
	require.NoError(t, err)

	router := setupTestRouter()
	router.Use(Auth(secret, "/health"))
	router.GET("/health", echo)
	router.GET("/status", echo)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "public route", path: "/health", want: http.StatusOK},
		{name: "missing token", path: "/status", want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/status", header: "Basic " + valid, want: http.StatusUnauthorized},
		{name: "valid token", path: "/status", header: "Bearer " + valid, want: http.StatusOK},
		{name: "expired token", path: "/status", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "foreign secret", path: "/status", header: "Bearer " + foreign, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK && tt.header != "" {
				assert.Contains(t, w.Body.String(), `"subject":"operator"`)
			}
		})
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken(nil, "operator", time.Hour)
	assert.Error(t, err)

	subject, err := ParseToken([]byte("k"), mustToken(t, []byte("k"), "ci"))
	require.NoError(t, err)
	assert.Equal(t, "ci", subject)
}

func mustToken(t *testing.T, secret []byte, subject string) string {
	t.Helper()
	token, err := IssueToken(secret, subject, time.Minute)
	require.NoError(t, err)
	return token
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/status", echo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Regexp(t, `^req_[0-9A-Z]{26}$`, generated)
	assert.Contains(t, w.Body.String(), generated)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(RequestIDHeader, "req_from_caller")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req_from_caller", w.Header().Get(RequestIDHeader))
}
