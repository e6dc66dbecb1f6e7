package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	h := Auth("")(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthTokenSources(t *testing.T) {
	tests := []struct {
		name   string
		header func(r *http.Request)
		code   int
	}{
		{
			name:   "bearer token accepted",
			header: func(r *http.Request) { r.Header.Set("Authorization", "Bearer sekrit") },
			code:   http.StatusOK,
		},
		{
			name:   "api key header accepted",
			header: func(r *http.Request) { r.Header.Set("X-API-Key", "sekrit") },
			code:   http.StatusOK,
		},
		{
			name:   "wrong token rejected",
			header: func(r *http.Request) { r.Header.Set("X-API-Key", "guess") },
			code:   http.StatusUnauthorized,
		},
		{
			name:   "missing token rejected",
			header: func(r *http.Request) {},
			code:   http.StatusUnauthorized,
		},
		{
			name:   "basic scheme ignored",
			header: func(r *http.Request) { r.Header.Set("Authorization", "Basic sekrit") },
			code:   http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth("sekrit")(okHandler())
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.header(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestRateLimitEnforcesWindow(t *testing.T) {
	h := RateLimit(2, time.Minute)(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimitPerClient(t *testing.T) {
	h := RateLimit(1, time.Minute)(okHandler())

	request := func(ip string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	// A different client has its own window.
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestRateLimitZeroDisables(t *testing.T) {
	h := RateLimit(0, time.Minute)(okHandler())

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	h := RateLimit(1, 20*time.Millisecond)(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	time.Sleep(30 * time.Millisecond)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		expect string
	}{
		{
			name:   "x-forwarded-for first hop",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1") },
			expect: "1.2.3.4",
		},
		{
			name:   "x-real-ip",
			setup:  func(r *http.Request) { r.Header.Set("X-Real-IP", "5.6.7.8") },
			expect: "5.6.7.8",
		},
		{
			name:   "remote addr fallback",
			setup:  func(r *http.Request) { r.RemoteAddr = "9.9.9.9:1234" },
			expect: "9.9.9.9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			assert.Equal(t, tt.expect, extractClientIP(r))
		})
	}
}
