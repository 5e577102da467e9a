package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memrepo "swapmarket/internal/adapter/repository"
	"swapmarket/internal/domain/entity"
	"swapmarket/internal/infrastructure/ratelimit"
)

type stubVerifier map[string]string

func (v stubVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if uid, ok := v[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func okHandler(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	return c.String(http.StatusOK, uid)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	e := echo.New()
	auth := NewAuthMiddleware(stubVerifier{"good": "alice"})
	e.GET("/me", okHandler, auth.Authenticate)

	tests := []struct {
		name   string
		header string
		target string
		status int
		body   string
	}{
		{"bearer", "Bearer good", "/me", http.StatusOK, "alice"},
		{"query token", "", "/me?token=good", http.StatusOK, "alice"},
		{"missing", "", "/me", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", "/me", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", "/me", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(e, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	store := memrepo.NewMemoryStore()
	store.PutUser(&entity.User{ID: "root", Role: "admin"})
	store.PutUser(&entity.User{ID: "alice", Role: "user"})

	e := echo.New()
	auth := NewAuthMiddleware(stubVerifier{"root": "root", "alice": "alice", "ghost": "ghost"})
	admin := NewAdminMiddleware(memrepo.NewMemoryUserRepository(store))
	e.GET("/admin", okHandler, auth.Authenticate, admin.AdminOnly)

	for token, status := range map[string]int{
		"root":  http.StatusOK,
		"alice": http.StatusForbidden,
		"ghost": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, status, serve(e, req).Code, token)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewRateLimiterWithLimits(map[string]ratelimit.Limit{
		"create_offer": {MaxTokens: 2, RefillRate: 1, RefillTime: time.Hour},
	})

	e := echo.New()
	auth := NewAuthMiddleware(stubVerifier{"a": "alice", "b": "bob"})
	e.POST("/offers", okHandler, auth.Authenticate, RateLimit(limiter, "create_offer"))

	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/offers", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return serve(e, req)
	}

	require.Equal(t, http.StatusOK, post("a").Code)
	require.Equal(t, http.StatusOK, post("a").Code)

	rec := post("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")

	assert.Equal(t, http.StatusOK, post("b").Code)
}
