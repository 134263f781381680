package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk/internal/app/services/identity"
	"github.com/mealdesk/mealdesk/internal/app/storage/memory"
)

func issueToken(t *testing.T, svc *identity.Service, username string, admin bool) string {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Register(ctx, username, username+"@example.com", "secret123", admin)
	require.NoError(t, err)
	tok, err := svc.Login(ctx, username, "secret123")
	require.NoError(t, err)
	return tok.AccessToken
}

func TestAuthMiddleware(t *testing.T) {
	svc := identity.New(memory.New(), []byte("test-secret"), time.Hour, nil)
	mw := NewAuthMiddleware(svc, nil)

	var seenUserID string
	var seenAdmin bool
	protected := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = GetUserID(r.Context())
		seenAdmin = IsAdmin(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No header.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	token := issueToken(t, svc, "diner", false)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seenUserID)
	assert.False(t, seenAdmin)
}

func TestRequireAdmin(t *testing.T) {
	svc := identity.New(memory.New(), []byte("test-secret"), time.Hour, nil)
	mw := NewAuthMiddleware(svc, nil)

	adminOnly := mw.Handler(mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	userToken := issueToken(t, svc, "diner", false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/summary", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := issueToken(t, svc, "chef", true)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/summary", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/menu", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different caller has its own bucket.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/menu", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
