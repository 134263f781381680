package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/mealdesk/mealdesk/internal/app"
)

func newTestHandler(t *testing.T) (http.Handler, *app.Application) {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{JWTSecret: []byte("test-secret")}, nil)
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() { _ = application.Stop(context.Background()) })
	return NewHandler(application, nil), application
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["access_token"].(string)
}

func TestOrderFlow(t *testing.T) {
	handler, application := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, application.Identity.EnsureAdmin(ctx, "admin", "admin@example.com", "admin-pass"))
	adminToken := login(t, handler, "admin", "admin-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "alice-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["is_admin"])
	aliceToken := login(t, handler, "alice", "alice-pass")

	// Catalog setup.
	rec = doJSON(t, handler, http.MethodPost, "/api/admin/canteens", adminToken, map[string]any{
		"name": "North Kitchen",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	canteenID := decode(t, rec)["id"].(string)

	rec = doJSON(t, handler, http.MethodPost, "/api/admin/canteens/"+canteenID+"/meals", adminToken, map[string]any{
		"name":  "Chicken Rice",
		"price": 85.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	meal := decode(t, rec)
	mealID := meal["id"].(string)
	assert.Equal(t, 85.5, meal["price"])

	// The menu is public.
	rec = doJSON(t, handler, http.MethodGet, "/api/menu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var menus []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menus))
	require.Len(t, menus, 1)

	// Place an order; a second one the same day conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/orders", aliceToken, map[string]string{"meal_id": mealID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode(t, rec)
	orderID := placed["id"].(string)
	assert.Equal(t, "Chicken Rice", placed["meal_name"])
	assert.Equal(t, 85.5, placed["price"])
	assert.Equal(t, false, placed["is_paid"])

	rec = doJSON(t, handler, http.MethodPost, "/api/orders", aliceToken, map[string]string{"meal_id": mealID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/orders", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	// Another user cannot read it.
	rec = doJSON(t, handler, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "email": "bob@example.com", "password": "bob-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bobToken := login(t, handler, "bob", "bob-pass")
	rec = doJSON(t, handler, http.MethodGet, "/api/orders/"+orderID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Settlement.
	rec = doJSON(t, handler, http.MethodGet, "/api/admin/summary", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode(t, rec)
	assert.Equal(t, float64(1), summary["total_orders"])
	assert.Equal(t, 85.5, summary["total_amount"])

	rec = doJSON(t, handler, http.MethodGet, "/api/admin/summary?date=bogus", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Payment is admin-only and idempotent.
	rec = doJSON(t, handler, http.MethodPost, "/api/admin/orders/"+orderID+"/pay", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, handler, http.MethodPost, "/api/admin/orders/"+orderID+"/pay", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["is_paid"])
	rec = doJSON(t, handler, http.MethodPost, "/api/admin/orders/"+orderID+"/pay", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["is_paid"])
}

func TestDeleteOrderRespectsCutoff(t *testing.T) {
	handler, application := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, application.Identity.EnsureAdmin(ctx, "admin", "admin@example.com", "admin-pass"))
	adminToken := login(t, handler, "admin", "admin-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/admin/canteens", adminToken, map[string]any{"name": "South Kitchen"})
	require.Equal(t, http.StatusCreated, rec.Code)
	canteenID := decode(t, rec)["id"].(string)
	rec = doJSON(t, handler, http.MethodPost, "/api/admin/canteens/"+canteenID+"/meals", adminToken, map[string]any{
		"name": "Laksa", "price": 65,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	mealID := decode(t, rec)["id"].(string)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "carol-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	carolToken := login(t, handler, "carol", "carol-pass")

	// With the cutoff moved to midnight, deletion is already refused.
	rec = doJSON(t, handler, http.MethodPost, "/api/orders", carolToken, map[string]string{"meal_id": mealID})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decode(t, rec)["id"].(string)

	rec = doJSON(t, handler, http.MethodPut, "/api/admin/settings", adminToken, map[string]string{
		"key": "ORDER_CUTOFF_TIME", "value": "00:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/orders/"+orderID, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Restoring a late cutoff makes the same delete succeed.
	rec = doJSON(t, handler, http.MethodPut, "/api/admin/settings", adminToken, map[string]string{
		"key": "ORDER_CUTOFF_TIME", "value": "23:59",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/orders/"+orderID, carolToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/admin/summary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ghost", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())
}
