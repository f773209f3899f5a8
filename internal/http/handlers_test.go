package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"digimart/internal/auth"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/repo"
	"digimart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*Server
	outbox *messaging.WhatsAppChannel
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repo.NewMemoryStore()

	outbox := messaging.NewWhatsAppChannel(50, logger)
	dispatcher := messaging.NewAsyncDispatcher(outbox, 16, logger)
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })

	catalog := service.NewCatalogService(store.Tx(), store.Products(), logger)
	orders := service.NewOrderService(store.Tx(), store.Orders(), store.Products(),
		service.NewOrderNumberGenerator("DIGI", 10),
		service.Notifier{Dispatcher: dispatcher, Composer: messaging.Composer{BaseURL: "https://shop.test"}, AdminContact: "923264236393"},
		logger)
	authSvc := service.NewAuthService(store.Users(), auth.NewPasswordHasher(bcrypt.MinCost), auth.NewTokenManager("secret", time.Hour), logger)
	_, err := authSvc.EnsureAdmin(context.Background(), "Admin", "admin@digimart.test", "admin-password")
	require.NoError(t, err)

	s := NewServer(Deps{Catalog: catalog, Orders: orders, Auth: authSvc, Outbox: outbox, Logger: logger})
	return &testServer{Server: s, outbox: outbox}
}

func doJSON(t *testing.T, s *testServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func login(t *testing.T, s *testServer, email, password string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["token"].(string)
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", decode[map[string]string](t, w)["status"])
}

func TestPurchaseFlow(t *testing.T) {
	s := setupServer(t)
	admin := login(t, s, "admin@digimart.test", "admin-password")

	w := doJSON(t, s, http.MethodPost, "/api/v1/admin/products", admin, map[string]any{
		"title": "Starter Kit", "price": 49.99, "discountPrice": 29.99, "category": "Templates",
		"fileUrl":    "https://files.test/starter.zip",
		"sourceCode": []map[string]any{{"filename": "index.html", "language": "html", "content": "<h1>hi</h1>"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	productID := decode[map[string]any](t, w)["id"].(string)

	// public listing hides protected content
	w = doJSON(t, s, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listings := decode[[]map[string]any](t, w)
	require.Len(t, listings, 1)
	assert.NotContains(t, listings[0], "fileUrl")
	assert.NotContains(t, listings[0], "sourceCode")

	w = doJSON(t, s, http.MethodPost, "/api/v1/orders", "", map[string]any{"productId": productID, "contact": "+10000000000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[map[string]any](t, w)
	assert.Equal(t, "PENDING", order["status"])
	assert.Equal(t, 29.99, order["amount"])
	number := order["orderNumber"].(string)
	orderID := order["id"].(string)

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+number, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tracked := decode[map[string]any](t, w)
	assert.Equal(t, "PENDING", tracked["status"])
	assert.NotContains(t, tracked, "contact")
	assert.NotContains(t, tracked, "userId")

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+number+"/access", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.Equal(t, "LOCKED", view["state"])
	assert.NotContains(t, view, "downloadUrl")

	w = doJSON(t, s, http.MethodPatch, "/api/v1/admin/orders/"+orderID+"/status", admin, map[string]any{"status": "PAID"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+number+"/access", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[map[string]any](t, w)
	assert.Equal(t, "UNLOCKED", view["state"])
	assert.Equal(t, "https://files.test/starter.zip", view["downloadUrl"])
	assert.Len(t, view["sourceFiles"], 1)

	w = doJSON(t, s, http.MethodPatch, "/api/v1/admin/orders/"+orderID+"/status", admin, map[string]any{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Eventually(t, func() bool { return len(s.outbox.Outbox()) == 2 }, time.Second, 10*time.Millisecond)
	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/outbox", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]map[string]any](t, w)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0]["link"], "https://wa.me/923264236393?text=")
}

func TestAdminRoutesAreGated(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Buyer", "email": "buyer@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customer := decode[map[string]any](t, w)["token"].(string)

	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/admin/products", customer, map[string]any{"title": "X", "price": 1, "category": "Software"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/me/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/v1/me/orders", customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/v1/auth/me", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USER", decode[map[string]any](t, w)["role"])
}

func TestErrorMapping(t *testing.T) {
	s := setupServer(t)
	admin := login(t, s, "admin@digimart.test", "admin-password")

	w := doJSON(t, s, http.MethodPost, "/api/v1/admin/products", admin, map[string]any{"title": "Bad", "price": -1, "category": "Software"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "price", decode[map[string]any](t, w)["field"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/DIGI-0000-000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "admin@digimart.test", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]any{"name": "Dup", "email": "admin@digimart.test", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
