package pa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallstorie_back_end/internal/models"
	"wallstorie_back_end/internal/payments"
)

const testSecret = "secret_de_test"

type stubGateway struct {
	fail    bool
	counter int
}

func (g *stubGateway) CreateRemoteOrder(ctx context.Context, amount float64, currency, receipt string) (string, error) {
	if g.fail {
		return "", errors.New("connection refused")
	}
	g.counter++
	return fmt.Sprintf("order_test_%d", g.counter), nil
}

type stubCarts struct {
	items map[string][]models.CartItem
}

func (c *stubCarts) ReadCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	return c.items[userID], nil
}

func (c *stubCarts) ClearCart(ctx context.Context, userID string) error {
	delete(c.items, userID)
	return nil
}

type stubStock struct{ insufficient bool }

func (s *stubStock) HoldStock(ctx context.Context, items []models.CartItem) error {
	if s.insufficient {
		return payments.ErrInsufficientStock
	}
	return nil
}

func (s *stubStock) ReleaseHold(ctx context.Context, items []models.CartItem) error { return nil }

func newTestRouter(svc *payments.Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := NewHandler(svc)

	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	authed.POST("/api/payments/create-order", h.CreateOrder)

	r.POST("/api/payments/verify-payment", h.VerifyPayment)
	return r
}

func newTestSetup(cartItems []models.CartItem) (*payments.Service, *payments.MemoryStore, *stubCarts) {
	store := payments.NewMemoryStore()
	carts := &stubCarts{items: map[string][]models.CartItem{"user-1": cartItems}}
	svc := payments.NewService(store, &stubGateway{}, carts, &stubStock{}, testSecret)
	return svc, store, carts
}

func defaultCart() []models.CartItem {
	return []models.CartItem{
		{ProductID: "p-1", Name: "Papier peint tropical", Price: 1799.00, Quantity: 1},
	}
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ================== CREATE-ORDER ==================

func TestCreateOrderEndpoint(t *testing.T) {
	t.Run("création nominale", func(t *testing.T) {
		svc, _, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/create-order", gin.H{"amount": 1799.00, "currency": "INR"})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			GatewayOrderID string  `json:"gatewayOrderId"`
			Amount         float64 `json:"amount"`
			Currency       string  `json:"currency"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.GatewayOrderID)
		assert.Equal(t, 1799.00, resp.Amount)
		assert.Equal(t, "INR", resp.Currency)
	})

	t.Run("non authentifié", func(t *testing.T) {
		svc, _, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "")

		w := postJSON(r, "/api/payments/create-order", gin.H{"amount": 1799.00})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("montant invalide", func(t *testing.T) {
		svc, _, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/create-order", gin.H{"amount": -5})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("panier vide", func(t *testing.T) {
		svc, _, _ := newTestSetup(nil)
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/create-order", gin.H{"amount": 1799.00})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stock insuffisant", func(t *testing.T) {
		store := payments.NewMemoryStore()
		carts := &stubCarts{items: map[string][]models.CartItem{"user-1": defaultCart()}}
		svc := payments.NewService(store, &stubGateway{}, carts, &stubStock{insufficient: true}, testSecret)
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/create-order", gin.H{"amount": 1799.00})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("passerelle indisponible", func(t *testing.T) {
		store := payments.NewMemoryStore()
		carts := &stubCarts{items: map[string][]models.CartItem{"user-1": defaultCart()}}
		svc := payments.NewService(store, &stubGateway{fail: true}, carts, &stubStock{}, testSecret)
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/create-order", gin.H{"amount": 1799.00})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

// ================== VERIFY-PAYMENT ==================

func TestVerifyPaymentEndpoint(t *testing.T) {
	createIntent := func(t *testing.T, svc *payments.Service) string {
		t.Helper()
		intent, err := svc.CreateIntent(context.Background(), "user-1", 1799.00, "INR")
		require.NoError(t, err)
		return intent.GatewayOrderID
	}

	t.Run("vérification nominale", func(t *testing.T) {
		svc, _, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")
		gwOrderID := createIntent(t, svc)

		sig := payments.SignPayment(testSecret, gwOrderID, "pay_1")
		w := postJSON(r, "/api/payments/verify-payment", gin.H{
			"gatewayOrderId":   gwOrderID,
			"gatewayPaymentId": "pay_1",
			"signature":        sig,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Status  string `json:"status"`
			OrderID string `json:"orderId"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CONFIRMED", resp.Status)
		assert.NotEmpty(t, resp.OrderID)
	})

	t.Run("rejeu renvoie la même commande", func(t *testing.T) {
		svc, store, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")
		gwOrderID := createIntent(t, svc)

		sig := payments.SignPayment(testSecret, gwOrderID, "pay_1")
		body := gin.H{"gatewayOrderId": gwOrderID, "gatewayPaymentId": "pay_1", "signature": sig}

		w1 := postJSON(r, "/api/payments/verify-payment", body)
		w2 := postJSON(r, "/api/payments/verify-payment", body)
		require.Equal(t, http.StatusOK, w1.Code)
		require.Equal(t, http.StatusOK, w2.Code)
		assert.JSONEq(t, w1.Body.String(), w2.Body.String())
		assert.Equal(t, 1, store.OrderCount())
	})

	t.Run("signature invalide", func(t *testing.T) {
		svc, store, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")
		gwOrderID := createIntent(t, svc)

		w := postJSON(r, "/api/payments/verify-payment", gin.H{
			"gatewayOrderId":   gwOrderID,
			"gatewayPaymentId": "pay_1",
			"signature":        "signature_forgée",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 0, store.OrderCount())
	})

	t.Run("commande inconnue", func(t *testing.T) {
		svc, _, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/verify-payment", gin.H{
			"gatewayOrderId":   "order_fantome",
			"gatewayPaymentId": "pay_1",
			"signature":        "x",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("champs manquants", func(t *testing.T) {
		svc, _, _ := newTestSetup(defaultCart())
		r := newTestRouter(svc, "user-1")

		w := postJSON(r, "/api/payments/verify-payment", gin.H{"gatewayOrderId": "order_1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
