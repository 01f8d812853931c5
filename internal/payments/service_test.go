package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallstorie_back_end/internal/models"
)

// ================== FAUX COLLABORATEURS ==================

type fakeGateway struct {
	mu      sync.Mutex
	fail    bool
	counter int
}

func (g *fakeGateway) CreateRemoteOrder(ctx context.Context, amount float64, currency, receipt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return "", errors.New("connection refused")
	}
	g.counter++
	return fmt.Sprintf("order_test_%d", g.counter), nil
}

type fakeCarts struct {
	mu      sync.Mutex
	items   map[string][]models.CartItem
	cleared []string
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{items: make(map[string][]models.CartItem)}
}

func (c *fakeCarts) ReadCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CartItem(nil), c.items[userID]...), nil
}

func (c *fakeCarts) ClearCart(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, userID)
	c.cleared = append(c.cleared, userID)
	return nil
}

type fakeStock struct {
	mu           sync.Mutex
	insufficient bool
	held         int
	released     int
}

func (s *fakeStock) HoldStock(ctx context.Context, items []models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insufficient {
		return ErrInsufficientStock
	}
	s.held++
	return nil
}

func (s *fakeStock) ReleaseHold(ctx context.Context, items []models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events int
}

func (p *fakePublisher) OrderConfirmed(ctx context.Context, order *models.OrderRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events++
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

const testSecret = "secret_de_test"

func newTestService() (*Service, *MemoryStore, *fakeCarts, *fakeStock) {
	store := NewMemoryStore()
	carts := newFakeCarts()
	stock := &fakeStock{}
	svc := NewService(store, &fakeGateway{}, carts, stock, testSecret)
	return svc, store, carts, stock
}

func seedCart(carts *fakeCarts, userID string) {
	carts.items[userID] = []models.CartItem{
		{ProductID: "p-1", Name: "Papier peint jungle", Price: 1299.00, Quantity: 2},
		{ProductID: "p-2", Name: "Store enrouleur lin", Price: 2499.00, Quantity: 1},
	}
}

// ================== CRÉATION D'INTENTION ==================

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("panier vide", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		_, err := svc.CreateIntent(ctx, "user-1", 100, "INR")
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("stock insuffisant", func(t *testing.T) {
		svc, _, carts, stock := newTestService()
		seedCart(carts, "user-1")
		stock.insufficient = true

		_, err := svc.CreateIntent(ctx, "user-1", 100, "INR")
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("création nominale", func(t *testing.T) {
		svc, store, carts, stock := newTestService()
		seedCart(carts, "user-1")

		intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
		require.NoError(t, err)
		assert.Equal(t, models.IntentPending, intent.Status)
		assert.NotEmpty(t, intent.GatewayOrderID)
		assert.Len(t, intent.CartSnapshot, 2)
		assert.Equal(t, 1, stock.held)

		persisted, err := store.GetIntent(ctx, intent.GatewayOrderID)
		require.NoError(t, err)
		assert.Equal(t, intent.IntentID, persisted.IntentID)
	})

	t.Run("le snapshot est figé à la création", func(t *testing.T) {
		svc, store, carts, _ := newTestService()
		seedCart(carts, "user-1")

		intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
		require.NoError(t, err)

		// Le panier vivant change après coup : l'intention ne bouge pas.
		carts.mu.Lock()
		carts.items["user-1"] = append(carts.items["user-1"],
			models.CartItem{ProductID: "p-3", Name: "Rideau velours", Price: 3999, Quantity: 1})
		carts.mu.Unlock()

		persisted, err := store.GetIntent(ctx, intent.GatewayOrderID)
		require.NoError(t, err)
		assert.Len(t, persisted.CartSnapshot, 2)
	})

	t.Run("échec passerelle sans écriture partielle", func(t *testing.T) {
		store := NewMemoryStore()
		carts := newFakeCarts()
		stock := &fakeStock{}
		svc := NewService(store, &fakeGateway{fail: true}, carts, stock, testSecret)
		seedCart(carts, "user-1")

		_, err := svc.CreateIntent(ctx, "user-1", 100, "INR")
		assert.ErrorIs(t, err, ErrGatewayUnavailable)

		// Rien n'est persisté et la réservation de stock est restituée.
		assert.Equal(t, 1, stock.held)
		assert.Equal(t, 1, stock.released)
		assert.Equal(t, 0, store.OrderCount())
	})
}

// ================== FINALISATION ==================

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("intention inconnue", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		_, err := svc.Finalize(ctx, "order_fantome", "pay_1", "sig")
		assert.ErrorIs(t, err, ErrUnknownIntent)
	})

	t.Run("finalisation nominale", func(t *testing.T) {
		svc, store, carts, _ := newTestService()
		seedCart(carts, "user-1")

		intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
		require.NoError(t, err)

		sig := SignPayment(testSecret, intent.GatewayOrderID, "pay_1")
		order, err := svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", sig)
		require.NoError(t, err)

		assert.Equal(t, "user-1", order.UserID)
		assert.Equal(t, 5097.00, order.AmountCharged)
		assert.Equal(t, "pay_1", order.GatewayPaymentID)
		assert.Len(t, order.Items, 2)

		persisted, err := store.GetIntent(ctx, intent.GatewayOrderID)
		require.NoError(t, err)
		assert.Equal(t, models.IntentConfirmed, persisted.Status)

		// Le panier ne survit pas à la confirmation.
		assert.Contains(t, carts.cleared, "user-1")
	})

	t.Run("rejeu idempotent", func(t *testing.T) {
		svc, store, carts, _ := newTestService()
		events := &fakePublisher{}
		svc.Events = events
		seedCart(carts, "user-1")

		intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
		require.NoError(t, err)

		sig := SignPayment(testSecret, intent.GatewayOrderID, "pay_1")
		first, err := svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", sig)
		require.NoError(t, err)

		// Le même callback livré une deuxième fois : même commande, aucune
		// nouvelle écriture, aucun nouvel événement.
		second, err := svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", sig)
		require.NoError(t, err)
		assert.Equal(t, first.OrderID, second.OrderID)
		assert.Equal(t, 1, store.OrderCount())
		assert.Equal(t, 1, events.count())
	})

	t.Run("signature invalide préserve l'intention", func(t *testing.T) {
		svc, store, carts, _ := newTestService()
		seedCart(carts, "user-1")

		intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
		require.NoError(t, err)

		_, err = svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", "signature_forgée")
		assert.ErrorIs(t, err, ErrSignatureMismatch)

		// L'intention reste PENDING : un rejeu légitime peut encore aboutir.
		persisted, err := store.GetIntent(ctx, intent.GatewayOrderID)
		require.NoError(t, err)
		assert.Equal(t, models.IntentPending, persisted.Status)
		assert.Equal(t, 0, store.OrderCount())

		// Et le rejeu légitime aboutit.
		sig := SignPayment(testSecret, intent.GatewayOrderID, "pay_1")
		_, err = svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", sig)
		assert.NoError(t, err)
	})

	t.Run("intention close", func(t *testing.T) {
		svc, store, carts, _ := newTestService()
		seedCart(carts, "user-1")

		intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
		require.NoError(t, err)

		ok, err := store.Transition(ctx, intent.GatewayOrderID, models.IntentPending, models.IntentExpired)
		require.NoError(t, err)
		require.True(t, ok)

		sig := SignPayment(testSecret, intent.GatewayOrderID, "pay_1")
		_, err = svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", sig)
		assert.ErrorIs(t, err, ErrIntentClosed)
	})
}

// TestFinalizeConcurrent livre la même confirmation en parallèle : tous les
// appels doivent réussir, tous renvoyer la même commande, et une seule
// commande doit exister en base.
func TestFinalizeConcurrent(t *testing.T) {
	ctx := context.Background()
	svc, store, carts, _ := newTestService()
	events := &fakePublisher{}
	svc.Events = events
	seedCart(carts, "user-1")

	intent, err := svc.CreateIntent(ctx, "user-1", 5097.00, "INR")
	require.NoError(t, err)
	sig := SignPayment(testSecret, intent.GatewayOrderID, "pay_1")

	const n = 16
	results := make([]*models.OrderRecord, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Finalize(ctx, intent.GatewayOrderID, "pay_1", sig)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "appel %d", i)
		require.NotNil(t, results[i], "appel %d", i)
		assert.Equal(t, results[0].OrderID, results[i].OrderID, "appel %d", i)
	}

	assert.Equal(t, 1, store.OrderCount(), "exactement une commande doit exister")
	assert.Equal(t, 1, events.count(), "exactement un événement doit être publié")
}
