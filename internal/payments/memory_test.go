package payments

import (
	"context"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallstorie_back_end/internal/models"
)

func newTestIntent(gatewayOrderID string) *models.PaymentIntent {
	now := time.Now().UTC()
	return &models.PaymentIntent{
		IntentID:       gocql.TimeUUID(),
		GatewayOrderID: gatewayOrderID,
		UserID:         "user-1",
		Amount:         1499.00,
		Currency:       "INR",
		CartSnapshot: []models.CartItem{
			{ProductID: "p-1", Name: "Papier peint botanique", Price: 1499.00, Quantity: 1},
		},
		Status:        models.IntentPending,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func TestMemoryStoreTransition(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateIntent(ctx, newTestIntent("order_1")))

	t.Run("transition depuis le bon statut", func(t *testing.T) {
		ok, err := store.Transition(ctx, "order_1", models.IntentPending, models.IntentVerified)
		require.NoError(t, err)
		assert.True(t, ok)

		intent, err := store.GetIntent(ctx, "order_1")
		require.NoError(t, err)
		assert.Equal(t, models.IntentVerified, intent.Status)
	})

	t.Run("rejouer la même transition échoue sans erreur", func(t *testing.T) {
		ok, err := store.Transition(ctx, "order_1", models.IntentPending, models.IntentVerified)
		require.NoError(t, err)
		assert.False(t, ok, "le compare-and-set ne doit s'appliquer qu'une fois")
	})

	t.Run("intention inconnue", func(t *testing.T) {
		_, err := store.Transition(ctx, "order_inconnu", models.IntentPending, models.IntentVerified)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreCreateIntentDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateIntent(ctx, newTestIntent("order_dup")))
	assert.Error(t, store.CreateIntent(ctx, newTestIntent("order_dup")))
}

func TestMemoryStoreSaveOrderIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := &models.OrderRecord{
		OrderID:        gocql.TimeUUID(),
		GatewayOrderID: "order_x",
		UserID:         "user-1",
		AmountCharged:  500,
		Currency:       "INR",
		ConfirmedAt:    time.Now().UTC(),
	}
	saved, err := store.SaveOrder(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, saved.OrderID)

	// Une deuxième écriture pour le même gateway_order_id ressort la
	// commande du premier gagnant, sans rien écrire.
	second := &models.OrderRecord{
		OrderID:        gocql.TimeUUID(),
		GatewayOrderID: "order_x",
		UserID:         "user-1",
		AmountCharged:  500,
		Currency:       "INR",
		ConfirmedAt:    time.Now().UTC(),
	}
	replayed, err := store.SaveOrder(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, replayed.OrderID)
	assert.Equal(t, 1, store.OrderCount())
}

func TestMemoryStoreStaleIntents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	old := newTestIntent("order_vieux")
	old.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.CreateIntent(ctx, old))

	fresh := newTestIntent("order_recent")
	require.NoError(t, store.CreateIntent(ctx, fresh))

	stale, err := store.StaleIntents(ctx, []models.IntentStatus{models.IntentPending},
		time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "order_vieux", stale[0].GatewayOrderID)
}
