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

func newTestSweeper(store Store, stock StockService) *Sweeper {
	return NewSweeper(store, stock, 30*time.Minute, time.Minute)
}

func TestSweepExpiresAbandonedIntents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stock := &fakeStock{}
	sw := newTestSweeper(store, stock)

	// Intention PENDING plus vieille que le TTL : personne n'est jamais
	// revenu payer.
	abandoned := newTestIntent("order_abandonne")
	abandoned.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.CreateIntent(ctx, abandoned))

	// Intention PENDING récente : intouchable.
	fresh := newTestIntent("order_en_cours")
	require.NoError(t, store.CreateIntent(ctx, fresh))

	require.NoError(t, sw.Sweep(ctx))

	expired, err := store.GetIntent(ctx, "order_abandonne")
	require.NoError(t, err)
	assert.Equal(t, models.IntentExpired, expired.Status)

	untouched, err := store.GetIntent(ctx, "order_en_cours")
	require.NoError(t, err)
	assert.Equal(t, models.IntentPending, untouched.Status)

	// La réservation de stock de l'intention expirée est restituée.
	assert.Equal(t, 1, stock.released)
}

func TestSweepRepairsCrashedFinalization(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stock := &fakeStock{}
	sw := newTestSweeper(store, stock)

	// Simule un processus mort entre SaveOrder et la transition finale :
	// l'intention est VERIFIED et la commande existe déjà.
	intent := newTestIntent("order_crash")
	intent.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.CreateIntent(ctx, intent))

	ok, err := store.Transition(ctx, "order_crash", models.IntentPending, models.IntentVerified)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.SaveOrder(ctx, &models.OrderRecord{
		OrderID:        gocql.TimeUUID(),
		IntentID:       intent.IntentID,
		GatewayOrderID: "order_crash",
		UserID:         intent.UserID,
		Items:          intent.CartSnapshot,
		AmountCharged:  intent.Amount,
		Currency:       intent.Currency,
		ConfirmedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, sw.Sweep(ctx))

	// L'intention est réparée → CONFIRMED, pas expirée, et le stock n'est
	// pas restitué : la commande a bien eu lieu.
	repaired, err := store.GetIntent(ctx, "order_crash")
	require.NoError(t, err)
	assert.Equal(t, models.IntentConfirmed, repaired.Status)
	assert.Equal(t, 0, stock.released)
}

func TestSweepExpiresVerifiedWithoutOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stock := &fakeStock{}
	sw := newTestSweeper(store, stock)

	// VERIFIED mais sans commande : le processus est mort entre la
	// vérification et SaveOrder. Passé le TTL, l'intention expire et le
	// stock revient.
	intent := newTestIntent("order_verifie_orphelin")
	intent.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.CreateIntent(ctx, intent))

	ok, err := store.Transition(ctx, "order_verifie_orphelin", models.IntentPending, models.IntentVerified)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, sw.Sweep(ctx))

	expired, err := store.GetIntent(ctx, "order_verifie_orphelin")
	require.NoError(t, err)
	assert.Equal(t, models.IntentExpired, expired.Status)
	assert.Equal(t, 1, stock.released)
}

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stock := &fakeStock{}
	sw := newTestSweeper(store, stock)

	abandoned := newTestIntent("order_double_passe")
	abandoned.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.CreateIntent(ctx, abandoned))

	require.NoError(t, sw.Sweep(ctx))
	require.NoError(t, sw.Sweep(ctx))

	// Deux passes ne restituent le stock qu'une seule fois.
	assert.Equal(t, 1, stock.released)
}
