package payments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallstorie_back_end/internal/models"
)

// MemoryStore implémente Store en mémoire, avec les mêmes garanties
// compare-and-set que ScyllaStore. Sert aux tests et au dev local sans
// cluster ScyllaDB.
type MemoryStore struct {
	mu      sync.Mutex
	intents map[string]*models.PaymentIntent // gateway_order_id → intention
	ledger  map[string]string                // gateway_order_id → order_id
	orders  map[string]*models.OrderRecord   // order_id → commande
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents: make(map[string]*models.PaymentIntent),
		ledger:  make(map[string]string),
		orders:  make(map[string]*models.OrderRecord),
	}
}

func (m *MemoryStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.intents[intent.GatewayOrderID]; exists {
		return fmt.Errorf("gateway_order_id %s déjà utilisé", intent.GatewayOrderID)
	}
	cp := *intent
	cp.CartSnapshot = append([]models.CartItem(nil), intent.CartSnapshot...)
	m.intents[intent.GatewayOrderID] = &cp
	return nil
}

func (m *MemoryStore) GetIntent(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[gatewayOrderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (m *MemoryStore) Transition(ctx context.Context, gatewayOrderID string, from, to models.IntentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[gatewayOrderID]
	if !ok {
		return false, ErrNotFound
	}
	if intent.Status != from {
		return false, nil
	}
	intent.Status = to
	intent.LastUpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryStore) StaleIntents(ctx context.Context, statuses []models.IntentStatus, before time.Time, limit int) ([]models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[models.IntentStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var results []models.PaymentIntent
	for _, intent := range m.intents {
		if wanted[intent.Status] && intent.CreatedAt.Before(before) {
			results = append(results, *intent)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) SaveOrder(ctx context.Context, order *models.OrderRecord) (*models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Registre d'idempotence : un seul order_id par gateway_order_id, jamais.
	if existingID, ok := m.ledger[order.GatewayOrderID]; ok {
		cp := *m.orders[existingID]
		return &cp, nil
	}

	cp := *order
	cp.Items = append([]models.CartItem(nil), order.Items...)
	m.orders[order.OrderID.String()] = &cp
	m.ledger[order.GatewayOrderID] = order.OrderID.String()
	return order, nil
}

func (m *MemoryStore) OrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orderID, ok := m.ledger[gatewayOrderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.orders[orderID]
	return &cp, nil
}

func (m *MemoryStore) OrdersByUser(ctx context.Context, userID string) ([]models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []models.OrderRecord
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ConfirmedAt.After(orders[j].ConfirmedAt)
	})
	return orders, nil
}

// OrderCount expose le nombre de commandes persistées, pour les tests.
func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
