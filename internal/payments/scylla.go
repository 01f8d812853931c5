package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"wallstorie_back_end/internal/models"
)

// ScyllaStore implémente Store sur le keyspace paiements.
// Les transactions légères de ScyllaDB (IF NOT EXISTS / IF status = ?)
// fournissent le compare-and-set atomique : pas de verrou applicatif,
// jamais de lecture-modification-écriture sans garde.
type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session}
}

func (s *ScyllaStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	snapshot, err := json.Marshal(intent.CartSnapshot)
	if err != nil {
		return fmt.Errorf("sérialisation snapshot panier: %w", err)
	}

	applied, err := s.session.Query(`INSERT INTO payment_intents
		(gateway_order_id, intent_id, user_id, amount, currency, cart_snapshot, status, created_at, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		intent.GatewayOrderID, intent.IntentID, intent.UserID, intent.Amount, intent.Currency,
		string(snapshot), string(intent.Status), intent.CreatedAt, intent.LastUpdatedAt).
		WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return err
	}
	if !applied {
		// Ne devrait jamais arriver : la passerelle garantit des ids uniques.
		return fmt.Errorf("gateway_order_id %s déjà utilisé", intent.GatewayOrderID)
	}
	return nil
}

func (s *ScyllaStore) GetIntent(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error) {
	var (
		intent   models.PaymentIntent
		snapshot string
		status   string
	)

	err := s.session.Query(`SELECT gateway_order_id, intent_id, user_id, amount, currency, cart_snapshot, status, created_at, last_updated_at
		FROM payment_intents WHERE gateway_order_id = ?`, gatewayOrderID).
		WithContext(ctx).Scan(&intent.GatewayOrderID, &intent.IntentID, &intent.UserID,
		&intent.Amount, &intent.Currency, &snapshot, &status, &intent.CreatedAt, &intent.LastUpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	intent.Status = models.IntentStatus(status)
	if snapshot != "" {
		if err := json.Unmarshal([]byte(snapshot), &intent.CartSnapshot); err != nil {
			return nil, fmt.Errorf("snapshot panier corrompu pour %s: %w", gatewayOrderID, err)
		}
	}
	return &intent, nil
}

func (s *ScyllaStore) Transition(ctx context.Context, gatewayOrderID string, from, to models.IntentStatus) (bool, error) {
	applied, err := s.session.Query(`UPDATE payment_intents SET status = ?, last_updated_at = ?
		WHERE gateway_order_id = ? IF status = ?`,
		string(to), time.Now().UTC(), gatewayOrderID, string(from)).
		WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *ScyllaStore) StaleIntents(ctx context.Context, statuses []models.IntentStatus, before time.Time, limit int) ([]models.PaymentIntent, error) {
	var results []models.PaymentIntent

	// Un scan filtré par statut : la table des intentions reste petite
	// (une ligne par checkout, statuts non terminaux balayés en continu).
	for _, st := range statuses {
		iter := s.session.Query(`SELECT gateway_order_id FROM payment_intents
			WHERE status = ? AND created_at < ? LIMIT ? ALLOW FILTERING`,
			string(st), before, limit).WithContext(ctx).Iter()

		var gatewayOrderID string
		var ids []string
		for iter.Scan(&gatewayOrderID) {
			ids = append(ids, gatewayOrderID)
		}
		if err := iter.Close(); err != nil {
			return nil, err
		}

		for _, id := range ids {
			intent, err := s.GetIntent(ctx, id)
			if err != nil {
				return nil, err
			}
			results = append(results, *intent)
		}
	}
	return results, nil
}

func (s *ScyllaStore) SaveOrder(ctx context.Context, order *models.OrderRecord) (*models.OrderRecord, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("sérialisation articles: %w", err)
	}

	// 1. La commande d'abord : si on meurt entre les deux écritures, le
	// registre ne pointera jamais vers une commande absente.
	if err := s.session.Query(`INSERT INTO orders
		(order_id, intent_id, gateway_order_id, gateway_payment_id, user_id, items, amount_charged, currency, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.IntentID, order.GatewayOrderID, order.GatewayPaymentID,
		order.UserID, string(items), order.AmountCharged, order.Currency, order.ConfirmedAt).
		WithContext(ctx).Exec(); err != nil {
		return nil, err
	}

	// 2. Le registre d'idempotence ensuite, en compare-and-set : un seul
	// gagnant par gateway_order_id, les perdants ressortent la commande
	// du gagnant.
	applied, err := s.session.Query(`INSERT INTO orders_by_gateway (gateway_order_id, order_id)
		VALUES (?, ?) IF NOT EXISTS`, order.GatewayOrderID, order.OrderID).
		WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return nil, err
	}
	if !applied {
		// Un appel concurrent a gagné la course : on jette notre ligne
		// orpheline et on renvoie la commande existante.
		_ = s.session.Query(`DELETE FROM orders WHERE order_id = ?`, order.OrderID).
			WithContext(ctx).Exec()
		return s.OrderByGatewayOrderID(ctx, order.GatewayOrderID)
	}

	// Vue par utilisateur, pour l'historique de commandes.
	if err := s.session.Query(`INSERT INTO orders_by_user
		(user_id, confirmed_at, order_id, gateway_order_id, amount_charged, currency, items)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.UserID, order.ConfirmedAt, order.OrderID, order.GatewayOrderID,
		order.AmountCharged, order.Currency, string(items)).
		WithContext(ctx).Exec(); err != nil {
		// Vue dénormalisée seulement : la commande elle-même est durable.
		log.Printf("⚠️ Écriture orders_by_user échouée pour %s: %v", order.OrderID, err)
	}

	return order, nil
}

func (s *ScyllaStore) OrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.OrderRecord, error) {
	var orderID gocql.UUID
	err := s.session.Query(`SELECT order_id FROM orders_by_gateway WHERE gateway_order_id = ?`,
		gatewayOrderID).WithContext(ctx).Scan(&orderID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.orderByID(ctx, orderID)
}

func (s *ScyllaStore) orderByID(ctx context.Context, orderID gocql.UUID) (*models.OrderRecord, error) {
	var (
		order models.OrderRecord
		items string
	)
	err := s.session.Query(`SELECT order_id, intent_id, gateway_order_id, gateway_payment_id, user_id, items, amount_charged, currency, confirmed_at
		FROM orders WHERE order_id = ?`, orderID).
		WithContext(ctx).Scan(&order.OrderID, &order.IntentID, &order.GatewayOrderID,
		&order.GatewayPaymentID, &order.UserID, &items, &order.AmountCharged,
		&order.Currency, &order.ConfirmedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if items != "" {
		if err := json.Unmarshal([]byte(items), &order.Items); err != nil {
			return nil, fmt.Errorf("articles corrompus pour %s: %w", orderID, err)
		}
	}
	return &order, nil
}

func (s *ScyllaStore) OrdersByUser(ctx context.Context, userID string) ([]models.OrderRecord, error) {
	iter := s.session.Query(`SELECT order_id, gateway_order_id, confirmed_at, amount_charged, currency, items
		FROM orders_by_user WHERE user_id = ?`, userID).WithContext(ctx).Iter()

	var orders []models.OrderRecord
	var (
		orderID        gocql.UUID
		gatewayOrderID string
		confirmedAt    time.Time
		amount         float64
		currency       string
		items          string
	)
	for iter.Scan(&orderID, &gatewayOrderID, &confirmedAt, &amount, &currency, &items) {
		order := models.OrderRecord{
			OrderID:        orderID,
			GatewayOrderID: gatewayOrderID,
			UserID:         userID,
			AmountCharged:  amount,
			Currency:       currency,
			ConfirmedAt:    confirmedAt,
		}
		if items != "" {
			_ = json.Unmarshal([]byte(items), &order.Items)
		}
		orders = append(orders, order)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}
