package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"wallstorie_back_end/internal/models"
)

// CartStore lit et vide les paniers Redis pour le cœur paiement.
// Le panier vivant reste la propriété des handlers panier ; ici on ne fait
// que le photographier au checkout et le vider après confirmation.
type CartStore struct {
	rdb *redis.Client
}

func NewCartStore(rdb *redis.Client) *CartStore {
	return &CartStore{rdb: rdb}
}

func cartKey(userID string) string { return "cart:" + userID }

func (cs *CartStore) ReadCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := cs.rdb.Get(ctx, cartKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil // panier vide
	}
	if err != nil {
		return nil, err
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (cs *CartStore) ClearCart(ctx context.Context, userID string) error {
	if err := cs.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return err
	}
	// Notifie les onglets connectés via le websocket panier.
	cs.rdb.Publish(ctx, cartKey(userID), "cleared")
	return nil
}
