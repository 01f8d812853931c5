package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/models"
)

const (
	ProductCacheTTL = 10 * time.Minute
)

// GetProductFromCache récupère un produit depuis Redis ou ScyllaDB
func GetProductFromCache(productID string) (*models.Product, error) {
	ctx := context.Background()
	key := "product:" + productID

	// 1. Essayer le cache Redis
	data, err := database.Redis.Get(ctx, key).Result()
	if err == nil {
		var product models.Product
		if json.Unmarshal([]byte(data), &product) == nil {
			return &product, nil
		}
	}

	// 2. Récupérer de ScyllaDB
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, err
	}
	productUUID := gocql.UUID(pid)

	var (
		product              models.Product
		createdAt, updatedAt time.Time
	)
	err = session.Query(`SELECT product_id, name, description, price, stock, category, image_urls, tags, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, productUUID).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock,
		&product.Category, &product.ImageURLs, &product.Tags, &product.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	product.CreatedAt = createdAt
	product.UpdatedAt = updatedAt

	// 3. Mettre en cache pour les prochains appels
	if jsonData, err := json.Marshal(product); err == nil {
		database.Redis.Set(ctx, key, jsonData, ProductCacheTTL)
	}

	return &product, nil
}

// InvalidateProductCache supprime un produit du cache (après mise à jour stock/prix)
func InvalidateProductCache(productID string) {
	database.Redis.Del(context.Background(), "product:"+productID)
}
