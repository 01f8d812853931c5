package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"wallstorie_back_end/internal/cache"
	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/models"
	"wallstorie_back_end/internal/payments"
)

// StockStore pose et restitue les réservations de stock dans le keyspace
// produits : une décrémentation unique à la création de l'intention, la
// quantité rendue si l'intention expire sans paiement.
type StockStore struct{}

func NewStockStore() *StockStore { return &StockStore{} }

// HoldStock décrémente le stock de chaque article du snapshot. Échoue sur
// stock insuffisant avant toute écriture ; une défaillance en cours de route
// laisse les articles déjà décrémentés réservés (le sweeper les rendra si
// l'intention n'aboutit pas).
func (ss *StockStore) HoldStock(ctx context.Context, items []models.CartItem) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	// Vérification d'abord, pour refuser le checkout proprement.
	for _, item := range items {
		stock, err := ss.currentStock(ctx, session, item.ProductID)
		if err != nil {
			return err
		}
		if stock < item.Quantity {
			return fmt.Errorf("%w: %s (disponible %d, demandé %d)",
				payments.ErrInsufficientStock, item.Name, stock, item.Quantity)
		}
	}

	for _, item := range items {
		if err := ss.adjust(ctx, session, item.ProductID, -item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseHold rend la réservation d'une intention expirée. Meilleur-effort :
// on log et on continue, article par article.
func (ss *StockStore) ReleaseHold(ctx context.Context, items []models.CartItem) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := ss.adjust(ctx, session, item.ProductID, item.Quantity); err != nil {
			log.Printf("⚠️ Restitution stock %s (+%d) échouée: %v", item.ProductID, item.Quantity, err)
		}
	}
	return nil
}

func (ss *StockStore) currentStock(ctx context.Context, session *gocql.Session, productID string) (int, error) {
	productUUID, err := gocql.ParseUUID(productID)
	if err != nil {
		return 0, fmt.Errorf("ID produit invalide: %s", productID)
	}

	var stock int
	if err := session.Query("SELECT stock FROM products WHERE product_id = ?", productUUID).
		WithContext(ctx).Scan(&stock); err != nil {
		return 0, fmt.Errorf("produit introuvable %s: %v", productID, err)
	}
	return stock, nil
}

func (ss *StockStore) adjust(ctx context.Context, session *gocql.Session, productID string, delta int) error {
	productUUID, err := gocql.ParseUUID(productID)
	if err != nil {
		return fmt.Errorf("ID produit invalide: %s", productID)
	}

	stock, err := ss.currentStock(ctx, session, productID)
	if err != nil {
		return err
	}

	newStock := stock + delta
	if newStock < 0 {
		newStock = 0
	}
	if err := session.Query("UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ?",
		newStock, time.Now(), productUUID).WithContext(ctx).Exec(); err != nil {
		return err
	}

	cache.InvalidateProductCache(productID)
	return nil
}
