package user

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"wallstorie_back_end/internal/payments"
)

// ✅ Récupère toutes les commandes de l'utilisateur connecté
func GetMyOrders(store payments.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			return
		}

		orders, err := store.OrdersByUser(c.Request.Context(), userID)
		if err != nil {
			log.Println("❌ Erreur récupération commandes:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": orders,
		})
	}
}

// ✅ Récupère une commande spécifique par ID
func GetOrderByID(store payments.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		orderID := c.Param("id")

		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			return
		}

		orders, err := store.OrdersByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
			return
		}

		// Sécurité : on ne cherche que parmi les commandes de l'utilisateur
		for i := range orders {
			if orders[i].OrderID.String() == orderID {
				c.JSON(http.StatusOK, orders[i])
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	}
}
