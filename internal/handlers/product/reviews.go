package product

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/models"
	"wallstorie_back_end/internal/payments"
)

// CreateReview crée un avis sur un produit. Seuls les acheteurs du produit
// peuvent en laisser un.
func CreateReview(store payments.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		productID := c.Param("id")

		var req struct {
			Rating  int    `json:"rating" binding:"required,min=1,max=5"`
			Comment string `json:"comment" binding:"required,min=10,max=500"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
			return
		}

		productUUID, err := gocql.ParseUUID(productID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
			return
		}

		// Vérifier que le produit existe
		productsSession, err := database.GetProductsSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
			return
		}

		var existingID gocql.UUID
		if err := productsSession.Query("SELECT product_id FROM products WHERE product_id = ?", productUUID).Scan(&existingID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}

		// Vérifier que l'utilisateur a acheté ce produit
		orders, err := store.OrdersByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur vérification achats"})
			return
		}

		hasPurchased := false
		for _, order := range orders {
			for _, item := range order.Items {
				if item.ProductID == productID {
					hasPurchased = true
					break
				}
			}
		}

		if !hasPurchased {
			c.JSON(http.StatusForbidden, gin.H{"error": "Vous devez avoir acheté ce produit pour laisser un avis"})
			return
		}

		// Récupérer le nom de l'utilisateur
		userName := "Utilisateur"
		if usersSession, err := database.GetUsersSession(); err == nil {
			var name string
			if err := usersSession.Query("SELECT name FROM users WHERE user_id = ?", userID).Scan(&name); err == nil && name != "" {
				userName = name
			}
		}

		reviewID := gocql.TimeUUID()
		now := time.Now()

		err = productsSession.Query(`
			INSERT INTO reviews (review_id, product_id, user_id, user_name, rating, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, reviewID, productUUID, userID, userName, req.Rating, req.Comment, now).Exec()

		if err != nil {
			log.Printf("❌ Erreur création avis: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création avis"})
			return
		}

		// Index de lecture par produit
		err = productsSession.Query(`
			INSERT INTO reviews_by_product (product_id, review_id, user_id, user_name, rating, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, productUUID, reviewID, userID, userName, req.Rating, req.Comment, now).Exec()

		if err != nil {
			log.Printf("⚠️ Erreur index reviews_by_product: %v", err)
		}

		log.Printf("⭐ Avis créé: %s pour produit %s (note: %d/5)", reviewID, productID, req.Rating)

		c.JSON(http.StatusCreated, gin.H{
			"message": "Avis créé avec succès",
			"review": models.Review{
				ID:        reviewID,
				ProductID: productUUID,
				UserID:    userID,
				UserName:  userName,
				Rating:    req.Rating,
				Comment:   req.Comment,
				CreatedAt: now,
			},
		})
	}
}

// GetProductReviews liste les avis d'un produit, les plus récents d'abord
func GetProductReviews(c *gin.Context) {
	productID := c.Param("id")

	productUUID, err := gocql.ParseUUID(productID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`
		SELECT review_id, user_id, user_name, rating, comment, created_at
		FROM reviews_by_product WHERE product_id = ?
	`, productUUID).Iter()

	var reviews []models.Review
	var r models.Review
	r.ProductID = productUUID

	for iter.Scan(&r.ID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.CreatedAt) {
		reviews = append(reviews, r)
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture avis"})
		return
	}

	// Note moyenne
	average := 0.0
	if len(reviews) > 0 {
		sum := 0
		for _, review := range reviews {
			sum += review.Rating
		}
		average = float64(sum) / float64(len(reviews))
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"count":   len(reviews),
		"average": average,
	})
}
