package product

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wallstorie_back_end/internal/cache"
	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/services"
)

// =========================
// 🟢 UPLOAD IMAGE PRODUIT
// =========================
func UploadProductImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}

	imageURL, err := services.UploadProductImage(header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload MinIO: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "✅ Image uploadée avec succès",
		"image_url": imageURL,
	})
}

// =========================
// 🟡 AJOUTER IMAGE À UN PRODUIT
// =========================
func AddImageToProduct(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		ImageURL  string `json:"image_url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	productUUID, err := gocql.ParseUUID(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Récupérer les URLs existantes
	var existingURLs []string
	err = session.Query("SELECT image_urls FROM products WHERE product_id = ?", productUUID).Scan(&existingURLs)
	if err != nil && err != gocql.ErrNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}

	existingURLs = append(existingURLs, req.ImageURL)

	err = session.Query("UPDATE products SET image_urls = ? WHERE product_id = ?", existingURLs, productUUID).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	cache.InvalidateProductCache(req.ProductID)

	c.JSON(http.StatusOK, gin.H{
		"message":    "Image ajoutée au produit",
		"image_urls": existingURLs,
	})
}

// =========================
// 🔵 URL SIGNÉE (BUCKET PRIVÉ)
// =========================
func GetSignedImageURL(c *gin.Context) {
	objectName := c.Query("object")
	if objectName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'object' manquant"})
		return
	}

	signedURL, err := services.PresignedImageURL(objectName, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération URL signée: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        signedURL,
		"expires_in": int((15 * time.Minute).Seconds()),
	})
}
