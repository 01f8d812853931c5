package user

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/models"
)

//
// --- HANDLERS ADRESSES ---
//

// 🟢 GET /api/shop/address/mine
func ListMyAddresses(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	var results []models.Address

	iter := session.Query(`SELECT address_id, user_id, street, city, postal_code, country, phone, is_default
		FROM addresses WHERE user_id = ? ALLOW FILTERING`, userID).Iter()
	var (
		addressID                                    gocql.UUID
		userIDDB, street, city, postalCode, country, phone string
		isDefault                                    bool
	)
	for iter.Scan(&addressID, &userIDDB, &street, &city, &postalCode, &country, &phone, &isDefault) {
		results = append(results, models.Address{
			ID:         addressID,
			UserID:     userIDDB,
			Street:     street,
			City:       city,
			PostalCode: postalCode,
			Country:    country,
			Phone:      phone,
			IsDefault:  isDefault,
		})
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Erreur fermeture iter: %v", err)
	}

	c.JSON(http.StatusOK, results)
}

// 🟢 POST /api/shop/address
func CreateAddress(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "non authentifié"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	var input models.Address
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Données invalides"})
		return
	}

	addressID := gocql.TimeUUID()
	input.ID = addressID
	input.UserID = userID
	input.IsDefault = false

	err = session.Query(`INSERT INTO addresses (address_id, user_id, street, city, postal_code, country, phone, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		addressID, userID, input.Street, input.City, input.PostalCode, input.Country, input.Phone, false).Exec()
	if err != nil {
		log.Printf("❌ Erreur insertion adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Impossible d'ajouter l'adresse"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Adresse créée",
		"address": input,
	})
}

// 🟢 POST /api/shop/address/:id/default
func MakeDefaultAddress(c *gin.Context) {
	idParam := c.Param("id")
	userID := c.GetString("user_id")

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	addressID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID invalide"})
		return
	}
	addressUUID := gocql.UUID(addressID)

	// Vérifier que l'adresse appartient à l'utilisateur
	var userIDDB string
	err = session.Query("SELECT user_id FROM addresses WHERE address_id = ?", addressUUID).Scan(&userIDDB)
	if err != nil || userIDDB != userID {
		c.JSON(http.StatusNotFound, gin.H{"message": "Adresse non trouvée"})
		return
	}

	// Désactiver toutes les autres
	iter := session.Query("SELECT address_id FROM addresses WHERE user_id = ? ALLOW FILTERING", userID).Iter()
	var otherID gocql.UUID
	for iter.Scan(&otherID) {
		if otherID != addressUUID {
			session.Query("UPDATE addresses SET is_default = ? WHERE address_id = ?", false, otherID).Exec()
		}
	}
	iter.Close()

	err = session.Query("UPDATE addresses SET is_default = ? WHERE address_id = ?", true, addressUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur mise à jour adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Impossible de définir par défaut"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse mise par défaut", "id": idParam})
}

// 🟢 DELETE /api/shop/address/:id
func DeleteAddress(c *gin.Context) {
	idParam := c.Param("id")
	userID := c.GetString("user_id")

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	addressID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID invalide"})
		return
	}
	addressUUID := gocql.UUID(addressID)

	var userIDDB string
	err = session.Query("SELECT user_id FROM addresses WHERE address_id = ?", addressUUID).Scan(&userIDDB)
	if err != nil || userIDDB != userID {
		c.JSON(http.StatusNotFound, gin.H{"message": "Adresse non trouvée"})
		return
	}

	err = session.Query("DELETE FROM addresses WHERE address_id = ?", addressUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur suppression adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Suppression impossible"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse supprimée"})
}
