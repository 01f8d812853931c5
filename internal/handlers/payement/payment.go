package pa

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wallstorie_back_end/internal/payments"
)

// Handler expose les endpoints de paiement par dessus le service de checkout
type Handler struct {
	svc *payments.Service
}

func NewHandler(svc *payments.Service) *Handler {
	return &Handler{svc: svc}
}

// CreateOrder démarre un checkout : snapshot du panier, réservation du stock,
// création de la commande côté passerelle. Le montant est renvoyé au front
// pour ouvrir le widget de paiement.
func (h *Handler) CreateOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var req struct {
		Amount   float64 `json:"amount" binding:"required"`
		Currency string  `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Montant invalide"})
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}
	if len(currency) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Devise invalide"})
		return
	}

	intent, err := h.svc.CreateIntent(c.Request.Context(), userID, req.Amount, currency)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le panier est vide"})
		case errors.Is(err, payments.ErrInsufficientStock):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock insuffisant pour un ou plusieurs articles"})
		case errors.Is(err, payments.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Passerelle de paiement indisponible, réessayez"})
		default:
			log.Printf("❌ Erreur création intent pour %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création de la commande"})
		}
		return
	}

	log.Printf("💳 Intent créé pour %s: %s (%.2f %s)", userID, intent.GatewayOrderID, intent.Amount, intent.Currency)

	c.JSON(http.StatusCreated, gin.H{
		"gatewayOrderId": intent.GatewayOrderID,
		"amount":         intent.Amount,
		"currency":       intent.Currency,
	})
}

// VerifyPayment finalise un checkout après retour de la passerelle. L'appel
// est idempotent : rejouer une vérification déjà confirmée renvoie la même
// commande. L'authentification se fait par la signature, pas par le JWT.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req struct {
		GatewayOrderID   string `json:"gatewayOrderId" binding:"required"`
		GatewayPaymentID string `json:"gatewayPaymentId" binding:"required"`
		Signature        string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	order, err := h.svc.Finalize(c.Request.Context(), req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrUnknownIntent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Commande inconnue"})
		case errors.Is(err, payments.ErrIntentClosed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cette commande n'est plus payable"})
		case errors.Is(err, payments.ErrSignatureMismatch):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature de paiement invalide"})
		default:
			log.Printf("❌ Erreur finalisation %s: %v", req.GatewayOrderID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Vérification impossible, réessayez"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "CONFIRMED",
		"orderId": order.OrderID.String(),
	})
}
