package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature recalcule la signature attendue depuis le secret partagé
// (HMAC-SHA256 hex sur "orderID|paymentID", le schéma documenté Razorpay) et
// compare en temps constant. Fonction pure : aucune E/S, aucun effet de bord,
// appelable en concurrence. Une entrée malformée vérifie simplement à false.
func VerifySignature(secret, gatewayOrderID, gatewayPaymentID, claimed string) bool {
	if secret == "" || gatewayOrderID == "" || gatewayPaymentID == "" || claimed == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(claimed))
}

// SignPayment produit la signature attendue pour un couple ordre/paiement.
// Sert aux tests et aux outils internes ; la vraie signature vient de Razorpay.
func SignPayment(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
