package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "rzp_test_secret"
	orderID := "order_Nf8qXj2sK1"
	paymentID := "pay_Nf8r0c4Lm2"

	sig := SignPayment(secret, orderID, paymentID)

	t.Run("signature correcte", func(t *testing.T) {
		assert.True(t, VerifySignature(secret, orderID, paymentID, sig))
	})

	t.Run("signature altérée", func(t *testing.T) {
		tampered := sig[:len(sig)-1] + "0"
		if tampered == sig {
			tampered = sig[:len(sig)-1] + "1"
		}
		assert.False(t, VerifySignature(secret, orderID, paymentID, tampered))
	})

	t.Run("mauvais secret", func(t *testing.T) {
		assert.False(t, VerifySignature("autre_secret", orderID, paymentID, sig))
	})

	t.Run("identifiants intervertis", func(t *testing.T) {
		// La signature couvre le couple (ordre, paiement) : inverser les
		// deux doit invalider.
		assert.False(t, VerifySignature(secret, paymentID, orderID, sig))
	})

	t.Run("entrées vides", func(t *testing.T) {
		assert.False(t, VerifySignature("", orderID, paymentID, sig))
		assert.False(t, VerifySignature(secret, "", paymentID, sig))
		assert.False(t, VerifySignature(secret, orderID, "", sig))
		assert.False(t, VerifySignature(secret, orderID, paymentID, ""))
	})

	t.Run("casse hexadécimale stricte", func(t *testing.T) {
		assert.False(t, VerifySignature(secret, orderID, paymentID, strings.ToUpper(sig)))
	})
}
