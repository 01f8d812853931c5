package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts du cycle de vie d'une intention de paiement.
// Les transitions vont toujours vers l'avant, jamais en arrière.
type IntentStatus string

const (
	IntentPending   IntentStatus = "PENDING"
	IntentVerified  IntentStatus = "VERIFIED"
	IntentConfirmed IntentStatus = "CONFIRMED"
	IntentFailed    IntentStatus = "FAILED"
	IntentExpired   IntentStatus = "EXPIRED"
)

// Closed indique un statut terminal côté échec : aucune résurrection possible.
func (s IntentStatus) Closed() bool {
	return s == IntentFailed || s == IntentExpired
}

// PaymentIntent représente une tentative de checkout, de sa création jusqu'à
// la confirmation de la commande ou l'expiration.
// Le snapshot du panier est figé à la création et n'est jamais relu depuis
// le panier vivant : une modification du panier pendant le paiement est sans
// effet sur l'intention en cours.
type PaymentIntent struct {
	IntentID       gocql.UUID   `json:"intent_id" db:"intent_id"`
	GatewayOrderID string       `json:"gateway_order_id" db:"gateway_order_id"`
	UserID         string       `json:"user_id" db:"user_id"`
	Amount         float64      `json:"amount" db:"amount"`
	Currency       string       `json:"currency" db:"currency"`
	CartSnapshot   []CartItem   `json:"cart_snapshot" db:"cart_snapshot"`
	Status         IntentStatus `json:"status" db:"status"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	LastUpdatedAt  time.Time    `json:"last_updated_at" db:"last_updated_at"`
}
