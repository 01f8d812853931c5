package models

import (
	"time"

	"github.com/gocql/gocql"
)

// OrderRecord est créée par exactement une finalisation réussie d'exactement
// une intention (1:1). Immuable une fois écrite.
type OrderRecord struct {
	OrderID          gocql.UUID `json:"order_id" db:"order_id"`
	IntentID         gocql.UUID `json:"intent_id" db:"intent_id"`
	GatewayOrderID   string     `json:"gateway_order_id" db:"gateway_order_id"`
	GatewayPaymentID string     `json:"gateway_payment_id" db:"gateway_payment_id"`
	UserID           string     `json:"user_id" db:"user_id"`
	Items            []CartItem `json:"items" db:"items"`
	AmountCharged    float64    `json:"amount_charged" db:"amount_charged"`
	Currency         string     `json:"currency" db:"currency"`
	ConfirmedAt      time.Time  `json:"confirmed_at" db:"confirmed_at"`
}
