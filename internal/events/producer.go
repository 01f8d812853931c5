// Package events publie les événements de commande sur Kafka pour les
// consommateurs aval (fulfillment, notifications, reporting).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"wallstorie_back_end/internal/models"
)

const TopicOrderConfirmed = "orders.confirmed"

// Envelope enveloppe chaque événement avec ses métadonnées de traçage.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderConfirmedPayload struct {
	OrderID          string            `json:"order_id"`
	GatewayOrderID   string            `json:"gateway_order_id"`
	GatewayPaymentID string            `json:"gateway_payment_id"`
	UserID           string            `json:"user_id"`
	AmountCharged    float64           `json:"amount_charged"`
	Currency         string            `json:"currency"`
	Items            []models.CartItem `json:"items"`
}

type Producer struct {
	w           *kafka.Writer
	serviceName string
}

func NewProducer(brokers []string, serviceName string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TopicOrderConfirmed,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		serviceName: serviceName,
	}
}

// OrderConfirmed publie l'événement de confirmation. Clé de partition =
// order_id, pour que les événements d'une même commande restent ordonnés.
func (p *Producer) OrderConfirmed(ctx context.Context, order *models.OrderRecord) error {
	payload, err := json.Marshal(OrderConfirmedPayload{
		OrderID:          order.OrderID.String(),
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		UserID:           order.UserID,
		AmountCharged:    order.AmountCharged,
		Currency:         order.Currency,
		Items:            order.Items,
	})
	if err != nil {
		return err
	}

	env, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  "OrderConfirmed",
		OccurredAt: time.Now().UTC(),
		Producer:   p.serviceName,
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.OrderID.String()),
		Value: env,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error { return p.w.Close() }
