// Package gateway adapte la passerelle de paiement Razorpay derrière
// l'interface payments.Gateway. Le client est construit au démarrage et
// injecté — pas de singleton de processus.
package gateway

import (
	"context"
	"fmt"
	"math"

	razorpay "github.com/razorpay/razorpay-go"
)

type RazorpayClient struct {
	api *razorpay.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{api: razorpay.NewClient(keyID, keySecret)}
}

// CreateRemoteOrder crée un ordre Razorpay et renvoie son id ("order_...").
// Le SDK ne prend pas de contexte : on borne l'appel nous-mêmes pour que la
// requête entrante garde un timeout propre.
func (rc *RazorpayClient) CreateRemoteOrder(ctx context.Context, amount float64, currency, receipt string) (string, error) {
	type result struct {
		orderID string
		err     error
	}
	ch := make(chan result, 1)

	go func() {
		// Razorpay compte en plus petite unité (paise pour l'INR).
		body := map[string]interface{}{
			"amount":   int64(math.Round(amount * 100)),
			"currency": currency,
			"receipt":  receipt,
		}
		order, err := rc.api.Order.Create(body, nil)
		if err != nil {
			ch <- result{err: err}
			return
		}
		id, ok := order["id"].(string)
		if !ok || id == "" {
			ch <- result{err: fmt.Errorf("réponse Razorpay sans id d'ordre: %v", order)}
			return
		}
		ch <- result{orderID: id}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.orderID, res.err
	}
}
