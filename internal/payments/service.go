// Package payments implémente la réconciliation checkout-paiement : un panier
// est facturé et transformé en commande exactement une fois, même quand le
// client réessaie, que Razorpay livre sa confirmation deux fois, ou que le
// processus meurt entre deux écritures. La garantie repose sur deux choses :
// le compare-and-set du Store (aucun entrelacement ne fait avancer deux fois
// la même intention) et le court-circuit idempotent sur CONFIRMED (un rejeu
// ressert la commande existante sans aucun nouveau travail).
package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"wallstorie_back_end/internal/models"
)

// Gateway est l'adaptateur vers la passerelle de paiement. Injecté, jamais
// singleton : les tests substituent un faux.
type Gateway interface {
	// CreateRemoteOrder crée l'ordre côté passerelle et renvoie son id.
	// L'appel est borné par le contexte ; en cas d'échec l'appelant reçoit
	// ErrGatewayUnavailable et réessaie lui-même (pas de boucle interne).
	CreateRemoteOrder(ctx context.Context, amount float64, currency, receipt string) (string, error)
}

// CartService lit et vide le panier de l'utilisateur.
type CartService interface {
	ReadCart(ctx context.Context, userID string) ([]models.CartItem, error)
	ClearCart(ctx context.Context, userID string) error
}

// StockService gère la réservation de stock : une décrémentation unique à la
// création de l'intention, restituée si l'intention expire.
type StockService interface {
	HoldStock(ctx context.Context, items []models.CartItem) error
	ReleaseHold(ctx context.Context, items []models.CartItem) error
}

// Publisher diffuse l'événement de confirmation (Kafka en prod). Optionnel.
type Publisher interface {
	OrderConfirmed(ctx context.Context, order *models.OrderRecord) error
}

// Notifier envoie la confirmation client (e-mail). Optionnel, meilleur-effort.
type Notifier interface {
	SendOrderConfirmation(order *models.OrderRecord)
}

// Service orchestre la création d'intentions et leur finalisation.
type Service struct {
	store   Store
	gateway Gateway
	carts   CartService
	stock   StockService
	secret  string // secret partagé passerelle, utilisé uniquement par le vérificateur

	// Effets de bord optionnels, jamais fatals au paiement.
	Events   Publisher
	Notifier Notifier

	// GatewayTimeout borne l'appel réseau de CreateIntent.
	GatewayTimeout time.Duration
}

func NewService(store Store, gateway Gateway, carts CartService, stock StockService, secret string) *Service {
	return &Service{
		store:          store,
		gateway:        gateway,
		carts:          carts,
		stock:          stock,
		secret:         secret,
		GatewayTimeout: 10 * time.Second,
	}
}

// CreateIntent fige le panier de l'utilisateur, pose la réservation de stock,
// obtient un gateway_order_id auprès de la passerelle puis persiste une
// intention PENDING. Si la passerelle échoue, rien n'est persisté : la
// réservation est restituée et l'appelant reçoit ErrGatewayUnavailable.
func (s *Service) CreateIntent(ctx context.Context, userID string, amount float64, currency string) (*models.PaymentIntent, error) {
	items, err := s.carts.ReadCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Snapshot figé : le panier vivant peut changer, l'intention non.
	snapshot := append([]models.CartItem(nil), items...)

	if err := s.stock.HoldStock(ctx, snapshot); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		return nil, fmt.Errorf("réservation stock: %w", err)
	}

	intentID := gocql.TimeUUID()
	gwCtx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
	defer cancel()

	gatewayOrderID, err := s.gateway.CreateRemoteOrder(gwCtx, amount, currency, intentID.String())
	if err != nil {
		s.releaseBestEffort(snapshot)
		log.Printf("❌ Création ordre passerelle échouée: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	now := time.Now().UTC()
	intent := &models.PaymentIntent{
		IntentID:       intentID,
		GatewayOrderID: gatewayOrderID,
		UserID:         userID,
		Amount:         amount,
		Currency:       currency,
		CartSnapshot:   snapshot,
		Status:         models.IntentPending,
		CreatedAt:      now,
		LastUpdatedAt:  now,
	}
	if err := s.store.CreateIntent(ctx, intent); err != nil {
		s.releaseBestEffort(snapshot)
		return nil, fmt.Errorf("persistance intention: %w", err)
	}

	log.Printf("💳 Intention %s créée (%s, %.2f %s) pour %s",
		gatewayOrderID, intentID, amount, currency, userID)
	return intent, nil
}

// Finalize convertit une intention vérifiée en commande, exactement une fois.
// Tous les chemins convergent ici : le retour du client après paiement comme
// un éventuel callback passerelle, livré zéro, une ou plusieurs fois, dans
// n'importe quel ordre.
func (s *Service) Finalize(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (*models.OrderRecord, error) {
	for {
		intent, err := s.store.GetIntent(ctx, gatewayOrderID)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownIntent
		}
		if err != nil {
			return nil, fmt.Errorf("lecture intention: %w", err)
		}

		// Rejeu idempotent : déjà finalisée, on ressert la même commande.
		if intent.Status == models.IntentConfirmed {
			order, err := s.store.OrderByGatewayOrderID(ctx, gatewayOrderID)
			if err != nil {
				return nil, fmt.Errorf("lecture registre idempotence: %w", err)
			}
			log.Printf("🔁 Rejeu finalisation %s → commande %s", gatewayOrderID, order.OrderID)
			return order, nil
		}

		if intent.Status.Closed() {
			return nil, ErrIntentClosed
		}

		if !VerifySignature(s.secret, gatewayOrderID, gatewayPaymentID, signature) {
			// Événement de sécurité. L'intention reste telle quelle : un
			// rejeu légitime avec la vraie signature peut encore aboutir.
			log.Printf("🚨 Signature invalide pour %s (paiement %s)", gatewayOrderID, gatewayPaymentID)
			return nil, ErrSignatureMismatch
		}

		if intent.Status == models.IntentPending {
			ok, err := s.store.Transition(ctx, gatewayOrderID, models.IntentPending, models.IntentVerified)
			if err != nil {
				return nil, fmt.Errorf("transition PENDING→VERIFIED: %w", err)
			}
			if !ok {
				// Un appel concurrent a déjà fait avancer l'intention :
				// on relit et on retombe sur le chemin idempotent.
				continue
			}
		}

		// Ici l'intention est VERIFIED — par nous, ou laissée là par un
		// processus mort après avoir écrit la commande. SaveOrder est
		// idempotent sur gateway_order_id, donc les deux cas convergent.
		order := &models.OrderRecord{
			OrderID:          gocql.TimeUUID(),
			IntentID:         intent.IntentID,
			GatewayOrderID:   gatewayOrderID,
			GatewayPaymentID: gatewayPaymentID,
			UserID:           intent.UserID,
			Items:            intent.CartSnapshot,
			AmountCharged:    intent.Amount,
			Currency:         intent.Currency,
			ConfirmedAt:      time.Now().UTC(),
		}
		saved, err := s.store.SaveOrder(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("persistance commande: %w", err)
		}

		confirmed, err := s.store.Transition(ctx, gatewayOrderID, models.IntentVerified, models.IntentConfirmed)
		if err != nil {
			// La commande est durable ; le sweeper rattrapera la
			// transition manquée. Surtout ne pas échouer la requête.
			log.Printf("⚠️ Transition VERIFIED→CONFIRMED perdue pour %s: %v", gatewayOrderID, err)
		}

		log.Printf("✅ Commande %s confirmée pour %s (%.2f %s)",
			saved.OrderID, saved.UserID, saved.AmountCharged, saved.Currency)
		if confirmed {
			// Seul le gagnant du compare-and-set final déclenche les
			// effets de bord, sinon un rejeu concurrent les dupliquerait.
			s.afterConfirm(saved)
		}
		return saved, nil
	}
}

// afterConfirm exécute les effets de bord post-confirmation : panier vidé,
// événement publié, e-mail envoyé. Tout est meilleur-effort — la commande est
// déjà enregistrée, un échec ici se log et ne remonte jamais au client.
func (s *Service) afterConfirm(order *models.OrderRecord) {
	ctx := context.Background()

	if err := s.carts.ClearCart(ctx, order.UserID); err != nil {
		log.Printf("⚠️ Vidage panier %s échoué: %v", order.UserID, err)
	}

	if s.Events != nil {
		if err := s.Events.OrderConfirmed(ctx, order); err != nil {
			log.Printf("⚠️ Publication événement commande %s échouée: %v", order.OrderID, err)
		}
	}

	if s.Notifier != nil {
		go s.Notifier.SendOrderConfirmation(order)
	}
}

func (s *Service) releaseBestEffort(items []models.CartItem) {
	if err := s.stock.ReleaseHold(context.Background(), items); err != nil {
		log.Printf("⚠️ Restitution stock échouée: %v", err)
	}
}
