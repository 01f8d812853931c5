package payments

import (
	"context"
	"errors"
	"log"
	"time"

	"wallstorie_back_end/internal/models"
)

// Sweeper est le processus de réconciliation : il ferme les intentions que
// personne n'a jamais confirmées et répare celles interrompues entre la
// persistance de la commande et la transition finale. Il utilise le même
// compare-and-set que les finalisations vivantes, donc tourner en parallèle
// d'elles (ou en plusieurs exemplaires) est sans danger : chaque action est
// idempotente, le premier arrivé gagne.
type Sweeper struct {
	store Store
	stock StockService

	// TTL au-delà duquel une intention non confirmée expire.
	TTL time.Duration
	// Interval entre deux passes.
	Interval time.Duration
	// Batch limite le nombre d'intentions traitées par passe et par statut.
	Batch int
}

func NewSweeper(store Store, stock StockService, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		stock:    stock,
		TTL:      ttl,
		Interval: interval,
		Batch:    200,
	}
}

// Run boucle jusqu'à annulation du contexte, indépendamment du trafic HTTP.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.Interval)
	defer ticker.Stop()

	log.Printf("🧹 Sweeper de réconciliation démarré (TTL %s, passe toutes les %s)", sw.TTL, sw.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("🧹 Sweeper arrêté")
			return
		case <-ticker.C:
			if err := sw.Sweep(ctx); err != nil {
				log.Printf("❌ Passe de réconciliation échouée: %v", err)
			}
		}
	}
}

// Sweep exécute une passe complète : réparation puis expiration.
func (sw *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	// 1. Fenêtre de crash : intention VERIFIED dont la commande existe déjà
	// mais dont la transition finale s'est perdue. On rejoue simplement le
	// compare-and-set — invisible pour l'utilisateur.
	verified, err := sw.store.StaleIntents(ctx, []models.IntentStatus{models.IntentVerified}, now, sw.Batch)
	if err != nil {
		return err
	}
	for _, intent := range verified {
		sw.repair(ctx, &intent)
	}

	// 2. Intentions abandonnées : PENDING ou VERIFIED sans commande, plus
	// vieilles que le TTL → EXPIRED, et la réservation de stock est rendue.
	stale, err := sw.store.StaleIntents(ctx,
		[]models.IntentStatus{models.IntentPending, models.IntentVerified}, now.Add(-sw.TTL), sw.Batch)
	if err != nil {
		return err
	}
	for _, intent := range stale {
		sw.expire(ctx, &intent)
	}
	return nil
}

// repair renvoie true si l'intention avait déjà sa commande (réparée ou
// concurremment confirmée), false si elle reste candidate à l'expiration.
func (sw *Sweeper) repair(ctx context.Context, intent *models.PaymentIntent) bool {
	_, err := sw.store.OrderByGatewayOrderID(ctx, intent.GatewayOrderID)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		log.Printf("⚠️ Lecture registre pour %s échouée: %v", intent.GatewayOrderID, err)
		return true // on ne l'expire pas sur un doute
	}

	ok, err := sw.store.Transition(ctx, intent.GatewayOrderID, models.IntentVerified, models.IntentConfirmed)
	if err != nil {
		log.Printf("⚠️ Réparation de %s échouée: %v", intent.GatewayOrderID, err)
		return true
	}
	if ok {
		log.Printf("🔁 Intention %s réparée → CONFIRMED (commande déjà écrite)", intent.GatewayOrderID)
	}
	return true
}

func (sw *Sweeper) expire(ctx context.Context, intent *models.PaymentIntent) {
	if intent.Status == models.IntentVerified {
		// Revérifier juste avant d'expirer : une finalisation a pu écrire
		// la commande entre les deux passes.
		if sw.repair(ctx, intent) {
			return
		}
	}

	ok, err := sw.store.Transition(ctx, intent.GatewayOrderID, intent.Status, models.IntentExpired)
	if err != nil {
		log.Printf("⚠️ Expiration de %s échouée: %v", intent.GatewayOrderID, err)
		return
	}
	if !ok {
		// Une finalisation concurrente a gagné : tant mieux, rien à faire.
		return
	}

	log.Printf("🧹 Intention %s expirée (créée %s)", intent.GatewayOrderID, intent.CreatedAt.Format(time.RFC3339))

	if sw.stock != nil {
		if err := sw.stock.ReleaseHold(ctx, intent.CartSnapshot); err != nil {
			log.Printf("⚠️ Restitution stock de %s échouée: %v", intent.GatewayOrderID, err)
		}
	}
}
