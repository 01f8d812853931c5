package payments

import (
	"context"
	"time"

	"wallstorie_back_end/internal/models"
)

// Store est la source de vérité "cette tentative a-t-elle été finalisée".
// Toute mutation de statut passe par Transition, le compare-and-set qui sert
// de primitive de contrôle de concurrence à tout le sous-système.
type Store interface {
	// CreateIntent persiste une nouvelle intention PENDING. Le
	// gateway_order_id doit être inédit ; l'intention n'est jamais supprimée
	// ensuite (conservée pour audit).
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error

	// GetIntent renvoie ErrNotFound si aucune intention ne porte cet id.
	GetIntent(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error)

	// Transition passe l'intention de from à to uniquement si son statut
	// courant vaut from. Renvoie false, sans erreur, si un autre appelant
	// l'a déjà fait avancer.
	Transition(ctx context.Context, gatewayOrderID string, from, to models.IntentStatus) (bool, error)

	// StaleIntents liste les intentions dans un des statuts donnés créées
	// avant l'instant donné. Utilisé par le sweeper.
	StaleIntents(ctx context.Context, statuses []models.IntentStatus, before time.Time, limit int) ([]models.PaymentIntent, error)

	// SaveOrder persiste la commande de façon idempotente : le registre
	// gateway_order_id → order_id est un index unique, et si une commande
	// existe déjà pour cet identifiant passerelle, c'est elle qui est
	// renvoyée, sans nouvelle écriture.
	SaveOrder(ctx context.Context, order *models.OrderRecord) (*models.OrderRecord, error)

	// OrderByGatewayOrderID résout le registre d'idempotence.
	// ErrNotFound si aucune commande n'existe pour cet identifiant.
	OrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.OrderRecord, error)

	// OrdersByUser renvoie les commandes d'un utilisateur, les plus
	// récentes d'abord.
	OrdersByUser(ctx context.Context, userID string) ([]models.OrderRecord, error)
}
