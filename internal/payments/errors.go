package payments

import "errors"

// Taxonomie d'erreurs du sous-système paiement. Les handlers les traduisent
// en codes HTTP via errors.Is ; tout le reste est une erreur de persistance
// fatale à la requête en cours (jamais à l'état stocké).
var (
	// ErrGatewayUnavailable : échec transitoire de la passerelle, l'appelant
	// peut réessayer. Aucune écriture partielle sur ce chemin.
	ErrGatewayUnavailable = errors.New("passerelle de paiement indisponible")

	// ErrUnknownIntent : aucune intention pour ce gateway_order_id.
	ErrUnknownIntent = errors.New("intention de paiement inconnue")

	// ErrIntentClosed : intention FAILED ou EXPIRED, pas de résurrection.
	ErrIntentClosed = errors.New("intention de paiement close")

	// ErrSignatureMismatch : la confirmation ne provient pas de la passerelle.
	// L'intention reste PENDING pour qu'un rejeu légitime puisse aboutir.
	ErrSignatureMismatch = errors.New("signature de paiement invalide")

	ErrEmptyCart         = errors.New("panier vide")
	ErrInsufficientStock = errors.New("stock insuffisant")

	// ErrNotFound est renvoyée par les stores quand la ligne n'existe pas.
	ErrNotFound = errors.New("introuvable")
)
