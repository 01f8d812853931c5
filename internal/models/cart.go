package models

// CartItem est la ligne de panier stockée dans Redis (clé cart:<user_id>)
// et figée telle quelle dans le snapshot d'une intention de paiement.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"image_url,omitempty"`
}
