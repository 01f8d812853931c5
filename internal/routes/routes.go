package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	pa "wallstorie_back_end/internal/handlers/payement"
	"wallstorie_back_end/internal/handlers/product"
	"wallstorie_back_end/internal/handlers/user"
	"wallstorie_back_end/internal/middleware"
	"wallstorie_back_end/internal/payments"
)

// RegisterRoutes branche l'API complète sur le moteur gin.
func RegisterRoutes(r *gin.Engine, payHandler *pa.Handler, store payments.Store) {
	r.Use(cors.New(corsConfig()))

	api := r.Group("/api")
	api.Use(middleware.APIRateLimit())

	// ================== AUTH ==================
	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RegisterRateLimit(), user.CreateUser)
		auth.POST("/login", middleware.LoginRateLimit(), user.Login)
		auth.POST("/google/code", user.GoogleCodeLogin)
		auth.GET("/me", middleware.AuthRequired(), user.Me)
		auth.GET("/:provider", user.BeginAuth)
		auth.GET("/:provider/callback", user.CallbackAuth)
	}

	// ================== CATALOGUE (public) ==================
	products := api.Group("/products")
	{
		products.GET("", product.GetAllProducts)
		products.GET("/:id", product.GetProduct)
		products.GET("/:id/reviews", product.GetProductReviews)
		products.GET("/category/:category", product.GetProductsByCategory)

		// Écriture réservée aux admins
		admin := products.Group("")
		admin.Use(middleware.AuthRequired(), middleware.RequireAdmin)
		{
			admin.POST("", product.CreateProduct)
			admin.POST("/images", product.UploadProductImage)
			admin.POST("/images/attach", product.AddImageToProduct)
			admin.GET("/images/signed", product.GetSignedImageURL)
		}
	}

	// ================== BOUTIQUE (connecté) ==================
	shop := api.Group("/shop")
	{
		shop.GET("/search", product.SearchProducts)

		authed := shop.Group("")
		authed.Use(middleware.AuthRequired())
		{
			// Panier
			authed.GET("/cart", user.GetCart)
			authed.GET("/cart/ws", user.CartWebSocket)
			authed.POST("/cart/add", user.AddToCart)
			authed.PUT("/cart/:productId", user.UpdateCartItem)
			authed.DELETE("/cart/clear", user.ClearCart)
			authed.DELETE("/cart/:productId", user.RemoveFromCart)

			// Adresses
			authed.GET("/address/mine", user.ListMyAddresses)
			authed.POST("/address", user.CreateAddress)
			authed.POST("/address/:id/default", user.MakeDefaultAddress)
			authed.DELETE("/address/:id", user.DeleteAddress)

			// Commandes
			authed.GET("/order/mine", user.GetMyOrders(store))
			authed.GET("/order/:id", user.GetOrderByID(store))

			// Avis
			authed.POST("/review/:id", product.CreateReview(store))
		}
	}

	// ================== PAIEMENTS ==================
	pay := api.Group("/payments")
	{
		pay.POST("/create-order", middleware.AuthRequired(), payHandler.CreateOrder)

		// verify-payment est authentifié par la signature HMAC, pas par le JWT :
		// le retour de la passerelle peut arriver hors session.
		pay.POST("/verify-payment", middleware.PaymentRateLimit(), payHandler.VerifyPayment)
	}
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()

	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	cfg.AllowOrigins = strings.Split(origins, ",")
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.AllowCredentials = true
	cfg.MaxAge = 12 * time.Hour

	return cfg
}
