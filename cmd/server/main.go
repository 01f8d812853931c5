package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"wallstorie_back_end/internal/config"
	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/events"
	"wallstorie_back_end/internal/gateway"
	pa "wallstorie_back_end/internal/handlers/payement"
	"wallstorie_back_end/internal/payments"
	"wallstorie_back_end/internal/routes"
	"wallstorie_back_end/internal/services"
)

func main() {
	config.Load()

	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		log.Fatal("❌ Impossible d'initialiser Razorpay : clés manquantes")
	}
	rzp := gateway.NewRazorpayClient(keyID, keySecret)
	log.Println("✅ Razorpay initialisé")

	database.ConnectDatabases()

	// ✅ Initialiser les prepared statements pour améliorer les performances
	database.InitPreparedStatements()

	// ✅ Pré-chauffer le cache Redis
	warmupRedisCache()

	initOAuthProviders()

	paySession, err := database.GetPaymentsSession()
	if err != nil {
		log.Fatalf("❌ Keyspace paiements inaccessible: %v", err)
	}
	store := payments.NewScyllaStore(paySession)

	carts := services.NewCartStore(database.Redis)
	stock := services.NewStockStore()

	svc := payments.NewService(store, rzp, carts, stock, keySecret)
	svc.Notifier = services.NewMailNotifier()

	// Kafka est optionnel : sans broker configuré, les événements de commande
	// ne sont simplement pas publiés.
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer := events.NewProducer(strings.Split(brokers, ","), "wallstorie-api")
		defer producer.Close()
		svc.Events = producer
		log.Println("✅ Producteur Kafka initialisé")
	} else {
		log.Println("⚠️ KAFKA_BROKERS absent, événements de commande désactivés")
	}

	// Balayeur : expire les intentions abandonnées et répare celles
	// interrompues entre vérification et confirmation.
	sweeper := payments.NewSweeper(store, stock, intentTTL(), time.Minute)
	go sweeper.Run(context.Background())

	r := gin.Default()
	handler := pa.NewHandler(svc)
	routes.RegisterRoutes(r, handler, store)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Wallstorie lancé sur le port", port)
	r.Run(":" + port)
}

// intentTTL lit la durée de vie des intentions PENDING (minutes), 30 par défaut
func intentTTL() time.Duration {
	if v := os.Getenv("PAYMENT_INTENT_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return 30 * time.Minute
}

func initOAuthProviders() {
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("❌ SESSION_SECRET manquant dans .env")
	}

	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.MaxAge(86400 * 30)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   false, // false en dev, true en prod
		SameSite: http.SameSiteLaxMode,
	}

	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		if provider := req.FormValue("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")

	if googleClientID == "" || googleClientSecret == "" {
		log.Println("⚠️ Aucun provider OAuth configuré")
		return
	}

	goth.UseProviders(google.New(
		googleClientID,
		googleClientSecret,
		baseURL+"/api/auth/google/callback",
	))
	log.Println("✅ Google OAuth activé")
}

// warmupRedisCache pré-chauffe le cache Redis pour éviter la latence du premier appel
func warmupRedisCache() {
	ctx := context.Background()
	if err := database.Redis.Ping(ctx).Err(); err == nil {
		log.Println("✅ Cache Redis pré-chauffé")
	}
}
