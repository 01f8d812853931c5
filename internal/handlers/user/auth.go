package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"wallstorie_back_end/internal/config"
	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/models"
	"wallstorie_back_end/internal/utils"
)

// ================== AUTH LOCALE ==================

func CreateUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// email déjà pris pour un compte local ?
	if _, err := lookupUserIDByEmail(email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte avec cet email existe déjà"})
		return
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	user := models.User{
		ID:       uuid.NewString(),
		Name:     input.Name,
		Email:    email,
		Password: hashedPassword,
		Role:     "customer",
		Provider: "local",
	}

	if err := insertUser(user); err != nil {
		log.Printf("❌ Erreur insertion utilisateur %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	token, _ := utils.GenerateJWT(user)
	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"userId": user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	})
}

func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := lookupUserByEmail(email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	ok, err := utils.VerifyPassword(input.Password, user.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	token, _ := utils.GenerateJWT(user)
	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"userId": user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	})
}

// ================== AUTH SOCIALE (WEB) ==================

func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider != "google" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider non supporté"})
		return
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	callbackURL := baseURL + "/api/auth/google/callback"

	goth.UseProviders(google.New(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		callbackURL,
	))

	ctx := context.Background()
	state := generateRandomState()
	if redirectURL := c.Query("redirect_url"); redirectURL != "" {
		_ = database.Redis.Set(ctx, "oauth_redirect:"+state, redirectURL, 10*time.Minute).Err()
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	q.Set("state", state)
	c.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

func CallbackAuth(c *gin.Context) {
	if c.Param("provider") != "google" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider non supporté"})
		return
	}

	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Erreur callback OAuth: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification Google échouée"})
		return
	}

	handleOAuthUser(c, "google", gothUser.UserID, gothUser.Email, gothUser.Name, c.Query("state"))
}

// ================== AUTH SOCIALE (SPA/MOBILE) ==================

// GoogleCodeLogin échange un code d'autorisation contre un token côté serveur,
// pour les clients SPA/mobile qui ne passent pas par le flux session.
func GoogleCodeLogin(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code manquant"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	token, err := config.GoogleOAuthConfig.Exchange(ctx, body.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Code Google invalide"})
		return
	}

	client := config.GoogleOAuthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur vérification Google"})
		return
	}
	defer resp.Body.Close()

	var gu struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil || gu.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Profil Google illisible"})
		return
	}

	user := findOrCreateOAuthUser("google", gu.ID, gu.Email, gu.Name)
	jwtToken, _ := utils.GenerateJWT(user)
	c.JSON(http.StatusOK, gin.H{"token": jwtToken, "email": user.Email, "name": user.Name})
}

// ================== UTILITAIRES ==================

func lookupUserIDByEmail(email string) (string, error) {
	var userID string
	err := database.GetPreparedGetUserByEmail().Bind(email).Scan(&userID)
	return userID, err
}

func lookupUserByEmail(email string) (models.User, error) {
	userID, err := lookupUserIDByEmail(email)
	if err != nil {
		return models.User{}, err
	}
	return lookupUserByID(userID)
}

func lookupUserByID(userID string) (models.User, error) {
	user := models.User{ID: userID}
	err := database.GetPreparedGetUserByID().Bind(userID).
		Scan(&user.Email, &user.Password, &user.Name, &user.Role, &user.Provider, &user.ProviderID)
	return user, err
}

func insertUser(user models.User) error {
	if err := database.GetPreparedInsertUser().Bind(
		user.ID, user.Email, user.Password, user.Name, user.Role,
		user.Provider, user.ProviderID, time.Now(),
	).Exec(); err != nil {
		return err
	}
	return database.GetPreparedInsertUserByEmail().Bind(user.Email, user.ID).Exec()
}

func findOrCreateOAuthUser(provider, providerID, email, name string) models.User {
	email = strings.ToLower(strings.TrimSpace(email))

	// Compte existant ? (fusion par email, le provider est mis à jour)
	if user, err := lookupUserByEmail(email); err == nil {
		if user.Provider != provider || user.ProviderID != providerID {
			session, serr := database.GetUsersSession()
			if serr == nil {
				_ = session.Query(
					"UPDATE users SET provider = ?, provider_id = ?, name = ? WHERE user_id = ?",
					provider, providerID, name, user.ID,
				).Exec()
			}
			log.Printf("🔄 Compte existant fusionné avec provider %s : %s", provider, email)
		} else {
			log.Printf("✅ Utilisateur OAuth existant trouvé : %s", email)
		}
		return user
	}

	user := models.User{
		ID:         uuid.NewString(),
		Email:      email,
		Name:       name,
		Role:       "customer",
		Provider:   provider,
		ProviderID: providerID,
	}
	if err := insertUser(user); err != nil {
		log.Printf("❌ Erreur création utilisateur OAuth %s: %v", email, err)
	} else {
		log.Printf("🆕 Utilisateur OAuth créé (%s) : %s", provider, email)
	}
	return user
}

func handleOAuthUser(c *gin.Context, provider, providerID, email, name, state string) {
	ctx := context.Background()
	user := findOrCreateOAuthUser(provider, providerID, email, name)
	token, _ := utils.GenerateJWT(user)

	redirectURI, _ := database.Redis.Get(ctx, "oauth_redirect:"+state).Result()
	_, _ = database.Redis.Del(ctx, "oauth_redirect:"+state).Result()

	if redirectURI == "" {
		redirectURI = os.Getenv("FRONTEND_URL")
		if redirectURI == "" {
			redirectURI = "http://localhost:5173"
		}
	}

	allowed := []string{
		"http://localhost:5173",
		"http://localhost:3000",
		"https://wallstorie.in",
		"https://www.wallstorie.in",
	}
	valid := false
	for _, o := range allowed {
		if strings.HasPrefix(redirectURI, o) {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Redirect url non autorisé"})
		return
	}

	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	final := redirectURI + sep + "token=" + url.QueryEscape(token)
	c.Redirect(http.StatusTemporaryRedirect, final)
}

func Me(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	user, err := lookupUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":   user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"role":     user.Role,
		"provider": user.Provider,
	})
}
