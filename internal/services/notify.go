package services

import (
	"log"

	"wallstorie_back_end/internal/database"
	"wallstorie_back_end/internal/models"
	"wallstorie_back_end/internal/utils"
)

// MailNotifier envoie la confirmation de commande par e-mail, avec la facture
// PDF en pièce jointe. Implémente payments.Notifier : tout échec se log, le
// paiement est déjà enregistré.
type MailNotifier struct{}

func NewMailNotifier() *MailNotifier { return &MailNotifier{} }

func (n *MailNotifier) SendOrderConfirmation(order *models.OrderRecord) {
	email, err := lookupUserEmail(order.UserID)
	if err != nil || email == "" {
		log.Printf("⚠️ E-mail introuvable pour l'utilisateur %s: %v", order.UserID, err)
		return
	}

	html := utils.GenerateOrderConfirmationHTML(*order)

	pdf, err := utils.GenerateInvoicePDF(*order)
	if err != nil {
		log.Println("❌ Erreur génération PDF :", err)
		pdf = nil // l'e-mail part quand même, sans pièce jointe
	}

	if err := utils.SendConfirmationEmail(email, "Confirmation de votre commande Wallstorie", html, pdf); err != nil {
		log.Println("❌ Erreur envoi e-mail confirmation :", err)
	} else {
		log.Println("📧 E-mail de confirmation envoyé à", email)
	}
}

func lookupUserEmail(userID string) (string, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return "", err
	}

	var email string
	if err := session.Query("SELECT email FROM users WHERE user_id = ?", userID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}
