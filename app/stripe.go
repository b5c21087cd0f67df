package app

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/HelpRelance/helprelance/app/config"
)

// InitStripe wires the Stripe API key from the configuration.
func InitStripe(cfg config.StripeConfig) {
	stripe.Key = cfg.SecretKey
}

type checkoutRequest struct {
	PriceID   string `json:"priceId"`
	UserEmail string `json:"userEmail"`
}

// CreateCheckout starts a subscription Checkout Session for one of the
// configured plans.
func (s *Server) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PriceID == "" || !validEmail(req.UserEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données manquantes"})
		return
	}

	if req.PriceID != s.cfg.Stripe.PriceIDPro && req.PriceID != s.cfg.Stripe.PriceIDPremium {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Offre inconnue"})
		return
	}

	frontendURL := strings.TrimRight(s.cfg.Stripe.FrontendURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(normalizeEmail(req.UserEmail)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/dashboard?success=true"),
		CancelURL:  stripe.String(frontendURL + "/dashboard?canceled=true"),
	}

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer la session de paiement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID, "url": sess.URL})
}
