package app

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/HelpRelance/helprelance/app/config"
	"github.com/HelpRelance/helprelance/app/models"
)

// StripeWebhook translates billing events into ledger resets. Every
// write is an absolute reset, so duplicate deliveries are harmless.
func (s *Server) StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		s.cfg.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("stripe session unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}
		if err := s.handleCheckoutCompleted(c, sess); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("stripe subscription unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			log.Printf("stripe subscription missing customer id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}
		if err := s.store.ApplySubscriptionByCustomer(c.Request.Context(), sub.Customer.ID, CancelUpdate()); err != nil {
			log.Printf("stripe cancel reset failed customer=%s err=%v", sub.Customer.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			log.Printf("stripe invoice unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice payload"})
			return
		}
		if err := s.handleInvoicePaid(c, inv); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}

	default:
		// Unknown event types are logged and ignored, never a crash.
		log.Printf("stripe webhook: unhandled event type %s", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) handleCheckoutCompleted(c *gin.Context, sess stripe.CheckoutSession) error {
	email := sess.CustomerEmail
	if email == "" && sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		log.Printf("stripe session missing customer email")
		return nil
	}

	if sess.Subscription == nil {
		log.Printf("stripe session missing subscription email=%s", email)
		return nil
	}

	sub, err := subscription.Get(sess.Subscription.ID, nil)
	if err != nil {
		log.Printf("stripe subscription fetch failed id=%s err=%v", sess.Subscription.ID, err)
		return err
	}
	if len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		log.Printf("stripe subscription has no priced item id=%s", sub.ID)
		return nil
	}
	priceID := sub.Items.Data[0].Price.ID

	up, ok := PlanUpdateForPrice(s.cfg.Stripe, s.cfg.Trial, priceID)
	if !ok {
		// Unknown price identifiers must not crash the handler.
		log.Printf("stripe webhook: unrecognized price id %s", priceID)
		return nil
	}
	if sess.Customer != nil {
		up.StripeCustomerID = sql.NullString{String: sess.Customer.ID, Valid: true}
	}
	up.StripeSubscriptionID = sql.NullString{String: sub.ID, Valid: true}

	if err := s.store.ApplySubscriptionByEmail(c.Request.Context(), normalizeEmail(email), up); err != nil {
		log.Printf("stripe plan update failed email=%s err=%v", email, err)
		return err
	}
	return nil
}

func (s *Server) handleInvoicePaid(c *gin.Context, inv stripe.Invoice) error {
	if inv.Customer == nil || inv.Customer.ID == "" {
		log.Printf("stripe invoice missing customer id")
		return nil
	}
	if len(inv.Lines.Data) == 0 || inv.Lines.Data[0].Price == nil {
		return nil
	}

	// Only the metered tier carries a counter to renew; premium stays
	// unlimited and needs nothing.
	if inv.Lines.Data[0].Price.ID != s.cfg.Stripe.PriceIDPro {
		return nil
	}

	err := s.store.ResetRemainingByCustomer(c.Request.Context(), inv.Customer.ID, s.cfg.Trial.ProMonthlyAllowance)
	if err != nil {
		log.Printf("stripe renewal reset failed customer=%s err=%v", inv.Customer.ID, err)
		return err
	}
	return nil
}

// PlanUpdateForPrice maps a Stripe price id onto the ledger reset for
// that tier. Pro is metered; premium is unlimited.
func PlanUpdateForPrice(sc config.StripeConfig, tc config.TrialConfig, priceID string) (SubscriptionUpdate, bool) {
	switch priceID {
	case sc.PriceIDPro:
		return SubscriptionUpdate{
			IsPremium:         false,
			RemainingUses:     sql.NullInt64{Int64: int64(tc.ProMonthlyAllowance), Valid: true},
			StartingAllowance: tc.ProMonthlyAllowance,
			SubscriptionType:  sql.NullString{String: string(models.SubscriptionPro), Valid: true},
		}, true
	case sc.PriceIDPremium:
		return SubscriptionUpdate{
			IsPremium:        true,
			SubscriptionType: sql.NullString{String: string(models.SubscriptionPremium), Valid: true},
		}, true
	default:
		return SubscriptionUpdate{}, false
	}
}

// CancelUpdate is the reset applied when a subscription ends: back to a
// zero-allowance, non-premium record rather than a deletion.
func CancelUpdate() SubscriptionUpdate {
	return SubscriptionUpdate{
		IsPremium:     false,
		RemainingUses: sql.NullInt64{Int64: 0, Valid: true},
	}
}
