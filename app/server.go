package app

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HelpRelance/helprelance/app/config"
	"github.com/HelpRelance/helprelance/app/models"
	"github.com/HelpRelance/helprelance/identity"
)

// ServerStore widens LedgerStore with the verification and billing
// writes the handlers need.
type ServerStore interface {
	LedgerStore
	SetVerificationCode(ctx context.Context, email, code string, allowance int) error
	RedeemVerificationCode(ctx context.Context, email, code string) (models.User, error)
	ApplySubscriptionByEmail(ctx context.Context, email string, up SubscriptionUpdate) error
	ApplySubscriptionByCustomer(ctx context.Context, customerID string, up SubscriptionUpdate) error
	ResetRemainingByCustomer(ctx context.Context, customerID string, allowance int) error
}

// Server carries every injected collaborator. Lifecycles are owned by
// the process entry point; there are no package-level clients.
type Server struct {
	cfg       *config.Config
	store     ServerStore
	gate      *Gate
	generator *Generator
	mailer    Mailer
	tokens    *identity.TokenIssuer
}

func NewServer(cfg *config.Config, store ServerStore, gate *Gate, generator *Generator, mailer Mailer, tokens *identity.TokenIssuer) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		gate:      gate,
		generator: generator,
		mailer:    mailer,
		tokens:    tokens,
	}
}

// Health is a public health check endpoint.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps the error taxonomy onto distinct, actionable client
// messages. Raw collaborator and storage errors never leak.
func respondError(c *gin.Context, err error) {
	var deny DenyError
	switch {
	case errors.Is(err, ErrNotVerified):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non vérifié"})
	case errors.As(err, &deny):
		switch deny.Reason {
		case DenyIPLimit:
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Limite d'essais gratuits atteinte depuis cette connexion. Passez à Premium !"})
		default:
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Plus d'essais gratuits disponibles. Passez à Premium !"})
		}
	case errors.Is(err, identity.ErrNoClientIP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Adresse introuvable"})
	case errors.Is(err, ErrStoreUnavailable):
		log.Printf("store unavailable: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Service temporairement indisponible, veuillez réessayer"})
	default:
		var genErr GenerationError
		if errors.As(err, &genErr) {
			log.Printf("generation failed: %v", genErr.Err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération"})
			return
		}
		log.Printf("unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
