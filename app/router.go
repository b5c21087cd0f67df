// Package app wires the shared HTTP routes for the service.
package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/HelpRelance/helprelance/app/config"
	"github.com/HelpRelance/helprelance/identity"
)

// NewRouter builds the HTTP router. The verification endpoints mounted
// depend on the deployment's configured flow; the variants are mutually
// exclusive.
func (s *Server) NewRouter() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", s.Health)
	router.POST("/api/stripe/webhook", s.StripeWebhook)
	router.POST("/api/stripe/create-checkout", s.CreateCheckout)

	switch s.cfg.VerifyFlow {
	case config.FlowCode:
		router.POST("/api/auth/send-verification", s.SendVerification)
		router.POST("/api/auth/verify-code", s.VerifyCode)
	case config.FlowShared:
		router.POST("/api/auth/verify", s.VerifyShared)
	case config.FlowIP:
		router.POST("/api/auth/verify-ip", s.VerifyIP)
	}

	generate := router.Group("/")
	generate.Use(identity.Middleware(s.tokens))
	generate.POST("/api/generate-emails", s.GenerateEmails)

	return router
}
