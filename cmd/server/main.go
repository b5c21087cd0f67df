package main

import (
	"context"
	"log"

	"github.com/HelpRelance/helprelance/app"
	"github.com/HelpRelance/helprelance/app/config"
	"github.com/HelpRelance/helprelance/identity"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := app.OpenStore(cfg.DB)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	app.InitStripe(cfg.Stripe)

	ai, err := app.NewGeminiClient(ctx, cfg.Generation.Model)
	if err != nil {
		log.Fatalf("failed to init generation client: %v", err)
	}

	tokens, err := identity.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to init token issuer: %v", err)
	}

	gate := app.NewGate(store, cfg.Trial)
	generator := app.NewGenerator(store, gate, ai, cfg.Generation.Timeout)
	mailer := app.NewResendMailer(cfg.Mail)

	server := app.NewServer(cfg, store, gate, generator, mailer, tokens)
	router := server.NewRouter()

	log.Printf("listening on %s (verify flow: %s)", cfg.ServerAddr, cfg.VerifyFlow)
	if err := router.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
