package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/HelpRelance/helprelance/app/models"
	"github.com/HelpRelance/helprelance/identity"
)

// UnlimitedRemaining is reported for premium accounts, whose counter is
// never consulted or mutated.
const UnlimitedRemaining = -1

// Generator sequences gate check, collaborator call and ledger commit.
// A user is never charged for a failed or malformed generation: the
// decrement runs only after all three drafts parsed.
type Generator struct {
	store   LedgerStore
	gate    *Gate
	ai      TextGenerator
	timeout time.Duration
}

func NewGenerator(store LedgerStore, gate *Gate, ai TextGenerator, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{store: store, gate: gate, ai: ai, timeout: timeout}
}

// Generate runs the full protocol for one request.
func (g *Generator) Generate(ctx context.Context, id identity.Identity, form models.GenerateRequest) (models.GenerateResponse, error) {
	rec, err := g.gate.Decide(ctx, id)
	if err != nil {
		return models.GenerateResponse{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.ai.GenerateContent(genCtx, BuildPrompt(form))
	if err != nil {
		return models.GenerateResponse{}, GenerationError{Err: err}
	}
	if _, err := ParseDrafts(text); err != nil {
		return models.GenerateResponse{}, GenerationError{Err: err}
	}

	// The cost is incurred; commit even if the client has gone away.
	commitCtx := context.WithoutCancel(ctx)

	if rec.IsPremium {
		g.store.TouchLastUsed(commitCtx, rec.Email)
		g.audit(commitCtx, rec.Email)
		return models.GenerateResponse{Success: true, EmailsText: text, RemainingUses: UnlimitedRemaining}, nil
	}

	remaining, err := g.commit(commitCtx, rec)
	if err != nil {
		return models.GenerateResponse{}, err
	}
	g.audit(commitCtx, rec.Email)

	return models.GenerateResponse{Success: true, EmailsText: text, RemainingUses: remaining}, nil
}

// commit spends one use via the conditional decrement, retrying a lost
// race once against the re-read value. A persistent conflict does not
// discard the drafts; the freshest count is reported and the miss logged.
func (g *Generator) commit(ctx context.Context, rec models.User) (int, error) {
	updated, err := g.store.CommitDecrement(ctx, rec.Email, rec.Remaining())
	if err == nil {
		return updated.Remaining(), nil
	}
	if !errors.Is(err, ErrDecrementConflict) {
		return 0, err
	}

	fresh, err := g.store.GetByEmail(ctx, rec.Email)
	if err != nil {
		return 0, err
	}
	if fresh.IsPremium {
		return UnlimitedRemaining, nil
	}
	if fresh.Remaining() > 0 {
		updated, err = g.store.CommitDecrement(ctx, rec.Email, fresh.Remaining())
		if err == nil {
			return updated.Remaining(), nil
		}
	}

	log.Printf("decrement not committed after retry email=%s err=%v", rec.Email, err)
	return fresh.Remaining(), nil
}

func (g *Generator) audit(ctx context.Context, email string) {
	if _, err := g.store.RecordGeneration(ctx, email); err != nil {
		log.Printf("generation audit failed email=%s err=%v", email, err)
	}
}
