package app

import (
	"context"
	"errors"

	"github.com/HelpRelance/helprelance/app/config"
	"github.com/HelpRelance/helprelance/app/models"
	"github.com/HelpRelance/helprelance/identity"
)

// LedgerStore is the adapter surface the gate and orchestrator depend on.
type LedgerStore interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	ListByIP(ctx context.Context, ip string) ([]models.User, error)
	UpsertOnVerify(ctx context.Context, email, ip string, allowance int) (models.User, error)
	CommitDecrement(ctx context.Context, email string, expectedRemaining int) (models.User, error)
	RecordGeneration(ctx context.Context, email string) (string, error)
	TouchLastUsed(ctx context.Context, email string)
}

// Gate is the decision function run before any generation cost is
// incurred.
type Gate struct {
	store LedgerStore
	trial config.TrialConfig
}

func NewGate(store LedgerStore, trial config.TrialConfig) *Gate {
	return &Gate{store: store, trial: trial}
}

// Decide allows or denies a generation request for a resolved identity.
// The per-record counter and the IP-aggregate cap are independent gates;
// both must pass. A record with remaining uses can still be denied by
// the aggregate, never the other way around.
func (g *Gate) Decide(ctx context.Context, id identity.Identity) (models.User, error) {
	rec, err := g.store.GetByEmail(ctx, id.Email)
	if errors.Is(err, ErrNotFound) {
		if id.Trust != identity.TrustIPDerived {
			// Explicit-email records are created only at verification
			// time; a missing record means no verification happened.
			return models.User{}, ErrNotVerified
		}
		rec, err = g.store.UpsertOnVerify(ctx, id.Email, id.IP, g.trial.IPAllowance)
	}
	if err != nil {
		return models.User{}, err
	}

	if !rec.EmailVerified {
		return models.User{}, ErrNotVerified
	}

	if rec.IsPremium {
		return rec, nil
	}

	if id.Trust == identity.TrustIPDerived {
		consumed, err := g.consumedByIP(ctx, rec.IPAddress)
		if err != nil {
			return models.User{}, err
		}
		if consumed >= g.trial.IPCap {
			return models.User{}, DenyError{Reason: DenyIPLimit}
		}
	}

	if rec.Remaining() <= 0 {
		return models.User{}, DenyError{Reason: DenyTrialExhausted}
	}

	return rec, nil
}

// ConsumedByIP sums trial consumption across every record sharing an IP.
// Subscribed and premium records do not count against the cap.
func (g *Gate) consumedByIP(ctx context.Context, ip string) (int, error) {
	if ip == "" {
		return 0, nil
	}
	peers, err := g.store.ListByIP(ctx, ip)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range peers {
		if p.SubscriptionType.Valid {
			continue
		}
		total += p.Consumed()
	}
	return total, nil
}

// CheckIPCap is the aggregate precheck used by the verification flows
// before a new identity is admitted from an address.
func (g *Gate) CheckIPCap(ctx context.Context, ip string) error {
	consumed, err := g.consumedByIP(ctx, ip)
	if err != nil {
		return err
	}
	if consumed >= g.trial.IPCap {
		return DenyError{Reason: DenyIPLimit}
	}
	return nil
}
