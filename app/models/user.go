// Package models defines the persisted identity record and its
// subscription overlay fields.
package models

import (
	"database/sql"
	"time"
)

type SubscriptionType string

const (
	SubscriptionPro     SubscriptionType = "pro"
	SubscriptionPremium SubscriptionType = "premium"
)

// User is one identity record: a row keyed by unique email. IP-derived
// identities live in the same table under a synthesized email, so the
// non-unique ip_address index aggregates both kinds.
type User struct {
	Email         string    `db:"email"`
	IPAddress     string    `db:"ip_address"`
	EmailVerified bool      `db:"email_verified"`
	// RemainingUses is NULL only for unlimited (premium) accounts.
	RemainingUses sql.NullInt64 `db:"remaining_uses"`
	// StartingAllowance records what the identity was granted, so that
	// per-IP consumption can be computed as starting - remaining.
	StartingAllowance    int              `db:"starting_allowance"`
	IsPremium            bool             `db:"is_premium"`
	SubscriptionType     sql.NullString   `db:"subscription_type"`
	VerificationCode     sql.NullString   `db:"verification_code"`
	StripeCustomerID     sql.NullString   `db:"stripe_customer_id"`
	StripeSubscriptionID sql.NullString   `db:"stripe_subscription_id"`
	LastUsedAt           sql.NullTime     `db:"last_used_at"`
	CreatedAt            time.Time        `db:"created_at"`
}

// Remaining returns the usable count, treating premium as unlimited.
func (u User) Remaining() int {
	if u.IsPremium || !u.RemainingUses.Valid {
		return 0
	}
	return int(u.RemainingUses.Int64)
}

// Consumed is this record's trial consumption: what it was granted minus
// what is left. Premium records consume nothing against trial caps.
func (u User) Consumed() int {
	if u.IsPremium || !u.RemainingUses.Valid {
		return 0
	}
	c := u.StartingAllowance - int(u.RemainingUses.Int64)
	if c < 0 {
		return 0
	}
	return c
}
