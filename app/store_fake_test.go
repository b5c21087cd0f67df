package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/HelpRelance/helprelance/app/models"
)

// fakeStore mirrors the adapter's semantics in memory, including the
// compare-and-swap behavior of CommitDecrement.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]models.User
	generations []string

	// forcedConflicts makes the next N decrements lose their race.
	forcedConflicts int

	errGet  error
	errList error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]models.User{}}
}

func (f *fakeStore) put(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
}

func (f *fakeStore) get(email string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email]
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errGet != nil {
		return models.User{}, f.errGet
	}
	u, ok := f.users[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListByIP(_ context.Context, ip string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errList != nil {
		return nil, f.errList
	}
	var out []models.User
	for _, u := range f.users {
		if u.IPAddress == ip {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertOnVerify(_ context.Context, email, ip string, allowance int) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		u = models.User{
			Email:             email,
			RemainingUses:     sql.NullInt64{Int64: int64(allowance), Valid: true},
			StartingAllowance: allowance,
		}
	}
	u.EmailVerified = true
	u.IPAddress = ip
	u.VerificationCode = sql.NullString{}
	f.users[email] = u
	return u, nil
}

func (f *fakeStore) CommitDecrement(_ context.Context, email string, expected int) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedConflicts > 0 {
		f.forcedConflicts--
		return models.User{}, ErrDecrementConflict
	}
	u, ok := f.users[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if u.IsPremium || !u.RemainingUses.Valid || u.RemainingUses.Int64 != int64(expected) || u.RemainingUses.Int64 <= 0 {
		return models.User{}, ErrDecrementConflict
	}
	u.RemainingUses.Int64--
	f.users[email] = u
	return u, nil
}

func (f *fakeStore) RecordGeneration(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("gen-%d", len(f.generations)+1)
	f.generations = append(f.generations, email)
	return id, nil
}

func (f *fakeStore) TouchLastUsed(context.Context, string) {}

func (f *fakeStore) SetVerificationCode(_ context.Context, email, code string, allowance int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		u = models.User{
			Email:             email,
			RemainingUses:     sql.NullInt64{Int64: int64(allowance), Valid: true},
			StartingAllowance: allowance,
		}
	}
	u.VerificationCode = sql.NullString{String: code, Valid: true}
	f.users[email] = u
	return nil
}

func (f *fakeStore) RedeemVerificationCode(_ context.Context, email, code string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || !u.VerificationCode.Valid || u.VerificationCode.String != code {
		return models.User{}, ErrNotFound
	}
	u.EmailVerified = true
	u.VerificationCode = sql.NullString{}
	f.users[email] = u
	return u, nil
}

func (f *fakeStore) ApplySubscriptionByEmail(_ context.Context, email string, up SubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return ErrNotFound
	}
	applyUpdate(&u, up)
	u.StripeCustomerID = up.StripeCustomerID
	f.users[email] = u
	return nil
}

func (f *fakeStore) ApplySubscriptionByCustomer(_ context.Context, customerID string, up SubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.users {
		if u.StripeCustomerID.Valid && u.StripeCustomerID.String == customerID {
			applyUpdate(&u, up)
			f.users[email] = u
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) ResetRemainingByCustomer(_ context.Context, customerID string, allowance int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.users {
		if u.StripeCustomerID.Valid && u.StripeCustomerID.String == customerID {
			u.RemainingUses = sql.NullInt64{Int64: int64(allowance), Valid: true}
			u.StartingAllowance = allowance
			f.users[email] = u
			return nil
		}
	}
	return ErrNotFound
}

func applyUpdate(u *models.User, up SubscriptionUpdate) {
	u.IsPremium = up.IsPremium
	u.RemainingUses = up.RemainingUses
	u.StartingAllowance = up.StartingAllowance
	u.SubscriptionType = up.SubscriptionType
	u.StripeSubscriptionID = up.StripeSubscriptionID
}

// Test fixtures.

func verifiedUser(email, ip string, remaining, starting int) models.User {
	return models.User{
		Email:             email,
		IPAddress:         ip,
		EmailVerified:     true,
		RemainingUses:     sql.NullInt64{Int64: int64(remaining), Valid: true},
		StartingAllowance: starting,
	}
}

func premiumUser(email string) models.User {
	return models.User{
		Email:            email,
		EmailVerified:    true,
		IsPremium:        true,
		SubscriptionType: sql.NullString{String: string(models.SubscriptionPremium), Valid: true},
	}
}
