package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/HelpRelance/helprelance/app/config"
	"github.com/HelpRelance/helprelance/app/models"
)

// Store is the single read/modify/write surface over the users table.
// It is constructed once in main and injected; nothing else opens
// connections or holds package-level state.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OpenStore connects to Postgres and pings it.
func OpenStore(cfg config.PostgresConfig) (*Store, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.URL,
		cfg.Port,
		cfg.Database,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db.Ping: %w", err)
	}

	log.Println("Connected to Postgres")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the tables and the non-unique ip_address index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			email                  TEXT PRIMARY KEY,
			ip_address             TEXT NOT NULL DEFAULT '',
			email_verified         BOOLEAN NOT NULL DEFAULT FALSE,
			remaining_uses         INT,
			starting_allowance     INT NOT NULL DEFAULT 0,
			is_premium             BOOLEAN NOT NULL DEFAULT FALSE,
			subscription_type      TEXT,
			verification_code      TEXT,
			stripe_customer_id     TEXT,
			stripe_subscription_id TEXT,
			last_used_at           TIMESTAMPTZ,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_ip_address ON users (ip_address);`,
		`CREATE INDEX IF NOT EXISTS idx_users_stripe_customer_id ON users (stripe_customer_id);`,
		`CREATE TABLE IF NOT EXISTS generations (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL REFERENCES users (email),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return storeErr(err)
		}
	}
	return nil
}

const userColumns = `
	email, ip_address, email_verified, remaining_uses, starting_allowance,
	is_premium, subscription_type, verification_code,
	stripe_customer_id, stripe_subscription_id, last_used_at, created_at
`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.Email,
		&u.IPAddress,
		&u.EmailVerified,
		&u.RemainingUses,
		&u.StartingAllowance,
		&u.IsPremium,
		&u.SubscriptionType,
		&u.VerificationCode,
		&u.StripeCustomerID,
		&u.StripeSubscriptionID,
		&u.LastUsedAt,
		&u.CreatedAt,
	)
	return u, err
}

// GetByEmail fetches one identity record by its unique key.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1;
	`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, storeErr(err)
	}
	return u, nil
}

// ListByIP returns every record sharing an IP address. Used only for the
// aggregate-cap check.
func (s *Store) ListByIP(ctx context.Context, ip string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ip_address = $1;
	`, ip)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// UpsertOnVerify creates a verified record with the given allowance, or
// marks an existing one verified and reissues its ip_address without
// touching remaining_uses.
func (s *Store) UpsertOnVerify(ctx context.Context, email, ip string, allowance int) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, ip_address, email_verified, remaining_uses, starting_allowance)
		VALUES ($1, $2, TRUE, $3, $3)
		ON CONFLICT (email) DO UPDATE
		SET email_verified = TRUE,
		    ip_address = EXCLUDED.ip_address,
		    verification_code = NULL
		RETURNING `+userColumns+`;
	`, email, ip, allowance)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, storeErr(err)
	}
	return u, nil
}

// SetVerificationCode stages a short-lived code on a record, creating the
// record with the starting allowance when it does not exist yet. The
// record stays unverified until the code is redeemed.
func (s *Store) SetVerificationCode(ctx context.Context, email, code string, allowance int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, remaining_uses, starting_allowance, verification_code)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET verification_code = EXCLUDED.verification_code;
	`, email, allowance, code)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// RedeemVerificationCode flips email_verified and clears the code in one
// statement, conditioned on the code matching.
func (s *Store) RedeemVerificationCode(ctx context.Context, email, code string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET email_verified = TRUE, verification_code = NULL
		WHERE email = $1 AND verification_code = $2
		RETURNING `+userColumns+`;
	`, email, code)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, storeErr(err)
	}
	return u, nil
}

// CommitDecrement spends exactly one use. The WHERE guard makes it a
// compare-and-swap: two concurrent requests cannot both match the same
// expected value, and remaining_uses can never go below zero.
func (s *Store) CommitDecrement(ctx context.Context, email string, expectedRemaining int) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET remaining_uses = remaining_uses - 1, last_used_at = now()
		WHERE email = $1
		  AND is_premium = FALSE
		  AND remaining_uses = $2
		  AND remaining_uses > 0
		RETURNING `+userColumns+`;
	`, email, expectedRemaining)
	u, err := scanUser(row)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storeErr(err)
	}

	// Distinguish a lost race from a missing row; the latter is a logic
	// error upstream and must not silently no-op.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1);
	`, email).Scan(&exists); err != nil {
		return models.User{}, storeErr(err)
	}
	if !exists {
		return models.User{}, ErrNotFound
	}
	return models.User{}, ErrDecrementConflict
}

// RecordGeneration appends an audit row for a successful generation.
func (s *Store) RecordGeneration(ctx context.Context, email string) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, email) VALUES ($1, $2);
	`, id, email); err != nil {
		return "", storeErr(err)
	}
	return id, nil
}

// SubscriptionUpdate is one absolute reset applied by the billing
// overlay. Re-applying the same update is safe.
type SubscriptionUpdate struct {
	IsPremium            bool
	RemainingUses        sql.NullInt64
	StartingAllowance    int
	SubscriptionType     sql.NullString
	StripeCustomerID     sql.NullString
	StripeSubscriptionID sql.NullString
}

// ApplySubscriptionByEmail writes a subscription reset to the record
// holding the given email.
func (s *Store) ApplySubscriptionByEmail(ctx context.Context, email string, up SubscriptionUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_premium = $1,
		    remaining_uses = $2,
		    starting_allowance = $3,
		    subscription_type = $4,
		    stripe_customer_id = $5,
		    stripe_subscription_id = $6
		WHERE email = $7;
	`, up.IsPremium, up.RemainingUses, up.StartingAllowance, up.SubscriptionType,
		up.StripeCustomerID, up.StripeSubscriptionID, email)
	return checkOneRow(res, err)
}

// ApplySubscriptionByCustomer writes a subscription reset keyed by the
// stored Stripe customer id.
func (s *Store) ApplySubscriptionByCustomer(ctx context.Context, customerID string, up SubscriptionUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_premium = $1,
		    remaining_uses = $2,
		    starting_allowance = $3,
		    subscription_type = $4,
		    stripe_subscription_id = $5
		WHERE stripe_customer_id = $6;
	`, up.IsPremium, up.RemainingUses, up.StartingAllowance, up.SubscriptionType,
		up.StripeSubscriptionID, customerID)
	return checkOneRow(res, err)
}

// ResetRemainingByCustomer hard-resets the metered counter on renewal.
// A reset, not an add: unused credits do not accumulate.
func (s *Store) ResetRemainingByCustomer(ctx context.Context, customerID string, allowance int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET remaining_uses = $1, starting_allowance = $1
		WHERE stripe_customer_id = $2;
	`, allowance, customerID)
	return checkOneRow(res, err)
}

func checkOneRow(res sql.Result, err error) error {
	if err != nil {
		return storeErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastUsed is a best-effort stamp used when the decrement itself
// was skipped (premium accounts still update their activity trace).
func (s *Store) TouchLastUsed(ctx context.Context, email string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_used_at = now() WHERE email = $1;
	`, email); err != nil {
		log.Printf("touchLastUsed failed email=%s err=%v", email, err)
	}
}
