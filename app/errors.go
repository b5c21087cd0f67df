// Package app implements the trial-usage ledger: identity records,
// request gating, generation orchestration and the subscription overlay.
package app

import (
	"errors"
	"fmt"
)

// DenyReason distinguishes the quota gates so that clients get an
// actionable message (verify / retry later / upgrade).
type DenyReason string

const (
	DenyTrialExhausted DenyReason = "TRIAL_EXHAUSTED"
	DenyIPLimit        DenyReason = "IP_LIMIT_REACHED"
)

var (
	// ErrNotVerified means the identity must complete verification
	// before generating. Maps to 401.
	ErrNotVerified = errors.New("identity not verified")

	// ErrNotFound is returned when a record that must exist does not.
	// On decrement this is a logic error upstream, never a silent no-op.
	ErrNotFound = errors.New("identity record not found")

	// ErrDecrementConflict means the conditional decrement matched no
	// row because the expected value changed underneath us.
	ErrDecrementConflict = errors.New("decrement conflict")

	// ErrStoreUnavailable wraps persistence-service failures; callers
	// may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DenyError is a Trial Gate denial. Maps to 429.
type DenyError struct {
	Reason DenyReason
}

func (e DenyError) Error() string {
	return fmt.Sprintf("generation denied: %s", e.Reason)
}

// GenerationError covers collaborator failures and malformed output.
// No charge is ever applied when one of these is returned. Maps to 500.
type GenerationError struct {
	Err error
}

func (e GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e GenerationError) Unwrap() error { return e.Err }

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
