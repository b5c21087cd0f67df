// Package identity resolves a stable identity key and trust level for
// inbound requests: a verified email carried by a session token, a
// client-supplied email, or a pseudo-identity derived from the client IP.
package identity

import "context"

type ctxKey int

const identityKey ctxKey = iota

// Trust ranks how an identity key was established.
type Trust string

const (
	// TrustVerifiedEmail is an explicit email whose trust is inherited
	// from a prior verification event.
	TrustVerifiedEmail Trust = "verified-email"
	// TrustIPDerived is a synthesized pseudo-identity; trivially
	// spoofable via header manipulation, a soft deterrent only.
	TrustIPDerived Trust = "ip-derived"
)

// Identity is the resolved key for one request. IP is populated only on
// the IP-derived path; persisted records carry their own last-seen IP.
type Identity struct {
	Email string
	Trust Trust
	IP    string
}

// WithIdentity stores a resolved identity in a context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the resolved identity from a context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
