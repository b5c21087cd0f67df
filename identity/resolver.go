package identity

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

// PseudoDomain hosts synthesized IP identities so they can never collide
// with a real mailbox.
const PseudoDomain = "helprelance.local"

// ErrNoClientIP means the request carried no usable address. Callers
// must fail closed: an undeterminable IP is a denial, not a very
// collidable "unknown" key.
var ErrNoClientIP = errors.New("client ip could not be determined")

// ClientIP extracts the first address from X-Forwarded-For, falling back
// to the raw connection address.
func ClientIP(r *http.Request) (string, error) {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if net.ParseIP(first) != nil {
			return first, nil
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may already be a bare IP in tests and some proxies.
		host = r.RemoteAddr
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	return "", ErrNoClientIP
}

// PseudoEmail synthesizes the deterministic identity key for an IP, so
// repeated lookups from the same address collide on one record.
func PseudoEmail(ip string) string {
	mangled := strings.NewReplacer(".", "-", ":", "-").Replace(ip)
	return "ip-" + mangled + "@" + PseudoDomain
}

// IsPseudo reports whether an identity key was synthesized from an IP.
func IsPseudo(email string) bool {
	return strings.HasPrefix(email, "ip-") && strings.HasSuffix(email, "@"+PseudoDomain)
}

// Resolve derives the identity for a request. An explicit email wins;
// otherwise the IP-derived path is taken.
func Resolve(r *http.Request, explicitEmail string) (Identity, error) {
	if explicitEmail != "" {
		return Identity{Email: strings.ToLower(strings.TrimSpace(explicitEmail)), Trust: TrustVerifiedEmail}, nil
	}
	ip, err := ClientIP(r)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Email: PseudoEmail(ip), Trust: TrustIPDerived, IP: ip}, nil
}
