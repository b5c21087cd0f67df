package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

// TokenIssuer mints and validates the HS256 session tokens handed out
// after a successful verification. The token is the "inherited trust":
// presenting one proves a prior verification event without a lookup.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must be set")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	parser := jwt.NewParser(
		jwt.WithLeeway(defaultLeeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	)
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, parser: parser}, nil
}

// Issue signs a session token for a verified email.
func (t *TokenIssuer) Issue(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a session token and returns the verified email.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := t.parser.Parse(tokenString, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token missing sub")
	}
	return sub, nil
}
