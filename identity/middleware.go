package identity

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware resolves a session token into a verified-email identity and
// injects it into the request context. Requests without a token pass
// through unresolved; the gate decides what an anonymous request may do.
func Middleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || issuer == nil {
			c.Next()
			return
		}

		token, ok := extractBearerToken(header)
		if !ok {
			c.Next()
			return
		}

		email, err := issuer.Verify(token)
		if err != nil {
			log.Printf("identity: stale session token path=%s err=%v", c.Request.URL.Path, err)
			c.Next()
			return
		}

		ctx := WithIdentity(c.Request.Context(), Identity{Email: email, Trust: TrustVerifiedEmail})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
