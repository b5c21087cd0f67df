package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func identityEcho(t *testing.T) (*gin.Engine, *Identity) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen Identity
	router := gin.New()
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer error = %v", err)
	}
	router.Use(Middleware(issuer))
	router.POST("/echo", func(c *gin.Context) {
		if id, ok := FromContext(c.Request.Context()); ok {
			seen = id
		}
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func TestMiddlewareInjectsVerifiedIdentity(t *testing.T) {
	router, seen := identityEcho(t)
	issuer, _ := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if seen.Email != "alice@example.com" || seen.Trust != TrustVerifiedEmail {
		t.Fatalf("identity = %+v", *seen)
	}
}

func TestMiddlewarePassesThroughWithoutToken(t *testing.T) {
	router, seen := identityEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if seen.Email != "" {
		t.Fatalf("unexpected identity %+v", *seen)
	}
}

func TestMiddlewarePassesThroughBadToken(t *testing.T) {
	router, seen := identityEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if seen.Email != "" {
		t.Fatalf("stale token must not resolve an identity, got %+v", *seen)
	}
}

func TestExtractBearerToken(t *testing.T) {
	token, ok := extractBearerToken("Bearer abc")
	if !ok || token != "abc" {
		t.Fatalf("expected token")
	}
	if _, ok := extractBearerToken("Bearer"); ok {
		t.Fatalf("expected invalid header")
	}
	if _, ok := extractBearerToken("Token abc"); ok {
		t.Fatalf("expected invalid scheme")
	}
	if _, ok := extractBearerToken(""); ok {
		t.Fatalf("expected empty header to be invalid")
	}
}
