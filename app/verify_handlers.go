package app

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HelpRelance/helprelance/app/models"
	"github.com/HelpRelance/helprelance/identity"
)

type emailRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SendVerification stages a 6-digit code on the record and emails it.
// First contact creates the record with the trial allowance; the record
// stays unverified until the code is redeemed.
func (s *Server) SendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email invalide"})
		return
	}
	email := normalizeEmail(req.Email)

	code, err := randomCode()
	if err != nil {
		log.Printf("code generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
		return
	}

	if err := s.store.SetVerificationCode(c.Request.Context(), email, code, s.cfg.Trial.EmailAllowance); err != nil {
		respondError(c, err)
		return
	}

	if err := s.mailer.SendVerificationCode(email, code); err != nil {
		log.Printf("verification email failed email=%s err=%v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Envoi de l'email impossible"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VerifyCode redeems an emailed code, flips the verified flag and issues
// a session token.
func (s *Server) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email et code requis"})
		return
	}
	email := normalizeEmail(req.Email)

	user, err := s.store.RedeemVerificationCode(c.Request.Context(), email, strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Code invalide ou expiré"})
			return
		}
		respondError(c, err)
		return
	}

	s.respondVerified(c, user)
}

// VerifyShared is the single-step variant: one fixed code for the whole
// deployment, plus the IP-aggregate precheck before a new identity is
// admitted.
func (s *Server) VerifyShared(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email invalide"})
		return
	}
	if req.Code != s.cfg.SharedCode {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Code invalide"})
		return
	}
	email := normalizeEmail(req.Email)

	ip, err := identity.ClientIP(c.Request)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.gate.CheckIPCap(c.Request.Context(), ip); err != nil {
		respondError(c, err)
		return
	}

	user, err := s.store.UpsertOnVerify(c.Request.Context(), email, ip, s.cfg.Trial.EmailAllowance)
	if err != nil {
		respondError(c, err)
		return
	}

	s.respondVerified(c, user)
}

// VerifyIP admits an anonymous pseudo-identity for the caller's address.
func (s *Server) VerifyIP(c *gin.Context) {
	ip, err := identity.ClientIP(c.Request)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := s.gate.CheckIPCap(c.Request.Context(), ip); err != nil {
		respondError(c, err)
		return
	}

	email := identity.PseudoEmail(ip)
	user, err := s.store.GetByEmail(c.Request.Context(), email)
	if errors.Is(err, ErrNotFound) {
		user, err = s.store.UpsertOnVerify(c.Request.Context(), email, ip, s.cfg.Trial.IPAllowance)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    models.ViewOf(user),
	})
}

func (s *Server) respondVerified(c *gin.Context, user models.User) {
	payload := gin.H{
		"success": true,
		"user":    models.ViewOf(user),
	}
	if s.tokens != nil {
		token, err := s.tokens.Issue(user.Email)
		if err != nil {
			log.Printf("session token issue failed email=%s err=%v", user.Email, err)
		} else {
			payload["token"] = token
		}
	}
	c.JSON(http.StatusOK, payload)
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && strings.Contains(email, "@")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// randomCode draws a 6-digit verification code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(100000)).String(), nil
}
