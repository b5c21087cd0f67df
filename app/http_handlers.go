package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HelpRelance/helprelance/app/models"
	"github.com/HelpRelance/helprelance/identity"
)

type generateEnvelope struct {
	FormData  models.GenerateRequest `json:"formData" binding:"required"`
	UserEmail string                 `json:"userEmail"`
}

// GenerateEmails gates, generates and commits one use for a request.
func (s *Server) GenerateEmails(c *gin.Context) {
	var req generateEnvelope
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données manquantes"})
		return
	}

	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		var err error
		id, err = identity.Resolve(c.Request, req.UserEmail)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	resp, err := s.generator.Generate(c.Request.Context(), id, req.FormData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
