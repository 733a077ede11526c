package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
)

func (s *Server) GetUser(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	found, err := s.userSvc.GetByEmail(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

type setUserPlanRequest struct {
	Plan userdomain.Plan `json:"plan"`
}

func (s *Server) SetUserPlan(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req setUserPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.userSvc.SetPlan(c.Request.Context(), email, req.Plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "user.set_plan", "user", updated.ID.String(), map[string]any{
		"plan": updated.Plan,
	})

	c.JSON(http.StatusOK, updated)
}
