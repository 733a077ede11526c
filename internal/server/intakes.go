package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	intakedomain "github.com/uddoktahub/billing/internal/intake/domain"
)

func (s *Server) ListIntakes(c *gin.Context) {
	req := intakedomain.ListIntakeRequest{
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := intakedomain.Status(raw)
		if !intakedomain.ValidStatus(status) {
			AbortWithError(c, intakedomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}

	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PageSize = pageSize

	resp, err := s.intakeSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type setIntakeStatusRequest struct {
	Status intakedomain.Status `json:"status"`
}

func (s *Server) SetIntakeStatus(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req setIntakeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.intakeSvc.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "intake.set_status", "intake", updated.ID.String(), map[string]any{
		"status": updated.Status,
	})

	c.JSON(http.StatusOK, updated)
}

func (s *Server) PromoteIntake(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req intakedomain.PromoteIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.intakeSvc.PromoteToInvoice(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "intake.promote", "invoice", detail.Invoice.ID.String(), map[string]any{
		"intake_id": id.String(),
		"total":     detail.Invoice.TotalAmount,
	})

	c.JSON(http.StatusCreated, detail)
}
