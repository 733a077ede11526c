package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.create", "invoice", detail.Invoice.ID.String(), map[string]any{
		"total":    detail.Invoice.TotalAmount,
		"currency": detail.Invoice.Currency,
	})

	c.JSON(http.StatusCreated, detail)
}

func (s *Server) ListInvoices(c *gin.Context) {
	req := invoicedomain.ListInvoiceRequest{
		Email:     strings.TrimSpace(c.Query("email")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := invoicedomain.Status(raw)
		if !invoicedomain.ValidStatus(status) {
			AbortWithError(c, invoicedomain.ErrInvalidStatus)
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

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetInvoice(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	detail, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.invoiceSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.update", "invoice", detail.Invoice.ID.String(), map[string]any{
		"version": detail.Invoice.Version,
		"total":   detail.Invoice.TotalAmount,
	})

	c.JSON(http.StatusOK, detail)
}

type setInvoiceStatusRequest struct {
	Status invoicedomain.Status `json:"status"`
}

func (s *Server) SetInvoiceStatus(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req setInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.invoiceSvc.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.set_status", "invoice", updated.ID.String(), map[string]any{
		"status": updated.Status,
	})

	c.JSON(http.StatusOK, updated)
}
