package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
)

func (s *Server) ListPayments(c *gin.Context) {
	req := paymentdomain.ListPaymentRequest{
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := paymentdomain.SubmissionStatus(raw)
		switch status {
		case paymentdomain.SubmissionPending, paymentdomain.SubmissionApproved, paymentdomain.SubmissionRejected:
			req.Status = &status
		default:
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	invoiceID, err := parseOptionalSnowflakeID(c.Query("invoice_id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvoiceID = invoiceID

	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PageSize = pageSize

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPayment(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	submission, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

func (s *Server) ApprovePayment(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	submission, err := s.paymentSvc.Approve(c.Request.Context(), id, operatorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

type rejectPaymentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectPayment(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req rejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	submission, err := s.paymentSvc.Reject(c.Request.Context(), id, operatorFromContext(c), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

func (s *Server) ListUnmatchedPayments(c *gin.Context) {
	includeResolved, err := parseOptionalBool(c.Query("include_resolved"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unmatched, err := s.paymentSvc.ListUnmatched(c.Request.Context(), includeResolved != nil && *includeResolved)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unmatched_payments": unmatched})
}

func (s *Server) ResolveUnmatchedPayment(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resolved, err := s.paymentSvc.ResolveUnmatched(c.Request.Context(), id, operatorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}
