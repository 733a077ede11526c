package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	intakedomain "github.com/uddoktahub/billing/internal/intake/domain"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	"github.com/uddoktahub/billing/internal/quote"
	"gorm.io/gorm"
)

func (s *Server) SubmitIntake(c *gin.Context) {
	var req intakedomain.SubmitIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	// The public form never picks its own source tag.
	req.Source = ""

	created, err := s.intakeSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     created.ID.String(),
		"status": created.Status,
	})
}

func (s *Server) GetPublicInvoice(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	view, err := s.invoiceSvc.GetPublicView(c.Request.Context(), token)
	if err != nil {
		s.abortPublicInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) SubmitPublicPayment(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req paymentdomain.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	submission, err := s.paymentSvc.Submit(c.Request.Context(), token, req)
	if err != nil {
		s.abortPublicInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     submission.ID.String(),
		"status": submission.Status,
	})
}

// abortPublicInvoiceError keeps the anonymous surface generic: any
// lookup failure reads the same as a missing invoice so tokens cannot
// be probed for state.
func (s *Server) abortPublicInvoiceError(c *gin.Context, err error) {
	if errors.Is(err, invoicedomain.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		AbortWithError(c, ErrNotFound)
		return
	}
	AbortWithError(c, err)
}

func (s *Server) ListQuotes(c *gin.Context) {
	breakdowns := make([]quote.Breakdown, 0, len(quote.Brackets()))
	for _, bracket := range quote.Brackets() {
		b, err := quote.Lookup(bracket)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		breakdowns = append(breakdowns, b)
	}
	c.JSON(http.StatusOK, gin.H{"quotes": breakdowns})
}

func (s *Server) GetQuote(c *gin.Context) {
	bracket := quote.Bracket(strings.TrimSpace(c.Param("bracket")))
	breakdown, err := quote.Lookup(bracket)
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}
