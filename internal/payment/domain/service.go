package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"github.com/uddoktahub/billing/pkg/db/pagination"
)

var (
	ErrNotFound          = errors.New("payment_not_found")
	ErrStateConflict     = errors.New("payment_state_conflict")
	ErrInvoiceNotPayable = errors.New("invoice_not_payable")

	ErrInvalidMethod     = errors.New("invalid_method")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidReference  = errors.New("invalid_reference")
	ErrInvalidPayerName  = errors.New("invalid_payer_name")
	ErrInvalidPayerEmail = errors.New("invalid_payer_email")
	ErrInvalidPlan       = errors.New("invalid_plan")
	ErrInvalidPageToken  = errors.New("invalid_page_token")

	ErrInvalidProvider     = errors.New("invalid_provider")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
)

// SubmitPaymentRequest is the payer-facing claim form. The invoice is
// addressed by its public token, never by internal id. Plan purchases
// never come through this form; they arrive only via the provider
// webhook, so a payer cannot claim a plan here.
type SubmitPaymentRequest struct {
	PayerName  string `json:"payer_name"`
	PayerEmail string `json:"payer_email"`
	Method     Method `json:"method"`
	Amount     int64  `json:"amount"`
	Reference  string `json:"reference"`
	ProofURL   string `json:"proof_url"`
}

// ProviderPaymentRequest is a provider-confirmed payment arriving
// through a webhook. It is trusted and recorded directly at approved.
type ProviderPaymentRequest struct {
	Provider        string
	ProviderEventID string
	PayerName       string
	PayerEmail      string
	Amount          int64
	Plan            userdomain.Plan
}

type ListPaymentRequest struct {
	Status    *SubmissionStatus `form:"status"`
	InvoiceID *snowflake.ID     `form:"invoice_id"`
	PageSize  int               `form:"page_size"`
	PageToken string            `form:"page_token"`
}

type ListPaymentResponse struct {
	PageInfo    pagination.PageInfo `json:"page_info"`
	Submissions []PaymentSubmission `json:"submissions"`
}

type Service interface {
	// Submit records a payer claim against the invoice behind token.
	Submit(ctx context.Context, invoiceToken string, req SubmitPaymentRequest) (*PaymentSubmission, error)
	// Approve moves a pending submission to approved and runs the
	// cascade: invoice marked paid, plan purchases applied to the
	// matching user or parked as unmatched. Approving an already
	// approved submission is a no-op.
	Approve(ctx context.Context, id snowflake.ID, operator string) (*PaymentSubmission, error)
	Reject(ctx context.Context, id snowflake.ID, operator, reason string) (*PaymentSubmission, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (*PaymentSubmission, error)

	// RecordProviderPayment writes an approved submission for a
	// provider-confirmed payment and runs the same cascade as Approve.
	RecordProviderPayment(ctx context.Context, req ProviderPaymentRequest) (*PaymentSubmission, error)

	ListUnmatched(ctx context.Context, includeResolved bool) ([]UnmatchedPayment, error)
	ResolveUnmatched(ctx context.Context, id snowflake.ID, operator string) (*UnmatchedPayment, error)
}
