package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	"github.com/uddoktahub/billing/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("intake_not_found")
	ErrStateConflict    = errors.New("intake_state_conflict")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidService   = errors.New("invalid_service")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)

type SubmitIntakeRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Service        string `json:"service"`
	Country        string `json:"country"`
	CapitalBracket string `json:"capital_bracket"`
	CompanyStage   string `json:"company_stage"`
	Notes          string `json:"notes"`
	Source         string `json:"source"`
}

type ListIntakeRequest struct {
	Status    *Status `form:"status"`
	PageSize  int     `form:"page_size"`
	PageToken string  `form:"page_token"`
}

type ListIntakeResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Intakes  []Intake            `json:"intakes"`
}

// PromoteIntakeRequest carries extra invoice inputs the intake itself
// does not hold. When the intake names a capital bracket, the quoted
// fee lines are prepended ahead of ExtraItems.
type PromoteIntakeRequest struct {
	ExtraItems    []invoicedomain.ItemInput `json:"extra_items"`
	Discount      int64                     `json:"discount_amount"`
	Currency      invoicedomain.Currency    `json:"currency"`
	BkashEnabled  bool                      `json:"bkash_enabled"`
	BankEnabled   bool                      `json:"bank_enabled"`
	PaypalEnabled bool                      `json:"paypal_enabled"`
	BkashNumber   string                    `json:"bkash_number"`
	PaypalLink    string                    `json:"paypal_link"`
	BankDetails   string                    `json:"bank_details"`
	NotesInternal string                    `json:"notes_internal"`
	NotesPublic   string                    `json:"notes_public"`
}

type Service interface {
	// Submit records a public inquiry at status new. Name, email and
	// service are required.
	Submit(ctx context.Context, req SubmitIntakeRequest) (*Intake, error)
	List(ctx context.Context, req ListIntakeRequest) (ListIntakeResponse, error)
	SetStatus(ctx context.Context, id snowflake.ID, to Status) (*Intake, error)
	// PromoteToInvoice creates a draft invoice from the intake's
	// contact fields. The intake row itself is not mutated.
	PromoteToInvoice(ctx context.Context, id snowflake.ID, req PromoteIntakeRequest) (*invoicedomain.InvoiceDetail, error)
}
