package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/pkg/db/pagination"
)

var (
	ErrNotFound        = errors.New("invoice_not_found")
	ErrStateConflict   = errors.New("invoice_state_conflict")
	ErrVersionConflict = errors.New("invoice_version_conflict")

	ErrInvalidClientName     = errors.New("invalid_client_name")
	ErrInvalidClientEmail    = errors.New("invalid_client_email")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidItems          = errors.New("invalid_items")
	ErrInvalidDiscount       = errors.New("invalid_discount")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrNoPaymentMethod       = errors.New("invalid_payment_methods")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
	ErrInvalidInvoiceVersion = errors.New("invalid_version")
)

type ItemInput struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

type CreateInvoiceRequest struct {
	ClientName    string        `json:"client_name"`
	ClientEmail   string        `json:"client_email"`
	ClientPhone   string        `json:"client_phone"`
	Service       string        `json:"service"`
	Currency      Currency      `json:"currency"`
	Items         []ItemInput   `json:"items"`
	OverrideTotal *int64        `json:"override_total,omitempty"`
	Discount      int64         `json:"discount_amount"`
	BkashEnabled  bool          `json:"bkash_enabled"`
	BankEnabled   bool          `json:"bank_enabled"`
	PaypalEnabled bool          `json:"paypal_enabled"`
	BkashNumber   string        `json:"bkash_number"`
	PaypalLink    string        `json:"paypal_link"`
	BankDetails   string        `json:"bank_details"`
	NotesInternal string        `json:"notes_internal"`
	NotesPublic   string        `json:"notes_public"`
	IntakeID      *snowflake.ID `json:"intake_id,omitempty"`
}

// UpdateInvoiceRequest is a partial patch. Nil fields keep their
// stored value. Version is required and must match the stored row.
type UpdateInvoiceRequest struct {
	Version       int64        `json:"version"`
	ClientName    *string      `json:"client_name,omitempty"`
	ClientEmail   *string      `json:"client_email,omitempty"`
	ClientPhone   *string      `json:"client_phone,omitempty"`
	Service       *string      `json:"service,omitempty"`
	Currency      *Currency    `json:"currency,omitempty"`
	Items         *[]ItemInput `json:"items,omitempty"`
	Discount      *int64       `json:"discount_amount,omitempty"`
	BkashEnabled  *bool        `json:"bkash_enabled,omitempty"`
	BankEnabled   *bool        `json:"bank_enabled,omitempty"`
	PaypalEnabled *bool        `json:"paypal_enabled,omitempty"`
	BkashNumber   *string      `json:"bkash_number,omitempty"`
	PaypalLink    *string      `json:"paypal_link,omitempty"`
	BankDetails   *string      `json:"bank_details,omitempty"`
	NotesInternal *string      `json:"notes_internal,omitempty"`
	NotesPublic   *string      `json:"notes_public,omitempty"`
}

type ListInvoiceRequest struct {
	Status    *Status `form:"status"`
	Email     string  `form:"email"`
	PageSize  int     `form:"page_size"`
	PageToken string  `form:"page_token"`
}

type ListInvoiceResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Invoices []Invoice           `json:"invoices"`
}

type InvoiceDetail struct {
	Invoice Invoice       `json:"invoice"`
	Items   []InvoiceItem `json:"items"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceDetail, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateInvoiceRequest) (*InvoiceDetail, error)
	// SetStatus applies an operator-driven transition. Direct moves to
	// paid are rejected; only the payment approval cascade marks an
	// invoice paid.
	SetStatus(ctx context.Context, id snowflake.ID, to Status) (*Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (*InvoiceDetail, error)
	GetPublicView(ctx context.Context, token string) (*PublicView, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
}
