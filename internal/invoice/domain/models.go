// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPartial, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is the authoritative status machine. paid and cancelled
// are terminal; paid never appears as a target here because it is only
// reachable through the payment approval cascade.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusSent, StatusCancelled},
	StatusSent:    {StatusPartial, StatusCancelled},
	StatusPartial: {StatusCancelled},
}

// CanTransition reports whether an operator-driven status change from
// one state to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further edits or status changes apply.
func Terminal(s Status) bool {
	return s == StatusPaid || s == StatusCancelled
}

type Currency string

const (
	CurrencyBDT Currency = "BDT"
	CurrencyUSD Currency = "USD"
)

func ValidCurrency(c Currency) bool {
	return c == CurrencyBDT || c == CurrencyUSD
}

// Invoice is one billable document. Amounts are whole currency units;
// subtotal and total are always recomputed on the write path, never
// trusted from the caller.
type Invoice struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	PublicToken     string        `gorm:"not null;uniqueIndex" json:"-"`
	IntakeID        *snowflake.ID `gorm:"index" json:"intake_id,omitempty"`
	ClientName      string        `gorm:"not null" json:"client_name"`
	ClientEmail     string        `gorm:"not null" json:"client_email"`
	ClientPhone     string        `json:"client_phone,omitempty"`
	Service         string        `json:"service,omitempty"`
	Currency        Currency      `gorm:"type:text;not null;default:'BDT'" json:"currency"`
	SubtotalAmount  int64         `gorm:"not null;default:0" json:"subtotal_amount"`
	DiscountAmount  int64         `gorm:"not null;default:0" json:"discount_amount"`
	TotalAmount     int64         `gorm:"not null;default:0" json:"total_amount"`
	Status          Status        `gorm:"type:text;not null;default:'draft'" json:"status"`
	BkashEnabled    bool          `gorm:"not null;default:false" json:"bkash_enabled"`
	BankEnabled     bool          `gorm:"not null;default:false" json:"bank_enabled"`
	PaypalEnabled   bool          `gorm:"not null;default:false" json:"paypal_enabled"`
	BkashNumber     string        `json:"bkash_number,omitempty"`
	PaypalLink      string        `json:"paypal_link,omitempty"`
	BankDetails     string        `json:"bank_details,omitempty"`
	NotesInternal   string        `json:"notes_internal,omitempty"`
	NotesPublic     string        `json:"notes_public,omitempty"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	PaidByPaymentID *snowflake.ID `json:"paid_by_payment_id,omitempty"`
	Version         int64         `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// HasPaymentMethod reports whether at least one payment channel is
// enabled, a precondition for leaving draft.
func (i Invoice) HasPaymentMethod() bool {
	return i.BkashEnabled || i.BankEnabled || i.PaypalEnabled
}

// MethodEnabled reports whether the named payment channel is enabled.
func (i Invoice) MethodEnabled(method string) bool {
	switch method {
	case "bkash":
		return i.BkashEnabled
	case "bank":
		return i.BankEnabled
	case "paypal":
		return i.PaypalEnabled
	default:
		return false
	}
}

// InvoiceItem is one line on an invoice. Position preserves the
// operator's ordering.
type InvoiceItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Position  int          `gorm:"not null;default:0" json:"position"`
	Label     string       `gorm:"not null" json:"label"`
	Amount    int64        `gorm:"not null;default:0" json:"amount"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// PublicView is the payer-facing projection of an invoice. It carries
// everything the payment page needs and nothing internal: no intake
// linkage, no internal notes, no version counter.
type PublicView struct {
	Token          string           `json:"token"`
	ClientName     string           `json:"client_name"`
	Service        string           `json:"service,omitempty"`
	Currency       Currency         `json:"currency"`
	SubtotalAmount int64            `json:"subtotal_amount"`
	DiscountAmount int64            `json:"discount_amount"`
	TotalAmount    int64            `json:"total_amount"`
	Status         Status           `json:"status"`
	BkashEnabled   bool             `json:"bkash_enabled"`
	BankEnabled    bool             `json:"bank_enabled"`
	PaypalEnabled  bool             `json:"paypal_enabled"`
	BkashNumber    string           `json:"bkash_number,omitempty"`
	PaypalLink     string           `json:"paypal_link,omitempty"`
	BankDetails    string           `json:"bank_details,omitempty"`
	NotesPublic    string           `json:"notes_public,omitempty"`
	Items          []PublicViewItem `json:"items"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type PublicViewItem struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
	Amount   int64  `json:"amount"`
}
