// Package domain contains persistence models for payment reconciliation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"gorm.io/datatypes"
)

// Method is a payment channel a payer can claim to have used.
type Method string

const (
	MethodBkash  Method = "bkash"
	MethodBank   Method = "bank"
	MethodPaypal Method = "paypal"
)

func ValidMethod(m Method) bool {
	switch m {
	case MethodBkash, MethodBank, MethodPaypal:
		return true
	default:
		return false
	}
}

// SubmissionStatus is the verification state of a claim. pending is the
// only non-terminal state; decisions never flip.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// PaymentSubmission is one self-reported or provider-reported payment
// claim. Invoice payments carry InvoiceID; subscription purchases carry
// Plan; webhook rows carry Provider and ProviderEventID and are written
// directly at approved.
type PaymentSubmission struct {
	ID              snowflake.ID     `gorm:"primaryKey" json:"id"`
	InvoiceID       *snowflake.ID    `gorm:"index" json:"invoice_id,omitempty"`
	PayerName       string           `json:"payer_name,omitempty"`
	PayerEmail      string           `gorm:"index" json:"payer_email"`
	Method          Method           `gorm:"type:text;not null" json:"method"`
	Amount          int64            `gorm:"not null" json:"amount"`
	Reference       string           `gorm:"not null" json:"reference"`
	ProofURL        string           `json:"proof_url,omitempty"`
	Plan            *userdomain.Plan `gorm:"type:text" json:"plan,omitempty"`
	Status          SubmissionStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	RejectReason    string           `json:"reject_reason,omitempty"`
	Provider        string           `json:"provider,omitempty"`
	ProviderEventID *string          `json:"provider_event_id,omitempty"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty"`
	DecidedBy       string           `json:"decided_by,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentSubmission) TableName() string { return "payment_submissions" }

func (p PaymentSubmission) Decided() bool {
	return p.Status != SubmissionPending
}

// PaymentEvent is the append-only record of one inbound webhook
// delivery, written before any processing. The (provider,
// provider_event_id) pair is the idempotence key.
type PaymentEvent struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	Provider        string         `gorm:"not null;uniqueIndex:ux_payment_events_provider_event" json:"provider"`
	ProviderEventID string         `gorm:"not null;uniqueIndex:ux_payment_events_provider_event" json:"provider_event_id"`
	EventType       string         `gorm:"not null" json:"event_type"`
	Payload         datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	ReceivedAt      time.Time      `gorm:"not null" json:"received_at"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
}

// TableName sets the database table name.
func (PaymentEvent) TableName() string { return "payment_events" }

// UnmatchedPayment holds an approved plan payment whose payer email
// matched no account, parked for manual follow-up.
type UnmatchedPayment struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	PaymentID  snowflake.ID    `gorm:"not null;index" json:"payment_id"`
	PayerEmail string          `gorm:"not null" json:"payer_email"`
	Plan       userdomain.Plan `gorm:"type:text;not null" json:"plan"`
	Reason     string          `gorm:"not null" json:"reason"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// TableName sets the database table name.
func (UnmatchedPayment) TableName() string { return "unmatched_payments" }
