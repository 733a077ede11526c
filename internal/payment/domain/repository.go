package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    *SubmissionStatus
	InvoiceID *snowflake.ID
	Cursor    *pagination.Cursor
	Limit     int
}

type Repository interface {
	InsertSubmission(ctx context.Context, db *gorm.DB, submission *PaymentSubmission) error
	FindSubmissionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentSubmission, error)
	// DecideSubmission flips a pending submission to a terminal status.
	// The WHERE status = 'pending' guard makes concurrent decisions
	// race-safe; callers inspect the matched-row count.
	DecideSubmission(ctx context.Context, db *gorm.DB, id snowflake.ID, to SubmissionStatus, reason string, decidedAt time.Time, decidedBy string) (int64, error)
	ListSubmissions(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*PaymentSubmission, error)
	FindSubmissionByProviderEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*PaymentSubmission, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *PaymentEvent) error
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*PaymentEvent, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error

	InsertUnmatched(ctx context.Context, db *gorm.DB, row *UnmatchedPayment) error
	FindUnmatchedByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UnmatchedPayment, error)
	ListUnmatched(ctx context.Context, db *gorm.DB, includeResolved bool) ([]*UnmatchedPayment, error)
	ResolveUnmatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)
}
