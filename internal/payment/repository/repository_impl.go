package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSubmission(ctx context.Context, db *gorm.DB, submission *domain.PaymentSubmission) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_submissions (
			id, invoice_id, payer_name, payer_email, method, amount, reference,
			proof_url, plan, status, reject_reason, provider, provider_event_id,
			decided_at, decided_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		submission.ID,
		submission.InvoiceID,
		submission.PayerName,
		submission.PayerEmail,
		submission.Method,
		submission.Amount,
		submission.Reference,
		submission.ProofURL,
		submission.Plan,
		submission.Status,
		submission.RejectReason,
		submission.Provider,
		submission.ProviderEventID,
		submission.DecidedAt,
		submission.DecidedBy,
		submission.CreatedAt,
	).Error
}

func (r *repo) FindSubmissionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentSubmission, error) {
	var submission domain.PaymentSubmission
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payment_submissions WHERE id = ?`, id,
	).Scan(&submission).Error
	if err != nil {
		return nil, err
	}
	if submission.ID == 0 {
		return nil, nil
	}
	return &submission, nil
}

func (r *repo) FindSubmissionByProviderEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.PaymentSubmission, error) {
	var submission domain.PaymentSubmission
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payment_submissions WHERE provider = ? AND provider_event_id = ?`,
		provider,
		providerEventID,
	).Scan(&submission).Error
	if err != nil {
		return nil, err
	}
	if submission.ID == 0 {
		return nil, nil
	}
	return &submission, nil
}

func (r *repo) DecideSubmission(ctx context.Context, db *gorm.DB, id snowflake.ID, to domain.SubmissionStatus, reason string, decidedAt time.Time, decidedBy string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_submissions
		 SET status = ?, reject_reason = ?, decided_at = ?, decided_by = ?
		 WHERE id = ? AND status = ?`,
		to,
		reason,
		decidedAt,
		decidedBy,
		id,
		domain.SubmissionPending,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) ListSubmissions(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.PaymentSubmission, error) {
	var submissions []*domain.PaymentSubmission
	stmt := db.WithContext(ctx).Model(&domain.PaymentSubmission{})

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.InvoiceID != nil {
		stmt = stmt.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.PaymentEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, provider, provider_event_id, event_type, payload, received_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
	).Error
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.PaymentEvent, error) {
	var event domain.PaymentEvent
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payment_events WHERE provider = ? AND provider_event_id = ?`,
		provider,
		providerEventID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) InsertUnmatched(ctx context.Context, db *gorm.DB, row *domain.UnmatchedPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO unmatched_payments (id, payment_id, payer_email, plan, reason, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.PaymentID,
		row.PayerEmail,
		row.Plan,
		row.Reason,
		row.CreatedAt,
		row.ResolvedAt,
	).Error
}

func (r *repo) FindUnmatchedByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.UnmatchedPayment, error) {
	var row domain.UnmatchedPayment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM unmatched_payments WHERE id = ?`, id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListUnmatched(ctx context.Context, db *gorm.DB, includeResolved bool) ([]*domain.UnmatchedPayment, error) {
	var rows []*domain.UnmatchedPayment
	stmt := db.WithContext(ctx).Model(&domain.UnmatchedPayment{})
	if !includeResolved {
		stmt = stmt.Where("resolved_at IS NULL")
	}
	if err := stmt.Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ResolveUnmatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE unmatched_payments SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		at,
		id,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
