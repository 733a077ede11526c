package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/uddoktahub/billing/internal/audit/domain"
	"github.com/uddoktahub/billing/internal/clock"
	"github.com/uddoktahub/billing/internal/config"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"github.com/uddoktahub/billing/pkg/db"
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	UserRepo    userdomain.Repository
	AuditSvc    auditdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	userRepo    userdomain.Repository
	auditSvc    auditdomain.Service
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Cfg,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		userRepo:    p.UserRepo,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Submit(ctx context.Context, invoiceToken string, req paymentdomain.SubmitPaymentRequest) (*paymentdomain.PaymentSubmission, error) {
	invoice, err := s.invoiceRepo.FindByToken(ctx, s.db, invoiceToken)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}

	switch invoice.Status {
	case invoicedomain.StatusCancelled:
		return nil, paymentdomain.ErrInvoiceNotPayable
	case invoicedomain.StatusPaid:
		if !s.cfg.AllowPaymentOnPaidInvoice {
			return nil, paymentdomain.ErrInvoiceNotPayable
		}
	}

	if !paymentdomain.ValidMethod(req.Method) {
		return nil, paymentdomain.ErrInvalidMethod
	}
	if !invoice.MethodEnabled(string(req.Method)) {
		return nil, paymentdomain.ErrInvalidMethod
	}
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}
	payerName := strings.TrimSpace(req.PayerName)
	if payerName == "" {
		return nil, paymentdomain.ErrInvalidPayerName
	}
	payerEmail := strings.ToLower(strings.TrimSpace(req.PayerEmail))
	if payerEmail == "" || !strings.Contains(payerEmail, "@") {
		return nil, paymentdomain.ErrInvalidPayerEmail
	}

	invoiceID := invoice.ID
	submission := paymentdomain.PaymentSubmission{
		ID:         s.genID.Generate(),
		InvoiceID:  &invoiceID,
		PayerName:  payerName,
		PayerEmail: payerEmail,
		Method:     req.Method,
		Amount:     req.Amount,
		Reference:  reference,
		ProofURL:   strings.TrimSpace(req.ProofURL),
		Status:     paymentdomain.SubmissionPending,
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.InsertSubmission(ctx, s.db, &submission); err != nil {
		return nil, err
	}

	s.log.Info("payment submission received",
		zap.String("submission_id", submission.ID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("method", string(submission.Method)),
		zap.Int64("amount", submission.Amount),
	)

	return &submission, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID, operator string) (*paymentdomain.PaymentSubmission, error) {
	now := s.clock.Now().UTC()

	var approved *paymentdomain.PaymentSubmission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		matched, err := s.repo.DecideSubmission(ctx, tx, id, paymentdomain.SubmissionApproved, "", now, operator)
		if err != nil {
			return err
		}

		submission, err := s.repo.FindSubmissionByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if submission == nil {
			return paymentdomain.ErrNotFound
		}

		if matched == 0 {
			// Lost the race or replayed. A prior approval is a no-op;
			// a rejection never flips.
			if submission.Status == paymentdomain.SubmissionApproved {
				approved = submission
				return nil
			}
			return paymentdomain.ErrStateConflict
		}

		if err := s.cascade(ctx, tx, submission, now); err != nil {
			return err
		}
		approved = submission
		return nil
	})
	if err != nil {
		return nil, err
	}

	targetID := approved.ID.String()
	_ = s.auditSvc.AuditLog(ctx, operator, "payment.approve", "payment_submission", &targetID, map[string]any{
		"amount": approved.Amount,
		"method": string(approved.Method),
	})

	return approved, nil
}

// cascade applies the side effects of an approved payment inside the
// caller's transaction: the invoice is marked paid and plan purchases
// are applied to the matching user or parked as unmatched.
func (s *Service) cascade(ctx context.Context, tx *gorm.DB, submission *paymentdomain.PaymentSubmission, now time.Time) error {
	if submission.InvoiceID != nil {
		invoice, err := s.invoiceRepo.FindByID(ctx, tx, *submission.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			s.log.Warn("approved payment references missing invoice",
				zap.String("submission_id", submission.ID.String()),
				zap.String("invoice_id", submission.InvoiceID.String()),
			)
		} else {
			updated, err := s.invoiceRepo.MarkPaid(ctx, tx, invoice.ID, submission.ID, now)
			if err != nil {
				return err
			}
			if !updated {
				s.log.Info("invoice already terminal, cascade skipped",
					zap.String("invoice_id", invoice.ID.String()),
					zap.String("invoice_status", string(invoice.Status)),
				)
			}
		}
	}

	if submission.Plan == nil || *submission.Plan == "" {
		return nil
	}

	user, err := s.userRepo.FindByEmail(ctx, tx, submission.PayerEmail)
	if err != nil {
		return err
	}
	if user != nil {
		return s.userRepo.UpdatePlan(ctx, tx, user.ID, *submission.Plan, now)
	}

	s.log.Warn("plan payment matched no user",
		zap.String("submission_id", submission.ID.String()),
		zap.String("payer_email", submission.PayerEmail),
	)
	return s.repo.InsertUnmatched(ctx, tx, &paymentdomain.UnmatchedPayment{
		ID:         s.genID.Generate(),
		PaymentID:  submission.ID,
		PayerEmail: submission.PayerEmail,
		Plan:       *submission.Plan,
		Reason:     "no_matching_user",
		CreatedAt:  now,
	})
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, operator, reason string) (*paymentdomain.PaymentSubmission, error) {
	now := s.clock.Now().UTC()

	matched, err := s.repo.DecideSubmission(ctx, s.db, id, paymentdomain.SubmissionRejected, strings.TrimSpace(reason), now, operator)
	if err != nil {
		return nil, err
	}

	submission, err := s.repo.FindSubmissionByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, paymentdomain.ErrNotFound
	}
	if matched == 0 {
		return nil, paymentdomain.ErrStateConflict
	}

	targetID := submission.ID.String()
	_ = s.auditSvc.AuditLog(ctx, operator, "payment.reject", "payment_submission", &targetID, map[string]any{
		"reason": submission.RejectReason,
	})

	return submission, nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	filter := paymentdomain.ListFilter{
		Status:    req.Status,
		InvoiceID: req.InvoiceID,
		Limit:     req.PageSize,
	}
	if filter.Limit <= 0 {
		filter.Limit = 25
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidPageToken
		}
		filter.Cursor = cursor
	}

	rows, err := s.repo.ListSubmissions(ctx, s.db, filter)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, filter.Limit, func(row *paymentdomain.PaymentSubmission) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	submissions := make([]paymentdomain.PaymentSubmission, 0, len(rows))
	for _, row := range rows {
		submissions = append(submissions, *row)
	}

	return paymentdomain.ListPaymentResponse{
		PageInfo:    *pageInfo,
		Submissions: submissions,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*paymentdomain.PaymentSubmission, error) {
	submission, err := s.repo.FindSubmissionByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return submission, nil
}

func (s *Service) RecordProviderPayment(ctx context.Context, req paymentdomain.ProviderPaymentRequest) (*paymentdomain.PaymentSubmission, error) {
	if !userdomain.ValidPlan(req.Plan) {
		return nil, paymentdomain.ErrInvalidPlan
	}
	email := strings.ToLower(strings.TrimSpace(req.PayerEmail))
	if email == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	now := s.clock.Now().UTC()
	plan := req.Plan
	eventID := req.ProviderEventID
	submission := paymentdomain.PaymentSubmission{
		ID:              s.genID.Generate(),
		PayerName:       strings.TrimSpace(req.PayerName),
		PayerEmail:      email,
		Method:          paymentdomain.MethodPaypal,
		Amount:          req.Amount,
		Reference:       eventID,
		Plan:            &plan,
		Status:          paymentdomain.SubmissionApproved,
		Provider:        req.Provider,
		ProviderEventID: &eventID,
		DecidedAt:       &now,
		DecidedBy:       req.Provider,
		CreatedAt:       now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertSubmission(ctx, tx, &submission); err != nil {
			return err
		}
		return s.cascade(ctx, tx, &submission, now)
	})
	if err != nil {
		// A redelivered or concurrently delivered event trips the unique
		// (provider, provider_event_id) index; the first write already
		// cascaded, so hand back its submission.
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindSubmissionByProviderEvent(ctx, s.db, req.Provider, eventID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				s.log.Info("provider payment already recorded",
					zap.String("provider", req.Provider),
					zap.String("provider_event_id", eventID),
				)
				return existing, nil
			}
		}
		return nil, err
	}

	targetID := submission.ID.String()
	_ = s.auditSvc.AuditLog(ctx, req.Provider, "payment.provider_capture", "payment_submission", &targetID, map[string]any{
		"provider_event_id": eventID,
		"plan":              string(plan),
		"amount":            req.Amount,
	})

	return &submission, nil
}

func (s *Service) ListUnmatched(ctx context.Context, includeResolved bool) ([]paymentdomain.UnmatchedPayment, error) {
	rows, err := s.repo.ListUnmatched(ctx, s.db, includeResolved)
	if err != nil {
		return nil, err
	}
	out := make([]paymentdomain.UnmatchedPayment, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

func (s *Service) ResolveUnmatched(ctx context.Context, id snowflake.ID, operator string) (*paymentdomain.UnmatchedPayment, error) {
	now := s.clock.Now().UTC()

	matched, err := s.repo.ResolveUnmatched(ctx, s.db, id, now)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindUnmatchedByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, paymentdomain.ErrNotFound
	}
	if matched == 0 {
		return nil, paymentdomain.ErrStateConflict
	}

	targetID := row.ID.String()
	_ = s.auditSvc.AuditLog(ctx, operator, "payment.resolve_unmatched", "unmatched_payment", &targetID, nil)

	return row, nil
}
