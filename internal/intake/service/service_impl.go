package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/clock"
	"github.com/uddoktahub/billing/internal/config"
	intakedomain "github.com/uddoktahub/billing/internal/intake/domain"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	"github.com/uddoktahub/billing/internal/quote"
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       intakedomain.Repository
	InvoiceSvc invoicedomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.Config
	repo       intakedomain.Repository
	invoiceSvc invoicedomain.Service
}

func NewService(p Params) intakedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("intake.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Cfg,
		repo:       p.Repo,
		invoiceSvc: p.InvoiceSvc,
	}
}

func (s *Service) Submit(ctx context.Context, req intakedomain.SubmitIntakeRequest) (*intakedomain.Intake, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, intakedomain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, intakedomain.ErrInvalidEmail
	}
	service := strings.TrimSpace(req.Service)
	if service == "" {
		return nil, intakedomain.ErrInvalidService
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = s.cfg.IntakeSourceTag
	}

	now := s.clock.Now().UTC()
	intake := intakedomain.Intake{
		ID:             s.genID.Generate(),
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(req.Phone),
		Service:        service,
		Country:        strings.TrimSpace(req.Country),
		CapitalBracket: strings.TrimSpace(req.CapitalBracket),
		CompanyStage:   strings.TrimSpace(req.CompanyStage),
		Notes:          req.Notes,
		Status:         intakedomain.StatusNew,
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &intake); err != nil {
		return nil, err
	}

	s.log.Info("intake submitted",
		zap.String("intake_id", intake.ID.String()),
		zap.String("service", intake.Service),
		zap.String("source", intake.Source),
	)

	return &intake, nil
}

func (s *Service) List(ctx context.Context, req intakedomain.ListIntakeRequest) (intakedomain.ListIntakeResponse, error) {
	filter := intakedomain.ListFilter{
		Status: req.Status,
		Limit:  req.PageSize,
	}
	if filter.Limit <= 0 {
		filter.Limit = 25
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return intakedomain.ListIntakeResponse{}, intakedomain.ErrInvalidPageToken
		}
		filter.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return intakedomain.ListIntakeResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, filter.Limit, func(row *intakedomain.Intake) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	intakes := make([]intakedomain.Intake, 0, len(rows))
	for _, row := range rows {
		intakes = append(intakes, *row)
	}

	return intakedomain.ListIntakeResponse{
		PageInfo: *pageInfo,
		Intakes:  intakes,
	}, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, to intakedomain.Status) (*intakedomain.Intake, error) {
	if !intakedomain.ValidStatus(to) {
		return nil, intakedomain.ErrInvalidStatus
	}

	intake, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if intake == nil {
		return nil, intakedomain.ErrNotFound
	}
	if !intakedomain.CanTransition(intake.Status, to) {
		return nil, intakedomain.ErrStateConflict
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, intake.ID, to, now); err != nil {
		return nil, err
	}

	s.log.Info("intake status changed",
		zap.String("intake_id", intake.ID.String()),
		zap.String("from", string(intake.Status)),
		zap.String("to", string(to)),
	)

	intake.Status = to
	intake.UpdatedAt = now
	return intake, nil
}

func (s *Service) PromoteToInvoice(ctx context.Context, id snowflake.ID, req intakedomain.PromoteIntakeRequest) (*invoicedomain.InvoiceDetail, error) {
	intake, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if intake == nil {
		return nil, intakedomain.ErrNotFound
	}

	items := make([]invoicedomain.ItemInput, 0, len(req.ExtraItems)+5)
	if intake.CapitalBracket != "" {
		breakdown, err := quote.Lookup(quote.Bracket(intake.CapitalBracket))
		if err != nil {
			s.log.Warn("intake carries unknown capital bracket",
				zap.String("intake_id", intake.ID.String()),
				zap.String("capital_bracket", intake.CapitalBracket),
			)
		} else {
			for _, fee := range breakdown.GovtFees {
				items = append(items, invoicedomain.ItemInput{Label: fee.Label, Amount: fee.Amount})
			}
			items = append(items, invoicedomain.ItemInput{Label: "Service fee", Amount: breakdown.ServiceFee})
		}
	}
	items = append(items, req.ExtraItems...)

	intakeID := intake.ID
	detail, err := s.invoiceSvc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ClientName:    intake.Name,
		ClientEmail:   intake.Email,
		ClientPhone:   intake.Phone,
		Service:       intake.Service,
		Currency:      req.Currency,
		Items:         items,
		Discount:      req.Discount,
		BkashEnabled:  req.BkashEnabled,
		BankEnabled:   req.BankEnabled,
		PaypalEnabled: req.PaypalEnabled,
		BkashNumber:   req.BkashNumber,
		PaypalLink:    req.PaypalLink,
		BankDetails:   req.BankDetails,
		NotesInternal: req.NotesInternal,
		NotesPublic:   req.NotesPublic,
		IntakeID:      &intakeID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("intake promoted to invoice",
		zap.String("intake_id", intake.ID.String()),
		zap.String("invoice_id", detail.Invoice.ID.String()),
	)

	return detail, nil
}
