package service

import (
	"context"
	"strings"

	"github.com/uddoktahub/billing/internal/clock"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  userdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  userdomain.Repository
}

func New(p Params) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, userdomain.ErrInvalidEmail
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	return user, nil
}

func (s *Service) SetPlan(ctx context.Context, email string, plan userdomain.Plan) (*userdomain.User, error) {
	if !userdomain.ValidPlan(plan) {
		return nil, userdomain.ErrInvalidPlan
	}

	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.repo.UpdatePlan(ctx, s.db, user.ID, plan, now); err != nil {
		return nil, err
	}

	user.Plan = plan
	user.PlanUpdatedAt = &now
	user.UpdatedAt = now

	s.log.Info("user plan updated",
		zap.String("email", user.Email),
		zap.String("plan", string(plan)),
	)

	return user, nil
}
