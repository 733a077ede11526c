package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	// SetPlan updates the plan and stamps plan_updated_at. Returns
	// ErrNotFound when no user matches the email.
	SetPlan(ctx context.Context, email string, plan Plan) (*User, error)
}

var (
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidPlan  = errors.New("invalid_plan")
	ErrNotFound     = errors.New("user_not_found")
)
