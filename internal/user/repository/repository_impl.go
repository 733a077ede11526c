package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, name, plan, plan_updated_at, created_at, updated_at
		 FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) UpdatePlan(ctx context.Context, db *gorm.DB, id snowflake.ID, plan domain.Plan, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET plan = ?, plan_updated_at = ?, updated_at = ?
		 WHERE id = ?`,
		plan,
		updatedAt,
		updatedAt,
		id,
	).Error
}
