package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	UpdatePlan(ctx context.Context, db *gorm.DB, id snowflake.ID, plan Plan, updatedAt time.Time) error
}
