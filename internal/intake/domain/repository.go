package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status *Status
	Cursor *pagination.Cursor
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, intake *Intake) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Intake, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, to Status, updatedAt time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Intake, error)
}
