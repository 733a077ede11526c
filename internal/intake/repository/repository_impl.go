package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/intake/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, intake *domain.Intake) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO intakes (
			id, name, email, phone, service, country, capital_bracket,
			company_stage, notes, status, source, user_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intake.ID,
		intake.Name,
		intake.Email,
		intake.Phone,
		intake.Service,
		intake.Country,
		intake.CapitalBracket,
		intake.CompanyStage,
		intake.Notes,
		intake.Status,
		intake.Source,
		intake.UserID,
		intake.CreatedAt,
		intake.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Intake, error) {
	var intake domain.Intake
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM intakes WHERE id = ?`, id,
	).Scan(&intake).Error
	if err != nil {
		return nil, err
	}
	if intake.ID == 0 {
		return nil, nil
	}
	return &intake, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, to domain.Status, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE intakes SET status = ?, updated_at = ? WHERE id = ?`,
		to,
		updatedAt,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Intake, error) {
	var intakes []*domain.Intake
	stmt := db.WithContext(ctx).Model(&domain.Intake{})

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
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

	if err := stmt.Find(&intakes).Error; err != nil {
		return nil, err
	}
	return intakes, nil
}
