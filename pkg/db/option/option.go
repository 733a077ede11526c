// Package option applies reusable query modifiers to gorm statements.
package option

import (
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"gorm.io/gorm"
)

type Option interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// WithCursor constrains the statement to rows strictly older than the
// decoded cursor position. A nil cursor leaves the statement untouched.
func WithCursor(cursor *pagination.Cursor) Option {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		if cursor == nil || cursor.CreatedAt == "" || cursor.ID == "" {
			return stmt
		}
		return stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt,
			cursor.CreatedAt,
			cursor.ID,
		)
	})
}

// WithPageLimit orders newest first and fetches one extra row so the
// caller can detect another page.
func WithPageLimit(limit int) Option {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		if limit <= 0 {
			limit = 25
		}
		if limit > 250 {
			limit = 250
		}
		return stmt.Order("created_at desc, id desc").Limit(limit + 1)
	})
}

// Apply runs every option against the statement in order.
func Apply(stmt *gorm.DB, opts ...Option) *gorm.DB {
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
