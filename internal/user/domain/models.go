package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a subscription tier stored on the user record.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

func ValidPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanPro, PlanPremium:
		return true
	default:
		return false
	}
}

// User is the account record this core references by email. Only the
// plan fields are mutated here; everything else belongs to the auth
// provider.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Email         string       `gorm:"not null;uniqueIndex" json:"email"`
	Name          string       `json:"name,omitempty"`
	Plan          Plan         `gorm:"type:text;not null;default:'free'" json:"plan"`
	PlanUpdatedAt *time.Time   `json:"plan_updated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }
