// Package domain contains persistence models for inquiry intake.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status represents intake triage states.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusClosed     Status = "closed"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusClosed:
		return true
	default:
		return false
	}
}

// transitions is the triage machine. completed and closed are terminal;
// closed is reachable from any non-completed state.
var transitions = map[Status][]Status{
	StatusNew:        {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusCompleted, StatusClosed},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Intake is one public inquiry. Rows are never deleted; closed is the
// archival state.
type Intake struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"not null" json:"name"`
	Email          string        `gorm:"not null;index" json:"email"`
	Phone          string        `json:"phone,omitempty"`
	Service        string        `gorm:"not null" json:"service"`
	Country        string        `json:"country,omitempty"`
	CapitalBracket string        `json:"capital_bracket,omitempty"`
	CompanyStage   string        `json:"company_stage,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	Status         Status        `gorm:"type:text;not null;default:'new'" json:"status"`
	Source         string        `gorm:"not null" json:"source"`
	UserID         *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Intake) TableName() string { return "intakes" }
