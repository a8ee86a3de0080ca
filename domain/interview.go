package domain

import (
	"time"

	"github.com/google/uuid"
)

type InterviewStatus string

const (
	InterviewScheduled  InterviewStatus = "scheduled"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewCancelled  InterviewStatus = "cancelled"
	InterviewNoShow     InterviewStatus = "no_show"
)

type Interview struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ApplicationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ScheduledAt   time.Time       `gorm:"not null"`
	Status        InterviewStatus `gorm:"size:32;not null;default:'scheduled'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
