package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus tracks an application through the screening state machine.
type ApplicationStatus string

const (
	StatusReceived        ApplicationStatus = "received"
	StatusScreening       ApplicationStatus = "screening"
	StatusScreened        ApplicationStatus = "screened"
	StatusShortlisted     ApplicationStatus = "shortlisted"
	StatusRejected        ApplicationStatus = "rejected"
	StatusScreeningFailed ApplicationStatus = "screening_failed"
)

// Terminal reports whether the status is a screening outcome (as opposed
// to a state the worker may still move the application out of).
func (s ApplicationStatus) Terminal() bool {
	switch s {
	case StatusScreened, StatusShortlisted, StatusRejected, StatusScreeningFailed:
		return true
	}
	return false
}

type Application struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobPostingID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CandidateName  string    `gorm:"size:255"`
	CandidateEmail string    `gorm:"size:255"`
	ResumeFilePath string    `gorm:"size:512;not null"`

	// Screening fields, owned by the worker while a job is in flight.
	ResumeText        *string           `gorm:"type:text"`
	ResumeEmbedding   *string           `gorm:"type:vector(1536)"`
	YearsOfExperience *float64
	ScreeningScore    *float64
	ScreeningDetails  *ScreeningDetails `gorm:"type:jsonb;serializer:json"`

	Status    ApplicationStatus `gorm:"size:32;not null;default:'received';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
