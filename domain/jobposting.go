package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExperienceLevel is the seniority band a posting hires for.
type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
	LevelLead   ExperienceLevel = "lead"
)

// RequiredYears maps the level to the minimum years of experience used
// by the experience sub-score. Unknown levels count as entry.
func (l ExperienceLevel) RequiredYears() float64 {
	switch l {
	case LevelMid:
		return 2
	case LevelSenior:
		return 5
	case LevelLead:
		return 8
	default:
		return 0
	}
}

type JobPosting struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Title           string          `gorm:"size:255;not null"`
	Description     string          `gorm:"type:text;not null"`
	Requirements    string          `gorm:"type:text"`
	RequiredSkills  []string        `gorm:"type:jsonb;serializer:json"`
	ExperienceLevel ExperienceLevel `gorm:"size:16;not null;default:'entry'"`

	// Cached description embedding, computed lazily on the first
	// screening against this posting.
	JDEmbedding *string `gorm:"column:jd_embedding;type:vector(1536)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScreenableText is the posting text candidates are compared against.
func (j JobPosting) ScreenableText() string {
	if j.Requirements == "" {
		return j.Description
	}
	return j.Description + "\n" + j.Requirements
}
