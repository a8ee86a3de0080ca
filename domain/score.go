package domain

import "time"

// ScoreComponent is one weighted slice of the final screening score.
type ScoreComponent struct {
	Raw          float64 `json:"raw"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// KeywordComponent carries the matched/missing skill lists alongside the
// weighted score, so reviewers can see what drove the number.
type KeywordComponent struct {
	ScoreComponent
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
}

// ExperienceComponent keeps candidate years (nil when unverifiable) and
// the posting's requirement next to the weighted score.
type ExperienceComponent struct {
	ScoreComponent
	CandidateYears *float64 `json:"candidate_years"`
	RequiredYears  float64  `json:"required_years"`
}

// ScoreBreakdown is the immutable explanation of one screening run. A
// rescreen replaces the whole value.
type ScoreBreakdown struct {
	FinalScore float64             `json:"final_score"`
	Similarity ScoreComponent      `json:"similarity"`
	Experience ExperienceComponent `json:"experience"`
	Keyword    KeywordComponent    `json:"keyword"`
	Extras     ScoreComponent      `json:"extras"`
}

// ErrorRecord is persisted in place of a breakdown when screening fails.
type ErrorRecord struct {
	Stage    string    `json:"stage"`
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}

// ScreeningDetails holds exactly one of a breakdown or an error record.
// Use the constructors; building the struct literally risks violating
// the one-of rule.
type ScreeningDetails struct {
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
	Error     *ErrorRecord    `json:"error,omitempty"`
}

func BreakdownDetails(b ScoreBreakdown) *ScreeningDetails {
	return &ScreeningDetails{Breakdown: &b}
}

func ErrorDetails(stage, message string, at time.Time) *ScreeningDetails {
	return &ScreeningDetails{Error: &ErrorRecord{Stage: stage, Message: message, FailedAt: at}}
}
