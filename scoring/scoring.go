// Package scoring computes the weighted screening score and its
// user-facing breakdown. Everything here is pure arithmetic; the
// weights and floors are fixed policy, not configuration.
package scoring

import (
	"math"
	"strings"

	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
)

const (
	WeightSimilarity = 0.60
	WeightExperience = 0.20
	WeightKeyword    = 0.15
	WeightExtras     = 0.05

	// DefaultExtras is the fixed extras input. With it, a resume that
	// maxes every other component lands on 97.50, not 100.
	DefaultExtras = 0.5

	// unknownExperienceFloor is "could not verify, do not auto-reject".
	unknownExperienceFloor = 0.3

	// neutralKeywordScore applies when a posting lists no required
	// skills: neither credit nor penalty.
	neutralKeywordScore = 0.5
)

// KeywordResult is the keyword sub-score with its evidence lists.
type KeywordResult struct {
	Score   float64
	Matched []string
	Missing []string
}

// Keyword scores the share of required skills found in the resume text
// as case-insensitive substrings.
func Keyword(resumeText string, requiredSkills []string) KeywordResult {
	if len(requiredSkills) == 0 {
		return KeywordResult{Score: neutralKeywordScore, Matched: []string{}, Missing: []string{}}
	}

	lower := strings.ToLower(resumeText)
	res := KeywordResult{Matched: []string{}, Missing: []string{}}
	for _, skill := range requiredSkills {
		if strings.Contains(lower, strings.ToLower(skill)) {
			res.Matched = append(res.Matched, skill)
		} else {
			res.Missing = append(res.Missing, skill)
		}
	}
	res.Score = float64(len(res.Matched)) / float64(len(requiredSkills))
	return res
}

// Experience scores candidate years against the posting requirement.
// A zero-year requirement always scores full; unknown candidate years
// score the floor; a shortfall never drops below the floor.
func Experience(candidateYears *float64, requiredYears float64) float64 {
	if requiredYears <= 0 {
		return 1
	}
	if candidateYears == nil {
		return unknownExperienceFloor
	}
	if *candidateYears >= requiredYears {
		return 1
	}
	return math.Max(unknownExperienceFloor, *candidateYears/requiredYears)
}

// Inputs carries the normalized sub-scores plus the evidence that goes
// into the breakdown.
type Inputs struct {
	Similarity     float64
	Keyword        KeywordResult
	CandidateYears *float64
	RequiredYears  float64
	Extras         float64
}

// Score combines the sub-scores with the fixed weights into a 0-100
// score and the full breakdown. All inputs are clamped to [0,1] before
// weighting; cosine similarity in particular can stray negative.
func Score(in Inputs) (float64, domain.ScoreBreakdown) {
	sim := clamp01(in.Similarity)
	exp := clamp01(Experience(in.CandidateYears, in.RequiredYears))
	kw := clamp01(in.Keyword.Score)
	extras := clamp01(in.Extras)

	final := round2(100 * (WeightSimilarity*sim + WeightExperience*exp + WeightKeyword*kw + WeightExtras*extras))

	breakdown := domain.ScoreBreakdown{
		FinalScore: final,
		Similarity: component(sim, WeightSimilarity),
		Experience: domain.ExperienceComponent{
			ScoreComponent: component(exp, WeightExperience),
			CandidateYears: in.CandidateYears,
			RequiredYears:  in.RequiredYears,
		},
		Keyword: domain.KeywordComponent{
			ScoreComponent: component(kw, WeightKeyword),
			MatchedSkills:  in.Keyword.Matched,
			MissingSkills:  in.Keyword.Missing,
		},
		Extras: component(extras, WeightExtras),
	}
	return final, breakdown
}

// StatusForScore maps the final score onto the screening outcome.
// Boundaries are inclusive on the lower side: 70.00 shortlists,
// 50.00 screens.
func StatusForScore(score float64) domain.ApplicationStatus {
	switch {
	case score >= 70:
		return domain.StatusShortlisted
	case score >= 50:
		return domain.StatusScreened
	default:
		return domain.StatusRejected
	}
}

func component(raw, weight float64) domain.ScoreComponent {
	return domain.ScoreComponent{
		Raw:          raw,
		Weight:       weight,
		Contribution: round2(100 * raw * weight),
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
