package analysis

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Profile is the best-effort structured record pulled out of resume
// text. Empty strings and a nil YearsOfExperience mean "not found",
// which is an expected outcome, not an error.
type Profile struct {
	Email             string
	Phone             string
	YearsOfExperience *float64
	Skills            []string
}

// Catalogue of technical terms recognized by the skill pass.
var skillCatalogue = []string{
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript",
	"C++", "C#", "PHP", "Ruby", "Rust", "Kotlin", "Swift",
	"React", "Vue", "Angular", "Node.js", "Django", "Flask", "Spring",
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Elasticsearch",
	"RabbitMQ", "Kafka", "gRPC", "GraphQL", "REST",
	"Docker", "Kubernetes", "Terraform", "AWS", "Azure", "GCP",
	"Git", "CI/CD", "Linux", "Microservices",
	"Machine Learning", "Deep Learning", "NLP", "Data Science",
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	yearsPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+?\s*years?\b`)
	rangePattern = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s*[-–—]\s*((?:19|20)\d{2}|present|current)\b`)
)

// Analyzer extracts contact info, experience, and skills from free text.
type Analyzer struct {
	now func() time.Time
}

func New() *Analyzer {
	return &Analyzer{now: time.Now}
}

// NewAt builds an analyzer with a fixed clock, for deterministic
// handling of "present" in date ranges.
func NewAt(now func() time.Time) *Analyzer {
	return &Analyzer{now: now}
}

func (a *Analyzer) Analyze(text string) Profile {
	return Profile{
		Email:             emailPattern.FindString(text),
		Phone:             phonePattern.FindString(text),
		YearsOfExperience: a.yearsOfExperience(text),
		Skills:            MatchSkills(text, skillCatalogue),
	}
}

// yearsOfExperience applies the two heuristic passes in priority order:
// explicit "N years" mentions win (max across matches), then date
// ranges are summed. Nil means neither pass matched.
func (a *Analyzer) yearsOfExperience(text string) *float64 {
	var best float64
	found := false
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if !found || n > best {
			best = n
		}
		found = true
	}
	if found {
		return &best
	}

	currentYear := float64(a.now().Year())
	var total float64
	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		start, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		end := currentYear
		if y, err := strconv.ParseFloat(m[2], 64); err == nil {
			end = y
		}
		if end < start {
			continue
		}
		total += end - start
		found = true
	}
	if !found {
		return nil
	}
	return &total
}

// MatchSkills returns the catalogue entries present in the text as
// case-insensitive substrings, preserving catalogue order.
func MatchSkills(text string, catalogue []string) []string {
	lower := strings.ToLower(text)
	matched := make([]string, 0, len(catalogue))
	for _, skill := range catalogue {
		if strings.Contains(lower, strings.ToLower(skill)) {
			matched = append(matched, skill)
		}
	}
	return matched
}
