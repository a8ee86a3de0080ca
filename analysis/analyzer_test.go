package analysis

import (
	"testing"
	"time"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	}
}

func TestAnalyzeContactInfo(t *testing.T) {
	profile := New().Analyze("Jane Doe\njane.doe+cv@example.co.uk\n+1 (415) 555-0100\nGo developer")

	if profile.Email != "jane.doe+cv@example.co.uk" {
		t.Fatalf("unexpected email: %q", profile.Email)
	}
	if profile.Phone != "+1 (415) 555-0100" {
		t.Fatalf("unexpected phone: %q", profile.Phone)
	}
}

func TestAnalyzeMissingContactInfo(t *testing.T) {
	profile := New().Analyze("no contact details here")

	if profile.Email != "" || profile.Phone != "" {
		t.Fatalf("expected absent contact info, got email=%q phone=%q", profile.Email, profile.Phone)
	}
}

func TestYearsExplicitMentionTakesMax(t *testing.T) {
	profile := New().Analyze("3 years of Python, then 7 years of Go, 5+ years with Kubernetes")

	if profile.YearsOfExperience == nil {
		t.Fatalf("expected years to be found")
	}
	if *profile.YearsOfExperience != 7 {
		t.Fatalf("expected max across mentions (7), got %v", *profile.YearsOfExperience)
	}
}

func TestYearsExplicitMentionWinsOverRanges(t *testing.T) {
	// Pass one matches, so the range pass must not run.
	profile := NewAt(fixedClock(2026)).Analyze("4 years of experience. Acme Corp 2010 - 2020.")

	if profile.YearsOfExperience == nil || *profile.YearsOfExperience != 4 {
		t.Fatalf("expected explicit mention to win, got %v", profile.YearsOfExperience)
	}
}

func TestYearsFromDateRanges(t *testing.T) {
	text := "Acme 2015 - 2018\nGlobex 2019 – 2021\nInitech 2022 — present"
	profile := NewAt(fixedClock(2026)).Analyze(text)

	// (2018-2015) + (2021-2019) + (2026-2022) = 9, across all three
	// separator variants.
	if profile.YearsOfExperience == nil {
		t.Fatalf("expected years from ranges")
	}
	if *profile.YearsOfExperience != 9 {
		t.Fatalf("expected 9, got %v", *profile.YearsOfExperience)
	}
}

func TestYearsCurrentKeyword(t *testing.T) {
	profile := NewAt(fixedClock(2026)).Analyze("Acme 2020 - current")

	if profile.YearsOfExperience == nil || *profile.YearsOfExperience != 6 {
		t.Fatalf("expected 6, got %v", profile.YearsOfExperience)
	}
}

func TestYearsAbsentIsNilNotZero(t *testing.T) {
	profile := New().Analyze("motivated self-starter with strong communication")

	if profile.YearsOfExperience != nil {
		t.Fatalf("expected nil years, got %v", *profile.YearsOfExperience)
	}
}

func TestAnalyzeSkillsFromCatalogue(t *testing.T) {
	profile := New().Analyze("Built microservices in golang with PostgreSQL, RabbitMQ and docker")

	want := map[string]bool{"Golang": true, "PostgreSQL": true, "RabbitMQ": true, "Docker": true}
	found := map[string]bool{}
	for _, s := range profile.Skills {
		found[s] = true
	}
	for skill := range want {
		if !found[skill] {
			t.Fatalf("expected skill %s in %v", skill, profile.Skills)
		}
	}
}

func TestMatchSkillsPreservesCatalogueOrder(t *testing.T) {
	skills := MatchSkills("redis before go, alphabetically reversed", []string{"Go", "Redis"})
	if len(skills) != 2 || skills[0] != "Go" || skills[1] != "Redis" {
		t.Fatalf("expected catalogue order, got %v", skills)
	}
}
