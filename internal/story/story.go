// Package story turns a clinical report into a patient-facing narrative.
//
// Generation is pure: the same Config always yields the same Output. English
// and Arabic are produced by separate generators so each language can phrase
// the narrative in its own sentence structure.
package story

import (
	"fmt"

	"genomic-report-server/internal/models"
)

type Language string

const (
	English Language = "en"
	Arabic  Language = "ar"
)

type Level string

const (
	Child Level = "child"
	Adult Level = "adult"
)

type Length string

const (
	Short    Length = "short"
	Standard Length = "standard"
)

// Config selects the report and how its story is presented.
type Config struct {
	Data     *models.ClinicalReport
	Language Language
	Level    Level
	Length   Length
}

// Output is the generated story. Paragraphs and Highlights are ordered.
type Output struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	Highlights []string `json:"highlights"`
}

// Generate builds the story for cfg. It never fails: missing report data
// degrades to neutral placeholders.
func Generate(cfg Config) Output {
	f := extract(cfg.Data)
	child := cfg.Level == Child
	short := cfg.Length == Short

	if cfg.Language == Arabic {
		return arabicStory(f, child, short)
	}
	return englishStory(f, child, short)
}

// facts is the subset of a report the narrative draws on.
type facts struct {
	name       string
	conditions []string
	variants   int
}

func extract(r *models.ClinicalReport) facts {
	if r == nil {
		return facts{}
	}
	return facts{
		name:       r.Patient.Name,
		conditions: r.ClinicalContext.Conditions,
		variants:   len(r.Variants),
	}
}

func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case English, Arabic:
		return Language(s), nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case Child, Adult:
		return Level(s), nil
	}
	return "", fmt.Errorf("unsupported reading level %q", s)
}

func ParseLength(s string) (Length, error) {
	switch Length(s) {
	case Short, Standard:
		return Length(s), nil
	}
	return "", fmt.Errorf("unsupported story length %q", s)
}

// RelaySummary returns the backend's pre-composed summary for lang, if any.
func RelaySummary(r *models.ClinicalReport, lang Language) string {
	if r == nil {
		return ""
	}
	if lang == Arabic {
		return r.PatientSummaryAR
	}
	return r.PatientSummaryEN
}
