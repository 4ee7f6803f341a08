package internal

import (
	"fmt"
	"strings"
	"time"
)

// Language codes accepted for student writing.
const (
	LangEnglish = "en"
	LangSpanish = "es"
	LangAuto    = "auto"
)

// Accepted student ages. An age of 0 means it was not given.
const (
	MinAge = 5
	MaxAge = 30
)

// CheckAge rejects ages outside MinAge..MaxAge.
func CheckAge(age int) error {
	if age != 0 && (age < MinAge || age > MaxAge) {
		return fmt.Errorf("age must be between %d and %d", MinAge, MaxAge)
	}
	return nil
}

// StudentMetadata identifies the author of a submission.
type StudentMetadata struct {
	Name   string `json:"name"`
	School string `json:"school"`
	DOB    string `json:"DOB"`
	Age    int    `json:"Age"`
}

// Submission is a piece of student writing ready for analysis.
type Submission struct {
	ID        string          `json:"id"`
	Metadata  StudentMetadata `json:"metadata"`
	Title     string          `json:"Title"`
	Story     string          `json:"Story"`
	Language  string          `json:"language"`
	Timestamp time.Time       `json:"timestamp"`
}

// FullText joins the title and story the way they are shown to the agents.
func (s Submission) FullText() string {
	return strings.TrimSpace(strings.TrimSpace(s.Title) + "\n\n" + strings.TrimSpace(s.Story))
}

// NormalizeLanguage maps user-facing language names onto codes.
// Unknown values are returned lower-cased so callers can reject them.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "en", "eng", "english":
		return LangEnglish
	case "es", "spa", "spanish", "español", "espanol":
		return LangSpanish
	case "auto", "detect":
		return LangAuto
	default:
		return strings.ToLower(strings.TrimSpace(lang))
	}
}
