// Package translator moves student writing between Spanish and English
// for analysis and back again for the student.
package translator

import (
	"context"
	"time"
)

type TranslateRequest struct {
	Text       string            `json:"text"`
	SourceLang string            `json:"source_lang"`
	TargetLang string            `json:"target_lang"`
	Glossary   map[string]string `json:"glossary,omitempty"`
}

type ServiceResult struct {
	ServiceName    string        `json:"service_name"`
	TranslatedText string        `json:"translated_text"`
	Latency        time.Duration `json:"latency"`
	Chunks         int           `json:"chunks"`
	FromMemory     bool          `json:"from_memory"`
	Refined        bool          `json:"refined"`
}

type Translator interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
}

// LanguageName returns the English name of an ISO 639-1 code for prompts.
func LanguageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "es":
		return "Spanish"
	case "", "auto":
		return "the detected language"
	default:
		return code
	}
}
