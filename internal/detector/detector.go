// Package detector identifies the language of student writing.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over every language lingua knows. It is slow to
// build and memory hungry; create one and share it.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewStudentLanguages builds a detector that only decides between English
// and Spanish, the languages students submit in.
func NewStudentLanguages() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Spanish).
		WithMinimumRelativeDistance(0.1).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the ISO 639-1 code of text's language in lower case.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Resolve returns "es" for Spanish text and "en" otherwise.
func (d *Detector) Resolve(text string) string {
	if lang, ok := d.Detect(text); ok && lang == lingua.Spanish {
		return "es"
	}
	return "en"
}

// Confidence returns lingua's confidence, between 0 and 1, that text is
// written in the language with ISO 639-1 code iso. Unknown codes return 0.
func (d *Detector) Confidence(text, iso string) float64 {
	lang := lingua.GetLanguageFromIsoCode639_1(lingua.GetIsoCode639_1FromValue(strings.ToUpper(iso)))
	if lang == lingua.Unknown || text == "" {
		return 0
	}
	return d.detector.ComputeLanguageConfidence(text, lang)
}
