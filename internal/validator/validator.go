// Package validator checks that a translation came back in the requested
// language. Student writing often mixes English and Spanish, so a text that
// is partly in the target language still passes.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/wordweaver/internal/detector"
)

const (
	// Below this many runes detection is unreliable and text passes.
	minValidationLength = 20

	// DefaultMinConfidence accepts mixed-language text whose target-language
	// share lingua rates at least this high.
	DefaultMinConfidence = 0.3
)

type Validator struct {
	det           *detector.Detector
	minConfidence float64
}

// New builds a validator over every language. Building the detector is
// slow; prefer NewWithDetector with a shared one.
func New() *Validator {
	return NewWithDetector(detector.New())
}

func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det, minConfidence: DefaultMinConfidence}
}

// IsValid reports whether text reads as targetLang. Empty text is invalid;
// short or ambiguous text is accepted. A mismatch error names both languages
// and the confidence for the target.
func (v *Validator) IsValid(text, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}
	target := strings.ToLower(targetLang)

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok || detected == target {
		return true, nil
	}

	conf := v.det.Confidence(text, target)
	if conf >= v.minConfidence {
		return true, nil
	}
	return false, fmt.Errorf("expected %s but detected %s (%s confidence %.2f)", target, detected, target, conf)
}
