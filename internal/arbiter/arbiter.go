// Package arbiter picks, or composes, the most faithful transcription when
// several OCR engines read the same page.
package arbiter

import (
	"context"

	"github.com/valpere/wordweaver/internal/extractor"
)

type EvaluationResult struct {
	SelectedEngine string
	FinalText      string
	IsComposite    bool
	Reasoning      string
}

type Arbiter interface {
	Evaluate(ctx context.Context, results []extractor.Result) (*EvaluationResult, error)
}
