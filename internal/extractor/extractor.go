// Package extractor turns a photo of handwritten or printed student work
// into plain text, either through a multimodal model or Tesseract.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/wordweaver/internal/llm"
)

var (
	ErrNoText            = errors.New("no text found in image")
	ErrUnsupported       = errors.New("tesseract support not compiled in (build with -tags tesseract)")
	ErrUnsupportedFormat = errors.New("unsupported image format (want png or jpeg)")
)

// Engine names accepted in ocr.engines.
const (
	EngineVision    = "vision"
	EngineTesseract = "tesseract"
)

type Extractor interface {
	Name() string
	Extract(ctx context.Context, image []byte) (string, error)
}

// Result is one engine's outcome in a fan-out run.
type Result struct {
	Engine  string
	Text    string
	Latency time.Duration
	Error   error
}

// New builds the extractor named by engine.
func New(engine string, client llm.Client, visionModel string, languages []string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case EngineVision:
		if client == nil {
			return nil, fmt.Errorf("vision extractor needs a model client")
		}
		return NewVisionExtractor(client, visionModel), nil
	case EngineTesseract:
		return NewTesseractExtractor(languages), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q (want %s or %s)", engine, EngineVision, EngineTesseract)
	}
}
