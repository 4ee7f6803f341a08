//go:build !tesseract

package extractor

import "context"

// TesseractExtractor is unavailable in builds without the tesseract tag.
type TesseractExtractor struct {
	languages []string
}

func NewTesseractExtractor(languages []string) *TesseractExtractor {
	return &TesseractExtractor{languages: languages}
}

func (t *TesseractExtractor) Name() string { return EngineTesseract }

func (t *TesseractExtractor) Extract(ctx context.Context, image []byte) (string, error) {
	return "", ErrUnsupported
}
