package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/postprocess"
)

const visionPrompt = `Extract the text from this image of a student's writing.
Transcribe it exactly as written, keeping the student's spelling, punctuation and line breaks.
Do not correct, translate, summarise or describe the image. Output only the transcribed text.`

// VisionExtractor asks a multimodal model to transcribe the image.
type VisionExtractor struct {
	client llm.Client
	model  string
}

func NewVisionExtractor(client llm.Client, model string) *VisionExtractor {
	return &VisionExtractor{client: client, model: model}
}

func (v *VisionExtractor) Name() string { return EngineVision }

func (v *VisionExtractor) Extract(ctx context.Context, image []byte) (string, error) {
	resp, err := v.client.Generate(ctx, llm.Request{
		Prompt: visionPrompt,
		Images: [][]byte{image},
		Model:  v.model,
	})
	if err != nil {
		return "", fmt.Errorf("vision OCR: %w", err)
	}

	text := strings.TrimSpace(postprocess.Clean(resp.Text))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
