package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/wordweaver/internal/extractor"
	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/postprocess"
)

const compositeEngine = "composite"

// LLMArbiter asks the language model to compare transcriptions.
type LLMArbiter struct {
	client llm.Client
}

func NewLLMArbiter(client llm.Client) *LLMArbiter {
	return &LLMArbiter{client: client}
}

func (a *LLMArbiter) Evaluate(ctx context.Context, results []extractor.Result) (*EvaluationResult, error) {
	var ok []extractor.Result
	for _, r := range results {
		if r.Error == nil && strings.TrimSpace(r.Text) != "" {
			ok = append(ok, r)
		}
	}

	if len(ok) == 0 {
		return nil, fmt.Errorf("no transcriptions to evaluate")
	}

	if len(ok) == 1 {
		return &EvaluationResult{
			SelectedEngine: ok[0].Engine,
			FinalText:      ok[0].Text,
			IsComposite:    false,
			Reasoning:      "Only one engine produced text",
		}, nil
	}

	resp, err := a.client.Generate(ctx, llm.Request{Prompt: buildArbiterPrompt(ok), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("arbiter request failed: %w", err)
	}

	res, err := parseArbiterResponse(resp.Text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.FinalText) == "" {
		return nil, fmt.Errorf("arbiter returned empty text")
	}
	return res, nil
}

func buildArbiterPrompt(results []extractor.Result) string {
	var sb strings.Builder
	sb.WriteString("You are reviewing OCR transcriptions of the same page of a student's handwritten work.\n")
	sb.WriteString("These transcriptions were produced by different engines:\n\n")

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. [%s]:\n\"\"\"\n%s\n\"\"\"\n\n", i+1, r.Engine, r.Text))
	}

	sb.WriteString(`Select the transcription most faithful to what the student actually wrote, or compose one from the available options.
Keep the student's own spelling and grammar mistakes; only fix obvious recognition errors.
Respond ONLY in JSON:
{
  "selected_engine": "<engine name>|composite",
  "final_text": "...",
  "reasoning": "..."
}
`)

	return sb.String()
}

func parseArbiterResponse(response string) (*EvaluationResult, error) {
	raw, err := postprocess.ExtractJSON(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arbiter response as JSON: %w", err)
	}

	var parsed struct {
		SelectedEngine string `json:"selected_engine"`
		FinalText      string `json:"final_text"`
		Reasoning      string `json:"reasoning"`
	}

	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse arbiter response as JSON: %w", err)
	}

	return &EvaluationResult{
		SelectedEngine: parsed.SelectedEngine,
		FinalText:      strings.TrimSpace(parsed.FinalText),
		IsComposite:    parsed.SelectedEngine == compositeEngine,
		Reasoning:      parsed.Reasoning,
	}, nil
}
