package refiner

import (
	"context"
	"fmt"

	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/postprocess"
	"github.com/valpere/wordweaver/internal/translator"
)

// LLMRefiner asks the language model to act as a bilingual editor.
type LLMRefiner struct {
	client llm.Client
}

func NewLLMRefiner(client llm.Client) *LLMRefiner {
	return &LLMRefiner{client: client}
}

// Refine returns the polished draft. An empty answer keeps the draft.
func (r *LLMRefiner) Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error) {
	resp, err := r.client.Generate(ctx, llm.Request{
		Prompt: buildRefinementPrompt(sourceLang, targetLang, sourceText, draftText),
	})
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}

	refined := postprocess.Clean(resp.Text)
	if refined == "" {
		return draftText, nil
	}
	return refined, nil
}

func buildRefinementPrompt(sourceLang, targetLang, sourceText, draftText string) string {
	target := translator.LanguageName(targetLang)
	return fmt.Sprintf(`You are a bilingual editor helping a young student read their corrected story in %s.

You will receive a corrected text in %s and a DRAFT %s translation of it.
Fix translation artifacts in the draft so it reads naturally in %s.

CORRECTED TEXT (%s):
%s

DRAFT TRANSLATION (%s):
%s

What to preserve:
- The student's voice, register and informal or creative expressions
- All content and meaning
- Names and proper nouns

Do not make the text more formal or more sophisticated than the student's writing.
If the draft is already good, return it unchanged.

Output ONLY the refined text in %s. Do not include any explanation.`,
		target,
		translator.LanguageName(sourceLang), target, target,
		translator.LanguageName(sourceLang), sourceText,
		target, draftText,
		target,
	)
}
