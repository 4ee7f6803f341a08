package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/wordweaver/internal"
)

// VoiceNote is appended to the grammar agent's input when a revision lost
// too much of the student's voice.
const VoiceNote = " [Ensure that informal and creative expressions are preserved in your revisions.]"

const grammarStylePrompt = `You are a professional writing editor working from the 826 Valencia Publishing Style Guide and the NWP Analytic Writing Continuum.
Review the student writing below for grammar, punctuation and style errors.
Produce a corrected version of the text. For every change list the original text, your suggestion, the error category and a short rationale.
Give a Grammar Score and a Style Score, each between 0 and 100.

Answer with a single JSON object and nothing before or after it:
{
  "edited_text": "...",
  "changes": [{"original_text": "...", "suggestion": "...", "error_category": "...", "rationale": "..."}],
  "grammar_score": 0,
  "style_score": 0
}

Student Writing:
%s`

const voicePrompt = `You specialise in keeping a young writer's own voice intact.
Compare the student's original writing with the edited version below and judge whether the informal tone and creative expressions survived the edit.
If needed, adjust the edited text so it sounds more like the student again. Give a Voice Preservation Score (0-100) and a brief explanation.

Answer with a single JSON object and nothing before or after it:
{"final_text": "...", "voice_score": 0, "voice_feedback": "..."}

Original Text:
%s

Edited Text:
%s`

const feedbackPrompt = `You are an experienced writing mentor.
Using the student metadata and writing sample below, write personalized, constructive feedback that helps the student improve while keeping their unique voice.
Use the NWP Analytic Writing Continuum as your reference and speak to the student at a level suited to their age.
Give a Personalized Score (0-100).

Answer with a single JSON object and nothing before or after it:
{"feedback_message": "...", "personalized_score": 0}

Student Metadata:
%s

Writing Sample:
%s`

const rubricPrompt = `You are an expert evaluator for the '%s' dimension, scoring against this rubric:
%s
Evaluate the student writing below on %s only.

Answer with a single JSON object and nothing before or after it:
{"score": 1, "comment": "..."}

where score is an integer from 1 to 6.

Student Writing:
%s`

func buildGrammarStylePrompt(text, prior string) string {
	return withContext(fmt.Sprintf(grammarStylePrompt, text), prior)
}

func buildVoicePrompt(original, edited, prior string) string {
	return withContext(fmt.Sprintf(voicePrompt, original, edited), prior)
}

func buildFeedbackPrompt(meta internal.StudentMetadata, text, prior string) string {
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		metaJSON = []byte("{}")
	}
	return withContext(fmt.Sprintf(feedbackPrompt, metaJSON, text), prior)
}

func buildRubricPrompt(d Dimension, text, prior string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rubric for %s:\n", d.Title))
	for i, level := range d.Levels {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, level))
	}
	return withContext(fmt.Sprintf(rubricPrompt, d.Name, sb.String(), d.Name, text), prior)
}

// ReviseForVoice marks text so the next grammar pass keeps the student's voice.
func ReviseForVoice(text string) string {
	return text + VoiceNote
}
