// Package agent holds the prompt-engineered writing agents: grammar and
// style correction, voice preservation, personalized feedback and the six
// rubric scorers. Each agent is one prompt plus the student's text; the
// model's answer is parsed as a JSON object.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/metrics"
	"github.com/valpere/wordweaver/internal/postprocess"
)

// ErrInvalidJSON is returned when an agent's answer cannot be decoded.
var ErrInvalidJSON = errors.New("agent returned invalid JSON")

// Names used in logs and metrics.
const (
	NameGrammarStyle = "grammar_style"
	NameVoice        = "voice_preservation"
	NameFeedback     = "personalized_feedback"
	NameRubricPrefix = "rubric_"
)

// Agent runs the writing agents against one model client.
type Agent struct {
	client llm.Client
	rec    *metrics.Recorder
	logger *zap.Logger
}

// New creates an Agent. rec and logger may be nil.
func New(client llm.Client, rec *metrics.Recorder, logger *zap.Logger) *Agent {
	return &Agent{client: client, rec: rec, logger: logging.OrNop(logger)}
}

// callJSON sends prompt and decodes the JSON object in the answer into out.
func (a *Agent) callJSON(ctx context.Context, name, prompt string, out any) (err error) {
	defer func() { a.rec.ObserveAgent(name, err) }()

	resp, err := a.client.Generate(ctx, llm.Request{Prompt: prompt, JSON: true})
	if err != nil {
		return fmt.Errorf("%s agent: %w", name, err)
	}

	raw, err := postprocess.ExtractJSON(resp.Text)
	if err != nil {
		a.logger.Warn("agent answer holds no JSON", zap.String("agent", name), zap.String("answer", truncate(resp.Text, 200)))
		return fmt.Errorf("%s agent: %w: %v", name, ErrInvalidJSON, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		a.logger.Warn("agent answer does not match schema", zap.String("agent", name), zap.Error(err))
		return fmt.Errorf("%s agent: %w: %v", name, ErrInvalidJSON, err)
	}

	a.logger.Debug("agent finished", zap.String("agent", name), zap.Duration("latency", resp.Latency))
	return nil
}

// withContext appends notes from earlier sessions to a prompt.
func withContext(prompt, prior string) string {
	prior = strings.TrimSpace(prior)
	if prior == "" {
		return prompt
	}
	return prompt + "\n\nContext from earlier sessions with this student (use it to personalise, do not evaluate it):\n" + prior
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
