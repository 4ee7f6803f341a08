package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/agent"
	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/report"
)

// scriptedModel answers each agent by recognising its prompt. Voice scores
// are served from a queue, one per voice call.
type scriptedModel struct {
	mu          sync.Mutex
	voiceScores []int
	voiceCalls  int
	prompts     []string
	failOn      string
}

func (m *scriptedModel) Name() string                          { return "scripted" }
func (m *scriptedModel) IsAvailable(ctx context.Context) error { return nil }

func (m *scriptedModel) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req.Prompt)

	if m.failOn != "" && strings.Contains(req.Prompt, m.failOn) {
		return nil, errors.New("model unavailable")
	}

	switch {
	case strings.Contains(req.Prompt, "professional writing editor"):
		return text(`{"edited_text": "EDIT", "changes": [{"original_text": "teh", "suggestion": "the", "error_category": "Spelling", "rationale": "typo"}], "grammar_score": 80, "style_score": 70.9}`), nil
	case strings.Contains(req.Prompt, "own voice"):
		score := 0
		if m.voiceCalls < len(m.voiceScores) {
			score = m.voiceScores[m.voiceCalls]
		}
		m.voiceCalls++
		return text(fmt.Sprintf(`{"final_text": "FINAL", "voice_score": %d, "voice_feedback": "fine"}`, score)), nil
	case strings.Contains(req.Prompt, "writing mentor"):
		return text(`{"feedback_message": "Nice work", "personalized_score": 85}`), nil
	case strings.Contains(req.Prompt, "expert evaluator"):
		return text(`{"score": 4, "comment": "ok"}`), nil
	}
	return text(""), nil
}

func text(s string) *llm.Response { return &llm.Response{Text: s} }

func submission() internal.Submission {
	return internal.Submission{
		Metadata: internal.StudentMetadata{Name: "Jane Smith", School: "826 Valencia", DOB: "2008-09-12", Age: 15},
		Title:    "  A Day at the Park ",
		Story:    "Today I went to teh park.",
	}
}

func newAnalyzer(m llm.Client, history History) *Analyzer {
	a := New(agent.New(m, nil, nil), DefaultConfig(), history, nil, nil)
	a.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAnalyze_AcceptsFirstIteration(t *testing.T) {
	m := &scriptedModel{voiceScores: []int{95}}
	r, err := newAnalyzer(m, nil).Analyze(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, 1, r.IterationCount)
	require.Len(t, r.IterationLogs, 1)
	assert.Equal(t, "A Day at the Park\n\nToday I went to teh park.", r.IterationLogs[0].InputText)
	assert.Equal(t, "FINAL", r.FinalEditedText)
	assert.Equal(t, report.Scores{Grammar: 80, Style: 70, VoicePreservation: 95, PersonalizedFeedback: 85, Overall: 81}, r.Scores)
	assert.Equal(t, "Nice work", r.Feedback.Personalized)
	assert.Equal(t, "fine", r.Feedback.VoicePreservation)
	assert.Equal(t, 4.0, float64(r.WritingMetrics.Overall.Score))
	assert.Equal(t, "Jane Smith", r.StudentID.Name)
	assert.Equal(t, report.Age(15), r.StudentID.Age)
	assert.Len(t, r.ChangeSuggestions, 1)
}

func TestAnalyze_RetriesUntilVoiceThreshold(t *testing.T) {
	m := &scriptedModel{voiceScores: []int{60, 70, 91}}
	r, err := newAnalyzer(m, nil).Analyze(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, 3, r.IterationCount)
	require.Len(t, r.IterationLogs, 3)
	assert.NotContains(t, r.IterationLogs[0].InputText, agent.VoiceNote)
	assert.Equal(t, 1, strings.Count(r.IterationLogs[1].InputText, agent.VoiceNote))
	assert.Equal(t, 2, strings.Count(r.IterationLogs[2].InputText, agent.VoiceNote))
	assert.Equal(t, 91, r.Scores.VoicePreservation)

	// Voice is always judged against the untouched original.
	for _, p := range m.prompts {
		if strings.Contains(p, "own voice") {
			assert.NotContains(t, p, agent.VoiceNote)
		}
	}
}

func TestAnalyze_StopsAtMaxIterations(t *testing.T) {
	m := &scriptedModel{voiceScores: []int{10, 20, 30, 40, 50, 60}}
	r, err := newAnalyzer(m, nil).Analyze(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, 5, r.IterationCount)
	assert.Len(t, r.IterationLogs, 5)
	assert.Equal(t, 50, r.Scores.VoicePreservation, "last iteration wins")
	assert.Equal(t, 5, m.voiceCalls)
}

func TestAnalyze_FeedbackUsesOriginalText(t *testing.T) {
	m := &scriptedModel{voiceScores: []int{10, 95}}
	_, err := newAnalyzer(m, nil).Analyze(context.Background(), submission())
	require.NoError(t, err)

	for _, p := range m.prompts {
		if strings.Contains(p, "writing mentor") || strings.Contains(p, "expert evaluator") {
			assert.Contains(t, p, "A Day at the Park\n\nToday I went to teh park.")
			assert.NotContains(t, p, agent.VoiceNote)
		}
	}
}

func TestAnalyze_EmptySubmission(t *testing.T) {
	_, err := newAnalyzer(&scriptedModel{}, nil).Analyze(context.Background(), internal.Submission{Title: " ", Story: "\n"})
	assert.ErrorIs(t, err, ErrEmptySubmission)
}

func TestAnalyze_AgentFailure(t *testing.T) {
	m := &scriptedModel{voiceScores: []int{95}, failOn: "writing mentor"}
	_, err := newAnalyzer(m, nil).Analyze(context.Background(), submission())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node feedback")
}

type fakeHistory struct {
	reports []*report.Report
	err     error
	limit   int
}

func (f *fakeHistory) RecentReportsForStudent(ctx context.Context, name string, limit int) ([]*report.Report, error) {
	f.limit = limit
	return f.reports, f.err
}

func TestAnalyze_PassesPriorContext(t *testing.T) {
	h := &fakeHistory{reports: []*report.Report{{
		Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Scores:    report.Scores{Grammar: 60, Style: 65, VoicePreservation: 90, Overall: 70.5},
		Feedback:  report.Feedback{Personalized: "Watch your spelling."},
	}}}
	m := &scriptedModel{voiceScores: []int{95}}
	_, err := newAnalyzer(m, h).Analyze(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, 3, h.limit)
	for _, p := range m.prompts {
		assert.Contains(t, p, "Watch your spelling.")
		assert.Contains(t, p, "2026-01-02: overall 70.50")
	}
}

func TestAnalyze_HistoryFailureIsNotFatal(t *testing.T) {
	h := &fakeHistory{err: errors.New("db locked")}
	m := &scriptedModel{voiceScores: []int{95}}
	_, err := newAnalyzer(m, h).Analyze(context.Background(), submission())
	require.NoError(t, err)
	for _, p := range m.prompts {
		assert.NotContains(t, p, "Context from earlier sessions")
	}
}

func TestSummarize(t *testing.T) {
	assert.Empty(t, Summarize(nil))
	got := Summarize([]*report.Report{nil, {Feedback: report.Feedback{Personalized: strings.Repeat("a", 400)}}})
	assert.Contains(t, got, "unknown date")
	assert.True(t, strings.HasSuffix(got, "..."))

	got = Summarize([]*report.Report{{Feedback: report.Feedback{Personalized: "**Great** use of *dialogue*."}}})
	assert.Contains(t, got, "Feedback given: Great use of dialogue.")
}
