package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/markdown"
	"github.com/valpere/wordweaver/internal/report"
)

const contextFeedbackRunes = 300

// priorContext summarises the student's most recent reports. A failing
// history lookup is logged and the analysis continues without context.
func (a *Analyzer) priorContext(ctx context.Context, name string) string {
	if a.history == nil || a.cfg.ContextReports <= 0 || strings.TrimSpace(name) == "" {
		return ""
	}
	reports, err := a.history.RecentReportsForStudent(ctx, name, a.cfg.ContextReports)
	if err != nil {
		a.logger.Warn("could not load earlier reports", zap.String("student", name), zap.Error(err))
		return ""
	}
	return Summarize(reports)
}

// Summarize renders earlier reports as a short note for the agents.
func Summarize(reports []*report.Report) string {
	var sb strings.Builder
	for _, r := range reports {
		if r == nil {
			continue
		}
		date := "unknown date"
		if !r.Timestamp.IsZero() {
			date = r.Timestamp.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "- %s: overall %.2f (grammar %d, style %d, voice %d, rubric %.2f).",
			date, r.Scores.Overall, r.Scores.Grammar, r.Scores.Style, r.Scores.VoicePreservation,
			float64(r.WritingMetrics.Overall.Score))
		if fb := markdown.ToPlainText([]byte(r.Feedback.Personalized)); fb != "" {
			fmt.Fprintf(&sb, " Feedback given: %s", clip(fb, contextFeedbackRunes))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
