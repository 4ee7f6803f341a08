package report

import (
	"fmt"
	"strings"
)

// Markdown renders r as a summary an educator can read at a glance.
func Markdown(r *Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Writing report: %s\n\n", r.StudentID.Name)
	fmt.Fprintf(&sb, "- **School:** %s\n", r.StudentID.School)
	fmt.Fprintf(&sb, "- **Date of birth:** %s\n", r.StudentID.DOB)
	if r.StudentID.Age > 0 {
		fmt.Fprintf(&sb, "- **Age:** %d\n", r.StudentID.Age)
	}
	if !r.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "- **Analysed:** %s\n", r.Timestamp.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&sb, "- **Iterations:** %d\n\n", r.IterationCount)

	sb.WriteString("## Scores\n\n")
	sb.WriteString("| Score | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Grammar | %d |\n", r.Scores.Grammar)
	fmt.Fprintf(&sb, "| Style | %d |\n", r.Scores.Style)
	fmt.Fprintf(&sb, "| Voice preservation | %d |\n", r.Scores.VoicePreservation)
	fmt.Fprintf(&sb, "| Personalized feedback | %d |\n", r.Scores.PersonalizedFeedback)
	fmt.Fprintf(&sb, "| **Overall** | **%.2f** |\n\n", r.Scores.Overall)

	sb.WriteString("## Writing metrics (1-6)\n\n")
	sb.WriteString("| Dimension | Score | Comment |\n|---|---|---|\n")
	for _, m := range r.WritingMetrics.Dimensions() {
		fmt.Fprintf(&sb, "| %s | %g | %s |\n", m.Name, float64(m.Result.Score), cell(m.Result.Comment))
	}
	fmt.Fprintf(&sb, "| **Overall** | **%.2f** | %s |\n\n", float64(r.WritingMetrics.Overall.Score), cell(r.WritingMetrics.Overall.Comment))

	sb.WriteString("## Feedback\n\n")
	sb.WriteString(strings.TrimSpace(r.Feedback.Personalized))
	sb.WriteString("\n\n")
	if fb := strings.TrimSpace(r.Feedback.VoicePreservation); fb != "" {
		sb.WriteString("**On voice:** ")
		sb.WriteString(fb)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Edited text\n\n")
	for _, line := range strings.Split(strings.TrimSpace(r.FinalEditedText), "\n") {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(r.ChangeSuggestions) > 0 {
		sb.WriteString("## Suggested changes\n\n")
		sb.WriteString("| Original | Suggestion | Category | Rationale |\n|---|---|---|---|\n")
		for _, c := range r.ChangeSuggestions {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", cell(c.Original), cell(c.Suggestion), cell(c.Category), cell(c.Rationale))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
