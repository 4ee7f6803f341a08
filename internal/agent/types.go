package agent

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Score is a numeric score decoded leniently: models return 85, 85.0,
// "85", "85%" or "85/100" interchangeably. Anything else decodes as 0.
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	*s = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
		if i := strings.IndexByte(str, '/'); i > 0 {
			str = strings.TrimSpace(str[:i])
		}
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			*s = Score(f)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*s = Score(f)
	}
	return nil
}

// Int truncates the score the way the report expects.
func (s Score) Int() int {
	return int(s)
}

// Change is one edit suggested by the grammar and style agent.
type Change struct {
	Original   string `json:"original_text"`
	Suggestion string `json:"suggestion"`
	Category   string `json:"error_category"`
	Rationale  string `json:"rationale"`
}

// UnmarshalJSON accepts the short key spellings models tend to use.
func (c *Change) UnmarshalJSON(b []byte) error {
	var raw struct {
		Original      string `json:"original_text"`
		OriginalShort string `json:"original"`
		Suggestion    string `json:"suggestion"`
		Suggested     string `json:"suggested_text"`
		Correction    string `json:"correction"`
		Category      string `json:"error_category"`
		CategoryShort string `json:"category"`
		Rationale     string `json:"rationale"`
		Reason        string `json:"reason"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Change{
		Original:   firstNonEmpty(raw.Original, raw.OriginalShort),
		Suggestion: firstNonEmpty(raw.Suggestion, raw.Suggested, raw.Correction),
		Category:   firstNonEmpty(raw.Category, raw.CategoryShort),
		Rationale:  firstNonEmpty(raw.Rationale, raw.Reason),
	}
	return nil
}

// ChangeList tolerates a missing or malformed "changes" value.
type ChangeList []Change

func (l *ChangeList) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		*l = nil
		return nil
	}
	out := make(ChangeList, 0, len(items))
	for _, item := range items {
		var c Change
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	*l = out
	return nil
}

// GrammarStyleResult is the grammar and style agent's answer.
type GrammarStyleResult struct {
	EditedText   string     `json:"edited_text"`
	Changes      ChangeList `json:"changes"`
	GrammarScore Score      `json:"grammar_score"`
	StyleScore   Score      `json:"style_score"`
}

// VoiceResult is the voice preservation agent's answer.
type VoiceResult struct {
	FinalText     string `json:"final_text"`
	VoiceScore    Score  `json:"voice_score"`
	VoiceFeedback string `json:"voice_feedback"`
}

// FeedbackResult is the personalized feedback agent's answer.
type FeedbackResult struct {
	FeedbackMessage   string `json:"feedback_message"`
	PersonalizedScore Score  `json:"personalized_score"`
}

// MetricResult is one rubric dimension's score (1-6) and comment.
type MetricResult struct {
	Score   Score  `json:"score"`
	Comment string `json:"comment"`
}

// WritingMetrics aggregates the six rubric dimensions. JSON keys follow
// the rubric's display names.
type WritingMetrics struct {
	Content         MetricResult `json:"Content"`
	Structure       MetricResult `json:"Structure"`
	Stance          MetricResult `json:"Stance"`
	SentenceFluency MetricResult `json:"Sentence Fluency"`
	Diction         MetricResult `json:"Diction"`
	Conventions     MetricResult `json:"Conventions"`
	Overall         MetricResult `json:"Overall"`
}

// NamedMetric pairs a dimension's display name with its result.
type NamedMetric struct {
	Name   string
	Result MetricResult
}

// Dimensions lists the six rubric results in rubric order.
func (m WritingMetrics) Dimensions() []NamedMetric {
	return []NamedMetric{
		{"Content", m.Content},
		{"Structure", m.Structure},
		{"Stance", m.Stance},
		{"Sentence Fluency", m.SentenceFluency},
		{"Diction", m.Diction},
		{"Conventions", m.Conventions},
	}
}

func (m *WritingMetrics) set(key string, r MetricResult) {
	switch key {
	case "content":
		m.Content = r
	case "structure":
		m.Structure = r
	case "stance":
		m.Stance = r
	case "sentence_fluency":
		m.SentenceFluency = r
	case "diction":
		m.Diction = r
	case "conventions":
		m.Conventions = r
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
