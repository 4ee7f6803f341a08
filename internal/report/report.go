// Package report defines the analysis report shown to educators and its
// markdown rendering.
package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/agent"
)

const unknown = "Unknown"

// Age is a student's age. Zero is reported as "Unknown".
type Age int

func (a Age) MarshalJSON() ([]byte, error) {
	if a <= 0 {
		return json.Marshal(unknown)
	}
	return []byte(strconv.Itoa(int(a))), nil
}

func (a *Age) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*a = 0
	if len(b) == 0 || b[0] == '"' || string(b) == "null" {
		var s string
		_ = json.Unmarshal(b, &s)
		if n, err := strconv.Atoi(s); err == nil {
			*a = Age(n)
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = Age(n)
	return nil
}

type StudentID struct {
	Name   string `json:"Name"`
	School string `json:"School"`
	DOB    string `json:"DOB"`
	Age    Age    `json:"Age"`
}

// NewStudentID fills empty metadata fields with "Unknown".
func NewStudentID(m internal.StudentMetadata) StudentID {
	return StudentID{
		Name:   orUnknown(m.Name),
		School: orUnknown(m.School),
		DOB:    orUnknown(m.DOB),
		Age:    Age(m.Age),
	}
}

// IterationLog records one grammar and voice pass.
type IterationLog struct {
	Iteration      int            `json:"iteration"`
	InputText      string         `json:"input_text"`
	EditedText     string         `json:"edited_text"`
	VoiceScore     agent.Score    `json:"voice_score"`
	GrammarChanges []agent.Change `json:"grammar_changes"`
}

type Feedback struct {
	VoicePreservation string `json:"VoicePreservation"`
	Personalized      string `json:"Personalized"`
}

type Scores struct {
	Grammar              int     `json:"Grammar"`
	Style                int     `json:"Style"`
	VoicePreservation    int     `json:"VoicePreservation"`
	PersonalizedFeedback int     `json:"PersonalizedFeedback"`
	Overall              float64 `json:"Overall"`
}

// Report is the aggregated result of one analysis run.
type Report struct {
	ID                string               `json:"ReportID,omitempty"`
	StudentID         StudentID            `json:"StudentID"`
	Timestamp         time.Time            `json:"Timestamp"`
	FinalEditedText   string               `json:"FinalEditedText"`
	IterationCount    int                  `json:"IterationCount"`
	IterationLogs     []IterationLog       `json:"IterationLogs"`
	ChangeSuggestions []agent.Change       `json:"ChangeSuggestions"`
	Feedback          Feedback             `json:"Feedback"`
	Scores            Scores               `json:"Scores"`
	WritingMetrics    agent.WritingMetrics `json:"WritingMetrics"`
}

// OverallScore weights grammar and style at 30% each and voice and
// personalized feedback at 20% each, rounded to two decimals.
func OverallScore(grammar, style, voice, personalized int) float64 {
	sum := 0.3*float64(grammar) + 0.3*float64(style) + 0.2*float64(voice) + 0.2*float64(personalized)
	return math.Round(sum*100) / 100
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
