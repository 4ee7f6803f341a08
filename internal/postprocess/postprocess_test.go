package postprocess

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "no thinking blocks", input: "Today I went to the park.", expected: "Today I went to the park."},
		{name: "simple thinking block", input: "Some text<thinking>Let me read this</thinking>More text", expected: "Some textMore text"},
		{name: "think block", input: "<think>hmm</think>{\"score\": 4}", expected: "{\"score\": 4}"},
		{name: "reasoning block", input: "Start<reasoning>Analyzing the grammar</reasoning>End", expected: "StartEnd"},
		{name: "multiple blocks", input: "<thinking>First</thinking>middle<reflection>Second</reflection>", expected: "middle"},
		{name: "truncated block", input: "<thinking>Transcription in progress", expected: ""},
		{name: "truncated in middle", input: "Before<reasoning>Incomplete", expected: "Before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveInstructionEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "no echo", input: "Hoy fui al parque.", expected: "Hoy fui al parque."},
		{name: "here's translation", input: "Here's the translation: Hoy fui al parque.", expected: "Hoy fui al parque."},
		{name: "here is extracted text", input: "Here is the extracted text:\nA Day at the Park", expected: "A Day at the Park"},
		{name: "here's translation no the", input: "Here's translation: Text", expected: "Text"},
		{name: "the transcription", input: "The transcription: My dog", expected: "My dog"},
		{name: "extracted text label", input: "Extracted text: My dog", expected: "My dog"},
		{name: "sure echo", input: "Sure, here is the Spanish text: Hola", expected: "Hola"},
		{name: "of course echo", input: "Of course here's the corrected text: Done", expected: "Done"},
		{name: "echo not at start", input: "Before Here's the translation: After", expected: "Before Here's the translation: After"},
		{name: "echo without colon", input: "Here's the translation text", expected: "Here's the translation text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeInstructionEchoes(tt.input)
			if result != tt.expected {
				t.Errorf("removeInstructionEchoes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "single char", input: "a", expected: "a"},
		{name: "double quotes", input: "\"Hello world\"", expected: "Hello world"},
		{name: "single quotes", input: "'Hello world'", expected: "Hello world"},
		{name: "guillemets", input: "«Hola mundo»", expected: "Hola mundo"},
		{name: "curly double quotes", input: "“Hello world”", expected: "Hello world"},
		{name: "curly single quotes", input: "‘Hello world’", expected: "Hello world"},
		{name: "unmatched quotes", input: "\"Hello world'", expected: "\"Hello world'"},
		{name: "only opening quote", input: "\"Hello world", expected: "\"Hello world"},
		{name: "inner quotes kept", input: "\"He said \"hello\"\"", expected: "He said \"hello\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeQuoteWrapping(tt.input)
			if result != tt.expected {
				t.Errorf("removeQuoteWrapping(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "clean text", input: "Just a normal story.", expected: "Just a normal story."},
		{name: "full pipeline", input: "<thinking>Thinking</thinking>Here's the translation:\n\"Translated text\"", expected: "Translated text"},
		{name: "truncated thinking at end", input: "Text<thinking>Incomplete", expected: "Text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no fence", input: ` {"a": 1} `, expected: `{"a": 1}`},
		{name: "json fence", input: "```json\n{\"a\": 1}\n```", expected: `{"a": 1}`},
		{name: "bare fence", input: "```\n{\"a\": 1}\n```", expected: `{"a": 1}`},
		{name: "json fence same line", input: "```json{\"a\": 1}```", expected: `{"a": 1}`},
		{name: "only trailing fence", input: "{\"a\": 1}\n```", expected: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.input); got != tt.expected {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain object", input: `{"score": 5, "comment": "ok"}`, want: `{"score": 5, "comment": "ok"}`},
		{name: "fenced object", input: "```json\n{\"score\": 5}\n```", want: `{"score": 5}`},
		{name: "chatter around object", input: "Sure! Here you go:\n{\"score\": 3}\nHope this helps.", want: `{"score": 3}`},
		{name: "thinking then object", input: "<think>let me score</think>{\"score\": 2}", want: `{"score": 2}`},
		{name: "empty", input: "   ", wantErr: true},
		{name: "no braces", input: "I cannot grade this.", wantErr: true},
		{name: "broken object", input: "{\"score\": }", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("expected ErrNoJSON, got %v (%q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
			if !json.Valid([]byte(got)) {
				t.Errorf("result is not valid JSON: %q", got)
			}
		})
	}
}
