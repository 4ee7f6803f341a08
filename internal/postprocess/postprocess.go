// Package postprocess removes common LLM artifacts from model output.
//
// Plain-text answers (transcriptions, translations) go through Clean.
// Structured answers from the writing agents go through ExtractJSON, which
// additionally strips markdown code fences and surrounding chatter.
package postprocess

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned by ExtractJSON when the output holds no JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// StripCodeFence removes a leading ```json (or bare ```) fence and a trailing
// ``` fence. Text without fences is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Drop the info string ("json", "JSON", ...) up to the first newline.
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], "{[") {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(strings.TrimPrefix(text, "json"), "JSON")
		}
		text = strings.TrimSpace(text)
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}

// ExtractJSON returns the JSON object contained in a model answer.
//
// Thinking blocks and code fences are removed first. If what is left is not a
// valid JSON object, the span from the first '{' to the last '}' is tried.
func ExtractJSON(text string) (string, error) {
	text = removeThinkingBlocks(text)
	text = StripCodeFence(text)
	if text == "" {
		return "", ErrNoJSON
	}
	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return text, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", ErrNoJSON
	}
	return candidate, nil
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// RE2 has no backreferences, so each tag variant is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns match introductory phrases prepended despite instructions.
// Each is anchored to the start and requires a colon.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [extracted|corrected|translated] text:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:extracted |transcribed |corrected |refined |polished |translated |spanish |english )?(?:translation|transcription|text)\s*:`),
	// "[The] [extracted|corrected] [text|transcription|translation]:"
	regexp.MustCompile(`(?i)^(?:the )?(?:extracted |transcribed |corrected |refined |polished )?(?:translation|transcription|translated text|extracted text)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] text:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the)? (?:extracted |transcribed |corrected |refined |polished |translated |spanish |english )?(?:translation|transcription|text)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  "…"  '…'
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
