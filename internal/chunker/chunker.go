// Package chunker splits long stories into pieces a translator can handle
// and extracts the trailing words of a piece as context for the next one.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultContextWords is how many trailing words ExtractContext keeps.
const DefaultContextWords = 25

// Chunk splits text into pieces of at most maxChars runes. It prefers to cut
// at a paragraph break, then after sentence punctuation, then at whitespace,
// and only cuts mid-word when nothing else fits. maxChars <= 0 disables
// splitting.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || runeCount(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for runeCount(remaining) > maxChars {
		split := findSplit(remaining, maxChars)
		if piece := strings.TrimSpace(remaining[:split]); piece != "" {
			chunks = append(chunks, piece)
		}
		remaining = strings.TrimSpace(remaining[split:])
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// findSplit returns the byte offset at which to cut text.
func findSplit(text string, maxChars int) int {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return len(text)
	}
	window := runes[:maxChars]
	candidate := string(window)

	if idx := strings.LastIndex(candidate, "\r\n\r\n"); idx > 0 {
		return idx + 4
	}
	if idx := strings.LastIndex(candidate, "\n\n"); idx > 0 {
		return idx + 2
	}

	for i := len(window) - 2; i > 0; i-- {
		if isSentenceEnd(window[i]) && unicode.IsSpace(window[i+1]) {
			return len(string(window[:i+1]))
		}
	}

	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return len(string(window[:i]))
		}
	}

	return len(candidate)
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func runeCount(s string) int {
	return len([]rune(s))
}

// ExtractContext returns the last wordCount words of text joined by single
// spaces, or the whole trimmed text when it is shorter. wordCount <= 0 uses
// DefaultContextWords.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
