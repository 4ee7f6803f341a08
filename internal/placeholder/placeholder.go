// Package placeholder keeps names intact through model translation. Glossary
// terms are swapped for numbered markers ([PH0], [PH1], …) before the text
// goes to the model and replaced with their fixed translations afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)

// Protect replaces whole-word occurrences of every source term in terms with
// a marker and returns the rewritten text and, per marker, the target term to
// restore. Longer terms win over terms they contain.
func Protect(text string, terms map[string]string) (string, []string) {
	if len(terms) == 0 || text == "" {
		return text, nil
	}

	sources := make([]string, 0, len(terms))
	for src := range terms {
		if strings.TrimSpace(src) != "" {
			sources = append(sources, src)
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		if len(sources[i]) != len(sources[j]) {
			return len(sources[i]) > len(sources[j])
		}
		return sources[i] < sources[j]
	})

	var markers []string
	index := make(map[string]int)
	for _, src := range sources {
		text = replaceWord(text, src, func() string {
			id, ok := index[src]
			if !ok {
				id = len(markers)
				index[src] = id
				markers = append(markers, terms[src])
			}
			return marker(id)
		})
	}
	return text, markers
}

// Restore substitutes markers in text with the terms captured by Protect.
// Unknown indices are left as they are.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint is appended to prompts whose text carries markers.
func InstructionHint() string {
	return "The text contains markers like [PH0] that stand for names. Copy every marker exactly as it appears and do not translate it."
}

// Validate returns the indices of markers missing from text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, marker(i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

func marker(i int) string {
	return fmt.Sprintf("[PH%d]", i)
}

// replaceWord replaces occurrences of word in text that are not part of a
// longer word. Letters outside ASCII count as word characters, so "Ana" is
// not found inside "Anabel" or "Anaís".
func replaceWord(text, word string, repl func() string) string {
	var sb strings.Builder
	last, from := 0, 0
	for {
		i := strings.Index(text[from:], word)
		if i < 0 {
			break
		}
		i += from
		end := i + len(word)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (i > 0 && isWordRune(before)) || (end < len(text) && isWordRune(after)) {
			_, size := utf8.DecodeRuneInString(text[i:])
			from = i + size
			continue
		}
		sb.WriteString(text[last:i])
		sb.WriteString(repl())
		last, from = end, end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
