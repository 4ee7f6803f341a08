package translator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valpere/wordweaver/internal/chunker"
	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/placeholder"
	"github.com/valpere/wordweaver/internal/postprocess"
)

// DefaultChunkSize is the largest chunk, in runes, sent in one prompt.
const DefaultChunkSize = 2000

// LLMTranslator translates with the local language model. Long texts are
// split into chunks and the tail of the previous chunk is passed along as
// context.
type LLMTranslator struct {
	client    llm.Client
	chunkSize int
}

func NewLLMTranslator(client llm.Client, chunkSize int) *LLMTranslator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &LLMTranslator{client: client, chunkSize: chunkSize}
}

func (t *LLMTranslator) Name() string {
	return "llm"
}

func (t *LLMTranslator) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: t.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	chunks := chunker.Chunk(strings.TrimSpace(req.Text), t.chunkSize)
	out := make([]string, 0, len(chunks))
	var previous string

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		text, err := t.translateChunk(ctx, req, chunk, previous)
		if err != nil {
			return nil, fmt.Errorf("translate chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out = append(out, text)
		previous = chunker.ExtractContext(chunk, chunker.DefaultContextWords)
	}

	result.TranslatedText = strings.Join(out, "\n\n")
	result.Chunks = len(out)
	return result, nil
}

// translateChunk hides glossary names behind markers while the model
// translates. When the model drops a marker the chunk is translated again
// with the names in plain text and the glossary listed in the prompt.
func (t *LLMTranslator) translateChunk(ctx context.Context, req TranslateRequest, chunk, previous string) (string, error) {
	protected, markers := placeholder.Protect(chunk, req.Glossary)
	if len(markers) > 0 {
		text, err := t.generate(ctx, buildTranslationPrompt(req, protected, previous, true))
		if err != nil {
			return "", err
		}
		if len(placeholder.Validate(text, markers)) == 0 {
			return placeholder.Restore(text, markers), nil
		}
	}
	return t.generate(ctx, buildTranslationPrompt(req, chunk, previous, false))
}

func (t *LLMTranslator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := t.client.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	text := postprocess.Clean(resp.Text)
	if text == "" {
		return "", fmt.Errorf("empty translation")
	}
	return text, nil
}

func buildTranslationPrompt(req TranslateRequest, text, previous string, markers bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following text to %s without any initial or trailing text.\n", LanguageName(req.TargetLang))
	if req.SourceLang != "" && req.SourceLang != "auto" {
		fmt.Fprintf(&sb, "The text is written in %s by a young student; keep their tone and informal expressions.\n", LanguageName(req.SourceLang))
	}

	if len(req.Glossary) > 0 {
		terms := make([]string, 0, len(req.Glossary))
		for src := range req.Glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)
		sb.WriteString("Always translate these terms exactly as given:\n")
		for _, src := range terms {
			fmt.Fprintf(&sb, "- %s => %s\n", src, req.Glossary[src])
		}
	}

	if markers {
		sb.WriteString(placeholder.InstructionHint())
		sb.WriteString("\n")
	}

	if previous != "" {
		fmt.Fprintf(&sb, "For continuity, the text follows this passage (do not translate it again): %q\n", previous)
	}

	sb.WriteString("\n")
	sb.WriteString(text)
	return sb.String()
}
