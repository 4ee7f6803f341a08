package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/valpere/wordweaver/internal/llm"
)

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) string
	err     error
}

func (p *promptRecorder) Name() string                          { return "rec" }
func (p *promptRecorder) IsAvailable(ctx context.Context) error { return nil }
func (p *promptRecorder) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Text: p.reply(req.Prompt)}, nil
}

func TestLLMTranslator_Translate(t *testing.T) {
	rec := &promptRecorder{reply: func(string) string { return "Here is the translation: Today I went to the park." }}
	tr := NewLLMTranslator(rec, 0)

	res, err := tr.Translate(context.Background(), TranslateRequest{
		Text:       "Hoy fui al parque.",
		SourceLang: "es",
		TargetLang: "en",
		Glossary:   map[string]string{"Valencia": "Valencia"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedText != "Today I went to the park." {
		t.Errorf("unexpected translation %q", res.TranslatedText)
	}
	if res.ServiceName != "llm" || res.Chunks != 1 {
		t.Errorf("unexpected result metadata %+v", res)
	}

	prompt := rec.prompts[0]
	for _, want := range []string{
		"Translate the following text to English without any initial or trailing text",
		"written in Spanish",
		"- Valencia => Valencia",
		"Hoy fui al parque.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestLLMTranslator_ProtectsGlossaryNames(t *testing.T) {
	rec := &promptRecorder{reply: func(prompt string) string {
		return "My grandmother [PH0] lives in [PH1]."
	}}
	tr := NewLLMTranslator(rec, 0)

	res, err := tr.Translate(context.Background(), TranslateRequest{
		Text:       "Mi abuela Abuelita Rosa vive en Calle Ocho.",
		SourceLang: "es",
		TargetLang: "en",
		Glossary:   map[string]string{"Abuelita Rosa": "Grandma Rosa", "Calle Ocho": "Calle Ocho"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedText != "My grandmother Grandma Rosa lives in Calle Ocho." {
		t.Errorf("unexpected translation %q", res.TranslatedText)
	}
	if len(rec.prompts) != 1 {
		t.Fatalf("expected one call, got %d", len(rec.prompts))
	}
	if strings.Contains(rec.prompts[0], "vive en Calle Ocho") || !strings.Contains(rec.prompts[0], "[PH0]") {
		t.Errorf("names should be hidden behind markers:\n%s", rec.prompts[0])
	}
}

func TestLLMTranslator_DroppedMarkerRetriesPlain(t *testing.T) {
	rec := &promptRecorder{reply: func(prompt string) string {
		if strings.Contains(prompt, "[PH0]") {
			return "My dog is called Max."
		}
		return "My dog is called Maximo."
	}}
	tr := NewLLMTranslator(rec, 0)

	res, err := tr.Translate(context.Background(), TranslateRequest{
		Text:       "Mi perro se llama Maximo.",
		SourceLang: "es",
		TargetLang: "en",
		Glossary:   map[string]string{"Maximo": "Maximo"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedText != "My dog is called Maximo." {
		t.Errorf("unexpected translation %q", res.TranslatedText)
	}
	if len(rec.prompts) != 2 {
		t.Errorf("expected a plain retry, got %d calls", len(rec.prompts))
	}
}

func TestLLMTranslator_Chunks(t *testing.T) {
	var n int
	rec := &promptRecorder{reply: func(string) string {
		n++
		return strings.Repeat("x", n)
	}}
	tr := NewLLMTranslator(rec, 30)

	text := "Primera oración del cuento. Segunda oración del cuento. Tercera oración."
	res, err := tr.Translate(context.Background(), TranslateRequest{Text: text, SourceLang: "es", TargetLang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Chunks < 2 {
		t.Fatalf("expected several chunks, got %d", res.Chunks)
	}
	if len(rec.prompts) != res.Chunks {
		t.Errorf("expected one call per chunk, got %d calls for %d chunks", len(rec.prompts), res.Chunks)
	}
	if !strings.Contains(rec.prompts[1], "follows this passage") {
		t.Errorf("second chunk should carry context: %s", rec.prompts[1])
	}
	if strings.Contains(rec.prompts[0], "follows this passage") {
		t.Errorf("first chunk should not carry context")
	}
}

func TestLLMTranslator_Errors(t *testing.T) {
	_, err := NewLLMTranslator(&promptRecorder{err: errors.New("down")}, 0).
		Translate(context.Background(), TranslateRequest{Text: "hola", TargetLang: "en"})
	if err == nil {
		t.Error("expected error when the model fails")
	}

	_, err = NewLLMTranslator(&promptRecorder{reply: func(string) string { return "  " }}, 0).
		Translate(context.Background(), TranslateRequest{Text: "hola", TargetLang: "en"})
	if err == nil {
		t.Error("expected error for empty translation")
	}
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{"en": "English", "es": "Spanish", "auto": "the detected language", "fr": "fr"}
	for code, want := range tests {
		if got := LanguageName(code); got != want {
			t.Errorf("LanguageName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestGoogleTranslator_InvalidTarget(t *testing.T) {
	_, err := NewGoogleTranslator("", "").Translate(context.Background(), TranslateRequest{Text: "hola", TargetLang: "!!"})
	if err == nil {
		t.Error("expected error for invalid target language")
	}
}
