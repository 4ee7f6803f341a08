package refiner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/valpere/wordweaver/internal/llm"
)

type cannedClient struct {
	reply  string
	err    error
	prompt string
}

func (c *cannedClient) Name() string                          { return "canned" }
func (c *cannedClient) IsAvailable(ctx context.Context) error { return nil }
func (c *cannedClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.prompt = req.Prompt
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.reply}, nil
}

func TestLLMRefiner_Refine(t *testing.T) {
	c := &cannedClient{reply: "<think>hmm</think>\"Hoy fui al parque.\""}
	r := NewLLMRefiner(c)

	got, err := r.Refine(context.Background(), "en", "es", "Today I went to the park.", "Hoy yo fui a el parque.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hoy fui al parque." {
		t.Errorf("expected cleaned refinement, got %q", got)
	}
	for _, want := range []string{"in Spanish", "CORRECTED TEXT (English)", "Hoy yo fui a el parque.", "student's voice"} {
		if !strings.Contains(c.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLLMRefiner_EmptyKeepsDraft(t *testing.T) {
	r := NewLLMRefiner(&cannedClient{reply: "   "})

	got, err := r.Refine(context.Background(), "en", "es", "src", "borrador")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "borrador" {
		t.Errorf("expected draft back, got %q", got)
	}
}

func TestLLMRefiner_Error(t *testing.T) {
	r := NewLLMRefiner(&cannedClient{err: errors.New("timeout")})

	if _, err := r.Refine(context.Background(), "en", "es", "src", "draft"); err == nil {
		t.Error("expected error")
	}
}
