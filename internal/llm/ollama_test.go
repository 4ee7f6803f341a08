package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaClient_New(t *testing.T) {
	c := NewOllamaClient("", "", time.Minute, 0)

	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected default baseURL, got %q", c.baseURL)
	}
	if c.model != DefaultModel {
		t.Errorf("expected default model, got %q", c.model)
	}
	if c.Name() != "ollama" {
		t.Errorf("expected name 'ollama', got %q", c.Name())
	}
}

func TestOllamaClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gemma3" {
			t.Errorf("expected model 'gemma3', got %q", req.Model)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Format != "json" {
			t.Errorf("expected format=json, got %q", req.Format)
		}
		if req.Options["temperature"] != 0.2 {
			t.Errorf("expected temperature option, got %v", req.Options)
		}

		json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "gemma3:latest",
			Response:        `{"score": 5}`,
			PromptEvalCount: 42,
			EvalCount:       7,
		})
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "gemma3", time.Minute, 0.2)
	resp, err := c.Generate(context.Background(), Request{Prompt: "Score this", JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"score": 5}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Model != "gemma3:latest" {
		t.Errorf("expected model from response, got %q", resp.Model)
	}
	if resp.PromptTokens != 42 || resp.CompletionTokens != 7 {
		t.Errorf("unexpected token counts %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
}

func TestOllamaClient_Generate_Images(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G'}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Images) != 1 {
			t.Fatalf("expected one image, got %d", len(req.Images))
		}
		if req.Images[0] != base64.StdEncoding.EncodeToString(img) {
			t.Error("image not base64 encoded")
		}
		if req.Model != "llava" {
			t.Errorf("expected per-request model override, got %q", req.Model)
		}
		if req.Format != "" {
			t.Errorf("expected no format, got %q", req.Format)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Response: "A Day at the Park"})
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "gemma3", time.Minute, 0)
	resp, err := c.Generate(context.Background(), Request{Prompt: "Extract", Images: [][]byte{img}, Model: "llava"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Model != "llava" {
		t.Errorf("expected requested model when response omits it, got %q", resp.Model)
	}
}

func TestOllamaClient_Generate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'gemma3' not found"}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "gemma3", time.Minute, 0)
	_, err := c.Generate(context.Background(), Request{Prompt: "hi"})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.Code)
	}
	if IsRetryable(err) {
		t.Error("404 must not be retryable")
	}
}

func TestOllamaClient_Generate_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "gemma3", time.Minute, 0)
	if _, err := c.Generate(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Error("expected decode error")
	}
}

func TestOllamaClient_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "gemma3", time.Minute, 0)
	if err := c.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	server.Close()
	if err := c.IsAvailable(context.Background()); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestClientInterface(t *testing.T) {
	var _ Client = (*OllamaClient)(nil)
	var _ Client = (*OpenAIClient)(nil)
}
