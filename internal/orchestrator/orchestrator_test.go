package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/wordweaver/internal/extractor"
)

type mockEngine struct {
	nameVal     string
	extractFunc func(ctx context.Context, image []byte) (string, error)
	callCount   atomic.Int32
}

func (m *mockEngine) Name() string { return m.nameVal }

func (m *mockEngine) Extract(ctx context.Context, image []byte) (string, error) {
	m.callCount.Add(1)
	if m.extractFunc != nil {
		return m.extractFunc(ctx, image)
	}
	return "mock text", nil
}

func TestOrchestrator_New_Defaults(t *testing.T) {
	o := New([]extractor.Extractor{&mockEngine{nameVal: "mock1"}}, OrchestratorConfig{}, nil, nil)

	if o.config.MaxAttempts != 2 {
		t.Errorf("expected MaxAttempts=2, got %d", o.config.MaxAttempts)
	}
	if o.config.RetryDelay <= 0 {
		t.Error("expected positive RetryDelay")
	}
	if o.config.Timeout <= 0 {
		t.Error("expected positive Timeout")
	}
}

func TestOrchestrator_Execute_MultipleEngines(t *testing.T) {
	engines := []extractor.Extractor{
		&mockEngine{nameVal: "vision"},
		&mockEngine{nameVal: "tesseract"},
	}
	o := New(engines, OrchestratorConfig{Timeout: 5 * time.Second, MaxAttempts: 1}, nil, nil)

	result := o.Execute(context.Background(), []byte("img"))

	if result.Succeeded != 2 || result.Failed != 0 {
		t.Errorf("expected 2 succeeded / 0 failed, got %d / %d", result.Succeeded, result.Failed)
	}
	if result.Results[0].Engine != "vision" || result.Results[1].Engine != "tesseract" {
		t.Errorf("results not in engine order: %+v", result.Results)
	}
}

func TestOrchestrator_Execute_WithFailures(t *testing.T) {
	failing := &mockEngine{
		nameVal: "broken",
		extractFunc: func(ctx context.Context, image []byte) (string, error) {
			return "", errors.New("engine unavailable")
		},
	}
	o := New([]extractor.Extractor{failing, &mockEngine{nameVal: "ok"}}, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}, nil, nil)

	result := o.Execute(context.Background(), nil)

	if result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("expected 1 succeeded / 1 failed, got %d / %d", result.Succeeded, result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(result.Errors))
	}
	if failing.callCount.Load() != 2 {
		t.Errorf("expected 2 attempts on failing engine, got %d", failing.callCount.Load())
	}
	ok := result.Successful()
	if len(ok) != 1 || ok[0].Engine != "ok" || ok[0].Text != "mock text" {
		t.Errorf("unexpected successful results: %+v", ok)
	}
}

func TestOrchestrator_Execute_EmptyTextRetried(t *testing.T) {
	var calls atomic.Int32
	eng := &mockEngine{
		nameVal: "flaky",
		extractFunc: func(ctx context.Context, image []byte) (string, error) {
			if calls.Add(1) < 3 {
				return "   ", nil
			}
			return " text on 3rd attempt ", nil
		},
	}
	o := New([]extractor.Extractor{eng}, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}, nil, nil)

	result := o.Execute(context.Background(), nil)

	if result.Succeeded != 1 {
		t.Fatalf("expected success after retry, got %+v", result.Errors)
	}
	if result.Results[0].Text != "text on 3rd attempt" {
		t.Errorf("unexpected text %q", result.Results[0].Text)
	}
}

func TestOrchestrator_Execute_UnsupportedNotRetried(t *testing.T) {
	eng := &mockEngine{
		nameVal: "tesseract",
		extractFunc: func(ctx context.Context, image []byte) (string, error) {
			return "", extractor.ErrUnsupported
		},
	}
	o := New([]extractor.Extractor{eng}, OrchestratorConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}, nil, nil)

	result := o.Execute(context.Background(), nil)

	if eng.callCount.Load() != 1 {
		t.Errorf("expected 1 call, got %d", eng.callCount.Load())
	}
	if !errors.Is(result.Errors[0], extractor.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", result.Errors[0])
	}
}

func TestOrchestrator_Execute_Timeout(t *testing.T) {
	eng := &mockEngine{
		nameVal: "slow",
		extractFunc: func(ctx context.Context, image []byte) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	o := New([]extractor.Extractor{eng}, OrchestratorConfig{
		Timeout:     20 * time.Millisecond,
		MaxAttempts: 1,
	}, nil, nil)

	result := o.Execute(context.Background(), nil)

	if result.Failed != 1 {
		t.Fatalf("expected timeout failure, got %+v", result)
	}
	if !errors.Is(result.Results[0].Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", result.Results[0].Error)
	}
}
