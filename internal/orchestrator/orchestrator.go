// Package orchestrator runs every configured OCR engine on the same image
// concurrently and collects their transcriptions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/extractor"
	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/metrics"
)

type OrchestratorConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type OrchestratorResult struct {
	// Results holds one entry per engine, in engine order.
	Results   []extractor.Result
	Errors    []error
	Succeeded int
	Failed    int
}

// Successful returns the results that produced text.
func (r *OrchestratorResult) Successful() []extractor.Result {
	out := make([]extractor.Result, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Error == nil {
			out = append(out, res)
		}
	}
	return out
}

type Orchestrator struct {
	engines []extractor.Extractor
	config  OrchestratorConfig
	rec     *metrics.Recorder
	logger  *zap.Logger
}

func New(engines []extractor.Extractor, config OrchestratorConfig, rec *metrics.Recorder, logger *zap.Logger) *Orchestrator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &Orchestrator{
		engines: engines,
		config:  config,
		rec:     rec,
		logger:  logging.OrNop(logger),
	}
}

func (o *Orchestrator) Execute(ctx context.Context, image []byte) *OrchestratorResult {
	result := &OrchestratorResult{
		Results: make([]extractor.Result, len(o.engines)),
		Errors:  make([]error, 0),
	}

	var wg sync.WaitGroup
	for i, eng := range o.engines {
		wg.Add(1)
		go func(index int, engine extractor.Extractor) {
			defer wg.Done()
			result.Results[index] = o.runWithRetry(ctx, engine, image)
		}(i, eng)
	}
	wg.Wait()

	for _, r := range result.Results {
		if r.Error != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", r.Engine, r.Error))
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result
}

func (o *Orchestrator) runWithRetry(ctx context.Context, engine extractor.Extractor, image []byte) extractor.Result {
	res := extractor.Result{Engine: engine.Name()}

	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				res.Error = ctx.Err()
				return res
			case <-time.After(o.config.RetryDelay):
			}
		}

		engineCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
		start := time.Now()
		text, err := engine.Extract(engineCtx, image)
		cancel()
		res.Latency = time.Since(start)

		if err == nil && strings.TrimSpace(text) == "" {
			err = extractor.ErrNoText
		}
		o.rec.ObserveOCR(res.Engine, res.Latency, err)

		if err == nil {
			res.Text = strings.TrimSpace(text)
			res.Error = nil
			return res
		}
		res.Error = err

		if errors.Is(err, extractor.ErrUnsupported) || ctx.Err() != nil {
			return res
		}
		o.logger.Warn("OCR attempt failed",
			zap.String("engine", res.Engine),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return res
}
