package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/metrics"
)

type retryingClient struct {
	Client
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// Retrying wraps client so that transient failures (transport errors, 429
// and 5xx replies) are retried up to attempts times in total. Client errors
// such as 400 or 404 fail immediately.
func Retrying(client Client, attempts int, delay time.Duration, logger *zap.Logger) Client {
	if attempts < 1 {
		attempts = 1
	}
	return &retryingClient{Client: client, attempts: attempts, delay: delay, logger: logging.OrNop(logger)}
}

func (c *retryingClient) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		resp, err := c.Client.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == c.attempts {
			break
		}

		c.logger.Warn("model call failed, retrying",
			zap.String("client", c.Client.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.delay * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("model call failed after retries: %w", lastErr)
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	return true
}

type instrumentedClient struct {
	Client
	rec    *metrics.Recorder
	logger *zap.Logger
}

// Instrumented records latency, token counts and outcome of every call.
func Instrumented(client Client, rec *metrics.Recorder, logger *zap.Logger) Client {
	return &instrumentedClient{Client: client, rec: rec, logger: logging.OrNop(logger)}
}

func (c *instrumentedClient) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.Client.Generate(ctx, req)
	elapsed := time.Since(start)

	model := req.Model
	var promptTokens, completionTokens int
	if resp != nil {
		model = resp.Model
		promptTokens, completionTokens = resp.PromptTokens, resp.CompletionTokens
	}
	c.rec.ObserveLLMCall(c.Client.Name(), model, elapsed, promptTokens, completionTokens, err)

	if err != nil {
		c.logger.Debug("model call failed",
			zap.String("client", c.Client.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("model call",
		zap.String("client", c.Client.Name()),
		zap.String("model", model),
		zap.Int("images", len(req.Images)),
		zap.Int("response_len", len(resp.Text)),
		zap.Duration("elapsed", elapsed))
	return resp, nil
}
