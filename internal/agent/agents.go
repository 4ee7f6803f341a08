package agent

import (
	"context"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/wordweaver/internal"
)

// GrammarStyle corrects grammar and style and lists every change.
func (a *Agent) GrammarStyle(ctx context.Context, text, prior string) (*GrammarStyleResult, error) {
	var res GrammarStyleResult
	if err := a.callJSON(ctx, NameGrammarStyle, buildGrammarStylePrompt(text, prior), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VoicePreservation compares original with edited and scores how much of
// the student's voice survived.
func (a *Agent) VoicePreservation(ctx context.Context, original, edited, prior string) (*VoiceResult, error) {
	var res VoiceResult
	if err := a.callJSON(ctx, NameVoice, buildVoicePrompt(original, edited, prior), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PersonalizedFeedback writes feedback addressed to the student.
func (a *Agent) PersonalizedFeedback(ctx context.Context, meta internal.StudentMetadata, text, prior string) (*FeedbackResult, error) {
	var res FeedbackResult
	if err := a.callJSON(ctx, NameFeedback, buildFeedbackPrompt(meta, text, prior), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// EvaluateDimension scores text on a single rubric dimension.
func (a *Agent) EvaluateDimension(ctx context.Context, d Dimension, text, prior string) (*MetricResult, error) {
	var res MetricResult
	if err := a.callJSON(ctx, NameRubricPrefix+d.Key, buildRubricPrompt(d, text, prior), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// EvaluateWritingMetrics scores text on all six dimensions, at most
// concurrency at a time, and fills Overall with their mean.
func (a *Agent) EvaluateWritingMetrics(ctx context.Context, text, prior string, concurrency int) (*WritingMetrics, error) {
	dims, err := Rubric()
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = len(dims)
	}

	results := make([]MetricResult, len(dims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, d := range dims {
		g.Go(func() error {
			r, err := a.EvaluateDimension(gctx, d, text, prior)
			if err != nil {
				return err
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var m WritingMetrics
	var sum float64
	for i, d := range dims {
		m.set(d.Key, results[i])
		sum += float64(results[i].Score)
	}
	m.Overall = MetricResult{
		Score:   Score(Round2(sum / float64(len(dims)))),
		Comment: "Average score across all dimensions.",
	}

	a.logger.Debug("writing metrics evaluated", zap.Float64("overall", float64(m.Overall.Score)))
	return &m, nil
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
