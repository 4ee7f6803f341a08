// Package analysis runs the iterative multi-agent review of one submission:
// grammar and style correction, a voice preservation check with a bounded
// retry, personalized feedback and rubric scoring.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/agent"
	"github.com/valpere/wordweaver/internal/graph"
	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/metrics"
	"github.com/valpere/wordweaver/internal/report"
)

var ErrEmptySubmission = errors.New("submission has no text")

// Node names of the workflow graph.
const (
	NodeGrammar  = "grammar"
	NodeVoice    = "voice"
	NodeRevise   = "revise"
	NodeFeedback = "feedback"
	NodeMetrics  = "metrics"
)

// History supplies a student's earlier reports as context for the agents.
type History interface {
	RecentReportsForStudent(ctx context.Context, name string, limit int) ([]*report.Report, error)
}

type Config struct {
	VoiceThreshold     int
	MaxIterations      int
	ContextReports     int
	MetricsConcurrency int
}

func DefaultConfig() Config {
	return Config{
		VoiceThreshold:     90,
		MaxIterations:      5,
		ContextReports:     3,
		MetricsConcurrency: 6,
	}
}

// Analyzer drives the agents through the workflow graph.
type Analyzer struct {
	agents  *agent.Agent
	cfg     Config
	history History
	rec     *metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an Analyzer. history, rec and logger may be nil.
func New(agents *agent.Agent, cfg Config, history History, rec *metrics.Recorder, logger *zap.Logger) *Analyzer {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MetricsConcurrency <= 0 {
		cfg.MetricsConcurrency = def.MetricsConcurrency
	}
	return &Analyzer{
		agents:  agents,
		cfg:     cfg,
		history: history,
		rec:     rec,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

type state struct {
	sub         internal.Submission
	fullText    string
	currentText string
	prior       string

	iteration int
	logs      []report.IterationLog
	grammar   *agent.GrammarStyleResult
	voice     *agent.VoiceResult
	feedback  *agent.FeedbackResult
	metrics   *agent.WritingMetrics
}

// Analyze reviews sub and returns the aggregated report.
func (a *Analyzer) Analyze(ctx context.Context, sub internal.Submission) (r *report.Report, err error) {
	st := &state{sub: sub, fullText: sub.FullText()}
	defer func() {
		var overall, voice float64
		if r != nil {
			overall = r.Scores.Overall
			voice = float64(r.Scores.VoicePreservation)
		}
		a.rec.ObserveAnalysis(st.iteration, overall, voice, err)
	}()

	if st.fullText == "" {
		return nil, ErrEmptySubmission
	}
	st.currentText = st.fullText
	st.prior = a.priorContext(ctx, sub.Metadata.Name)

	g := a.workflow()
	g.OnStep = func(node string, step int) {
		a.logger.Debug("analysis step", zap.String("node", node), zap.Int("step", step), zap.Int("iteration", st.iteration))
	}
	if err := g.Run(ctx, st); err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	r = a.buildReport(st)
	a.logger.Info("analysis complete",
		zap.String("student", r.StudentID.Name),
		zap.Int("iterations", r.IterationCount),
		zap.Float64("overall", r.Scores.Overall))
	return r, nil
}

// workflow wires grammar -> voice -> (revise -> grammar | feedback) -> metrics.
func (a *Analyzer) workflow() *graph.Graph[*state] {
	g := graph.New[*state]().
		AddNode(NodeGrammar, a.grammarNode).
		AddNode(NodeVoice, a.voiceNode).
		AddNode(NodeRevise, a.reviseNode).
		AddNode(NodeFeedback, a.feedbackNode).
		AddNode(NodeMetrics, a.metricsNode).
		SetEntry(NodeGrammar).
		AddEdge(NodeGrammar, NodeVoice).
		AddConditionalEdges(NodeVoice, a.route, NodeRevise, NodeFeedback).
		AddEdge(NodeRevise, NodeGrammar).
		AddEdge(NodeFeedback, NodeMetrics).
		AddEdge(NodeMetrics, graph.End)
	g.MaxSteps = 3*a.cfg.MaxIterations + 2
	return g
}

func (a *Analyzer) grammarNode(ctx context.Context, st *state) error {
	st.iteration++
	res, err := a.agents.GrammarStyle(ctx, st.currentText, st.prior)
	if err != nil {
		return err
	}
	if strings.TrimSpace(res.EditedText) == "" {
		res.EditedText = st.currentText
	}
	st.grammar = res
	return nil
}

func (a *Analyzer) voiceNode(ctx context.Context, st *state) error {
	res, err := a.agents.VoicePreservation(ctx, st.fullText, st.grammar.EditedText, st.prior)
	if err != nil {
		return err
	}
	st.voice = res
	st.logs = append(st.logs, report.IterationLog{
		Iteration:      st.iteration,
		InputText:      st.currentText,
		EditedText:     st.grammar.EditedText,
		VoiceScore:     res.VoiceScore,
		GrammarChanges: changesOrEmpty(st.grammar.Changes),
	})
	return nil
}

func (a *Analyzer) route(st *state) string {
	if st.voice.VoiceScore.Int() >= a.cfg.VoiceThreshold {
		return NodeFeedback
	}
	if st.iteration >= a.cfg.MaxIterations {
		a.logger.Info("voice threshold not reached, keeping last revision",
			zap.Int("iterations", st.iteration),
			zap.Int("voice_score", st.voice.VoiceScore.Int()))
		return NodeFeedback
	}
	return NodeRevise
}

func (a *Analyzer) reviseNode(_ context.Context, st *state) error {
	st.currentText = agent.ReviseForVoice(st.currentText)
	return nil
}

func (a *Analyzer) feedbackNode(ctx context.Context, st *state) error {
	res, err := a.agents.PersonalizedFeedback(ctx, st.sub.Metadata, st.fullText, st.prior)
	if err != nil {
		return err
	}
	st.feedback = res
	return nil
}

func (a *Analyzer) metricsNode(ctx context.Context, st *state) error {
	res, err := a.agents.EvaluateWritingMetrics(ctx, st.fullText, st.prior, a.cfg.MetricsConcurrency)
	if err != nil {
		return err
	}
	st.metrics = res
	return nil
}

func (a *Analyzer) buildReport(st *state) *report.Report {
	scores := report.Scores{
		Grammar:              st.grammar.GrammarScore.Int(),
		Style:                st.grammar.StyleScore.Int(),
		VoicePreservation:    st.voice.VoiceScore.Int(),
		PersonalizedFeedback: st.feedback.PersonalizedScore.Int(),
	}
	scores.Overall = report.OverallScore(scores.Grammar, scores.Style, scores.VoicePreservation, scores.PersonalizedFeedback)

	final := st.voice.FinalText
	if strings.TrimSpace(final) == "" {
		final = st.grammar.EditedText
	}

	return &report.Report{
		StudentID:         report.NewStudentID(st.sub.Metadata),
		Timestamp:         a.now().UTC(),
		FinalEditedText:   final,
		IterationCount:    st.iteration,
		IterationLogs:     st.logs,
		ChangeSuggestions: changesOrEmpty(st.grammar.Changes),
		Feedback: report.Feedback{
			VoicePreservation: st.voice.VoiceFeedback,
			Personalized:      st.feedback.FeedbackMessage,
		},
		Scores:         scores,
		WritingMetrics: *st.metrics,
	}
}

func changesOrEmpty(l agent.ChangeList) []agent.Change {
	if l == nil {
		return []agent.Change{}
	}
	return l
}
