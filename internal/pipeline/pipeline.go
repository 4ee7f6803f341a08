// Package pipeline runs a submission end to end: OCR, language handling,
// analysis, back-translation and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/arbiter"
	"github.com/valpere/wordweaver/internal/extractor"
	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/orchestrator"
	"github.com/valpere/wordweaver/internal/report"
	"github.com/valpere/wordweaver/internal/translator"
)

var (
	ErrNoInput             = errors.New("submission has neither an image nor text")
	ErrNoOCR               = errors.New("no OCR engine configured")
	ErrUnsupportedLanguage = errors.New("unsupported language (want en, es or auto)")
	ErrNoTranslator        = errors.New("spanish submissions need a translator")
)

// Analyzer scores an English submission.
type Analyzer interface {
	Analyze(ctx context.Context, sub internal.Submission) (*report.Report, error)
}

// Translator moves text between languages.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*translator.ServiceResult, error)
}

// LanguageResolver decides between English and Spanish.
type LanguageResolver interface {
	Resolve(text string) string
}

// Store persists submissions and their reports.
type Store interface {
	SaveSubmission(ctx context.Context, sub *internal.Submission) error
	SaveReport(ctx context.Context, submissionID string, r *report.Report) error
}

// Components are the collaborators of a Pipeline. Only Analyzer is
// required; a nil OCR rejects images and a nil Store skips persistence.
type Components struct {
	OCR        *orchestrator.Orchestrator
	Arbiter    arbiter.Arbiter
	Detector   LanguageResolver
	Translator Translator
	Analyzer   Analyzer
	Store      Store
}

type Config struct {
	Preprocess bool
	MaxWidth   int
}

type Pipeline struct {
	c      Components
	cfg    Config
	logger *zap.Logger
}

func New(c Components, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = extractor.DefaultMaxWidth
	}
	return &Pipeline{c: c, cfg: cfg, logger: logging.OrNop(logger)}
}

// Input is one student submission as it arrives from the CLI or web form.
// Image takes precedence over Text.
type Input struct {
	Image    []byte
	Text     string
	Metadata internal.StudentMetadata
	Title    string
	Language string
}

type Result struct {
	SubmissionID    string         `json:"submission_id,omitempty"`
	ExtractedText   string         `json:"extracted_text,omitempty"`
	EnglishText     string         `json:"english_text"`
	Report          *report.Report `json:"report"`
	TranslatedFinal string         `json:"translated_final,omitempty"`
	Language        string         `json:"language"`
	OCREngine       string         `json:"ocr_engine,omitempty"`
}

// ExtractResult is the transcription chosen among the OCR engines.
type ExtractResult struct {
	Text      string             `json:"text"`
	Engine    string             `json:"engine"`
	Composite bool               `json:"composite"`
	Reasoning string             `json:"reasoning,omitempty"`
	Attempts  []extractor.Result `json:"-"`
}

// Extract transcribes image with every configured engine and lets the
// arbiter choose when more than one succeeded.
func (p *Pipeline) Extract(ctx context.Context, image []byte) (*ExtractResult, error) {
	if p.c.OCR == nil {
		return nil, ErrNoOCR
	}
	if _, err := extractor.DetectFormat(image); err != nil {
		return nil, err
	}
	if p.cfg.Preprocess {
		processed, err := extractor.Preprocess(image, p.cfg.MaxWidth)
		if err != nil {
			return nil, err
		}
		image = processed
	}

	run := p.c.OCR.Execute(ctx, image)
	ok := run.Successful()
	if len(ok) == 0 {
		return nil, fmt.Errorf("all OCR engines failed: %w", errors.Join(run.Errors...))
	}

	out := &ExtractResult{Text: ok[0].Text, Engine: ok[0].Engine, Attempts: run.Results}
	if len(ok) > 1 && p.c.Arbiter != nil {
		eval, err := p.c.Arbiter.Evaluate(ctx, ok)
		if err != nil {
			p.logger.Warn("transcription arbiter failed, using first result", zap.Error(err))
		} else {
			out.Text = eval.FinalText
			out.Engine = eval.SelectedEngine
			out.Composite = eval.IsComposite
			out.Reasoning = eval.Reasoning
		}
	}
	p.logger.Info("text extracted",
		zap.String("engine", out.Engine),
		zap.Int("engines_ok", run.Succeeded),
		zap.Int("chars", len([]rune(out.Text))))
	return out, nil
}

// Process runs the whole flow for one submission.
func (p *Pipeline) Process(ctx context.Context, in Input) (*Result, error) {
	res := &Result{SubmissionID: uuid.NewString()}

	story := in.Text
	switch {
	case len(in.Image) > 0:
		ext, err := p.Extract(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("text extraction failed: %w", err)
		}
		story = ext.Text
		res.ExtractedText = ext.Text
		res.OCREngine = ext.Engine
	case strings.TrimSpace(in.Text) == "":
		return nil, ErrNoInput
	}

	lang, err := p.resolveLanguage(in.Language, in.Title+"\n\n"+story)
	if err != nil {
		return nil, err
	}
	res.Language = lang

	sub := internal.Submission{
		ID:        res.SubmissionID,
		Metadata:  in.Metadata,
		Title:     in.Title,
		Story:     story,
		Language:  lang,
		Timestamp: time.Now(),
	}

	english := sub
	if lang == internal.LangSpanish {
		if english.Title, err = p.translate(ctx, sub.Title, lang, internal.LangEnglish); err != nil {
			return nil, err
		}
		if english.Story, err = p.translate(ctx, sub.Story, lang, internal.LangEnglish); err != nil {
			return nil, err
		}
	}
	res.EnglishText = english.FullText()

	r, err := p.c.Analyzer.Analyze(ctx, english)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	res.Report = r

	if lang == internal.LangSpanish {
		res.TranslatedFinal = p.backTranslate(ctx, r.FinalEditedText)
	}

	p.persist(ctx, res, &sub, r)
	return res, nil
}

func (p *Pipeline) resolveLanguage(requested, text string) (string, error) {
	switch lang := internal.NormalizeLanguage(requested); lang {
	case internal.LangEnglish, internal.LangSpanish:
		return lang, nil
	case internal.LangAuto:
		if p.c.Detector == nil {
			return internal.LangEnglish, nil
		}
		detected := p.c.Detector.Resolve(text)
		p.logger.Debug("language detected", zap.String("language", detected))
		return detected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, requested)
	}
}

func (p *Pipeline) translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if p.c.Translator == nil {
		return "", ErrNoTranslator
	}
	out, err := p.c.Translator.Translate(ctx, text, from, to)
	if err != nil {
		return "", fmt.Errorf("translation %s->%s failed: %w", from, to, err)
	}
	return out.TranslatedText, nil
}

// backTranslate returns the Spanish version of the edited text, or "" when
// translation fails.
func (p *Pipeline) backTranslate(ctx context.Context, english string) string {
	spanish, err := p.translate(ctx, english, internal.LangEnglish, internal.LangSpanish)
	if err != nil {
		p.logger.Warn("back-translation failed", zap.Error(err))
		return ""
	}
	return spanish
}

// persist stores the submission and its report. IDs of records that could
// not be written are cleared.
func (p *Pipeline) persist(ctx context.Context, res *Result, sub *internal.Submission, r *report.Report) {
	if p.c.Store == nil {
		res.SubmissionID = ""
		return
	}
	if err := p.c.Store.SaveSubmission(ctx, sub); err != nil {
		p.logger.Warn("failed to save submission", zap.String("submission", sub.ID), zap.Error(err))
		res.SubmissionID = ""
		r.ID = ""
		return
	}
	if err := p.c.Store.SaveReport(ctx, sub.ID, r); err != nil {
		p.logger.Warn("failed to save report", zap.String("submission", sub.ID), zap.Error(err))
		r.ID = ""
	}
}
