package translator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/metrics"
)

// Memory caches finished translations. finalText is what later lookups
// return; draftText is the raw translator output before refinement.
type Memory interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText, draftText, serviceUsed string) error
}

// FuzzyMemory is a Memory that can also return the translation of a
// nearly identical source, such as a re-photographed story.
type FuzzyMemory interface {
	Memory
	FuzzyGetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) (string, bool, error)
}

// Glossary supplies fixed term translations for a language pair.
type Glossary interface {
	GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error)
}

// LanguageValidator reports whether text is written in lang.
type LanguageValidator interface {
	IsValid(text, lang string) (bool, error)
}

// Refiner polishes a draft translation of sourceText.
type Refiner interface {
	Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error)
}

// Service wraps a Translator with translation memory, glossary terms,
// output language validation and an optional refinement pass. Every
// collaborator except the translator is optional.
type Service struct {
	tr        Translator
	memory    Memory
	glossary  Glossary
	validator LanguageValidator
	rec       *metrics.Recorder
	logger    *zap.Logger

	refiner       Refiner
	refineTargets []string
	fuzzy         float64
}

func NewService(tr Translator, memory Memory, glossary Glossary, validator LanguageValidator, rec *metrics.Recorder, logger *zap.Logger) *Service {
	return &Service{
		tr:        tr,
		memory:    memory,
		glossary:  glossary,
		validator: validator,
		rec:       rec,
		logger:    logging.OrNop(logger),
	}
}

// WithRefiner polishes translations into the given target languages, or
// into every language when none are given. The refined text is what the
// memory stores as final. A nil refiner turns refinement off.
func (s *Service) WithRefiner(r Refiner, targets ...string) *Service {
	s.refiner = r
	s.refineTargets = targets
	return s
}

// WithFuzzyMatch lets an exact memory miss fall back to the closest stored
// source at least threshold similar (0..1). It needs a FuzzyMemory;
// threshold <= 0 turns it off.
func (s *Service) WithFuzzyMatch(threshold float64) *Service {
	s.fuzzy = threshold
	return s
}

func (s *Service) Name() string { return s.tr.Name() }

// Translate returns text in targetLang. Text already in targetLang and
// empty text are returned unchanged.
func (s *Service) Translate(ctx context.Context, text, sourceLang, targetLang string) (_ *ServiceResult, err error) {
	direction := sourceLang + "-" + targetLang
	defer func() { s.rec.ObserveTranslation(direction, err) }()

	if strings.TrimSpace(text) == "" || sourceLang == targetLang {
		return &ServiceResult{ServiceName: s.tr.Name(), TranslatedText: text}, nil
	}

	if cached, ok := s.lookup(ctx, text, sourceLang, targetLang); ok {
		s.logger.Debug("translation memory hit", zap.String("direction", direction))
		return &ServiceResult{ServiceName: s.tr.Name(), TranslatedText: cached, FromMemory: true}, nil
	}

	req := TranslateRequest{Text: text, SourceLang: sourceLang, TargetLang: targetLang}
	if s.glossary != nil {
		terms, err := s.glossary.GetGlossaryTerms(ctx, sourceLang, targetLang)
		if err != nil {
			s.logger.Warn("glossary lookup failed", zap.Error(err))
		} else {
			req.Glossary = terms
		}
	}

	res, err := s.tr.Translate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s translation %s: %w", s.tr.Name(), direction, err)
	}

	if s.validator != nil {
		if ok, verr := s.validator.IsValid(res.TranslatedText, targetLang); !ok {
			s.logger.Warn("translation in wrong language, retrying", zap.String("direction", direction), zap.Error(verr))
			retry, rerr := s.tr.Translate(ctx, req)
			if rerr == nil {
				res = retry
				if ok, verr := s.validator.IsValid(res.TranslatedText, targetLang); !ok {
					s.logger.Warn("translation still failed language validation", zap.String("direction", direction), zap.Error(verr))
				}
			} else {
				s.logger.Warn("translation retry failed, keeping first result", zap.Error(rerr))
			}
		}
	}

	draft := res.TranslatedText
	s.refine(ctx, text, sourceLang, targetLang, res)

	if s.memory != nil {
		if err := s.memory.SaveToMemory(ctx, text, sourceLang, targetLang, res.TranslatedText, draft, res.ServiceName); err != nil {
			s.logger.Warn("failed to save translation memory", zap.Error(err))
		}
	}
	return res, nil
}

// lookup tries the exact memory entry, then a fuzzy match. Failures are
// logged and count as misses.
func (s *Service) lookup(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	if s.memory == nil {
		return "", false
	}

	cached, ok, err := s.memory.GetCachedTranslation(ctx, text, sourceLang, targetLang)
	if err != nil {
		s.logger.Warn("translation memory lookup failed", zap.Error(err))
	}
	if !ok && err == nil && s.fuzzy > 0 {
		if fm, isFuzzy := s.memory.(FuzzyMemory); isFuzzy {
			cached, ok, err = fm.FuzzyGetCachedTranslation(ctx, text, sourceLang, targetLang, s.fuzzy)
			if err != nil {
				s.logger.Warn("fuzzy translation memory lookup failed", zap.Error(err))
			} else if ok {
				s.logger.Debug("fuzzy translation memory hit", zap.Float64("threshold", s.fuzzy))
			}
		}
	}
	ok = ok && err == nil
	s.rec.ObserveMemoryLookup(ok)
	return cached, ok
}

// refine replaces res.TranslatedText with the refined text. A failing or
// empty refinement keeps the draft.
func (s *Service) refine(ctx context.Context, sourceText, sourceLang, targetLang string, res *ServiceResult) {
	if s.refiner == nil {
		return
	}
	if len(s.refineTargets) > 0 && !slices.Contains(s.refineTargets, targetLang) {
		return
	}
	refined, err := s.refiner.Refine(ctx, sourceLang, targetLang, sourceText, res.TranslatedText)
	if err != nil {
		s.logger.Warn("refinement failed, keeping draft", zap.String("direction", sourceLang+"-"+targetLang), zap.Error(err))
		return
	}
	if strings.TrimSpace(refined) == "" {
		return
	}
	res.TranslatedText = refined
	res.Refined = true
}
