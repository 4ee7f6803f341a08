/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/agent"
	"github.com/valpere/wordweaver/internal/analysis"
	"github.com/valpere/wordweaver/internal/arbiter"
	"github.com/valpere/wordweaver/internal/config"
	"github.com/valpere/wordweaver/internal/detector"
	"github.com/valpere/wordweaver/internal/extractor"
	"github.com/valpere/wordweaver/internal/llm"
	"github.com/valpere/wordweaver/internal/metrics"
	"github.com/valpere/wordweaver/internal/orchestrator"
	"github.com/valpere/wordweaver/internal/pipeline"
	"github.com/valpere/wordweaver/internal/refiner"
	"github.com/valpere/wordweaver/internal/store"
	"github.com/valpere/wordweaver/internal/translator"
	"github.com/valpere/wordweaver/internal/validator"
)

var errStoreDisabled = errors.New("the database is disabled (store.disabled / --no-store)")

// app holds the components shared by the commands of one run.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	rec    *metrics.Recorder
	client llm.Client
	db     *store.Store
	det    *detector.Detector
}

func newApp() (*app, error) {
	rec := metrics.New(metrics.DefaultConfig())

	client, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
		RetryDelay:  cfg.LLM.RetryDelay,
		Temperature: cfg.LLM.Temperature,
	}, logger, rec)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, rec: rec, client: client}
	if !cfg.Store.Disabled {
		if a.db, err = openStore(cfg.Store.Path); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// requireStore opens the configured database for commands that only manage it.
func requireStore() (*store.Store, error) {
	if cfg.Store.Disabled {
		return nil, errStoreDisabled
	}
	return openStore(cfg.Store.Path)
}

func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// detector builds the English/Spanish detector once; lingua models are large.
func (a *app) detector() *detector.Detector {
	if a.det == nil {
		a.det = detector.NewStudentLanguages()
	}
	return a.det
}

func buildTranslator(tc config.TranslationConfig, client llm.Client) (translator.Translator, error) {
	switch tc.Service {
	case "", "llm":
		return translator.NewLLMTranslator(client, tc.ChunkSize), nil
	case "google":
		return translator.NewGoogleTranslator(tc.Credentials, tc.ProjectID), nil
	default:
		return nil, fmt.Errorf("unknown translation service %q", tc.Service)
	}
}

// translationService builds the translation service; refinement applies only
// to the listed target languages, or to all of them when none are given.
func (a *app) translationService(refineTargets ...string) (*translator.Service, error) {
	tr, err := buildTranslator(a.cfg.Translation, a.client)
	if err != nil {
		return nil, err
	}

	var (
		memory   translator.Memory
		glossary translator.Glossary
		val      translator.LanguageValidator
	)
	if a.db != nil {
		memory, glossary = a.db, a.db
	}
	if a.cfg.Translation.Validate {
		val = validator.NewWithDetector(a.detector())
	}
	svc := translator.NewService(tr, memory, glossary, val, a.rec, a.logger).
		WithFuzzyMatch(a.cfg.Translation.FuzzyThreshold)
	if r := a.refiner(); r != nil {
		svc = svc.WithRefiner(r, refineTargets...)
	}
	return svc, nil
}

func (a *app) refiner() refiner.Refiner {
	if !a.cfg.Translation.Refine {
		return nil
	}
	return refiner.NewLLMRefiner(a.client)
}

func (a *app) ocr() (*orchestrator.Orchestrator, error) {
	var engines []extractor.Extractor
	for _, name := range a.cfg.OCR.Engines {
		e, err := extractor.New(name, a.client, a.cfg.LLM.VisionModel, a.cfg.OCR.Languages)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	return orchestrator.New(engines, orchestrator.OrchestratorConfig{
		Timeout:     a.cfg.OCR.Timeout,
		MaxAttempts: a.cfg.OCR.MaxAttempts,
	}, a.rec, a.logger), nil
}

func (a *app) analyzer() *analysis.Analyzer {
	var history analysis.History
	if a.db != nil {
		history = a.db
	}
	return analysis.New(agent.New(a.client, a.rec, a.logger), analysis.Config{
		VoiceThreshold:     a.cfg.Workflow.VoiceThreshold,
		MaxIterations:      a.cfg.Workflow.MaxIterations,
		ContextReports:     a.cfg.Workflow.ContextReports,
		MetricsConcurrency: a.cfg.Workflow.MetricsConcurrency,
	}, history, a.rec, a.logger)
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	ocr, err := a.ocr()
	if err != nil {
		return nil, err
	}
	// Only the Spanish back-translation is shown to students; the English
	// analysis input is left unpolished.
	ts, err := a.translationService(internal.LangSpanish)
	if err != nil {
		return nil, err
	}

	c := pipeline.Components{
		OCR:        ocr,
		Detector:   a.detector(),
		Translator: ts,
		Analyzer:   a.analyzer(),
	}
	if a.cfg.OCR.Arbiter {
		c.Arbiter = arbiter.NewLLMArbiter(a.client)
	}
	if a.db != nil {
		c.Store = a.db
	}
	return pipeline.New(c, pipeline.Config{
		Preprocess: a.cfg.OCR.Preprocess,
		MaxWidth:   a.cfg.OCR.MaxWidth,
	}, a.logger), nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
