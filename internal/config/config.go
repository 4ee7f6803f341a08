// Package config loads wordweaver settings from defaults, an optional YAML
// file, WORDWEAVER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// WORDWEAVER_LLM_BASE_URL for llm.base_url.
const EnvPrefix = "WORDWEAVER"

type Config struct {
	LLM         LLMConfig         `mapstructure:"llm" json:"llm"`
	Workflow    WorkflowConfig    `mapstructure:"workflow" json:"workflow"`
	OCR         OCRConfig         `mapstructure:"ocr" json:"ocr"`
	Translation TranslationConfig `mapstructure:"translation" json:"translation"`
	Store       StoreConfig       `mapstructure:"store" json:"store"`
	Server      ServerConfig      `mapstructure:"server" json:"server"`
	Log         LogConfig         `mapstructure:"log" json:"log"`
}

// LLMConfig describes the local model runtime.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" json:"provider"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Model       string        `mapstructure:"model" json:"model"`
	VisionModel string        `mapstructure:"vision_model" json:"vision_model"`
	APIKey      string        `mapstructure:"api_key" json:"-"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" json:"retry_delay"`
	Temperature float32       `mapstructure:"temperature" json:"temperature"`
}

// WorkflowConfig tunes the analysis loop.
type WorkflowConfig struct {
	VoiceThreshold     int `mapstructure:"voice_threshold" json:"voice_threshold"`
	MaxIterations      int `mapstructure:"max_iterations" json:"max_iterations"`
	ContextReports     int `mapstructure:"context_reports" json:"context_reports"`
	MetricsConcurrency int `mapstructure:"metrics_concurrency" json:"metrics_concurrency"`
}

type OCRConfig struct {
	Engines     []string      `mapstructure:"engines" json:"engines"`
	Preprocess  bool          `mapstructure:"preprocess" json:"preprocess"`
	MaxWidth    int           `mapstructure:"max_width" json:"max_width"`
	Arbiter     bool          `mapstructure:"arbiter" json:"arbiter"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
	Languages   []string      `mapstructure:"languages" json:"languages"`
}

type TranslationConfig struct {
	Service     string `mapstructure:"service" json:"service"`
	Credentials string `mapstructure:"credentials" json:"credentials"`
	ProjectID   string `mapstructure:"project_id" json:"project_id"`
	Refine      bool   `mapstructure:"refine" json:"refine"`
	Validate    bool   `mapstructure:"validate" json:"validate"`
	ChunkSize   int    `mapstructure:"chunk_size" json:"chunk_size"`
	// FuzzyThreshold is the similarity (0..1) at which a remembered
	// translation of a slightly different text is reused; 0 disables it.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold" json:"fuzzy_threshold"`
}

type StoreConfig struct {
	Path     string `mapstructure:"path" json:"path"`
	Disabled bool   `mapstructure:"disabled" json:"disabled"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" json:"addr"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb" json:"max_upload_mb"`
	RateLimit       float64       `mapstructure:"rate_limit" json:"rate_limit"`
	Burst           int           `mapstructure:"burst" json:"burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// NewViper returns a viper instance carrying every default and the
// environment binding. Commands bind their flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gemma3")
	v.SetDefault("llm.vision_model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.max_attempts", 2)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.temperature", 0.2)

	v.SetDefault("workflow.voice_threshold", 90)
	v.SetDefault("workflow.max_iterations", 5)
	v.SetDefault("workflow.context_reports", 3)
	v.SetDefault("workflow.metrics_concurrency", 6)

	v.SetDefault("ocr.engines", []string{"vision"})
	v.SetDefault("ocr.preprocess", true)
	v.SetDefault("ocr.max_width", 2000)
	v.SetDefault("ocr.arbiter", false)
	v.SetDefault("ocr.timeout", 2*time.Minute)
	v.SetDefault("ocr.max_attempts", 2)
	v.SetDefault("ocr.languages", []string{"eng", "spa"})

	v.SetDefault("translation.service", "llm")
	v.SetDefault("translation.credentials", "")
	v.SetDefault("translation.project_id", "")
	v.SetDefault("translation.refine", false)
	v.SetDefault("translation.validate", true)
	v.SetDefault("translation.chunk_size", 2000)
	v.SetDefault("translation.fuzzy_threshold", 0.95)

	v.SetDefault("store.path", "./data/wordweaver.db")
	v.SetDefault("store.disabled", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.rate_limit", 0.5)
	v.SetDefault("server.burst", 3)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the config file (explicit path, or wordweaver.yaml searched in
// the working directory and ~/.config/wordweaver) and decodes v into a Config.
// A missing file is not an error unless path was given explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wordweaver")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "wordweaver"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.LLM.VisionModel == "" {
		cfg.LLM.VisionModel = cfg.LLM.Model
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (want ollama or openai)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.Workflow.VoiceThreshold < 0 || c.Workflow.VoiceThreshold > 100 {
		return fmt.Errorf("workflow.voice_threshold must be within 0..100, got %d", c.Workflow.VoiceThreshold)
	}
	if c.Workflow.MaxIterations < 1 {
		return fmt.Errorf("workflow.max_iterations must be at least 1, got %d", c.Workflow.MaxIterations)
	}
	if c.Workflow.ContextReports < 0 {
		return fmt.Errorf("workflow.context_reports must not be negative")
	}
	if len(c.OCR.Engines) == 0 {
		return fmt.Errorf("ocr.engines must name at least one engine")
	}
	for _, e := range c.OCR.Engines {
		switch e {
		case "vision", "tesseract":
		default:
			return fmt.Errorf("unknown ocr engine %q (want vision or tesseract)", e)
		}
	}
	switch c.Translation.Service {
	case "llm", "google":
	default:
		return fmt.Errorf("unknown translation service %q (want llm or google)", c.Translation.Service)
	}
	if c.Translation.FuzzyThreshold < 0 || c.Translation.FuzzyThreshold > 1 {
		return fmt.Errorf("translation.fuzzy_threshold must be within 0..1, got %g", c.Translation.FuzzyThreshold)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be at least 1")
	}
	return nil
}
