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
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/config"
	"github.com/valpere/wordweaver/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = config.NewViper()
	cfg     *config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "wordweaver",
	Short: "Feedback and scores for student writing",
	Long: `WordWeaver reads a student's story from a photo or text file, translates
Spanish writing to English, and runs it through a local language model that
corrects grammar and style while keeping the student's voice, writes
personalized feedback, and scores six writing dimensions.

Configuration comes from wordweaver.yaml, WORDWEAVER_* environment
variables (a .env file is loaded first) and flags.

Use "wordweaver serve" for the web interface.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		logger.Debug("configuration loaded",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
			zap.String("store", cfg.Store.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./wordweaver.yaml or ~/.config/wordweaver/wordweaver.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	flags.String("provider", "ollama", "Model runtime API (ollama or openai)")
	flags.String("base-url", "http://localhost:11434", "Model runtime base URL")
	flags.String("model", "gemma3", "Model used by the agents")
	flags.String("vision-model", "", "Model used for OCR (default: --model)")
	flags.String("db", "./data/wordweaver.db", "SQLite database for reports, translation memory and checkpoints")
	flags.Bool("no-store", false, "Do not read or write the database")

	bindFlags(rootCmd, map[string]string{
		"log.level":        "log-level",
		"log.format":       "log-format",
		"llm.provider":     "provider",
		"llm.base_url":     "base-url",
		"llm.model":        "model",
		"llm.vision_model": "vision-model",
		"store.path":       "db",
		"store.disabled":   "no-store",
	})
}

// bindFlags binds persistent or local flags of cmd onto config keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}
