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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/wordweaver/internal"
)

var (
	translateInput  string
	translateOutput string
	translateFrom   string
	translateTo     string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a text between English and Spanish",
	Long: `Translate a text file with the configured translation service, using the
translation memory and glossary when the database is enabled.`,
	Example: `  wordweaver translate -i cuento.txt --to en
  wordweaver translate -i story.txt --from en --to es -o cuento.txt`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&translateInput, "input", "i", "", "Input file (required)")
	translateCmd.Flags().StringVarP(&translateOutput, "output", "o", "", "Output file (default: stdout)")
	translateCmd.Flags().StringVarP(&translateFrom, "from", "f", "auto", "Source language (en, es or auto)")
	translateCmd.Flags().StringVarP(&translateTo, "to", "t", "", "Target language (en or es, required)")
	translateCmd.Flags().Bool("refine", false, "Polish the draft with a second model pass")
	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("to")

	bindFlags(translateCmd, map[string]string{"translation.refine": "refine"})
}

func runTranslate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(translateInput)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	text := string(data)

	to := internal.NormalizeLanguage(translateTo)
	if to != internal.LangEnglish && to != internal.LangSpanish {
		return fmt.Errorf("unsupported target language %q", translateTo)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	from := internal.NormalizeLanguage(translateFrom)
	switch from {
	case internal.LangAuto:
		from = a.detector().Resolve(text)
		fmt.Fprintf(os.Stderr, "Detected source language: %s\n", from)
	case internal.LangEnglish, internal.LangSpanish:
	default:
		return fmt.Errorf("unsupported source language %q", translateFrom)
	}

	svc, err := a.translationService()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := svc.Translate(ctx, text, from, to)
	if err != nil {
		return err
	}
	out := res.TranslatedText

	fmt.Fprintf(os.Stderr, "Translated %s -> %s with %s in %s", from, to, res.ServiceName, time.Since(start).Round(time.Millisecond))
	switch {
	case res.FromMemory:
		fmt.Fprint(os.Stderr, " (translation memory)")
	case res.Refined:
		fmt.Fprint(os.Stderr, " (refined)")
	}
	fmt.Fprintln(os.Stderr)

	return writeOutput(translateOutput, []byte(out))
}
