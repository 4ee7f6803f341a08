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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/wordweaver/internal/extractor"
)

var (
	extractOutput string
	extractJSON   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Transcribe a photo of handwriting without analyzing it",
	Long: `Run the configured OCR engines on a photo and print the transcription.
With more than one engine and ocr.arbiter enabled, the model chooses or
combines the candidates.`,
	Example: `  wordweaver extract story.jpg
  wordweaver extract story.png --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file (default: stdout)")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print engine, reasoning and text as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !extractor.AllowedExtension(filepath.Ext(path)) {
		return fmt.Errorf("%w: %s", extractor.ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pipe, err := a.pipeline()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipe.Extract(ctx, data)
	if err != nil {
		return err
	}

	for _, attempt := range res.Attempts {
		if attempt.Error != nil {
			fmt.Fprintf(os.Stderr, "  %s: failed: %v\n", attempt.Engine, attempt.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %d characters\n", attempt.Engine, len([]rune(attempt.Text)))
	}
	fmt.Fprintf(os.Stderr, "Selected: %s\n", res.Engine)

	out := []byte(res.Text + "\n")
	if extractJSON {
		if out, err = json.MarshalIndent(res, "", "  "); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		out = append(out, '\n')
	}
	return writeOutput(extractOutput, out)
}
