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
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/extractor"
	"github.com/valpere/wordweaver/internal/pipeline"
	"github.com/valpere/wordweaver/internal/report"
)

var (
	analyzeImage    string
	analyzeTextFile string
	analyzeTitle    string
	analyzeName     string
	analyzeSchool   string
	analyzeDOB      string
	analyzeAge      int
	analyzeLanguage string
	analyzeOutput   string
	analyzeMarkdown bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one story and print its report",
	Long: `Analyze a student's story from a photo (--image) or a text file
(--text-file). Spanish writing is translated to English before analysis and
the corrected text is translated back.

The report is printed as JSON, or as Markdown with --markdown.`,
	Example: `  wordweaver analyze --image story.jpg --name "Ana Ruiz" --age 11
  wordweaver analyze --text-file cuento.txt --language es --markdown -o report.md`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeImage, "image", "", "Photo of the handwritten story (png, jpg, jpeg)")
	analyzeCmd.Flags().StringVar(&analyzeTextFile, "text-file", "", "Plain-text story; the first line is the title unless --title is set")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "Story title")
	analyzeCmd.Flags().StringVar(&analyzeName, "name", "", "Student name")
	analyzeCmd.Flags().StringVar(&analyzeSchool, "school", "", "School")
	analyzeCmd.Flags().StringVar(&analyzeDOB, "dob", "", "Date of birth (YYYY-MM-DD)")
	analyzeCmd.Flags().IntVar(&analyzeAge, "age", 0, "Student age")
	analyzeCmd.Flags().StringVarP(&analyzeLanguage, "language", "l", "en", "Language of the story (en, es or auto)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Output file (default: stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeMarkdown, "markdown", false, "Write the report as Markdown")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if (analyzeImage == "") == (analyzeTextFile == "") {
		return fmt.Errorf("exactly one of --image or --text-file is required")
	}

	in := pipeline.Input{
		Title:    analyzeTitle,
		Language: analyzeLanguage,
		Metadata: internal.StudentMetadata{
			Name:   analyzeName,
			School: analyzeSchool,
			DOB:    analyzeDOB,
			Age:    analyzeAge,
		},
	}

	if analyzeImage != "" {
		if !extractor.AllowedExtension(filepath.Ext(analyzeImage)) {
			return fmt.Errorf("%w: %s", extractor.ErrUnsupportedFormat, analyzeImage)
		}
		data, err := os.ReadFile(analyzeImage)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		in.Image = data
	} else {
		data, err := os.ReadFile(analyzeTextFile)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		in.Title, in.Text = splitTitle(string(data), in.Title)
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

	fmt.Fprintf(os.Stderr, "Analyzing with %s (%s)...\n", a.client.Name(), cfg.LLM.Model)

	res, err := pipe.Process(ctx, in)
	if err != nil {
		return err
	}

	data, err := renderResult(res, analyzeMarkdown)
	if err != nil {
		return err
	}
	if err := writeOutput(analyzeOutput, data); err != nil {
		return err
	}

	printSummary(res)
	return nil
}

// splitTitle takes the first line of a text file as the title when no
// title was given.
func splitTitle(content, title string) (string, string) {
	content = strings.TrimSpace(content)
	if title != "" {
		return title, content
	}
	first, rest, found := strings.Cut(content, "\n")
	if !found {
		return "", content
	}
	return strings.TrimSpace(first), strings.TrimSpace(rest)
}

func renderResult(res *pipeline.Result, asMarkdown bool) ([]byte, error) {
	if asMarkdown {
		var b strings.Builder
		b.WriteString(report.Markdown(res.Report))
		if res.TranslatedFinal != "" {
			b.WriteString("\n## Texto final en español\n\n")
			b.WriteString(res.TranslatedFinal)
			b.WriteString("\n")
		}
		return []byte(b.String()), nil
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

func printSummary(res *pipeline.Result) {
	r := res.Report
	fmt.Fprintf(os.Stderr, "\nReport for %s (%s)\n", r.StudentID.Name, res.Language)
	if res.OCREngine != "" {
		fmt.Fprintf(os.Stderr, "OCR engine:   %s\n", res.OCREngine)
	}
	fmt.Fprintf(os.Stderr, "Iterations:   %d\n", r.IterationCount)
	fmt.Fprintf(os.Stderr, "Grammar:      %d\n", r.Scores.Grammar)
	fmt.Fprintf(os.Stderr, "Style:        %d\n", r.Scores.Style)
	fmt.Fprintf(os.Stderr, "Voice:        %d\n", r.Scores.VoicePreservation)
	fmt.Fprintf(os.Stderr, "Feedback:     %d\n", r.Scores.PersonalizedFeedback)
	fmt.Fprintf(os.Stderr, "Overall:      %.2f\n", r.Scores.Overall)
	if r.ID != "" {
		fmt.Fprintf(os.Stderr, "Report ID:    %s\n", r.ID)
	}
}
