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
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/pipeline"
	"github.com/valpere/wordweaver/internal/store"
)

var (
	batchInput     string
	batchOutputDir string
	batchResume    string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every story listed in a roster CSV",
	Long: `Analyze a class set of stories. The roster is a CSV file with a header row
and the columns:

  image     path to the photo (relative to the CSV file) (required)
  name      student name
  school    school
  dob       date of birth
  age       student age
  language  en, es or auto (default: en)
  title     story title

Each row's report is written to <output-dir>/<row>.json and a summary of all
rows to <output-dir>/summary.csv. Progress is checkpointed in the database;
an interrupted run continues with --resume <job-id>.`,
	Example: `  wordweaver batch -i roster.csv -o reports/
  wordweaver batch --resume 3f0c2a8e-...`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "Roster CSV file")
	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "reports", "Directory for reports and summary.csv")
	batchCmd.Flags().StringVar(&batchResume, "resume", "", "Resume the batch job with this ID")
}

// rosterRow is one line of the roster CSV.
type rosterRow struct {
	Index    int
	Image    string
	Language string
	Title    string
	Metadata internal.StudentMetadata
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchInput == "" && batchResume == "" {
		return fmt.Errorf("--input or --resume is required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if a.db == nil {
		return fmt.Errorf("batch needs checkpoints: %w", errStoreDisabled)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobID, done, err := openBatchJob(ctx, a.db)
	if err != nil {
		return err
	}

	rows, err := readRoster(batchInput)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pipe, err := a.pipeline()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Batch job %s: %d rows, %d already done\n", jobID, len(rows), countDone(done))

	results := make(map[int]store.BatchItem, len(rows))
	for k, it := range done {
		results[k] = it
	}

	baseDir := filepath.Dir(batchInput)
	for _, row := range rows {
		if it, ok := done[row.Index]; ok && it.Status == store.ItemDone {
			continue
		}
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "Interrupted. Resume with: wordweaver batch --resume %s\n", jobID)
			return ctx.Err()
		}

		fmt.Fprintf(os.Stderr, "[%d/%d] %s ... ", row.Index, len(rows), row.Metadata.Name)
		item := processRow(ctx, pipe, baseDir, row)
		if item.Status == store.ItemDone {
			fmt.Fprintln(os.Stderr, "done")
		} else {
			fmt.Fprintf(os.Stderr, "failed: %s\n", item.Error)
		}

		if err := a.db.SaveBatchItem(ctx, jobID, item); err != nil {
			logger.Warn("failed to save checkpoint", zap.Int("row", row.Index), zap.Error(err))
		}
		results[row.Index] = item
	}

	if err := writeSummary(filepath.Join(batchOutputDir, "summary.csv"), rows, results); err != nil {
		return err
	}
	if err := a.db.CompleteBatchJob(ctx, jobID); err != nil {
		return err
	}

	failed := len(rows) - countDone(results)
	fmt.Fprintf(os.Stderr, "Batch job %s completed: %d done, %d failed\n", jobID, len(rows)-failed, failed)
	return nil
}

// openBatchJob creates a job or, with --resume, loads the finished rows of
// an existing one and takes its input and output paths.
func openBatchJob(ctx context.Context, db *store.Store) (string, map[int]store.BatchItem, error) {
	if batchResume == "" {
		id, err := db.CreateBatchJob(ctx, batchInput, batchOutputDir)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create batch job: %w", err)
		}
		return id, map[int]store.BatchItem{}, nil
	}

	job, err := db.GetBatchJob(ctx, batchResume)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load batch job: %w", err)
	}
	batchInput, batchOutputDir = job.InputFile, job.OutputDir

	done, err := db.ListBatchItems(ctx, job.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load batch items: %w", err)
	}
	return job.ID, done, nil
}

func processRow(ctx context.Context, pipe *pipeline.Pipeline, baseDir string, row rosterRow) store.BatchItem {
	item := store.BatchItem{Row: row.Index, Status: store.ItemFailed}

	path := row.Image
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	res, err := pipe.Process(ctx, pipeline.Input{
		Image:    data,
		Metadata: row.Metadata,
		Title:    row.Title,
		Language: row.Language,
	})
	if err != nil {
		item.Error = err.Error()
		return item
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		item.Error = err.Error()
		return item
	}
	if err := os.WriteFile(filepath.Join(batchOutputDir, fmt.Sprintf("%d.json", row.Index)), out, 0644); err != nil {
		item.Error = err.Error()
		return item
	}

	item.Status = store.ItemDone
	item.ReportID = res.Report.ID
	return item
}

func readRoster(path string) ([]rosterRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["image"]; !ok {
		return nil, fmt.Errorf("roster has no image column")
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []rosterRow
	for idx := 1; ; idx++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster line %d: %w", idx+1, err)
		}

		row := rosterRow{
			Index:    idx,
			Image:    field(rec, "image"),
			Language: field(rec, "language"),
			Title:    field(rec, "title"),
			Metadata: internal.StudentMetadata{
				Name:   field(rec, "name"),
				School: field(rec, "school"),
				DOB:    field(rec, "dob"),
			},
		}
		if row.Image == "" {
			return nil, fmt.Errorf("roster line %d: empty image path", idx+1)
		}
		if age := field(rec, "age"); age != "" {
			if row.Metadata.Age, err = strconv.Atoi(age); err != nil {
				return nil, fmt.Errorf("roster line %d: invalid age %q", idx+1, age)
			}
			if err := internal.CheckAge(row.Metadata.Age); err != nil {
				return nil, fmt.Errorf("roster line %d: %w", idx+1, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeSummary(path string, rows []rosterRow, results map[int]store.BatchItem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"row", "name", "image", "status", "report_id", "error"})
	for _, row := range rows {
		it, ok := results[row.Index]
		if !ok {
			it = store.BatchItem{Status: "pending"}
		}
		w.Write([]string{strconv.Itoa(row.Index), row.Metadata.Name, row.Image, it.Status, it.ReportID, it.Error})
	}
	w.Flush()
	return w.Error()
}

func countDone(items map[int]store.BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Status == store.ItemDone {
			n++
		}
	}
	return n
}
