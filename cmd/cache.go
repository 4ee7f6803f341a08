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
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/store"
)

var cacheListTo string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the memory of translated stories",
	Long: `Inspect and clean the translation memory.

Every story a student writes in Spanish is translated to English for the
writing coach, and every edited story is translated back to Spanish for the
student. Both translations are remembered, so a story that is scanned or
pasted again gets exactly the same text back. Near-identical stories, such as
a re-scan with one misread letter, reuse a remembered translation when they
reach translation.fuzzy_threshold.

Invalidate an entry to force a fresh translation the next time the story comes in.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered story translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch cacheListTo {
		case "", internal.LangEnglish, internal.LangSpanish:
		default:
			return fmt.Errorf("--to must be %q or %q, got %q", internal.LangEnglish, internal.LangSpanish, cacheListTo)
		}

		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListMemory(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		entries = filterMemory(entries, cacheListTo)

		if len(entries) == 0 {
			fmt.Println("No stories in translation memory.")
			return nil
		}
		return writeMemoryTable(os.Stdout, entries)
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a story with its machine draft and final translation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		e, err := db.GetMemoryEntry(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load entry: %w", err)
		}
		fmt.Printf("%s, translated with %s, used %d times\n\n", memoryDirection(*e), e.ServiceUsed, e.UsageCount)
		fmt.Printf("Story:\n%s\n\n", e.SourceText)
		if e.Refined() {
			fmt.Printf("Machine draft:\n%s\n\n", e.DraftText)
		}
		fmt.Printf("Translation:\n%s\n", e.FinalText)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Stories remembered: %d\n", stats.TotalEntries)
		fmt.Printf("Served:             %d\n", stats.ActiveEntries)
		fmt.Printf("Invalidated:        %d\n", stats.InvalidEntries)
		fmt.Printf("Polished by refine: %d\n", stats.RefinedEntries)
		fmt.Printf("Total hits:         %d\n", stats.TotalUsage)
		if t := cfg.Translation.FuzzyThreshold; t > 0 {
			fmt.Printf("Near matches:       reused at %.0f%% similarity\n", t*100)
		} else {
			fmt.Println("Near matches:       off")
		}
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>",
	Short: "Retranslate a story the next time it is submitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InvalidateMemory(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to invalidate entry: %w", err)
		}
		fmt.Printf("Invalidated entry: %s\n", args[0])
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Forget one remembered story translation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteMemory(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Printf("Deleted entry: %s\n", args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered story translation",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearMemory(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear translation memory: %w", err)
		}
		fmt.Printf("Forgot %d story translations.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheListCmd.Flags().StringVar(&cacheListTo, "to", "", "only entries translated into this language (en: analysis input, es: student copy)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func filterMemory(entries []store.MemoryEntry, to string) []store.MemoryEntry {
	if to == "" {
		return entries
	}
	var out []store.MemoryEntry
	for _, e := range entries {
		if e.TargetLang == to {
			out = append(out, e)
		}
	}
	return out
}

// memoryDirection names what a remembered translation was used for.
func memoryDirection(e store.MemoryEntry) string {
	switch {
	case e.SourceLang == internal.LangSpanish && e.TargetLang == internal.LangEnglish:
		return "es->en analysis input"
	case e.SourceLang == internal.LangEnglish && e.TargetLang == internal.LangSpanish:
		return "en->es student copy"
	default:
		return e.SourceLang + "->" + e.TargetLang
	}
}

func writeMemoryTable(out io.Writer, entries []store.MemoryEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIRECTION\tHITS\tLAST USED\tPOLISHED\tSTATUS\tSTORY")
	for _, e := range entries {
		status := "served"
		if e.Invalidated {
			status = "invalidated"
		}
		polished := "no"
		if e.Refined() {
			polished = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			e.ID, memoryDirection(e), e.UsageCount, e.LastUsed.Format("2006-01-02 15:04"),
			polished, status, snippet(e.SourceText, 40))
	}
	return w.Flush()
}

// snippet shortens s to at most n runes for table output.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
