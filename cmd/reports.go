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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/wordweaver/internal/report"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse stored writing reports",
}

var (
	reportsStudent string
	reportsLimit   int
)

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := db.ListReports(context.Background(), reportsStudent, reportsLimit)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No reports.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTUDENT\tSCHOOL\tOVERALL\tITERATIONS\tCREATED")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
				r.ID, r.StudentName, r.School, r.Overall, r.Iterations,
				r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var reportsShowMarkdown bool

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetReport(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load report: %w", err)
		}

		if reportsShowMarkdown {
			fmt.Print(report.Markdown(r))
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteReport(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete report: %w", err)
		}
		fmt.Printf("Deleted report: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)

	reportsListCmd.Flags().StringVar(&reportsStudent, "student", "", "Only reports for this student name")
	reportsListCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 20, "Maximum number of reports (0 for all)")
	reportsShowCmd.Flags().BoolVar(&reportsShowMarkdown, "markdown", false, "Print as Markdown")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
}
