// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docsmith/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Display a conversion report",
	Long: `Report reads a conversion-report.json produced by a convert run and
prints a human-readable summary: totals, average quality score, and the
per-file outcomes with their warnings and errors.

With no argument it looks for docs/conversion-report.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	path := filepath.Join("docs", "conversion-report.json")
	if len(args) > 0 {
		path = args[0]
	}

	rep, err := report.ReadJSON(path)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	if failedOnly, _ := cmd.Flags().GetBool("failed"); failedOnly {
		if !rep.HasFailures() {
			fmt.Println("No failures.")
			return nil
		}
		for _, fr := range rep.Files {
			if fr.Success {
				continue
			}
			fmt.Printf("%s (%s)\n", fr.SourceFile, fr.ConverterUsed)
			for _, e := range fr.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}
		return nil
	}

	fmt.Print(rep.Text())
	return nil
}

func init() {
	reportCmd.Flags().Bool("json", false, "print the raw report as JSON")
	reportCmd.Flags().Bool("failed", false, "show only failed files")

	rootCmd.AddCommand(reportCmd)
}
