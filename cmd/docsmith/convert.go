// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docsmith/internal/nav"
	"github.com/pdiddy/docsmith/internal/pipeline"
	"github.com/pdiddy/docsmith/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [input]",
	Short: "Convert a document or directory tree to Markdown",
	Long: `Convert transforms one document, or every supported document under a
directory, into Markdown. Word (.docx, .doc), Excel (.xlsx, .xls), and
PDF inputs are supported.

Output filenames are sanitized and lowercased; colliding names get a
numeric suffix unless --overwrite is set. Embedded images land under the
assets tree in a per-document directory, and links pointing at other
converted documents are rewritten to their Markdown output paths. A JSON
report with per-file quality scores is written next to the output.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := convertSettings(cmd)
	cfg.InputPath = args[0]

	rep, err := pipeline.NewBatch(cfg, newLogger(cmd)).Run(os.Stdout)
	if err != nil {
		return err
	}

	if cfg.MkDocsNav {
		if err := nav.Write(cfg.OutputDir, rep); err != nil {
			return err
		}
	}

	if rep.Failed > 0 {
		return fmt.Errorf("%d file(s) failed conversion", rep.Failed)
	}
	return nil
}

// convertSettings merges flags over config-file values. A flag set on the
// command line wins; otherwise a value from the viper config applies.
func convertSettings(cmd *cobra.Command) types.ConvertConfig {
	str := func(flag, key string) string {
		v, _ := cmd.Flags().GetString(flag)
		if !cmd.Flags().Changed(flag) && viper.IsSet(key) {
			return viper.GetString(key)
		}
		return v
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if !cmd.Flags().Changed("workers") && viper.IsSet("workers") {
		workers = viper.GetInt("workers")
	}
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	frontMatter, _ := cmd.Flags().GetBool("front-matter")
	mkdocsNav, _ := cmd.Flags().GetBool("nav")

	cfg := types.ConvertConfig{
		OutputDir:   str("output", "output_dir"),
		AssetsDir:   str("assets-dir", "assets_dir"),
		Overwrite:   overwrite,
		FrontMatter: frontMatter,
		MkDocsNav:   mkdocsNav,
		ExcelMode:   types.ExcelMode(str("excel-mode", "excel_mode")),
		PDFText:     types.PDFTextMode(str("pdf-text", "pdf_text")),
		ReportPath:  str("report", "report_path"),
		Workers:     workers,
	}
	cfg.Defaults()
	return cfg
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	convertCmd.Flags().String("output", "docs", "output directory for the Markdown tree")
	convertCmd.Flags().String("assets-dir", "", "directory for extracted images (default: <output>/assets)")
	convertCmd.Flags().Bool("overwrite", false, "replace existing output files instead of suffixing")
	convertCmd.Flags().Bool("front-matter", true, "inject YAML front matter into converted files")
	convertCmd.Flags().Bool("nav", false, "write a MkDocs nav snippet for the converted tree")
	convertCmd.Flags().String("excel-mode", "", "workbook handling: sheet-per-page or single-page")
	convertCmd.Flags().String("pdf-text", "", "scanned-PDF heuristic: off, auto, or on")
	convertCmd.Flags().String("report", "", "report path (default: <output>/conversion-report.json)")
	convertCmd.Flags().Int("workers", 4, "parallel extraction workers")

	rootCmd.AddCommand(convertCmd)
}
