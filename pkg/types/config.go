// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ExcelMode selects how workbook sheets map to Markdown output.
type ExcelMode string

const (
	// ExcelSheetPerPage converts the first sheet and records the remaining
	// sheet names in metadata for the caller to expand.
	ExcelSheetPerPage ExcelMode = "sheet-per-page"
	// ExcelSinglePage combines every sheet into one Markdown file with a
	// second-level heading per sheet.
	ExcelSinglePage ExcelMode = "single-page"
)

// PDFTextMode controls the scanned-document heuristic for PDF extraction.
type PDFTextMode string

const (
	PDFTextOff  PDFTextMode = "off"
	PDFTextAuto PDFTextMode = "auto"
	PDFTextOn   PDFTextMode = "on"
)

// ConvertConfig holds settings for one conversion run. A run is scoped to a
// single input file or directory tree and a single output root.
type ConvertConfig struct {
	// InputPath is the file or directory to convert.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputDir is the root of the generated Markdown tree (default "docs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// AssetsDir is the root for extracted images. Empty means
	// OutputDir/assets.
	AssetsDir string `json:"assets_dir,omitempty" yaml:"assets_dir,omitempty"`

	// Overwrite replaces existing output files instead of suffixing.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// FrontMatter controls YAML front matter injection (default true).
	FrontMatter bool `json:"front_matter" yaml:"front_matter"`

	// MkDocsNav writes a mkdocs-nav-snippet.yml next to the report.
	MkDocsNav bool `json:"mkdocs_nav" yaml:"mkdocs_nav"`

	// ExcelMode selects sheet-per-page or single-page workbook handling.
	ExcelMode ExcelMode `json:"excel_mode" yaml:"excel_mode"`

	// PDFText controls the scanned-PDF quality heuristic: off, auto, or on.
	PDFText PDFTextMode `json:"pdf_text" yaml:"pdf_text"`

	// ReportPath overrides the report location. Empty means
	// OutputDir/conversion-report.json.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`

	// Workers bounds parallel extraction during phase 1 (default 4).
	// Phase 2 link resolution and writing runs only after every extraction
	// has registered its output path, so cross-document links resolve
	// regardless of processing order.
	Workers int `json:"workers" yaml:"workers"`
}

// Defaults fills zero-valued fields with their documented defaults.
func (c *ConvertConfig) Defaults() {
	if c.OutputDir == "" {
		c.OutputDir = "docs"
	}
	if c.ExcelMode == "" {
		c.ExcelMode = ExcelSheetPerPage
	}
	if c.PDFText == "" {
		c.PDFText = PDFTextAuto
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// WebConfig holds settings for the job-queue HTTP server.
type WebConfig struct {
	// Addr is the listen address (default "127.0.0.1:8000").
	Addr string `json:"addr" yaml:"addr"`

	// DataDir holds per-job temp trees and the job database
	// (default "docsmith-jobs").
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxUploadBytes caps one uploaded file (default 50 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// Retention is how long completed job trees are kept before garbage
	// collection (default 1h).
	Retention time.Duration `json:"retention" yaml:"retention"`

	// RequireAuth enables bearer-token checks against tokens loaded from
	// SecretsDir.
	RequireAuth bool `json:"require_auth" yaml:"require_auth"`

	// SecretsDir holds the api-token files (default "secrets").
	SecretsDir string `json:"secrets_dir,omitempty" yaml:"secrets_dir,omitempty"`
}

// Defaults fills zero-valued fields with their documented defaults.
func (c *WebConfig) Defaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8000"
	}
	if c.DataDir == "" {
		c.DataDir = "docsmith-jobs"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 50 * 1024 * 1024
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	if c.SecretsDir == "" {
		c.SecretsDir = "secrets"
	}
}
