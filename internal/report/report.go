// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report aggregates per-file conversion outcomes into a run-level
// report with totals, a running average quality score, and JSON and text
// renderings.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileReport records the outcome of converting one source document.
type FileReport struct {
	SourceFile       string   `json:"source_file"`
	OutputFile       string   `json:"output_file,omitempty"`
	Success          bool     `json:"success"`
	Warnings         []string `json:"warnings,omitempty"`
	Errors           []string `json:"errors,omitempty"`
	QualityScore     float64  `json:"quality_score"`
	ConverterUsed    string   `json:"converter_used"`
	ConversionTimeMS float64  `json:"conversion_time_ms"`
}

// ConversionReport is the run-level aggregate. Add may be called from
// parallel workers; totals and the average stay consistent after every add.
type ConversionReport struct {
	mu sync.Mutex

	StartTime           string       `json:"start_time"`
	EndTime             string       `json:"end_time,omitempty"`
	TotalFiles          int          `json:"total_files"`
	Successful          int          `json:"successful"`
	Failed              int          `json:"failed"`
	AverageQualityScore float64      `json:"average_quality_score"`
	Files               []FileReport `json:"files"`

	scoreSum float64
}

// New starts a report stamped with the current time.
func New() *ConversionReport {
	return &ConversionReport{StartTime: time.Now().Format(time.RFC3339)}
}

// Add appends a file report and updates totals. The average quality score
// is maintained as sum/count so it is exact after every addition.
func (r *ConversionReport) Add(fr FileReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Files = append(r.Files, fr)
	r.TotalFiles++
	if fr.Success {
		r.Successful++
	} else {
		r.Failed++
	}
	r.scoreSum += fr.QualityScore
	r.AverageQualityScore = r.scoreSum / float64(r.TotalFiles)
}

// Finalize stamps the end time.
func (r *ConversionReport) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.EndTime = time.Now().Format(time.RFC3339)
}

// HasFailures reports whether any file failed.
func (r *ConversionReport) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed > 0
}

// WriteJSON writes the report to path, creating parent directories.
func (r *ConversionReport) WriteJSON(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// ReadJSON loads a previously written report.
func ReadJSON(path string) (*ConversionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r ConversionReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}

const rule = "================================================================================"

// Text renders a human-readable summary of the report.
func (r *ConversionReport) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.EndTime
	if end == "" {
		end = "In progress"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nCONVERSION REPORT\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Started:  %s\n", r.StartTime)
	fmt.Fprintf(&b, "Finished: %s\n\n", end)
	fmt.Fprintf(&b, "Total files:     %d\n", r.TotalFiles)
	fmt.Fprintf(&b, "Successful:      %d\n", r.Successful)
	fmt.Fprintf(&b, "Failed:          %d\n", r.Failed)
	fmt.Fprintf(&b, "Average quality: %.2f\n\n", r.AverageQualityScore)
	fmt.Fprintf(&b, "%s\nFILE DETAILS\n%s\n", rule, rule)

	for _, f := range r.Files {
		status := "FAILED "
		if f.Success {
			status = "SUCCESS"
		}
		out := f.OutputFile
		if out == "" {
			out = "N/A"
		}
		fmt.Fprintf(&b, "\n%s - %s\n", status, f.SourceFile)
		fmt.Fprintf(&b, "  Output: %s\n", out)
		fmt.Fprintf(&b, "  Quality: %.2f\n", f.QualityScore)
		fmt.Fprintf(&b, "  Converter: %s\n", f.ConverterUsed)
		fmt.Fprintf(&b, "  Time: %.0fms\n", f.ConversionTimeMS)

		if len(f.Warnings) > 0 {
			fmt.Fprintf(&b, "  Warnings (%d):\n", len(f.Warnings))
			for _, w := range f.Warnings {
				fmt.Fprintf(&b, "    - %s\n", w)
			}
		}
		if len(f.Errors) > 0 {
			fmt.Fprintf(&b, "  Errors (%d):\n", len(f.Errors))
			for _, e := range f.Errors {
				fmt.Fprintf(&b, "    - %s\n", e)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}
