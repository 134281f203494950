// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestAdd_Totals(t *testing.T) {
	r := New()
	r.Add(FileReport{SourceFile: "a.docx", Success: true, QualityScore: 1.0})
	r.Add(FileReport{SourceFile: "b.pdf", Success: false, QualityScore: 0.5})

	if r.TotalFiles != 2 || r.Successful != 1 || r.Failed != 1 {
		t.Errorf("totals = %d/%d/%d", r.TotalFiles, r.Successful, r.Failed)
	}
	if !r.HasFailures() {
		t.Error("HasFailures should be true")
	}
}

func TestAdd_RunningAverage(t *testing.T) {
	r := New()

	r.Add(FileReport{Success: true, QualityScore: 1.0})
	r.Add(FileReport{Success: true, QualityScore: 0.5})
	if r.AverageQualityScore != 0.75 {
		t.Errorf("average after two = %v, want 0.75", r.AverageQualityScore)
	}

	r.Add(FileReport{Success: true, QualityScore: 0.2})
	want := (1.0 + 0.5 + 0.2) / 3
	if math.Abs(r.AverageQualityScore-want) > 1e-15 {
		t.Errorf("average after three = %v, want %v", r.AverageQualityScore, want)
	}
}

func TestAdd_AverageEqualsSumOverCountAfterEveryAdd(t *testing.T) {
	scores := []float64{1.0, 0.95, 0.3, 0.0, 0.85, 0.6}
	r := New()
	sum := 0.0
	for i, s := range scores {
		r.Add(FileReport{Success: true, QualityScore: s})
		sum += s
		want := sum / float64(i+1)
		if math.Abs(r.AverageQualityScore-want) > 1e-15 {
			t.Fatalf("after %d adds average = %v, want %v", i+1, r.AverageQualityScore, want)
		}
	}
}

func TestAdd_Parallel(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(FileReport{Success: true, QualityScore: 0.5})
		}()
	}
	wg.Wait()

	if r.TotalFiles != 40 {
		t.Errorf("TotalFiles = %d, want 40", r.TotalFiles)
	}
	if math.Abs(r.AverageQualityScore-0.5) > 1e-15 {
		t.Errorf("average = %v, want 0.5", r.AverageQualityScore)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := New()
	r.Add(FileReport{
		SourceFile:    "a.docx",
		OutputFile:    "a.md",
		Success:       true,
		Warnings:      []string{"Multiple H1 headings found, converted 'B' to H2"},
		QualityScore:  0.95,
		ConverterUsed: "docx",
	})
	r.Finalize()

	path := filepath.Join(t.TempDir(), "sub", "conversion-report.json")
	if err := r.WriteJSON(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TotalFiles != 1 || loaded.Successful != 1 {
		t.Errorf("loaded totals = %d/%d", loaded.TotalFiles, loaded.Successful)
	}
	if loaded.Files[0].SourceFile != "a.docx" {
		t.Errorf("loaded source = %q", loaded.Files[0].SourceFile)
	}
	if loaded.EndTime == "" {
		t.Error("end time should be set")
	}
}

func TestText(t *testing.T) {
	r := New()
	r.Add(FileReport{
		SourceFile:   "broken.pdf",
		Success:      false,
		Errors:       []string{"extraction failed: bad xref"},
		QualityScore: 0.8,
	})
	r.Finalize()

	text := r.Text()
	for _, want := range []string{
		"CONVERSION REPORT",
		"Total files:     1",
		"Failed:          1",
		"FAILED  - broken.pdf",
		"Output: N/A",
		"extraction failed: bad xref",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}
}
