// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives documents through extraction and the
// normalization chain, and aggregates per-file outcomes into a run report.
//
// Batch runs execute in two phases. Phase 1 extracts every document and
// commits its output path to the shared registry; phase 2 places images,
// resolves cross-document links, injects front matter, and writes. The
// barrier between the phases guarantees that link resolution never runs
// before the document it points at has been registered, regardless of
// processing order or parallelism.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/docsmith/internal/extract"
	"github.com/pdiddy/docsmith/internal/images"
	"github.com/pdiddy/docsmith/internal/links"
	"github.com/pdiddy/docsmith/internal/normalize"
	"github.com/pdiddy/docsmith/internal/registry"
	"github.com/pdiddy/docsmith/internal/report"
	"github.com/pdiddy/docsmith/internal/sanitize"
	"github.com/pdiddy/docsmith/pkg/types"
)

// document carries one source file between the two phases.
type document struct {
	sourcePath string
	converter  extract.Converter
	result     *types.ExtractionResult
	outputPath string
	elapsed    time.Duration
}

// Batch converts every discovered document under one input root into one
// output tree.
type Batch struct {
	cfg    types.ConvertConfig
	reg    *registry.Registry
	logger *slog.Logger

	// Progress, when set, is called after each document completes phase 2
	// with the number done and the total.
	Progress func(done, total int)

	mu       sync.Mutex
	assigned map[string]bool
}

// NewBatch prepares a batch run. The registry is created fresh per batch;
// concurrent batches never share state.
func NewBatch(cfg types.ConvertConfig, logger *slog.Logger) *Batch {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		cfg:      cfg,
		reg:      registry.New(),
		logger:   logger,
		assigned: make(map[string]bool),
	}
}

// Registry exposes the batch registry, mainly for tests and tooling.
func (b *Batch) Registry() *registry.Registry {
	return b.reg
}

// Run discovers, converts, and writes every supported document, returning
// the run report. Per-document failures are captured in the report; the
// returned error is reserved for batch-fatal conditions (unreadable input,
// unwritable output root).
func (b *Batch) Run(w io.Writer) (*report.ConversionReport, error) {
	rep := report.New()

	docs, err := b.discover()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No convertible files found.")
		rep.Finalize()
		return rep, nil
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Phase 1: extract and register, bounded parallelism. Failures live in
	// each document's result; the group itself never errors.
	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			b.extractAndRegister(doc)
			return nil
		})
	}
	_ = g.Wait()

	// Phase 2: every registration is visible; finish and write. Workers
	// share w and the Progress callback, so both stay behind doneMu.
	var done int
	var doneMu sync.Mutex
	var g2 errgroup.Group
	g2.SetLimit(b.cfg.Workers)
	for _, doc := range docs {
		doc := doc
		g2.Go(func() error {
			fr := b.finishAndWrite(doc)
			rep.Add(fr)

			doneMu.Lock()
			b.logFile(w, fr)
			done++
			if b.Progress != nil {
				b.Progress(done, len(docs))
			}
			doneMu.Unlock()
			return nil
		})
	}
	_ = g2.Wait()

	rep.Finalize()
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		rep.Successful, rep.Failed, rep.TotalFiles)

	if err := rep.WriteJSON(b.reportPath()); err != nil {
		return rep, err
	}
	return rep, nil
}

// discover lists the documents to convert, paired with their converters.
func (b *Batch) discover() ([]*document, error) {
	converters := extract.Converters(b.cfg)

	info, err := os.Stat(b.cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("reading input %s: %w", b.cfg.InputPath, err)
	}

	var docs []*document
	add := func(path string) {
		if c, ok := extract.ForPath(converters, path); ok {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			docs = append(docs, &document{sourcePath: abs, converter: c})
		}
	}

	if !info.IsDir() {
		add(b.cfg.InputPath)
		return docs, nil
	}

	err = filepath.WalkDir(b.cfg.InputPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			add(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning input %s: %w", b.cfg.InputPath, err)
	}
	return docs, nil
}

// extractAndRegister runs phase 1 for one document: extraction, the pure
// normalization passes, output path assignment, and the registry commit.
func (b *Batch) extractAndRegister(doc *document) {
	start := time.Now()
	defer func() { doc.elapsed = time.Since(start) }()

	b.logger.Debug("extracting", "source", doc.sourcePath, "converter", doc.converter.Name())
	doc.result = doc.converter.Convert(doc.sourcePath)
	if !doc.result.Success {
		return
	}

	md, warnings := normalize.Headings(doc.result.Markdown)
	for _, w := range warnings {
		doc.result.AddWarning(w)
	}
	doc.result.Markdown = normalize.Whitespace(md)

	doc.outputPath = b.assignOutputPath(doc.sourcePath)
	b.reg.Register(doc.sourcePath, doc.outputPath)
}

// assignOutputPath proposes a collision-free output path: sanitized stem,
// input-relative directory preserved, unique against both the filesystem
// and paths already assigned in this batch.
func (b *Batch) assignOutputPath(sourcePath string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	name := sanitize.Filename(stem, true) + ".md"

	dir := b.cfg.OutputDir
	if info, err := os.Stat(b.cfg.InputPath); err == nil && info.IsDir() {
		absInput, err := filepath.Abs(b.cfg.InputPath)
		if err == nil {
			if rel, err := filepath.Rel(absInput, filepath.Dir(sourcePath)); err == nil && !strings.HasPrefix(rel, "..") {
				dir = filepath.Join(b.cfg.OutputDir, rel)
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	path := filepath.Join(dir, name)
	if b.cfg.Overwrite {
		b.assigned[path] = true
		return path
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := path
		if n > 1 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, n, ext))
		}
		_, statErr := os.Stat(candidate)
		if os.IsNotExist(statErr) && !b.assigned[candidate] {
			b.assigned[candidate] = true
			return candidate
		}
	}
}

// finishAndWrite runs phase 2 for one document and produces its report.
func (b *Batch) finishAndWrite(doc *document) report.FileReport {
	start := time.Now()
	result := doc.result

	fail := func() report.FileReport {
		doc.elapsed += time.Since(start)
		return report.FileReport{
			SourceFile:       doc.sourcePath,
			Success:          false,
			Warnings:         result.Warnings,
			Errors:           result.Errors,
			QualityScore:     result.QualityScore,
			ConverterUsed:    doc.converter.Name(),
			ConversionTimeMS: float64(doc.elapsed) / float64(time.Millisecond),
		}
	}

	if !result.Success {
		return fail()
	}

	md := result.Markdown

	placer := images.NewPlacer(b.assetsDir(), b.cfg.OutputDir, filepath.Base(doc.sourcePath))
	mapping, err := placer.Place(result.Images, result.ImageOrder, doc.outputPath)
	if err != nil {
		result.AddError(fmt.Sprintf("placing images: %v", err))
		return fail()
	}
	md = images.RewritePaths(md, mapping)

	resolver := links.NewResolver(b.reg, b.cfg.OutputDir, doc.outputPath)
	md = resolver.Rewrite(md)
	for _, w := range resolver.Warnings() {
		result.AddWarning(w)
	}

	if b.cfg.FrontMatter {
		md = b.injectFrontMatter(md, doc)
	}

	written, err := b.write(doc.outputPath, md)
	if err != nil {
		result.AddError(fmt.Sprintf("writing output: %v", err))
		return fail()
	}
	if written != doc.outputPath {
		// A collision appeared between assignment and write; the registry
		// must record what actually landed on disk.
		doc.outputPath = written
		b.reg.Register(doc.sourcePath, written)
	}

	doc.elapsed += time.Since(start)
	b.logger.Debug("converted", "source", doc.sourcePath, "output", doc.outputPath)

	return report.FileReport{
		SourceFile:       doc.sourcePath,
		OutputFile:       doc.outputPath,
		Success:          true,
		Warnings:         result.Warnings,
		Errors:           result.Errors,
		QualityScore:     result.QualityScore,
		ConverterUsed:    doc.converter.Name(),
		ConversionTimeMS: float64(doc.elapsed) / float64(time.Millisecond),
	}
}

// injectFrontMatter prepends the metadata block: extractor title (falling
// back to a title derived from the filename), source identity, timestamp,
// and the remaining extractor metadata in insertion order.
func (b *Batch) injectFrontMatter(md string, doc *document) string {
	stem := strings.TrimSuffix(filepath.Base(doc.outputPath), ".md")
	title := doc.result.Meta("title")
	if title == "" {
		title = normalize.TitleFromStem(stem)
	}

	var extra []types.MetaField
	for _, f := range doc.result.Metadata {
		if f.Key == "title" {
			continue
		}
		extra = append(extra, f)
	}

	return normalize.FrontMatter(md, title, doc.sourcePath,
		time.Now().UTC().Format(time.RFC3339), extra)
}

// write persists content at path, suffixing on collision unless overwrite
// is enabled, and returns the path actually written.
func (b *Batch) write(path, content string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	if !b.cfg.Overwrite {
		if _, err := os.Stat(path); err == nil {
			path = sanitize.UniquePath(filepath.Dir(path), filepath.Base(path))
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (b *Batch) assetsDir() string {
	if b.cfg.AssetsDir != "" {
		return b.cfg.AssetsDir
	}
	return filepath.Join(b.cfg.OutputDir, "assets")
}

func (b *Batch) reportPath() string {
	if b.cfg.ReportPath != "" {
		return b.cfg.ReportPath
	}
	return filepath.Join(b.cfg.OutputDir, "conversion-report.json")
}

func (b *Batch) logFile(w io.Writer, fr report.FileReport) {
	base := filepath.Base(fr.SourceFile)
	if fr.Success {
		fmt.Fprintf(w, "converted: %s -> %s\n", base, fr.OutputFile)
		return
	}
	reason := "extraction failed"
	if len(fr.Errors) > 0 {
		reason = fr.Errors[len(fr.Errors)-1]
	}
	fmt.Fprintf(w, "failed:  %s (%s)\n", base, reason)
}
