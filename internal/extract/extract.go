// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns office documents into the common intermediate
// representation the normalization pipeline consumes: raw Markdown,
// extracted image bytes, metadata, and diagnostics. Each format has one
// converter; dispatch is first-match over a static list.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/docsmith/pkg/types"
)

// Converter is the capability interface every format extractor implements.
type Converter interface {
	// CanHandle reports whether this converter accepts the file.
	CanHandle(path string) bool

	// Convert extracts path into the intermediate representation. Failures
	// are reported inside the result, never panicked.
	Convert(path string) *types.ExtractionResult

	// Name identifies the converter in reports.
	Name() string
}

// Converters returns the static converter list in dispatch order.
func Converters(cfg types.ConvertConfig) []Converter {
	return []Converter{
		NewDocxConverter(),
		NewPDFConverter(cfg.PDFText),
		NewXlsxConverter(cfg.ExcelMode),
	}
}

// ForPath returns the first converter that accepts path.
func ForPath(converters []Converter, path string) (Converter, bool) {
	for _, c := range converters {
		if c.CanHandle(path) {
			return c, true
		}
	}
	return nil, false
}

// SupportedExtensions lists every extension a batch run will pick up when
// scanning a directory.
func SupportedExtensions() []string {
	return []string{".docx", ".doc", ".pdf", ".xlsx", ".xls"}
}

// Supported reports whether path has a convertible extension.
func Supported(path string) bool {
	return hasExt(path, SupportedExtensions()...)
}

// shortContentThreshold is the minimum extracted length below which a
// document is flagged as suspiciously empty.
const shortContentThreshold = 100

// warnIfShort appends the near-empty-document warning shared by every
// converter.
func warnIfShort(result *types.ExtractionResult) {
	if len(strings.TrimSpace(result.Markdown)) < shortContentThreshold {
		result.AddWarning("Document appears to be very short or mostly empty")
	}
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
