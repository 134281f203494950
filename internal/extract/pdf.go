// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/docsmith/pkg/types"
)

// scannedCharsPerPage is the chars-per-page floor below which a PDF with
// image streams is assumed to be a scan.
const scannedCharsPerPage = 50

// PDFConverter extracts PDF text through pdfcpu's content streams, one
// section per page, and pulls embedded images out as assets. There is no
// OCR; scanned documents are detected heuristically and flagged.
type PDFConverter struct {
	textMode types.PDFTextMode
}

// NewPDFConverter creates a PDF converter with the given scanned-document
// heuristic mode.
func NewPDFConverter(mode types.PDFTextMode) *PDFConverter {
	if mode == "" {
		mode = types.PDFTextAuto
	}
	return &PDFConverter{textMode: mode}
}

// Name implements Converter.
func (c *PDFConverter) Name() string { return "pdf" }

// CanHandle implements Converter.
func (c *PDFConverter) CanHandle(path string) bool {
	return hasExt(path, ".pdf")
}

// Convert implements Converter.
func (c *PDFConverter) Convert(path string) *types.ExtractionResult {
	result := types.NewExtractionResult()

	f, err := os.Open(path)
	if err != nil {
		result.AddError(fmt.Sprintf("Conversion failed: %v", err))
		return result
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		result.AddError(fmt.Sprintf("Conversion failed: pdfcpu read: %v", err))
		return result
	}

	var pages []string
	totalChars := 0
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		text := pageText(ctx, pageNr)
		if text == "" {
			continue
		}
		totalChars += len([]rune(text))
		pages = append(pages, text)
	}

	if len(pages) > 0 {
		result.Markdown = strings.Join(pages, "\n\n") + "\n"
	}

	if title := firstLine(result.Markdown); title != "" {
		result.SetMeta("title", title)
	}

	c.checkScanned(ctx, result, totalChars)
	c.extractImages(path, conf, result)
	warnIfShort(result)

	if len(pages) == 0 && len(result.Images) == 0 {
		result.AddError("Conversion failed: no text content found in PDF")
	}

	return result
}

// checkScanned applies the scanned-document heuristic: few characters per
// page combined with image streams means the text layer is missing.
func (c *PDFConverter) checkScanned(ctx *model.Context, result *types.ExtractionResult, totalChars int) {
	if c.textMode == types.PDFTextOff || ctx.PageCount == 0 {
		return
	}
	charsPerPage := float64(totalChars) / float64(ctx.PageCount)
	scanned := charsPerPage < scannedCharsPerPage && hasImageStreams(ctx)
	if scanned || (c.textMode == types.PDFTextOn && charsPerPage < scannedCharsPerPage) {
		result.AddWarning("PDF appears to be scanned; text extraction is incomplete and no OCR was applied")
	}
}

// extractImages dumps embedded images to a scratch directory via pdfcpu and
// loads them into the result. Image extraction failures degrade quality but
// never fail the document.
func (c *PDFConverter) extractImages(path string, conf *model.Configuration, result *types.ExtractionResult) {
	tmp, err := os.MkdirTemp("", "docsmith-pdf-img-")
	if err != nil {
		result.AddWarning(fmt.Sprintf("Could not extract images: %v", err))
		return
	}
	defer os.RemoveAll(tmp)

	if err := api.ExtractImagesFile(path, tmp, nil, conf); err != nil {
		result.AddWarning(fmt.Sprintf("Could not extract images: %v", err))
		return
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		result.AddWarning(fmt.Sprintf("Could not read extracted images: %v", err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tmp, e.Name()))
		if err != nil {
			continue
		}
		result.AddImage(e.Name(), data)
	}
}

// hasImageStreams reports whether any page carries image XObjects.
func hasImageStreams(ctx *model.Context) bool {
	if ctx.Optimize == nil {
		return false
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
			return true
		}
	}
	return false
}

// pageText extracts the text of one page from its content stream.
func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pdfStringRe matches PDF string literals: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromContentStream walks content stream operators and concatenates the
// text-showing operands (Tj, TJ, ') with whitespace inferred from the
// positioning operators (Td, TD, T*).
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return collapseSpaces(sb.String())
}

// decodePDFString resolves the basic PDF literal-string escapes, including
// octal sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for d := 0; d < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; d++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// collapseSpaces squeezes runs of whitespace to single spaces and drops
// non-printable runes.
func collapseSpaces(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

// firstLine returns the first non-empty line, truncated to 200 runes.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > 200 {
			return string(runes[:200])
		}
		return line
	}
	return ""
}
