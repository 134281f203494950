// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docsmith/pkg/types"
)

// DocxConverter extracts Word documents by walking word/document.xml inside
// the ZIP container. Paragraph styles map to Markdown headings, drawing
// references become image links, and embedded media files are collected as
// binary assets.
type DocxConverter struct{}

// NewDocxConverter creates a Word converter.
func NewDocxConverter() *DocxConverter {
	return &DocxConverter{}
}

// Name implements Converter.
func (c *DocxConverter) Name() string { return "docx" }

// CanHandle implements Converter.
func (c *DocxConverter) CanHandle(path string) bool {
	return hasExt(path, ".docx", ".doc")
}

// Convert implements Converter.
func (c *DocxConverter) Convert(path string) *types.ExtractionResult {
	result := types.NewExtractionResult()

	r, err := zip.OpenReader(path)
	if err != nil {
		result.AddError(fmt.Sprintf("Conversion failed: open archive: %v", err))
		return result
	}
	defer r.Close()

	rels, err := readRelationships(&r.Reader)
	if err != nil {
		result.AddWarning(fmt.Sprintf("Could not read relationships: %v", err))
	}

	media := collectMedia(&r.Reader, result)

	markdown, err := walkDocument(&r.Reader, rels, media)
	if err != nil {
		result.AddError(fmt.Sprintf("Conversion failed: %v", err))
		return result
	}
	result.Markdown = markdown

	readCoreProperties(&r.Reader, result)
	warnIfShort(result)

	return result
}

// readRelationships maps relationship IDs to media targets from
// word/_rels/document.xml.rels.
func readRelationships(r *zip.Reader) (map[string]string, error) {
	f := findFile(r, "word/_rels/document.xml.rels")
	if f == nil {
		return map[string]string{}, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc struct {
		Relationships []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, err
	}

	rels := make(map[string]string, len(doc.Relationships))
	for _, rel := range doc.Relationships {
		rels[rel.ID] = rel.Target
	}
	return rels, nil
}

// collectMedia loads every file under word/media/ into the result's image
// set, keyed by basename.
func collectMedia(r *zip.Reader, result *types.ExtractionResult) map[string]bool {
	seen := make(map[string]bool)
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "word/media/") || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			result.AddWarning(fmt.Sprintf("Could not read embedded media %s: %v", f.Name, err))
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			result.AddWarning(fmt.Sprintf("Could not read embedded media %s: %v", f.Name, err))
			continue
		}
		name := filepath.Base(f.Name)
		result.AddImage(name, data)
		seen[name] = true
	}
	return seen
}

// walkDocument streams word/document.xml and emits Markdown paragraph by
// paragraph.
func walkDocument(r *zip.Reader, rels map[string]string, media map[string]bool) (string, error) {
	f := findFile(r, "word/document.xml")
	if f == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		blocks      []string
		text        strings.Builder
		inParagraph bool
		style       string
		imageCount  int
	)

	flush := func() {
		content := strings.TrimSpace(text.String())
		if content == "" {
			return
		}
		if level := headingLevel(style); level > 0 {
			blocks = append(blocks, strings.Repeat("#", level)+" "+content)
		} else {
			blocks = append(blocks, content)
		}
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				text.Reset()
				style = ""
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case "blip":
				// Inline drawing; resolve the relationship to its media
				// file and reference it by name. The image placement
				// stage rewrites the target later.
				for _, attr := range t.Attr {
					if attr.Name.Local != "embed" {
						continue
					}
					target := filepath.Base(rels[attr.Value])
					if target == "." || !media[target] {
						continue
					}
					imageCount++
					blocks = append(blocks, fmt.Sprintf("![Image %d](%s)", imageCount, target))
				}
			case "br":
				if inParagraph {
					text.WriteByte('\n')
				}
			case "tab":
				if inParagraph {
					text.WriteByte('\t')
				}
			}

		case xml.CharData:
			if inParagraph {
				text.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				flush()
			}
		}
	}

	return strings.Join(blocks, "\n\n") + "\n", nil
}

// headingLevel maps a Word paragraph style to a Markdown heading level,
// or 0 for body text. Style names vary by locale ("Heading1", "Titre1").
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

// readCoreProperties pulls title and author metadata from
// docProps/core.xml when present.
func readCoreProperties(r *zip.Reader, result *types.ExtractionResult) {
	f := findFile(r, "docProps/core.xml")
	if f == nil {
		return
	}
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close()

	var props struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
		Subject string `xml:"subject"`
	}
	if err := xml.NewDecoder(rc).Decode(&props); err != nil {
		return
	}

	if props.Title != "" {
		result.SetMeta("title", props.Title)
	}
	if props.Creator != "" {
		result.SetMeta("author", props.Creator)
	}
	if props.Subject != "" {
		result.SetMeta("subject", props.Subject)
	}
}

func findFile(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
