// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/docsmith/pkg/types"
)

// writeZip builds a ZIP file on disk from a name-to-content map plus an
// ordered name list, and returns its path.
func writeZip(t *testing.T, path string, names []string, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestForPath_Dispatch(t *testing.T) {
	convs := Converters(types.ConvertConfig{})

	tests := []struct {
		path     string
		wantName string
		wantHit  bool
	}{
		{"report.docx", "docx", true},
		{"Legacy.DOC", "docx", true},
		{"paper.pdf", "pdf", true},
		{"numbers.xlsx", "xlsx", true},
		{"old.xls", "xlsx", true},
		{"notes.txt", "", false},
	}

	for _, tt := range tests {
		c, ok := ForPath(convs, tt.path)
		if ok != tt.wantHit {
			t.Errorf("ForPath(%q) hit = %v, want %v", tt.path, ok, tt.wantHit)
			continue
		}
		if ok && c.Name() != tt.wantName {
			t.Errorf("ForPath(%q) = %q, want %q", tt.path, c.Name(), tt.wantName)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, path := range []string{"a.docx", "b.PDF", "c.xls"} {
		if !Supported(path) {
			t.Errorf("Supported(%q) = false", path)
		}
	}
	for _, path := range []string{"a.md", "b.txt", "noext"} {
		if Supported(path) {
			t.Errorf("Supported(%q) = true", path)
		}
	}
}

const testDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Project Overview</w:t></w:r></w:p>
    <w:p><w:r><w:t>This paragraph describes the project in enough words to pass the short-document check. It keeps going for a while so the extracted Markdown is comfortably over the threshold.</w:t></w:r></w:p>
    <w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Details</w:t></w:r></w:p>
    <w:p><w:r><w:t>More text here.</w:t></w:r></w:p>
  </w:body>
</w:document>`

const testCoreXML = `<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
    xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Project Plan</dc:title>
  <dc:creator>Jane Doe</dc:creator>
</cp:coreProperties>`

func TestDocxConvert(t *testing.T) {
	path := writeZip(t, filepath.Join(t.TempDir(), "plan.docx"),
		[]string{"word/document.xml", "docProps/core.xml"},
		map[string]string{
			"word/document.xml": testDocumentXML,
			"docProps/core.xml": testCoreXML,
		})

	result := NewDocxConverter().Convert(path)

	if !result.Success {
		t.Fatalf("conversion failed: %v", result.Errors)
	}
	for _, want := range []string{"# Project Overview", "## Details", "More text here."} {
		if !bytes.Contains([]byte(result.Markdown), []byte(want)) {
			t.Errorf("markdown missing %q:\n%s", want, result.Markdown)
		}
	}
	if got := result.Meta("title"); got != "Project Plan" {
		t.Errorf("title = %q", got)
	}
	if got := result.Meta("author"); got != "Jane Doe" {
		t.Errorf("author = %q", got)
	}
	if result.QualityScore != 1.0 {
		t.Errorf("quality = %v, want 1.0 (warnings: %v)", result.QualityScore, result.Warnings)
	}
}

func TestDocxConvert_EmbeddedImage(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
    xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
    xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:body>
    <w:p><w:r><w:drawing><a:blip r:embed="rId5"/></w:drawing></w:r></w:p>
  </w:body>
</w:document>`
	relsXML := `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId5" Target="media/image1.png"/>
</Relationships>`

	path := writeZip(t, filepath.Join(t.TempDir(), "pics.docx"),
		[]string{"word/document.xml", "word/_rels/document.xml.rels", "word/media/image1.png"},
		map[string]string{
			"word/document.xml":            docXML,
			"word/_rels/document.xml.rels": relsXML,
			"word/media/image1.png":        "fake-png-bytes",
		})

	result := NewDocxConverter().Convert(path)

	if !result.Success {
		t.Fatalf("conversion failed: %v", result.Errors)
	}
	if !bytes.Contains([]byte(result.Markdown), []byte("![Image 1](image1.png)")) {
		t.Errorf("markdown missing image reference:\n%s", result.Markdown)
	}
	if data, ok := result.Images["image1.png"]; !ok || string(data) != "fake-png-bytes" {
		t.Errorf("embedded media not collected: %v", result.ImageOrder)
	}
}

func TestDocxConvert_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := NewDocxConverter().Convert(path)
	if result.Success {
		t.Fatal("conversion of a non-archive should fail")
	}
	if len(result.Errors) == 0 {
		t.Error("failed result should carry an error")
	}
	if result.QualityScore >= 1.0 {
		t.Errorf("quality = %v, want degraded", result.QualityScore)
	}
}

const testWorkbookXML = `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
    xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Revenue" sheetId="1" r:id="rId1"/>
    <sheet name="Costs" sheetId="2" r:id="rId2"/>
  </sheets>
</workbook>`

const testWorkbookRels = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
  <Relationship Id="rId2" Target="worksheets/sheet2.xml"/>
</Relationships>`

const testSharedStrings = `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>Quarter</t></si>
  <si><t>Amount</t></si>
  <si><t>Q1</t></si>
</sst>`

const testSheet1 = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
    <row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>1200</v></c></row>
  </sheetData>
</worksheet>`

const testSheet2 = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="inlineStr"><is><t>Item</t></is></c></row>
  </sheetData>
</worksheet>`

func xlsxFixture(t *testing.T, dir string) string {
	t.Helper()
	return writeZip(t, filepath.Join(dir, "Annual Figures.xlsx"),
		[]string{
			"xl/workbook.xml", "xl/_rels/workbook.xml.rels",
			"xl/sharedStrings.xml", "xl/worksheets/sheet1.xml", "xl/worksheets/sheet2.xml",
		},
		map[string]string{
			"xl/workbook.xml":           testWorkbookXML,
			"xl/_rels/workbook.xml.rels": testWorkbookRels,
			"xl/sharedStrings.xml":      testSharedStrings,
			"xl/worksheets/sheet1.xml":  testSheet1,
			"xl/worksheets/sheet2.xml":  testSheet2,
		})
}

func TestXlsxConvert_SheetPerPage(t *testing.T) {
	path := xlsxFixture(t, t.TempDir())
	result := NewXlsxConverter(types.ExcelSheetPerPage).Convert(path)

	if !result.Success {
		t.Fatalf("conversion failed: %v", result.Errors)
	}
	for _, want := range []string{"| Quarter | Amount |", "| --- | --- |", "| Q1 | 1200 |"} {
		if !bytes.Contains([]byte(result.Markdown), []byte(want)) {
			t.Errorf("markdown missing %q:\n%s", want, result.Markdown)
		}
	}
	if got := result.Meta("sheets"); got != "Revenue,Costs" {
		t.Errorf("sheets metadata = %q", got)
	}
}

func TestXlsxConvert_SinglePage(t *testing.T) {
	path := xlsxFixture(t, t.TempDir())
	result := NewXlsxConverter(types.ExcelSinglePage).Convert(path)

	if !result.Success {
		t.Fatalf("conversion failed: %v", result.Errors)
	}
	for _, want := range []string{"# Annual Figures", "## Revenue", "## Costs", "| Item |"} {
		if !bytes.Contains([]byte(result.Markdown), []byte(want)) {
			t.Errorf("markdown missing %q:\n%s", want, result.Markdown)
		}
	}
}

func TestPDFConvert_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("definitely not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := NewPDFConverter(types.PDFTextAuto).Convert(path)
	if result.Success {
		t.Fatal("conversion of garbage should fail")
	}
	if len(result.Errors) == 0 {
		t.Error("failed result should carry an error")
	}
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		ref  string
		want int
	}{
		{"A1", 0},
		{"C7", 2},
		{"Z2", 25},
		{"AA10", 26},
		{"", -1},
		{"7", -1},
	}
	for _, tt := range tests {
		if got := columnIndex(tt.ref); got != tt.want {
			t.Errorf("columnIndex(%q) = %d, want %d", tt.ref, got, tt.want)
		}
	}
}
