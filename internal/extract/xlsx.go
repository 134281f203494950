// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/docsmith/pkg/types"
)

const (
	maxTableRows = 1000
	maxTableCols = 50
)

// XlsxConverter extracts workbooks from the SpreadsheetML ZIP container:
// sheet inventory from xl/workbook.xml, shared strings, and per-sheet cell
// grids rendered as Markdown tables.
type XlsxConverter struct {
	mode types.ExcelMode
}

// NewXlsxConverter creates a workbook converter in the given sheet mode.
func NewXlsxConverter(mode types.ExcelMode) *XlsxConverter {
	if mode == "" {
		mode = types.ExcelSheetPerPage
	}
	return &XlsxConverter{mode: mode}
}

// Name implements Converter.
func (c *XlsxConverter) Name() string { return "xlsx" }

// CanHandle implements Converter.
func (c *XlsxConverter) CanHandle(path string) bool {
	return hasExt(path, ".xlsx", ".xls")
}

// Convert implements Converter.
func (c *XlsxConverter) Convert(path string) *types.ExtractionResult {
	result := types.NewExtractionResult()

	r, err := zip.OpenReader(path)
	if err != nil {
		result.AddError(fmt.Sprintf("Conversion failed: open archive: %v", err))
		return result
	}
	defer r.Close()

	wb, err := readWorkbook(&r.Reader)
	if err != nil {
		result.AddError(fmt.Sprintf("Conversion failed: %v", err))
		return result
	}
	if len(wb.sheets) == 0 {
		result.AddError("Conversion failed: workbook has no sheets")
		return result
	}

	shared, err := readSharedStrings(&r.Reader)
	if err != nil {
		result.AddWarning(fmt.Sprintf("Could not read shared strings: %v", err))
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch c.mode {
	case types.ExcelSinglePage:
		var parts []string
		parts = append(parts, "# "+stem+"\n")
		for _, sheet := range wb.sheets {
			parts = append(parts, "## "+sheet.name+"\n")
			md, warnings := c.convertSheet(&r.Reader, wb, sheet, shared)
			parts = append(parts, md)
			for _, w := range warnings {
				result.AddWarning(fmt.Sprintf("Sheet '%s': %s", sheet.name, w))
			}
		}
		result.Markdown = strings.Join(parts, "\n")

	default: // sheet-per-page
		sheet := wb.sheets[0]
		md, warnings := c.convertSheet(&r.Reader, wb, sheet, shared)
		result.Markdown = md
		for _, w := range warnings {
			result.AddWarning(w)
		}

		names := make([]string, len(wb.sheets))
		for i, s := range wb.sheets {
			names[i] = s.name
		}
		result.SetMeta("sheets", strings.Join(names, ","))
	}

	warnIfShort(result)
	return result
}

type sheetRef struct {
	name  string
	relID string
}

type workbook struct {
	sheets []sheetRef
	rels   map[string]string
}

// readWorkbook parses the sheet inventory and workbook relationships.
func readWorkbook(r *zip.Reader) (*workbook, error) {
	f := findFile(r, "xl/workbook.xml")
	if f == nil {
		return nil, fmt.Errorf("xl/workbook.xml not found in archive")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc struct {
		Sheets struct {
			Sheet []struct {
				Name string `xml:"name,attr"`
				RID  string `xml:"id,attr"`
			} `xml:"sheet"`
		} `xml:"sheets"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse workbook.xml: %w", err)
	}

	wb := &workbook{rels: make(map[string]string)}
	for _, s := range doc.Sheets.Sheet {
		wb.sheets = append(wb.sheets, sheetRef{name: s.Name, relID: s.RID})
	}

	if rf := findFile(r, "xl/_rels/workbook.xml.rels"); rf != nil {
		rrc, err := rf.Open()
		if err == nil {
			var rels struct {
				Relationships []struct {
					ID     string `xml:"Id,attr"`
					Target string `xml:"Target,attr"`
				} `xml:"Relationship"`
			}
			if xml.NewDecoder(rrc).Decode(&rels) == nil {
				for _, rel := range rels.Relationships {
					wb.rels[rel.ID] = rel.Target
				}
			}
			rrc.Close()
		}
	}

	return wb, nil
}

// readSharedStrings loads xl/sharedStrings.xml, the indirection table cell
// values of type "s" point into.
func readSharedStrings(r *zip.Reader) ([]string, error) {
	f := findFile(r, "xl/sharedStrings.xml")
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc struct {
		SI []struct {
			T string   `xml:"t"`
			R []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse sharedStrings.xml: %w", err)
	}

	out := make([]string, len(doc.SI))
	for i, si := range doc.SI {
		if si.T != "" {
			out[i] = si.T
			continue
		}
		var sb strings.Builder
		for _, run := range si.R {
			sb.WriteString(run.T)
		}
		out[i] = sb.String()
	}
	return out, nil
}

// convertSheet renders one worksheet as a Markdown table, truncating
// oversized grids with a warning.
func (c *XlsxConverter) convertSheet(r *zip.Reader, wb *workbook, sheet sheetRef, shared []string) (string, []string) {
	var warnings []string

	target := wb.rels[sheet.relID]
	if target == "" {
		target = "worksheets/sheet1.xml"
	}
	f := findFile(r, "xl/"+strings.TrimPrefix(target, "/"))
	if f == nil {
		return "_Empty sheet_\n", []string{fmt.Sprintf("worksheet part %s not found", target)}
	}

	rows, err := readSheetRows(f, shared)
	if err != nil {
		return "_Empty sheet_\n", []string{fmt.Sprintf("could not parse worksheet: %v", err)}
	}
	if len(rows) == 0 {
		return "_Empty sheet_\n", warnings
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if len(rows) > maxTableRows || maxCols > maxTableCols {
		warnings = append(warnings, fmt.Sprintf(
			"Sheet is large (%dx%d), truncating to %dx%d",
			len(rows), maxCols, maxTableRows, maxTableCols))
		if len(rows) > maxTableRows {
			rows = rows[:maxTableRows]
		}
		if maxCols > maxTableCols {
			maxCols = maxTableCols
			for i := range rows {
				if len(rows[i]) > maxCols {
					rows[i] = rows[i][:maxCols]
				}
			}
		}
	}

	return renderTable(rows, maxCols), warnings
}

// readSheetRows streams a worksheet XML part into a dense cell grid,
// resolving shared-string references and cell coordinates.
func readSheetRows(f *zip.File, shared []string) ([][]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc struct {
		SheetData struct {
			Row []struct {
				C []struct {
					R string `xml:"r,attr"`
					T string `xml:"t,attr"`
					V string `xml:"v"`
					IS struct {
						T string `xml:"t"`
					} `xml:"is"`
				} `xml:"c"`
			} `xml:"row"`
		} `xml:"sheetData"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range doc.SheetData.Row {
		var cells []string
		for _, cell := range row.C {
			// Pad gaps implied by the cell reference (sparse rows).
			if col := columnIndex(cell.R); col >= 0 {
				for len(cells) < col {
					cells = append(cells, "")
				}
			}

			value := cell.V
			switch cell.T {
			case "s":
				if idx, err := strconv.Atoi(cell.V); err == nil && idx >= 0 && idx < len(shared) {
					value = shared[idx]
				}
			case "inlineStr":
				value = cell.IS.T
			case "b":
				if cell.V == "1" {
					value = "TRUE"
				} else {
					value = "FALSE"
				}
			}
			cells = append(cells, value)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// columnIndex converts the letter prefix of a cell reference ("C7" -> 2)
// to a zero-based column index, or -1 when the reference is absent.
func columnIndex(ref string) int {
	if ref == "" {
		return -1
	}
	col := 0
	seen := false
	for _, r := range ref {
		if r >= 'A' && r <= 'Z' {
			col = col*26 + int(r-'A'+1)
			seen = true
			continue
		}
		break
	}
	if !seen {
		return -1
	}
	return col - 1
}

// renderTable writes rows as a pipe table. The first row is the header;
// cells are padded to a uniform width, pipes escaped, newlines flattened.
func renderTable(rows [][]string, width int) string {
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "|", `\|`)
		return strings.ReplaceAll(s, "\n", " ")
	}

	var b strings.Builder
	for i, row := range rows {
		padded := make([]string, width)
		for j := 0; j < width; j++ {
			if j < len(row) {
				padded[j] = clean(row[j])
			}
		}
		b.WriteString("| " + strings.Join(padded, " | ") + " |\n")
		if i == 0 {
			seps := make([]string, width)
			for j := range seps {
				seps[j] = "---"
			}
			b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		}
	}
	return b.String()
}
