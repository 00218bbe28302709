// Package bom parses Bill of Materials files into BOM lines.
package bom

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// ErrMissingColumns is returned when the header lacks Part Number or Quantity.
var ErrMissingColumns = eris.New("bom: missing required columns")

// Canonical column names.
const (
	ColPartNumber   = "Part Number"
	ColQuantity     = "Quantity"
	ColManufacturer = "Manufacturer"
	ColDescription  = "Description"
)

// aliases maps a squashed header (lowercase, no spaces, underscores or dots)
// to its canonical column.
var aliases = map[string]string{
	"partnumber": ColPartNumber, "pn": ColPartNumber, "mpn": ColPartNumber,
	"partno": ColPartNumber, "partnum": ColPartNumber,
	"quantity": ColQuantity, "qty": ColQuantity, "q": ColQuantity,
	"amount": ColQuantity, "qtyperunit": ColQuantity,
	"manufacturer": ColManufacturer, "mfg": ColManufacturer, "mfr": ColManufacturer,
	"description": ColDescription, "desc": ColDescription, "partdescription": ColDescription,
}

// Issue is a skipped data row. Row is 1-based and counts the header.
type Issue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result is a parsed BOM.
type Result struct {
	Lines  []model.BOMLine `json:"lines"`
	Issues []Issue         `json:"issues,omitempty"`
}

// Placements is the total component count per built unit.
func (r Result) Placements() int {
	n := 0
	for _, l := range r.Lines {
		n += l.QuantityPerUnit
	}
	return n
}

// ParseFile reads a .csv or .xlsx BOM.
func ParseFile(path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ParseXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "bom: open file")
		}
		defer f.Close()
		return ParseCSV(f)
	}
}

// ParseCSV reads a CSV BOM whose first row is the header.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "bom: read csv")
	}
	return parseRecords(records)
}

// ParseXLSX reads the first sheet of an XLSX BOM.
func ParseXLSX(path string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "bom: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("bom: xlsx has no sheets")
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		records = append(records, cells)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) (*Result, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(ErrMissingColumns, "bom: empty file")
	}

	colIdx := mapHeader(records[0])
	var missing []string
	for _, col := range []string{ColPartNumber, ColQuantity} {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Wrapf(ErrMissingColumns, "bom: header lacks %s", strings.Join(missing, ", "))
	}

	res := &Result{}
	for i, row := range records[1:] {
		rowNum := i + 2
		if blankRow(row) {
			continue
		}
		pn := getCol(row, colIdx, ColPartNumber)
		if pn == "" {
			res.Issues = append(res.Issues, Issue{Row: rowNum, Reason: "blank part number"})
			continue
		}
		qty, ok := parseQuantity(getCol(row, colIdx, ColQuantity))
		if !ok {
			res.Issues = append(res.Issues, Issue{
				Row:    rowNum,
				Reason: fmt.Sprintf("%s: quantity must be positive", pn),
			})
			continue
		}
		res.Lines = append(res.Lines, model.BOMLine{
			PartNumber:      pn,
			QuantityPerUnit: qty,
			Manufacturer:    getCol(row, colIdx, ColManufacturer),
			Description:     getCol(row, colIdx, ColDescription),
		})
	}
	return res, nil
}

// mapHeader resolves header cells to canonical columns. The first column
// matching an alias wins.
func mapHeader(header []string) map[string]int {
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		col, ok := aliases[squash(h)]
		if !ok {
			continue
		}
		if _, dup := colIdx[col]; !dup {
			colIdx[col] = i
		}
	}
	return colIdx
}

func squash(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", ".", "", "-", "").Replace(h)
}

// parseQuantity reads a per-unit quantity. Text that is not a number counts
// as 1; zero and negative quantities are rejected.
func parseQuantity(s string) (int, bool) {
	n := model.ParseNumber(s)
	if !n.Known {
		return 1, true
	}
	q := int(math.Round(n.Value))
	if q <= 0 {
		return 0, false
	}
	return q, true
}

func getCol(row []string, colIdx map[string]int, col string) string {
	idx, ok := colIdx[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Template is the example BOM offered to new users.
func Template() []model.BOMLine {
	return []model.BOMLine{
		{PartNumber: "LM358DR", QuantityPerUnit: 2, Manufacturer: "Texas Instruments", Description: "Op-Amp Dual"},
		{PartNumber: "RMCF0402FT100K", QuantityPerUnit: 10, Manufacturer: "Stackpole", Description: "Resistor 100K 0402"},
		{PartNumber: "GRM188R71C104KA01D", QuantityPerUnit: 4, Manufacturer: "Murata", Description: "Cap 100nF 0402"},
	}
}

// WriteCSV writes lines as a BOM CSV with canonical headers.
func WriteCSV(w io.Writer, lines []model.BOMLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColPartNumber, ColQuantity, ColManufacturer, ColDescription}); err != nil {
		return eris.Wrap(err, "bom: write header")
	}
	for _, l := range lines {
		if err := cw.Write([]string{l.PartNumber, fmt.Sprint(l.QuantityPerUnit), l.Manufacturer, l.Description}); err != nil {
			return eris.Wrap(err, "bom: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "bom: flush csv")
}
