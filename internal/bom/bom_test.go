package bom

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bom-analyzer/internal/model"
)

func TestParseCSV_CanonicalHeaders(t *testing.T) {
	t.Parallel()
	in := "Part Number,Quantity,Manufacturer,Description\n" +
		"LM358DR,2,Texas Instruments,Op-Amp Dual\n" +
		"NE555P,1,,Timer\n"

	res, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, model.BOMLine{
		PartNumber: "LM358DR", QuantityPerUnit: 2,
		Manufacturer: "Texas Instruments", Description: "Op-Amp Dual",
	}, res.Lines[0])
	assert.Equal(t, "Timer", res.Lines[1].Description)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 3, res.Placements())
}

func TestParseCSV_Aliases(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
	}{
		{"mpn qty", "MPN,Qty"},
		{"underscored", "part_number,qty_per_unit"},
		{"dotted", "Part.No,Amount"},
		{"pn q", " PN , Q "},
		{"partnum", "PartNum,QUANTITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseCSV(strings.NewReader(tt.header + "\nABC-1,3\n"))
			require.NoError(t, err)
			require.Len(t, res.Lines, 1)
			assert.Equal(t, "ABC-1", res.Lines[0].PartNumber)
			assert.Equal(t, 3, res.Lines[0].QuantityPerUnit)
		})
	}
}

func TestParseCSV_ManufacturerAliases(t *testing.T) {
	t.Parallel()
	res, err := ParseCSV(strings.NewReader("pn,qty,Mfr,Desc\nX,1,Murata,Cap\n"))
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "Murata", res.Lines[0].Manufacturer)
	assert.Equal(t, "Cap", res.Lines[0].Description)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	t.Parallel()
	_, err := ParseCSV(strings.NewReader("Part Number,Manufacturer\nX,Y\n"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "Quantity")

	_, err = ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingColumns))
}

func TestParseCSV_RowIssues(t *testing.T) {
	t.Parallel()
	in := "Part Number,Quantity\n" +
		"A,abc\n" +
		",4\n" +
		"B,0\n" +
		"C,-2\n" +
		",,\n" +
		"D,2.0\n" +
		"E\n"

	res, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	var pns []string
	for _, l := range res.Lines {
		pns = append(pns, l.PartNumber)
	}
	assert.Equal(t, []string{"A", "D", "E"}, pns)
	assert.Equal(t, 1, res.Lines[0].QuantityPerUnit, "non-numeric quantity defaults to 1")
	assert.Equal(t, 2, res.Lines[1].QuantityPerUnit)
	assert.Equal(t, 1, res.Lines[2].QuantityPerUnit, "missing quantity cell defaults to 1")

	require.Len(t, res.Issues, 3)
	assert.Equal(t, Issue{Row: 3, Reason: "blank part number"}, res.Issues[0])
	assert.Equal(t, 4, res.Issues[1].Row)
	assert.Contains(t, res.Issues[1].Reason, "B")
	assert.Equal(t, 5, res.Issues[2].Row)
}

func TestParseCSV_ByteOrderMark(t *testing.T) {
	t.Parallel()
	res, err := ParseCSV(strings.NewReader("\ufeffPart Number,Quantity\nX,5\n"))
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 5, res.Lines[0].QuantityPerUnit)
}

func TestParseXLSX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bom.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("BOM")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"MPN", "Qty", "Mfg"},
		{"LM358DR", "2", "TI"},
		{"", "", ""},
		{"NE555P", "0", ""},
	} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))

	res, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "LM358DR", res.Lines[0].PartNumber)
	assert.Equal(t, "TI", res.Lines[0].Manufacturer)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, 4, res.Issues[0].Row)
}

func TestParseFile_Missing(t *testing.T) {
	t.Parallel()
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestTemplateRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Template()))
	assert.True(t, strings.HasPrefix(buf.String(), "Part Number,Quantity,Manufacturer,Description\n"))

	res, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, Template(), res.Lines)
}
