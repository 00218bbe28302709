package export

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// Workbook sheet names. Strategy sheets are named after the strategy.
const (
	SheetAnalysis   = "Analysis"
	SheetStrategies = "Strategies"
	SheetKPIs       = "KPIs"
)

// WriteXLSX writes a workbook with the analysis, the strategy comparison,
// one sheet per strategy and the KPIs.
func WriteXLSX(w io.Writer, r *model.Report) error {
	f, err := BuildWorkbook(r)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// BuildWorkbook assembles the report workbook in memory.
func BuildWorkbook(r *model.Report) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if err := addSheet(f, SheetAnalysis, AnalysisColumns, AnalysisRows(r)); err != nil {
		return nil, err
	}

	var comparison [][]string
	for _, a := range r.Strategies {
		comparison = append(comparison, []string{
			string(a.Strategy),
			money(a.TotalCost),
			money(a.TotalDuty),
			itoa(a.MaxLeadTimeDays),
			itoa(a.UnknownLeadTime),
			itoa(a.Resolved),
			itoa(a.NotFound),
		})
	}
	if err := addSheet(f, SheetStrategies,
		[]string{"Strategy", "Total Cost ($)", "Duty ($)", "Max Lead (days)", "Unknown Lead", "Resolved", "Not Found"},
		comparison); err != nil {
		return nil, err
	}

	for _, s := range model.Strategies {
		if err := addSheet(f, sheetName(s), StrategyColumns, StrategyRows(r, s)); err != nil {
			return nil, err
		}
	}

	k := r.KPIs
	kpis := [][]string{
		{"Run ID", r.RunID},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Total Units", itoa(r.TotalUnits)},
		{"Parts", itoa(k.Parts)},
		{"Resolved", itoa(k.Resolved)},
		{"Not Found", itoa(k.NotFound)},
		{"Total BOM Cost ($)", money(k.BestCostTotal)},
		{"Cost with Tariffs ($)", money(k.BestCostTariffed)},
		{"Tariff Impact ($)", money(k.TariffImpact)},
		{"High Risk", itoa(k.HighRisk)},
		{"Moderate Risk", itoa(k.ModerateRisk)},
		{"Low Risk", itoa(k.LowRisk)},
		{"EOL / Discontinued", itoa(k.Lifecycle)},
		{"Zero Stock", itoa(k.ZeroStock)},
		{"Stock Gaps", itoa(k.StockGaps)},
	}
	if err := addSheet(f, SheetKPIs, []string{"Metric", "Value"}, kpis); err != nil {
		return nil, err
	}
	return f, nil
}

func addSheet(f *xlsx.File, name string, header []string, rows [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, row := range rows {
		xr := sheet.AddRow()
		for _, v := range row {
			xr.AddCell().SetString(v)
		}
	}
	return nil
}

// sheetName drops characters Excel rejects and caps the name at 31 runes.
func sheetName(s model.Strategy) string {
	name := strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "").Replace(string(s))
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
