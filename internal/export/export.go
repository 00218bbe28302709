// Package export renders analysis reports as CSV, XLSX, JSON and console
// tables. Exporters only read the report; they never recompute scores.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// ErrUnknownFormat is returned by Write for an unsupported format.
var ErrUnknownFormat = eris.New("export: unknown format")

// Formats accepted by Write.
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatTable = "table"
	FormatXLSX  = "xlsx"
)

// Write renders the report in the named format.
func Write(w io.Writer, r *model.Report, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteAnalysisCSV(w, r)
	case FormatTable:
		return WriteTable(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	default:
		return eris.Wrapf(ErrUnknownFormat, "export: %q", format)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(r), "export: encode json")
}

// AnalysisColumns are the full analysis export headers.
var AnalysisColumns = []string{
	"Part Number",
	"Manufacturer",
	"MfgPN",
	"Description",
	"BOM Qty",
	"Total Qty Needed",
	"Best Supplier",
	"Unit Cost ($)",
	"Total Cost ($)",
	"Total w/Tariff ($)",
	"Tariff Rate",
	"Actual Buy Qty",
	"Stock Available",
	"Lead Time (days)",
	"COO",
	"Status",
	"Risk Score",
	"Risk Category",
	"Sourcing Risk",
	"Stock Risk",
	"LeadTime Risk",
	"Lifecycle Risk",
	"Geographic Risk",
	"Datasheet",
	"Notes",
}

// StrategyColumns are the per-strategy export headers.
var StrategyColumns = []string{
	"Part Number",
	"Supplier",
	"Unit Cost ($)",
	"Total Cost ($)",
	"Qty Order",
	"Stock",
	"Lead (days)",
	"Tariff ($)",
	"Reason",
	"Notes",
}

// WriteAnalysisCSV writes one row per BOM line, priced on the strict
// lowest-cost selection.
func WriteAnalysisCSV(w io.Writer, r *model.Report) error {
	return writeCSV(w, AnalysisColumns, AnalysisRows(r))
}

// WriteStrategyCSV writes one strategy's per-line selections.
func WriteStrategyCSV(w io.Writer, r *model.Report, s model.Strategy) error {
	return writeCSV(w, StrategyColumns, StrategyRows(r, s))
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// AnalysisRows builds the analysis export rows.
func AnalysisRows(r *model.Report) [][]string {
	rows := make([][]string, 0, len(r.Parts))
	for _, p := range r.Parts {
		best, _ := p.Selection(model.StrategyLowestCostStrict)
		supplier, mpn, datasheet := "N/A", "", ""
		unit, total, tariffed, buyQty, lead := "N/A", "N/A", "N/A", "", "N/A"
		mfg := p.Line.Manufacturer
		if !best.NotFound && best.Offer != nil && best.Purchase != nil {
			supplier = best.Offer.Label()
			mpn = best.Offer.ManufacturerPartNumber
			datasheet = best.Offer.DatasheetURL
			if mfg == "" {
				mfg = best.Offer.Manufacturer
			}
			unit = money4(best.Purchase.EffectiveUnitCost)
			total = money(best.Purchase.TotalCost)
			tariffed = money(best.Purchase.TotalCost + best.Tariff.EstimatedDuty)
			buyQty = strconv.Itoa(best.Purchase.ChosenTierQty)
			lead = days(best.EffectiveLeadTimeDays)
		}
		rows = append(rows, []string{
			p.Line.PartNumber,
			mfg,
			mpn,
			p.Line.Description,
			strconv.Itoa(p.Line.QuantityPerUnit),
			strconv.Itoa(p.RequiredQty),
			supplier,
			unit,
			total,
			tariffed,
			pct(best.Tariff.Rate),
			buyQty,
			strconv.Itoa(p.StockAvailable),
			lead,
			orNA(p.Country),
			string(p.Status),
			score(p.Risk.Composite),
			string(p.Risk.Category),
			score(p.Risk.Sourcing),
			score(p.Risk.Stock),
			score(p.Risk.LeadTime),
			score(p.Risk.Lifecycle),
			score(p.Risk.Geographic),
			datasheet,
			strings.Join(p.Notes, "; "),
		})
	}
	return rows
}

// StrategyRows builds the per-strategy export rows.
func StrategyRows(r *model.Report, s model.Strategy) [][]string {
	rows := make([][]string, 0, len(r.Parts))
	for _, p := range r.Parts {
		sel, ok := p.Selection(s)
		if !ok || sel.NotFound || sel.Offer == nil || sel.Purchase == nil {
			reason := sel.Reason
			if reason == "" {
				reason = "no usable offer"
			}
			rows = append(rows, []string{p.Line.PartNumber, "Not Found", "N/A", "N/A", "", "", "N/A", "", reason, ""})
			continue
		}
		rows = append(rows, []string{
			p.Line.PartNumber,
			sel.Offer.Label(),
			money4(sel.Purchase.UnitPrice),
			money(sel.Purchase.TotalCost),
			strconv.Itoa(sel.Purchase.ChosenTierQty),
			count(sel.Offer.Stock),
			days(sel.EffectiveLeadTimeDays),
			money(sel.Tariff.EstimatedDuty),
			sel.Reason,
			sel.Purchase.Notes,
		})
	}
	return rows
}

func money(v float64) string  { return fmt.Sprintf("%.2f", v) }
func money4(v float64) string { return fmt.Sprintf("%.4f", v) }
func score(v float64) string  { return fmt.Sprintf("%.1f", v) }
func pct(v float64) string    { return fmt.Sprintf("%.1f%%", v*100) }

func days(n model.Number) string {
	if !n.Known {
		return "N/A"
	}
	if n.Value == 0 {
		return "In Stock"
	}
	return strconv.Itoa(n.Int())
}

func count(n model.Number) string {
	if !n.Known {
		return "unknown"
	}
	return strconv.Itoa(n.Int())
}

func itoa(n int) string { return strconv.Itoa(n) }

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
