package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// WriteTable prints KPIs, the per-part analysis and the strategy comparison.
func WriteTable(out io.Writer, r *model.Report) error {
	WriteKPIs(out, r.KPIs)
	_, _ = fmt.Fprintln(out)
	writeParts(out, r)
	_, _ = fmt.Fprintln(out)
	return WriteComparison(out, r)
}

// WriteKPIs prints the headline numbers.
func WriteKPIs(out io.Writer, k model.KPIs) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Parts:\t%d (%d resolved, %d not found)\n", k.Parts, k.Resolved, k.NotFound)
	_, _ = fmt.Fprintf(w, "Total BOM cost:\t$%s\n", money(k.BestCostTotal))
	_, _ = fmt.Fprintf(w, "Cost with tariffs:\t$%s (+$%s)\n", money(k.BestCostTariffed), money(k.TariffImpact))
	_, _ = fmt.Fprintf(w, "Risk:\t%d high, %d moderate, %d low\n", k.HighRisk, k.ModerateRisk, k.LowRisk)
	_, _ = fmt.Fprintf(w, "EOL / discontinued:\t%d\n", k.Lifecycle)
	_, _ = fmt.Fprintf(w, "Zero stock:\t%d\n", k.ZeroStock)
	_, _ = fmt.Fprintf(w, "Stock gaps:\t%d\n", k.StockGaps)
	_ = w.Flush()
}

func writeParts(out io.Writer, r *model.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PART\tQTY\tSUPPLIER\tUNIT\tTOTAL\tSTOCK\tLEAD\tCOO\tSTATUS\tRISK")
	_, _ = fmt.Fprintln(w, "----\t---\t--------\t----\t-----\t-----\t----\t---\t------\t----")
	for _, row := range AnalysisRows(r) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s %s\n",
			truncate(row[0], 24), row[5], truncate(row[6], 20), row[7], row[8],
			row[12], row[13], row[14], row[15], row[16], row[17])
	}
	_ = w.Flush()
}

// WriteComparison prints one line per strategy.
func WriteComparison(out io.Writer, r *model.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STRATEGY\tTOTAL COST\tDUTY\tMAX LEAD\tRESOLVED\tNOT FOUND")
	_, _ = fmt.Fprintln(w, "--------\t----------\t----\t--------\t--------\t---------")
	for _, a := range r.Strategies {
		lead := fmt.Sprintf("%d days", a.MaxLeadTimeDays)
		if a.UnknownLeadTime > 0 {
			lead += fmt.Sprintf(" (+%d unknown)", a.UnknownLeadTime)
		}
		_, _ = fmt.Fprintf(w, "%s\t$%s\t$%s\t%s\t%d\t%d\n",
			a.Strategy, money(a.TotalCost), money(a.TotalDuty), lead, a.Resolved, a.NotFound)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
