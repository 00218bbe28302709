package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bom-analyzer/internal/analysis"
	"github.com/sells-group/bom-analyzer/internal/export"
	"github.com/sells-group/bom-analyzer/internal/model"
)

var (
	strategyReport string
	strategyName   string
	strategyOut    string
	strategyFlags  analysisFlags
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Re-run strategies on a saved JSON report",
	Long: `Reads a JSON report written by "analyze --format json", re-selects every
strategy with the current settings (no supplier calls), and writes one
strategy's per-part CSV, or the comparison table when --name is "all".

Examples:
  bom-analyzer strategy --report report.json --name optimized --cost-weight 0.7 --lead-weight 0.3
  bom-analyzer strategy --report report.json --name all --units 500`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		strategyFlags.apply(cmd.Flags(), &cfg.Analysis)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		saved, err := readReport(strategyReport)
		if err != nil {
			return err
		}

		lines := make([]model.BOMLine, len(saved.Parts))
		lookups := make([][]model.OfferLookup, len(saved.Parts))
		for i, p := range saved.Parts {
			lines[i] = p.Line
			lookups[i] = p.Lookups
		}

		a, err := analysis.New(cfg)
		if err != nil {
			return err
		}
		report := a.Evaluate(lines, lookups)
		zap.L().Info("strategy: re-evaluated report",
			zap.String("source_run_id", saved.RunID),
			zap.String("run_id", report.RunID),
			zap.Int("parts", len(report.Parts)),
		)

		w, closeFn, err := openOutput(cmd.OutOrStdout(), strategyOut)
		if err != nil {
			return err
		}
		if strings.EqualFold(strategyName, "all") {
			err = export.WriteComparison(w, report)
		} else {
			s, perr := parseStrategy(strategyName)
			if perr != nil {
				_ = closeFn()
				return perr
			}
			err = export.WriteStrategyCSV(w, report, s)
		}
		if err != nil {
			_ = closeFn()
			return err
		}
		return closeFn()
	},
}

func readReport(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "strategy: read report")
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "strategy: decode report")
	}
	if len(r.Parts) == 0 {
		return nil, eris.New("strategy: report has no parts")
	}
	return &r, nil
}

var strategyAliases = map[string]model.Strategy{
	"strict":    model.StrategyLowestCostStrict,
	"cost":      model.StrategyLowestCostStrict,
	"in-stock":  model.StrategyLowestCostInStock,
	"instock":   model.StrategyLowestCostInStock,
	"fastest":   model.StrategyFastestLeadTime,
	"optimized": model.StrategyOptimized,
}

// parseStrategy accepts a short alias or a full strategy name.
func parseStrategy(name string) (model.Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if s, ok := strategyAliases[n]; ok {
		return s, nil
	}
	for _, s := range model.Strategies {
		if strings.EqualFold(string(s), n) {
			return s, nil
		}
	}
	return "", eris.Errorf("strategy: unknown strategy %q (strict, in-stock, fastest, optimized, all)", name)
}

func init() {
	strategyCmd.Flags().StringVar(&strategyReport, "report", "", "JSON report from analyze")
	strategyCmd.Flags().StringVar(&strategyName, "name", "strict", "strategy: strict, in-stock, fastest, optimized, or all")
	strategyCmd.Flags().StringVar(&strategyOut, "out", "", "output file (default stdout)")
	strategyFlags.register(strategyCmd.Flags())
	_ = strategyCmd.MarkFlagRequired("report")
	rootCmd.AddCommand(strategyCmd)
}
