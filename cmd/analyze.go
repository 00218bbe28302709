package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/bom-analyzer/internal/analysis"
	"github.com/sells-group/bom-analyzer/internal/bom"
	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/export"
	"github.com/sells-group/bom-analyzer/internal/metrics"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/summary"
	"github.com/sells-group/bom-analyzer/internal/supplier"
)

// analysisFlags are the per-run overrides shared by analyze and strategy.
type analysisFlags struct {
	units       int
	targetLead  int
	maxPremium  float64
	costWeight  float64
	leadWeight  float64
	buyUp       float64
	concurrency int
}

func (f *analysisFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.units, "units", 0, "total units to build (default from config)")
	fs.IntVar(&f.targetLead, "target-lead", 0, "optimized strategy lead-time target in days")
	fs.Float64Var(&f.maxPremium, "max-premium", 0, "optimized strategy cost premium cap (fraction)")
	fs.Float64Var(&f.costWeight, "cost-weight", 0, "optimized strategy cost weight")
	fs.Float64Var(&f.leadWeight, "lead-weight", 0, "optimized strategy lead-time weight")
	fs.Float64Var(&f.buyUp, "buy-up", 0, "price-break buy-up threshold (fraction)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "lines analyzed in parallel")
}

// apply copies flags the user actually set onto a.
func (f *analysisFlags) apply(fs *pflag.FlagSet, a *config.AnalysisConfig) {
	if fs.Changed("units") {
		a.TotalUnits = f.units
	}
	if fs.Changed("target-lead") {
		a.TargetLeadTimeDays = f.targetLead
	}
	if fs.Changed("max-premium") {
		a.MaxCostPremiumPct = f.maxPremium
	}
	if fs.Changed("cost-weight") {
		a.CostWeight = f.costWeight
	}
	if fs.Changed("lead-weight") {
		a.LeadTimeWeight = f.leadWeight
	}
	if fs.Changed("buy-up") {
		a.BuyUpThresholdPct = f.buyUp
	}
	if fs.Changed("concurrency") {
		a.Concurrency = f.concurrency
	}
}

var (
	analyzeBOM         string
	analyzeFixture     string
	analyzeFormat      string
	analyzeOut         string
	analyzeStrategyDir string
	analyzeSummary     bool
	analyzeSummaryOut  string
	analyzeFlags       analysisFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a BOM file",
	Long: `Parses a BOM (CSV or XLSX), looks up supplier offers, and writes the
full analysis: per-part pricing, risk, tariffs, and the four purchasing
strategies.

Examples:
  # Offline, offers recorded in a fixture file
  bom-analyzer analyze --bom bom.csv --fixture offers.yaml --format table

  # Live Mouser/Nexar lookups, workbook output
  bom-analyzer analyze --bom bom.xlsx --units 250 --format xlsx --out report.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		analyzeFlags.apply(cmd.Flags(), &cfg.Analysis)
		mode := "live"
		if analyzeFixture != "" {
			mode = "analyze"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		if analyzeSummary {
			if err := cfg.Validate("summary"); err != nil {
				return err
			}
		}

		parsed, err := bom.ParseFile(analyzeBOM)
		if err != nil {
			return eris.Wrap(err, "analyze: parse bom")
		}
		for _, is := range parsed.Issues {
			zap.L().Warn("analyze: skipped bom row", zap.Int("row", is.Row), zap.String("reason", is.Reason))
		}
		if len(parsed.Lines) == 0 {
			return eris.New("analyze: bom has no usable lines")
		}
		zap.L().Info("analyze: bom loaded",
			zap.Int("parts", len(parsed.Lines)),
			zap.Int("placements", parsed.Placements()),
		)

		m := metrics.New()
		fetcher, err := newFetcher(analyzeFixture, m)
		if err != nil {
			return err
		}

		a, err := analysis.New(cfg, analysis.WithMetrics(m))
		if err != nil {
			return err
		}
		report, err := a.Run(ctx, parsed.Lines, fetcher)
		if err != nil {
			return err
		}

		if err := writeReport(cmd.OutOrStdout(), report, analyzeFormat, analyzeOut); err != nil {
			return err
		}
		if analyzeStrategyDir != "" {
			if err := writeStrategyCSVs(report, analyzeStrategyDir); err != nil {
				return err
			}
		}
		if analyzeSummary {
			text, err := summary.NewFromConfig(cfg.Anthropic).Summarize(ctx, report)
			if err != nil {
				return err
			}
			return writeText(cmd.OutOrStdout(), analyzeSummaryOut, text)
		}
		return nil
	},
}

// newFetcher returns the fixture fetcher when path is set, otherwise live
// supplier lookups.
func newFetcher(fixturePath string, m *metrics.Metrics) (supplier.Fetcher, error) {
	if fixturePath != "" {
		fx, err := supplier.LoadFixture(fixturePath)
		if err != nil {
			return nil, err
		}
		return fx, nil
	}
	live, err := supplier.NewLiveFromConfig(cfg.Suppliers, m)
	if err != nil {
		return nil, err
	}
	return live, nil
}

// writeReport renders the report to path, or to stdout when path is empty.
// XLSX always needs a path.
func writeReport(stdout io.Writer, r *model.Report, format, path string) error {
	if strings.EqualFold(format, export.FormatXLSX) && (path == "" || path == "-") {
		return eris.New("analyze: xlsx output needs --out")
	}
	w, closeFn, err := openOutput(stdout, path)
	if err != nil {
		return err
	}
	if err := export.Write(w, r, format); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func writeStrategyCSVs(r *model.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "analyze: create strategy dir")
	}
	for _, s := range model.Strategies {
		path := filepath.Join(dir, strategyFileName(s))
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "analyze: create %s", path)
		}
		if err := export.WriteStrategyCSV(f, r, s); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "analyze: close %s", path)
		}
	}
	return nil
}

// strategyFileName turns "Optimized (Cost+LT)" into "Strategy_Optimized_Cost_LT.csv".
func strategyFileName(s model.Strategy) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range string(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return "Strategy_" + strings.Trim(b.String(), "_") + ".csv"
}

func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "open output %s", path)
	}
	return f, f.Close, nil
}

func writeText(stdout io.Writer, path, text string) error {
	w, closeFn, err := openOutput(stdout, path)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, text); err != nil {
		_ = closeFn()
		return eris.Wrap(err, "write text")
	}
	return closeFn()
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBOM, "bom", "", "BOM file (.csv or .xlsx)")
	analyzeCmd.Flags().StringVar(&analyzeFixture, "fixture", "", "offline offers file (.yaml or .json) instead of live suppliers")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", export.FormatTable, "output format: json, csv, table, xlsx")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "output file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeStrategyDir, "strategy-dir", "", "also write one CSV per strategy into this directory")
	analyzeCmd.Flags().BoolVar(&analyzeSummary, "summary", false, "generate a narrative summary")
	analyzeCmd.Flags().StringVar(&analyzeSummaryOut, "summary-out", "", "summary output file (default stdout)")
	analyzeFlags.register(analyzeCmd.Flags())
	_ = analyzeCmd.MarkFlagRequired("bom")
	rootCmd.AddCommand(analyzeCmd)
}
