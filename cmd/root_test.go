package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			TotalUnits:         10,
			TargetLeadTimeDays: 56,
			MaxCostPremiumPct:  0.15,
			CostWeight:         0.5,
			LeadTimeWeight:     0.5,
			BuyUpThresholdPct:  0.01,
			LifecyclePenalty:   0.5,
			StockGapPenalty:    0.1,
			Concurrency:        2,
		},
		Risk: config.RiskConfig{
			StockTightRatio:      1.5,
			StockGapRatio:        1.0,
			LeadTimeHighDays:     90,
			LeadTimeModerateDays: 45,
			UnknownCountryScore:  4,
		},
		Tariff:    config.TariffConfig{FallbackRate: 0.035},
		Suppliers: config.SuppliersConfig{TimeoutSecs: 5, MaxRetries: 1},
		Server:    config.ServerConfig{Port: 8080},
	}
}

const fixtureYAML = `parts:
  LM358DR:
    - source: Mouser
      stock: 5000
      lead_time: 6 weeks
      country_of_origin: CN
      pricing:
        - {qty: 1, unit_price: 0.5}
        - {qty: 10, unit_price: 0.4}
    - source: Nexar
      seller: Arrow
      stock: 0
      lead_time_days: 21
      pricing:
        - {qty: 1, unit_price: 0.35}
  NE555P:
    - source: Mouser
      found: false
      reason: no match
`

func writeInputs(t *testing.T) (bomPath, fixturePath string) {
	t.Helper()
	dir := t.TempDir()
	bomPath = filepath.Join(dir, "bom.csv")
	fixturePath = filepath.Join(dir, "offers.yaml")
	require.NoError(t, os.WriteFile(bomPath, []byte("Part Number,Quantity\nLM358DR,2\nNE555P,1\n,3\n"), 0o644))
	require.NoError(t, os.WriteFile(fixturePath, []byte(fixtureYAML), 0o644))
	return bomPath, fixturePath
}

func resetAnalyzeFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		analyzeBOM, analyzeFixture, analyzeOut, analyzeStrategyDir = "", "", "", ""
		analyzeFormat = "table"
		analyzeSummary = false
	})
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"analyze", "strategy", "template", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "bom-analyzer", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"bom", "fixture", "format", "out", "strategy-dir", "summary", "units", "cost-weight", "lead-weight", "buy-up"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "table", analyzeCmd.Flags().Lookup("format").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestAnalyze_FixtureTable(t *testing.T) {
	resetAnalyzeFlags(t)
	cfg = testConfig()
	analyzeBOM, analyzeFixture = writeInputs(t)

	var out bytes.Buffer
	analyzeCmd.SetOut(&out)
	analyzeCmd.SetContext(context.Background())
	require.NoError(t, analyzeCmd.RunE(analyzeCmd, nil))

	s := out.String()
	assert.Contains(t, s, "Parts:")
	assert.Contains(t, s, "LM358DR")
	assert.Contains(t, s, "Arrow")
	assert.Contains(t, s, "Not Found")
	assert.Contains(t, s, "Optimized (Cost+LT)")
}

func TestAnalyze_JSONThenStrategy(t *testing.T) {
	resetAnalyzeFlags(t)
	cfg = testConfig()
	analyzeBOM, analyzeFixture = writeInputs(t)
	dir := t.TempDir()
	analyzeFormat = "json"
	analyzeOut = filepath.Join(dir, "report.json")
	analyzeStrategyDir = filepath.Join(dir, "strategies")

	analyzeCmd.SetContext(context.Background())
	require.NoError(t, analyzeCmd.RunE(analyzeCmd, nil))

	saved, err := readReport(analyzeOut)
	require.NoError(t, err)
	require.Len(t, saved.Parts, 2)
	assert.Equal(t, 20, saved.Parts[0].RequiredQty)

	for _, s := range model.Strategies {
		_, err := os.Stat(filepath.Join(analyzeStrategyDir, strategyFileName(s)))
		assert.NoError(t, err, s)
	}

	cfg = testConfig()
	strategyReport = analyzeOut
	strategyName = "strict"
	strategyOut = ""
	require.NoError(t, strategyCmd.Flags().Set("units", "100"))
	t.Cleanup(func() {
		strategyCmd.Flags().Lookup("units").Changed = false
		strategyName = "strict"
	})

	var out bytes.Buffer
	strategyCmd.SetOut(&out)
	require.NoError(t, strategyCmd.RunE(strategyCmd, nil))
	assert.Contains(t, out.String(), "Part Number,Supplier")
	assert.Contains(t, out.String(), "LM358DR,Arrow,0.3500,70.00,200")

	out.Reset()
	strategyName = "all"
	require.NoError(t, strategyCmd.RunE(strategyCmd, nil))
	assert.Contains(t, out.String(), "Fastest Lead Time")
}

func TestAnalyze_XLSXNeedsOut(t *testing.T) {
	resetAnalyzeFlags(t)
	cfg = testConfig()
	analyzeBOM, analyzeFixture = writeInputs(t)
	analyzeFormat = "xlsx"

	analyzeCmd.SetContext(context.Background())
	err := analyzeCmd.RunE(analyzeCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs --out")
}

func TestAnalyze_LiveNeedsCredentials(t *testing.T) {
	resetAnalyzeFlags(t)
	cfg = testConfig()
	analyzeBOM, _ = writeInputs(t)

	analyzeCmd.SetContext(context.Background())
	err := analyzeCmd.RunE(analyzeCmd, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, config.ErrConfigInvalid))
}

func TestAnalyze_InvalidWeights(t *testing.T) {
	resetAnalyzeFlags(t)
	cfg = testConfig()
	cfg.Analysis.CostWeight = 0.8
	analyzeBOM, analyzeFixture = writeInputs(t)

	analyzeCmd.SetContext(context.Background())
	err := analyzeCmd.RunE(analyzeCmd, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, config.ErrConfigInvalid))
}

func TestTemplateCommand(t *testing.T) {
	cfg = testConfig()
	var out bytes.Buffer
	templateCmd.SetOut(&out)
	require.NoError(t, templateCmd.RunE(templateCmd, nil))
	assert.Contains(t, out.String(), "Part Number,Quantity,Manufacturer,Description")
	assert.Contains(t, out.String(), "GRM188R71C104KA01D,4,Murata,Cap 100nF 0402")
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want model.Strategy
	}{
		{"strict", model.StrategyLowestCostStrict},
		{"In-Stock", model.StrategyLowestCostInStock},
		{"fastest", model.StrategyFastestLeadTime},
		{"Optimized (Cost+LT)", model.StrategyOptimized},
	}
	for _, tt := range tests {
		got, err := parseStrategy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := parseStrategy("cheapest-ever")
	assert.Error(t, err)
}

func TestStrategyFileName(t *testing.T) {
	assert.Equal(t, "Strategy_Optimized_Cost_LT.csv", strategyFileName(model.StrategyOptimized))
	assert.Equal(t, "Strategy_Lowest_Cost_In_Stock.csv", strategyFileName(model.StrategyLowestCostInStock))
}
