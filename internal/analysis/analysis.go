// Package analysis runs the full BOM analysis: fetch and normalize offers
// per line in parallel, optimize and score each line, then select and
// aggregate strategies once every line is complete.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/metrics"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/normalize"
	"github.com/sells-group/bom-analyzer/internal/optimize"
	"github.com/sells-group/bom-analyzer/internal/risk"
	"github.com/sells-group/bom-analyzer/internal/strategy"
	"github.com/sells-group/bom-analyzer/internal/supplier"
	"github.com/sells-group/bom-analyzer/internal/tariff"
)

// Analyzer is configured once per run and safe for concurrent use.
type Analyzer struct {
	cfg     config.AnalysisConfig
	risk    *risk.Scorer
	engine  *strategy.Engine
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New validates the analysis, risk and tariff settings and builds an
// Analyzer. Invalid settings return an error wrapping config.ErrConfigInvalid.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate("analyze"); err != nil {
		return nil, err
	}
	a := &Analyzer{
		cfg:    cfg.Analysis,
		risk:   risk.NewScorer(cfg.Risk),
		engine: strategy.NewEngine(cfg.Analysis, tariff.NewEstimator(cfg.Tariff)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.cfg.Concurrency < 1 {
		a.cfg.Concurrency = 1
	}
	return a, nil
}

// Run fetches offers for every line and analyzes the BOM. A failing line
// degrades to "not found"; only cancellation aborts the run.
func (a *Analyzer) Run(ctx context.Context, lines []model.BOMLine, fetcher supplier.Fetcher) (*model.Report, error) {
	start := time.Now()
	log := zap.L().With(zap.Int("lines", len(lines)), zap.Int("total_units", a.cfg.TotalUnits))
	log.Info("analysis: starting run", zap.Any("sources", fetcher.Sources()))

	lookups := make([][]model.OfferLookup, len(lines))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, line := range lines {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			raws := fetcher.Fetch(gCtx, line)
			ls := make([]model.OfferLookup, 0, len(raws))
			for _, raw := range raws {
				ls = append(ls, normalize.Normalize(raw))
			}
			lookups[i] = ls
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		a.metrics.ObserveAnalysis("cancelled", time.Since(start))
		return nil, eris.Wrap(err, "analysis: run cancelled")
	}

	report := a.Evaluate(lines, lookups)
	a.metrics.ObserveAnalysis("ok", time.Since(start))
	log.Info("analysis: run complete",
		zap.String("run_id", report.RunID),
		zap.Int("resolved", report.KPIs.Resolved),
		zap.Int("not_found", report.KPIs.NotFound),
		zap.Int("high_risk", report.KPIs.HighRisk),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// Evaluate analyzes lines against already-normalized lookups; lookups[i]
// belongs to lines[i]. It performs no I/O, so re-running strategies with new
// settings needs no new supplier calls.
func (a *Analyzer) Evaluate(lines []model.BOMLine, lookups [][]model.OfferLookup) *model.Report {
	parts := make([]model.PartAnalysis, len(lines))
	selections := make([]map[model.Strategy]model.StrategyResult, len(lines))
	for i, line := range lines {
		var ls []model.OfferLookup
		if i < len(lookups) {
			ls = lookups[i]
		}
		parts[i] = a.AnalyzeLine(line, ls)
		selections[i] = parts[i].Selections
		a.metrics.ObserveLine(string(parts[i].Status))
	}

	report := &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: a.now().UTC(),
		TotalUnits:  a.cfg.TotalUnits,
		Parts:       parts,
		Strategies:  strategy.Aggregate(selections),
	}
	report.KPIs = computeKPIs(report)
	return report
}

// AnalyzeLine runs optimizer, risk scorer and strategy selection for one line.
func (a *Analyzer) AnalyzeLine(line model.BOMLine, lookups []model.OfferLookup) model.PartAnalysis {
	required := line.RequiredQty(a.cfg.TotalUnits)
	pa := model.PartAnalysis{
		Line:        line,
		RequiredQty: required,
		Lookups:     lookups,
	}

	offers := model.UsableOffers(lookups)
	stock := 0.0
	for _, o := range offers {
		if o.Stock.Known {
			stock += o.Stock.Value
		}
		if pa.Country == "" {
			pa.Country = o.KnownCountry()
		}
		p, err := optimize.Optimize(required, o.Pricing, o.MinOrderQty, a.cfg.BuyUpThresholdPct)
		if err != nil {
			pa.Notes = append(pa.Notes, fmt.Sprintf("%s: no usable pricing", o.Label()))
			continue
		}
		pa.Candidates = append(pa.Candidates, model.Candidate{Offer: o, Purchase: p})
	}
	pa.StockAvailable = int(stock)

	for _, l := range lookups {
		if !l.Found && l.Reason != "" {
			pa.Notes = append(pa.Notes, fmt.Sprintf("%s: %s", l.Source, l.Reason))
		}
	}

	pa.Status = lineStatus(offers)
	pa.Risk = a.risk.Score(required, lookups)
	pa.Selections = a.engine.Select(strategy.Line{
		RequiredQty: required,
		Candidates:  pa.Candidates,
		Country:     pa.Country,
	})

	if len(offers) > 0 && stock < float64(required) {
		pa.Notes = append(pa.Notes, "Stock Gap")
	}
	if best, ok := pa.Selection(model.StrategyLowestCostStrict); ok && !best.NotFound && best.Purchase.Notes != "" {
		pa.Notes = append(pa.Notes, best.Purchase.Notes)
	}
	return pa
}

func lineStatus(offers []model.SupplierOffer) model.LineStatus {
	if len(offers) == 0 {
		return model.StatusNotFound
	}
	status := model.StatusActive
	for _, o := range offers {
		if o.EndOfLife {
			return model.StatusEOL
		}
		if o.Discontinued {
			status = model.StatusDiscontinued
		}
	}
	return status
}

func computeKPIs(r *model.Report) model.KPIs {
	k := model.KPIs{Parts: len(r.Parts)}
	if strict, ok := r.Aggregate(model.StrategyLowestCostStrict); ok {
		k.Resolved = strict.Resolved
		k.NotFound = strict.NotFound
		k.BestCostTotal = strict.TotalCost
		k.TariffImpact = strict.TotalDuty
		k.BestCostTariffed = strict.TotalCost + strict.TotalDuty
	}
	for _, p := range r.Parts {
		switch p.Risk.Category {
		case model.RiskHigh:
			k.HighRisk++
		case model.RiskModerate:
			k.ModerateRisk++
		default:
			k.LowRisk++
		}
		if p.Status == model.StatusEOL || p.Status == model.StatusDiscontinued {
			k.Lifecycle++
		}
		if p.StockAvailable == 0 {
			k.ZeroStock++
		}
		if p.StockAvailable < p.RequiredQty {
			k.StockGaps++
		}
	}
	return k
}
