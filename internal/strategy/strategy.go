// Package strategy selects one offer per BOM line for each purchasing
// strategy and totals the selections across the BOM.
package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/tariff"
)

// Line is the engine input for one BOM line: its requirement and the
// feasible candidates (usable offers with a computed purchase).
type Line struct {
	RequiredQty int
	Candidates  []model.Candidate
	// Country is used for tariffs when the selected offer has none.
	Country string
}

// Engine applies the four strategies. It holds no mutable state.
type Engine struct {
	cfg     config.AnalysisConfig
	tariffs *tariff.Estimator
}

// NewEngine creates an Engine.
func NewEngine(cfg config.AnalysisConfig, tariffs *tariff.Estimator) *Engine {
	return &Engine{cfg: cfg, tariffs: tariffs}
}

// Select returns one result per strategy for a line.
func (e *Engine) Select(line Line) map[model.Strategy]model.StrategyResult {
	ranked := e.rank(line)
	out := make(map[model.Strategy]model.StrategyResult, len(model.Strategies))

	out[model.StrategyLowestCostStrict] = e.pick(line, model.StrategyLowestCostStrict, ranked, byCost,
		"lowest total cost")

	var inStock []scored
	for _, c := range ranked {
		if c.offer.HasStockFor(line.RequiredQty) {
			inStock = append(inStock, c)
		}
	}
	if len(ranked) > 0 && len(inStock) == 0 {
		out[model.StrategyLowestCostInStock] = notFound(model.StrategyLowestCostInStock, "no offer has stock for the full requirement")
	} else {
		out[model.StrategyLowestCostInStock] = e.pick(line, model.StrategyLowestCostInStock, inStock, byCost,
			"lowest total cost with stock")
	}

	out[model.StrategyFastestLeadTime] = e.pick(line, model.StrategyFastestLeadTime, ranked, byLeadTime,
		"shortest effective lead time")

	out[model.StrategyOptimized] = e.optimized(line, ranked)
	return out
}

// Aggregate totals per-line selections for every strategy, in report order.
func Aggregate(lines []map[model.Strategy]model.StrategyResult) []model.StrategyAggregate {
	out := make([]model.StrategyAggregate, 0, len(model.Strategies))
	for _, s := range model.Strategies {
		agg := model.StrategyAggregate{Strategy: s}
		for _, sel := range lines {
			r, ok := sel[s]
			if !ok || r.NotFound {
				agg.NotFound++
				continue
			}
			agg.Resolved++
			agg.TotalCost += r.Purchase.TotalCost
			agg.TotalDuty += r.Tariff.EstimatedDuty
			if !r.EffectiveLeadTimeDays.Known {
				agg.UnknownLeadTime++
				continue
			}
			if lt := r.EffectiveLeadTimeDays.Int(); lt > agg.MaxLeadTimeDays {
				agg.MaxLeadTimeDays = lt
			}
		}
		out = append(out, agg)
	}
	return out
}

type scored struct {
	offer    model.SupplierOffer
	purchase model.OptimizedPurchase
	lead     model.Number
	// index keeps the order total when every visible field ties.
	index int
}

func (e *Engine) rank(line Line) []scored {
	out := make([]scored, len(line.Candidates))
	for i, c := range line.Candidates {
		out[i] = scored{
			offer:    c.Offer,
			purchase: c.Purchase,
			lead:     c.Offer.EffectiveLeadTime(line.RequiredQty),
			index:    i,
		}
	}
	return out
}

type less func(a, b scored) bool

func byCost(a, b scored) bool {
	if c := cmpFloat(a.purchase.TotalCost, b.purchase.TotalCost); c != 0 {
		return c < 0
	}
	if c := cmpLead(a.lead, b.lead); c != 0 {
		return c < 0
	}
	return byIdentity(a, b)
}

func byLeadTime(a, b scored) bool {
	if c := cmpLead(a.lead, b.lead); c != 0 {
		return c < 0
	}
	if c := cmpFloat(a.purchase.TotalCost, b.purchase.TotalCost); c != 0 {
		return c < 0
	}
	return byIdentity(a, b)
}

// byIdentity is the final deterministic tie-break.
func byIdentity(a, b scored) bool {
	less, _ := identityRule(a, b)
	return less
}

// identityRule compares a and b on the identity keys in order and names the
// key that decided.
func identityRule(a, b scored) (bool, string) {
	keys := []struct {
		name string
		a, b string
	}{
		{"supplier name", a.offer.Label(), b.offer.Label()},
		{"source", string(a.offer.Source), string(b.offer.Source)},
		{"supplier part number", a.offer.SourcePartNumber, b.offer.SourcePartNumber},
		{"manufacturer part number", a.offer.ManufacturerPartNumber, b.offer.ManufacturerPartNumber},
	}
	for _, k := range keys {
		if k.a != k.b {
			return k.a < k.b, k.name
		}
	}
	return a.index < b.index, "input position"
}

// cmpLead orders known lead times ascending with unknown last.
func cmpLead(a, b model.Number) int {
	switch {
	case a.Known && b.Known:
		return cmpFloat(a.Value, b.Value)
	case a.Known:
		return -1
	case b.Known:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func best(cands []scored, fn less) (scored, bool) {
	if len(cands) == 0 {
		return scored{}, false
	}
	sorted := append([]scored(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return fn(sorted[i], sorted[j]) })
	return sorted[0], true
}

func (e *Engine) pick(line Line, s model.Strategy, cands []scored, fn less, why string) model.StrategyResult {
	c, ok := best(cands, fn)
	if !ok {
		return notFound(s, "no feasible offer")
	}
	reason := fmt.Sprintf("%s among %d offer(s)", why, len(cands))
	if len(cands) > 1 {
		reason += tieNote(c, cands)
	}
	return e.result(line, s, c, reason)
}

// tieNote explains when the winner tied with a runner-up on the primary key.
func tieNote(winner scored, cands []scored) string {
	for _, c := range cands {
		if c.index == winner.index {
			continue
		}
		if cmpFloat(c.purchase.TotalCost, winner.purchase.TotalCost) == 0 && cmpLead(c.lead, winner.lead) == 0 {
			_, rule := identityRule(winner, c)
			return fmt.Sprintf("; tie with %s broken by %s", c.offer.Label(), rule)
		}
	}
	return ""
}

func (e *Engine) optimized(line Line, cands []scored) model.StrategyResult {
	s := model.StrategyOptimized
	if len(cands) == 0 {
		return notFound(s, "no feasible offer")
	}

	minCost, maxCost := math.Inf(1), math.Inf(-1)
	minLead, maxLead := math.Inf(1), math.Inf(-1)
	for _, c := range cands {
		minCost = math.Min(minCost, c.purchase.TotalCost)
		maxCost = math.Max(maxCost, c.purchase.TotalCost)
		if c.lead.Known {
			minLead = math.Min(minLead, c.lead.Value)
			maxLead = math.Max(maxLead, c.lead.Value)
		}
	}

	type blended struct {
		scored
		score float64
		inCap bool
	}
	all := make([]blended, len(cands))
	for i, c := range cands {
		nc := normalize(c.purchase.TotalCost, minCost, maxCost)
		nl := 1.0
		if c.lead.Known {
			nl = normalize(c.lead.Value, minLead, maxLead)
		}
		score := e.cfg.CostWeight*nc + e.cfg.LeadTimeWeight*nl
		if c.offer.LifecycleRisk() {
			score += e.cfg.LifecyclePenalty
		}
		if !c.offer.HasStockFor(line.RequiredQty) {
			score += e.cfg.StockGapPenalty
		}
		premium := 0.0
		if minCost > 0 {
			premium = (c.purchase.TotalCost - minCost) / minCost
		} else if c.purchase.TotalCost > 0 {
			premium = math.Inf(1)
		}
		inCap := premium <= e.cfg.MaxCostPremiumPct+1e-12 &&
			c.lead.Known && c.lead.Value <= float64(e.cfg.TargetLeadTimeDays)
		all[i] = blended{scored: c, score: score, inCap: inCap}
	}

	better := func(a, b blended) bool {
		if c := cmpFloat(a.score, b.score); c != 0 {
			return c < 0
		}
		return byCost(a.scored, b.scored)
	}

	var chosen blended
	found := false
	for _, b := range all {
		if b.inCap && (!found || better(b, chosen)) {
			chosen, found = b, true
		}
	}
	if found {
		reason := fmt.Sprintf("best blended score %.3f within %.0f%% premium and %d-day target",
			chosen.score, e.cfg.MaxCostPremiumPct*100, e.cfg.TargetLeadTimeDays)
		return e.result(line, s, chosen.scored, reason)
	}

	for _, b := range all {
		if !found || better(b, chosen) {
			chosen, found = b, true
		}
	}
	reason := fmt.Sprintf("no offer within %.0f%% premium and %d-day target; best blended score %.3f overall",
		e.cfg.MaxCostPremiumPct*100, e.cfg.TargetLeadTimeDays, chosen.score)
	return e.result(line, s, chosen.scored, reason)
}

func normalize(v, lo, hi float64) float64 {
	if hi-lo <= 0 {
		return 0
	}
	return (v - lo) / (hi - lo)
}

func (e *Engine) result(line Line, s model.Strategy, c scored, reason string) model.StrategyResult {
	offer := c.offer
	purchase := c.purchase
	country := offer.KnownCountry()
	if country == "" {
		country = strings.TrimSpace(line.Country)
	}
	return model.StrategyResult{
		Strategy:              s,
		Offer:                 &offer,
		Purchase:              &purchase,
		EffectiveLeadTimeDays: c.lead,
		Reason:                reason,
		Tariff:                e.tariffs.Estimate(country, purchase.TotalCost),
	}
}

func notFound(s model.Strategy, reason string) model.StrategyResult {
	return model.StrategyResult{Strategy: s, NotFound: true, EffectiveLeadTimeDays: model.Unknown(), Reason: reason}
}
