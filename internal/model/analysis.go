package model

import "time"

// OptimizedPurchase is the cheapest acceptable way to buy a required quantity
// from one offer. It is derived on demand and never stored on the offer.
type OptimizedPurchase struct {
	RequiredQty int `json:"required_qty"`
	// ChosenTierQty is the number of units actually ordered.
	ChosenTierQty int `json:"chosen_tier_qty"`
	// BreakQty is the price break whose unit price applies.
	BreakQty          int     `json:"break_qty"`
	UnitPrice         float64 `json:"unit_price"`
	TotalCost         float64 `json:"total_cost"`
	EffectiveUnitCost float64 `json:"effective_unit_cost"`
	BoughtUp          bool    `json:"bought_up"`
	Notes             string  `json:"notes,omitempty"`
}

// Risk weights are fixed; every composite is recomputed from sub-scores.
const (
	WeightSourcing   = 0.30
	WeightLifecycle  = 0.30
	WeightStock      = 0.15
	WeightLeadTime   = 0.15
	WeightGeographic = 0.10
)

// Risk category boundaries. HIGH is closed at 6.6, MODERATE closed at 3.6.
const (
	HighRiskThreshold     = 6.6
	ModerateRiskThreshold = 3.6
)

// RiskCategory buckets a composite risk score.
type RiskCategory string

const (
	RiskHigh     RiskCategory = "HIGH"
	RiskModerate RiskCategory = "MODERATE"
	RiskLow      RiskCategory = "LOW"
)

// categoryTolerance absorbs float error in the weighted sum so a composite
// that is exactly on a threshold in decimal stays in the higher band.
const categoryTolerance = 1e-9

// CategoryFor maps a composite score to its category.
func CategoryFor(composite float64) RiskCategory {
	switch {
	case composite >= HighRiskThreshold-categoryTolerance:
		return RiskHigh
	case composite >= ModerateRiskThreshold-categoryTolerance:
		return RiskModerate
	default:
		return RiskLow
	}
}

// RiskSubScores are the five independent 0–10 risk factors.
type RiskSubScores struct {
	Sourcing   float64 `json:"sourcing"`
	Lifecycle  float64 `json:"lifecycle"`
	Stock      float64 `json:"stock"`
	LeadTime   float64 `json:"lead_time"`
	Geographic float64 `json:"geographic"`
}

// Composite returns the fixed weighted sum of the sub-scores.
func (s RiskSubScores) Composite() float64 {
	return WeightSourcing*s.Sourcing +
		WeightLifecycle*s.Lifecycle +
		WeightStock*s.Stock +
		WeightLeadTime*s.LeadTime +
		WeightGeographic*s.Geographic
}

// RiskScore is the per-line risk assessment.
type RiskScore struct {
	RiskSubScores
	Composite float64      `json:"composite"`
	Category  RiskCategory `json:"category"`
}

// NewRiskScore derives composite and category from sub-scores.
func NewRiskScore(sub RiskSubScores) RiskScore {
	c := sub.Composite()
	return RiskScore{RiskSubScores: sub, Composite: c, Category: CategoryFor(c)}
}

// Strategy names a purchasing strategy.
type Strategy string

const (
	StrategyLowestCostStrict  Strategy = "Lowest Cost (Strict)"
	StrategyLowestCostInStock Strategy = "Lowest Cost (In Stock)"
	StrategyFastestLeadTime   Strategy = "Fastest Lead Time"
	StrategyOptimized         Strategy = "Optimized (Cost+LT)"
)

// Strategies lists every strategy in report order.
var Strategies = []Strategy{
	StrategyLowestCostStrict,
	StrategyLowestCostInStock,
	StrategyFastestLeadTime,
	StrategyOptimized,
}

// TariffSource records which table a tariff rate came from.
type TariffSource string

const (
	TariffOverride TariffSource = "override"
	TariffDefault  TariffSource = "default"
	TariffFallback TariffSource = "fallback"
)

// TariffEstimate is the estimated duty on one selection.
type TariffEstimate struct {
	Country       string       `json:"country"`
	Rate          float64      `json:"rate"`
	EstimatedDuty float64      `json:"estimated_duty"`
	Source        TariffSource `json:"source"`
}

// StrategyResult is one strategy's selection for one BOM line.
type StrategyResult struct {
	Strategy Strategy `json:"strategy"`
	NotFound bool     `json:"not_found"`
	// Offer and Purchase are nil when NotFound.
	Offer *SupplierOffer `json:"offer,omitempty"`
	// Purchase is computed for the line's required quantity.
	Purchase *OptimizedPurchase `json:"purchase,omitempty"`
	// EffectiveLeadTimeDays is zero for in-stock selections.
	EffectiveLeadTimeDays Number         `json:"effective_lead_time_days"`
	Reason                string         `json:"reason"`
	Tariff                TariffEstimate `json:"tariff"`
}

// StrategyAggregate totals one strategy across the BOM.
type StrategyAggregate struct {
	Strategy        Strategy `json:"strategy"`
	TotalCost       float64  `json:"total_cost"`
	TotalDuty       float64  `json:"total_duty"`
	MaxLeadTimeDays int      `json:"max_lead_time_days"`
	UnknownLeadTime int      `json:"unknown_lead_time"`
	NotFound        int      `json:"not_found"`
	Resolved        int      `json:"resolved"`
}

// LineStatus is the lifecycle status shown for a BOM line.
type LineStatus string

const (
	StatusActive       LineStatus = "Active"
	StatusEOL          LineStatus = "EOL"
	StatusDiscontinued LineStatus = "Discontinued"
	StatusNotFound     LineStatus = "Not Found"
)

// Candidate is a usable offer paired with its optimized purchase.
type Candidate struct {
	Offer    SupplierOffer     `json:"offer"`
	Purchase OptimizedPurchase `json:"purchase"`
}

// PartAnalysis is everything computed for one BOM line.
type PartAnalysis struct {
	Line           BOMLine                     `json:"line"`
	RequiredQty    int                         `json:"required_qty"`
	Status         LineStatus                  `json:"status"`
	Lookups        []OfferLookup               `json:"lookups"`
	Candidates     []Candidate                 `json:"candidates"`
	StockAvailable int                         `json:"stock_available"`
	Country        string                      `json:"country,omitempty"`
	Risk           RiskScore                   `json:"risk"`
	Selections     map[Strategy]StrategyResult `json:"selections"`
	Notes          []string                    `json:"notes,omitempty"`
}

// Selection returns the line's result for a strategy.
func (p PartAnalysis) Selection(s Strategy) (StrategyResult, bool) {
	r, ok := p.Selections[s]
	return r, ok
}

// KPIs are the headline numbers for a report.
type KPIs struct {
	Parts            int     `json:"parts"`
	Resolved         int     `json:"resolved"`
	NotFound         int     `json:"not_found"`
	BestCostTotal    float64 `json:"best_cost_total"`
	BestCostTariffed float64 `json:"best_cost_with_tariffs"`
	TariffImpact     float64 `json:"tariff_impact"`
	HighRisk         int     `json:"high_risk"`
	ModerateRisk     int     `json:"moderate_risk"`
	LowRisk          int     `json:"low_risk"`
	Lifecycle        int     `json:"eol_or_discontinued"`
	ZeroStock        int     `json:"zero_stock"`
	StockGaps        int     `json:"stock_gaps"`
}

// Report is the complete structured result of one analysis run. Consumers
// (exporters, the narrative summarizer) read it and never recompute scores.
type Report struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	TotalUnits  int                 `json:"total_units"`
	Parts       []PartAnalysis      `json:"parts"`
	Strategies  []StrategyAggregate `json:"strategies"`
	KPIs        KPIs                `json:"kpis"`
}

// Aggregate returns the aggregate for a strategy.
func (r *Report) Aggregate(s Strategy) (StrategyAggregate, bool) {
	for _, a := range r.Strategies {
		if a.Strategy == s {
			return a, true
		}
	}
	return StrategyAggregate{}, false
}
