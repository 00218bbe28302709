package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrConfigInvalid is wrapped by every validation failure.
var ErrConfigInvalid = eris.New("config: invalid configuration")

// Validate checks the settings needed by a command mode. Modes are
// "analyze" (offline or live analysis), "live" (analysis against supplier
// APIs), "summary" (narrative generation) and "serve" (HTTP API).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze":
	case "live":
		if c.Suppliers.Mouser.Key == "" && (c.Suppliers.Nexar.ClientID == "" || c.Suppliers.Nexar.ClientSecret == "") {
			errs = append(errs, "suppliers.mouser.key or suppliers.nexar.client_id/client_secret is required")
		}
		if c.Suppliers.MaxRetries < 0 {
			errs = append(errs, "suppliers.max_retries must be >= 0")
		}
	case "summary":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Wrapf(ErrConfigInvalid, "unknown mode %q", mode)
	}

	errs = append(errs, c.Analysis.problems()...)
	errs = append(errs, c.Risk.problems()...)
	errs = append(errs, c.Tariff.problems()...)

	if len(errs) > 0 {
		return eris.Wrap(ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks analysis settings on their own, for per-request overrides.
func (a AnalysisConfig) Validate() error {
	if errs := a.problems(); len(errs) > 0 {
		return eris.Wrap(ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return nil
}

func (a AnalysisConfig) problems() []string {
	var errs []string
	if a.TotalUnits <= 0 {
		errs = append(errs, fmt.Sprintf("analysis.total_units must be > 0, got %d", a.TotalUnits))
	}
	if a.TargetLeadTimeDays < 0 {
		errs = append(errs, "analysis.target_lead_time_days must be >= 0")
	}
	nonNeg := []struct {
		name string
		v    float64
	}{
		{"max_cost_premium_pct", a.MaxCostPremiumPct},
		{"cost_weight", a.CostWeight},
		{"lead_time_weight", a.LeadTimeWeight},
		{"buy_up_threshold_pct", a.BuyUpThresholdPct},
		{"lifecycle_penalty", a.LifecyclePenalty},
		{"stock_gap_penalty", a.StockGapPenalty},
	}
	for _, f := range nonNeg {
		if f.v < 0 {
			errs = append(errs, fmt.Sprintf("analysis.%s must be >= 0", f.name))
		}
	}
	if math.Abs(a.CostWeight+a.LeadTimeWeight-1) > 1e-6 {
		errs = append(errs, fmt.Sprintf("analysis.cost_weight + lead_time_weight must sum to 1.0, got %.3f", a.CostWeight+a.LeadTimeWeight))
	}
	if a.Concurrency < 1 || a.Concurrency > 64 {
		errs = append(errs, "analysis.concurrency must be between 1 and 64")
	}
	return errs
}

func (r RiskConfig) problems() []string {
	var errs []string
	if r.StockGapRatio < 0 || r.StockGapRatio > r.StockTightRatio {
		errs = append(errs, "risk.stock_gap_ratio must be between 0 and stock_tight_ratio")
	}
	if r.LeadTimeModerateDays < 0 || r.LeadTimeModerateDays > r.LeadTimeHighDays {
		errs = append(errs, "risk.lead_time_moderate_days must be between 0 and lead_time_high_days")
	}
	if r.UnknownCountryScore < 0 || r.UnknownCountryScore > 10 {
		errs = append(errs, "risk.unknown_country_score must be between 0 and 10")
	}
	for _, country := range sortedKeys(r.GeoScores) {
		if s := r.GeoScores[country]; s < 0 || s > 10 {
			errs = append(errs, fmt.Sprintf("risk.geo_scores[%s] must be between 0 and 10", country))
		}
	}
	return errs
}

func (t TariffConfig) problems() []string {
	var errs []string
	if t.FallbackRate < 0 {
		errs = append(errs, "tariff.fallback_rate must be >= 0")
	}
	for _, country := range sortedKeys(t.Overrides) {
		if t.Overrides[country] < 0 {
			errs = append(errs, fmt.Sprintf("tariff.overrides[%s] must be >= 0", country))
		}
	}
	for _, country := range sortedKeys(t.Defaults) {
		if t.Defaults[country] < 0 {
			errs = append(errs, fmt.Sprintf("tariff.defaults[%s] must be >= 0", country))
		}
	}
	return errs
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
