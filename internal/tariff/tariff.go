// Package tariff estimates import duty from country of origin.
package tariff

import (
	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/country"
	"github.com/sells-group/bom-analyzer/internal/model"
)

// Estimator resolves duty rates: override, then default table, then fallback.
type Estimator struct {
	overrides country.Table
	defaults  country.Table
	fallback  float64
}

// NewEstimator creates an Estimator. A nil default table uses the built-in
// rates; an empty non-nil table disables defaults.
func NewEstimator(cfg config.TariffConfig) *Estimator {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = config.DefaultTariffRates()
	}
	return &Estimator{
		overrides: country.NewTable(cfg.Overrides),
		defaults:  country.NewTable(defaults),
		fallback:  cfg.FallbackRate,
	}
}

// Rate returns the duty rate for a country and which table supplied it.
func (e *Estimator) Rate(countryOfOrigin string) (float64, model.TariffSource) {
	if r, ok := e.overrides.Lookup(countryOfOrigin); ok {
		return r, model.TariffOverride
	}
	if r, ok := e.defaults.Lookup(countryOfOrigin); ok {
		return r, model.TariffDefault
	}
	return e.fallback, model.TariffFallback
}

// Estimate computes the duty on totalCost.
func (e *Estimator) Estimate(countryOfOrigin string, totalCost float64) model.TariffEstimate {
	rate, src := e.Rate(countryOfOrigin)
	return model.TariffEstimate{
		Country:       countryOfOrigin,
		Rate:          rate,
		EstimatedDuty: totalCost * rate,
		Source:        src,
	}
}
