// Package risk scores the supply risk of a BOM line from its offer set.
package risk

import (
	"math"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/country"
	"github.com/sells-group/bom-analyzer/internal/model"
)

// Scorer computes RiskScores. It is immutable and safe for concurrent use.
type Scorer struct {
	cfg config.RiskConfig
	geo country.Table
}

// NewScorer creates a Scorer. Configured geo scores are merged over the
// built-in table.
func NewScorer(cfg config.RiskConfig) *Scorer {
	geo := config.DefaultGeoScores()
	for c, v := range cfg.GeoScores {
		if k := country.Normalize(c); k != "" {
			geo[k] = v
		}
	}
	return &Scorer{cfg: cfg, geo: country.NewTable(geo)}
}

// Score assesses one line. lookups includes "not found" placeholders.
func (s *Scorer) Score(requiredQty int, lookups []model.OfferLookup) model.RiskScore {
	offers := model.UsableOffers(lookups)
	return model.NewRiskScore(model.RiskSubScores{
		Sourcing:   sourcing(lookups),
		Lifecycle:  lifecycle(offers),
		Stock:      s.stock(requiredQty, offers),
		LeadTime:   s.leadTime(requiredQty, offers),
		Geographic: s.geographic(offers),
	})
}

// GeoScore returns the geographic score for one country.
func (s *Scorer) GeoScore(c string) float64 {
	if v, ok := s.geo.Lookup(c); ok {
		return v
	}
	return s.cfg.UnknownCountryScore
}

func sourcing(lookups []model.OfferLookup) float64 {
	sources := make(map[model.Source]struct{})
	for _, l := range lookups {
		if l.Found {
			sources[l.Source] = struct{}{}
		}
	}
	switch len(sources) {
	case 0:
		return 10
	case 1:
		return 7
	case 2:
		return 4
	default:
		return 0
	}
}

func lifecycle(offers []model.SupplierOffer) float64 {
	for _, o := range offers {
		if o.LifecycleRisk() {
			return 10
		}
	}
	return 0
}

// stock compares known stock summed across offers with the requirement. No
// known stock at all counts as zero stock.
func (s *Scorer) stock(requiredQty int, offers []model.SupplierOffer) float64 {
	total := 0.0
	for _, o := range offers {
		if o.Stock.Known {
			total += o.Stock.Value
		}
	}
	req := float64(requiredQty)
	switch {
	case total < s.cfg.StockGapRatio*req:
		return 8
	case total < s.cfg.StockTightRatio*req:
		return 4
	default:
		return 0
	}
}

// leadTime bands the best effective lead time. An offer that can ship the
// requirement from stock has an effective lead time of zero.
func (s *Scorer) leadTime(requiredQty int, offers []model.SupplierOffer) float64 {
	best := math.Inf(1)
	for _, o := range offers {
		lt := o.EffectiveLeadTime(requiredQty)
		if lt.Known && lt.Value < best {
			best = lt.Value
		}
	}
	switch {
	case math.IsInf(best, 1), best == 0:
		return 0
	case best > float64(s.cfg.LeadTimeHighDays):
		return 7
	case best > float64(s.cfg.LeadTimeModerateDays):
		return 4
	default:
		return 1
	}
}

func (s *Scorer) geographic(offers []model.SupplierOffer) float64 {
	if len(offers) == 0 {
		return s.cfg.UnknownCountryScore
	}
	worst := -1.0
	for _, o := range offers {
		if g := s.GeoScore(o.KnownCountry()); g > worst {
			worst = g
		}
	}
	return worst
}
