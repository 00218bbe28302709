package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/model"
)

func defaultRisk() config.RiskConfig {
	return config.RiskConfig{
		StockTightRatio:      1.5,
		StockGapRatio:        1.0,
		LeadTimeHighDays:     90,
		LeadTimeModerateDays: 45,
		UnknownCountryScore:  4,
		GeoScores:            config.DefaultGeoScores(),
	}
}

func offer(src model.Source, stock, lead model.Number, country string) model.OfferLookup {
	return model.FoundOffer(model.SupplierOffer{Source: src, Stock: stock, LeadTimeDays: lead, CountryOfOrigin: country})
}

func TestScore_ZeroOffers(t *testing.T) {
	s := NewScorer(defaultRisk())
	rs := s.Score(100, []model.OfferLookup{
		model.NotFound(model.SourceMouser, "no match"),
		model.NotFound(model.SourceNexar, "timeout"),
	})

	assert.InDelta(t, 10.0, rs.Sourcing, 1e-12)
	assert.InDelta(t, 0.0, rs.Lifecycle, 1e-12)
	assert.InDelta(t, 8.0, rs.Stock, 1e-12)
	assert.InDelta(t, 0.0, rs.LeadTime, 1e-12)
	assert.InDelta(t, 4.0, rs.Geographic, 1e-12)
	assert.GreaterOrEqual(t, rs.Composite, 3.0)
	assert.Equal(t, model.RiskModerate, rs.Category)
	assert.InDelta(t, rs.RiskSubScores.Composite(), rs.Composite, 1e-9)
}

func TestScore_NilLookups(t *testing.T) {
	rs := NewScorer(defaultRisk()).Score(10, nil)
	assert.InDelta(t, 10.0, rs.Sourcing, 1e-12)
	assert.NotEqual(t, model.RiskLow, rs.Category)
}

func TestSourcingBands(t *testing.T) {
	s := NewScorer(defaultRisk())
	one := []model.OfferLookup{offer(model.SourceMouser, model.Known(1000), model.Unknown(), "USA")}
	two := append(one, offer(model.SourceNexar, model.Known(0), model.Unknown(), "USA"))
	// Two offers from the same source still count once.
	dup := append(one, offer(model.SourceMouser, model.Known(5), model.Unknown(), "USA"))
	three := append(two, offer(model.SourceFixture, model.Known(0), model.Unknown(), "USA"))

	assert.InDelta(t, 7.0, s.Score(10, one).Sourcing, 1e-12)
	assert.InDelta(t, 4.0, s.Score(10, two).Sourcing, 1e-12)
	assert.InDelta(t, 7.0, s.Score(10, dup).Sourcing, 1e-12)
	assert.InDelta(t, 0.0, s.Score(10, three).Sourcing, 1e-12)
}

func TestStockBands(t *testing.T) {
	s := NewScorer(defaultRisk())
	tests := []struct {
		name  string
		stock model.Number
		want  float64
	}{
		{"gap", model.Known(50), 8},
		{"unknown", model.Unknown(), 8},
		{"tight", model.Known(120), 4},
		{"exactly required", model.Known(100), 4},
		{"sufficient", model.Known(150), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := s.Score(100, []model.OfferLookup{offer(model.SourceMouser, tt.stock, model.Unknown(), "USA")})
			assert.InDelta(t, tt.want, rs.Stock, 1e-12)
		})
	}
}

func TestLeadTimeBands(t *testing.T) {
	s := NewScorer(defaultRisk())
	tests := []struct {
		name string
		lead model.Number
		want float64
	}{
		{"long", model.Known(120), 7},
		{"moderate", model.Known(60), 4},
		{"boundary 90", model.Known(90), 4},
		{"short", model.Known(30), 1},
		{"boundary 45", model.Known(45), 1},
		{"unknown", model.Unknown(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := s.Score(100, []model.OfferLookup{offer(model.SourceMouser, model.Known(0), tt.lead, "USA")})
			assert.InDelta(t, tt.want, rs.LeadTime, 1e-12)
		})
	}

	// The minimum across offers wins, and in-stock offers count as zero.
	rs := s.Score(100, []model.OfferLookup{
		offer(model.SourceMouser, model.Known(0), model.Known(120), "USA"),
		offer(model.SourceNexar, model.Known(500), model.Known(120), "USA"),
	})
	assert.InDelta(t, 0.0, rs.LeadTime, 1e-12)
}

func TestLifecycleAndGeographic(t *testing.T) {
	s := NewScorer(defaultRisk())
	eol := model.FoundOffer(model.SupplierOffer{Source: model.SourceNexar, Stock: model.Known(0), EndOfLife: true, CountryOfOrigin: "Russia"})
	rs := s.Score(10, []model.OfferLookup{
		offer(model.SourceMouser, model.Known(100), model.Known(10), "Japan"),
		eol,
	})
	assert.InDelta(t, 10.0, rs.Lifecycle, 1e-12)
	assert.InDelta(t, 9.0, rs.Geographic, 1e-12)

	assert.InDelta(t, 7.0, s.GeoScore("CN"), 1e-12)
	assert.InDelta(t, 4.0, s.GeoScore(""), 1e-12)
	assert.InDelta(t, 4.0, s.GeoScore("Atlantis"), 1e-12)
}

func TestComposite_AlwaysWeightedSum(t *testing.T) {
	s := NewScorer(defaultRisk())
	cases := [][]model.OfferLookup{
		nil,
		{offer(model.SourceMouser, model.Known(5), model.Known(100), "China")},
		{offer(model.SourceMouser, model.Known(5000), model.Unknown(), ""), offer(model.SourceNexar, model.Unknown(), model.Known(50), "Taiwan")},
	}
	for _, c := range cases {
		rs := s.Score(100, c)
		want := 0.30*rs.Sourcing + 0.30*rs.Lifecycle + 0.15*rs.Stock + 0.15*rs.LeadTime + 0.10*rs.Geographic
		assert.InDelta(t, want, rs.Composite, 1e-9)
		assert.Equal(t, model.CategoryFor(rs.Composite), rs.Category)
	}
}

func TestNewScorer_EmptyGeoUsesDefaults(t *testing.T) {
	cfg := defaultRisk()
	cfg.GeoScores = nil
	assert.InDelta(t, 9.0, NewScorer(cfg).GeoScore("russia"), 1e-12)
}

func TestNewScorer_GeoOverridesMerge(t *testing.T) {
	cfg := defaultRisk()
	cfg.GeoScores = map[string]float64{"China": 9, "Mexico": 6}
	s := NewScorer(cfg)
	assert.InDelta(t, 9.0, s.GeoScore("CN"), 1e-12)
	assert.InDelta(t, 6.0, s.GeoScore("mexico"), 1e-12)
	assert.InDelta(t, 1.0, s.GeoScore("Germany"), 1e-12)
}
