// Package optimize picks the cheapest acceptable way to buy a quantity from a
// quantity-break price list.
package optimize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bom-analyzer/internal/model"
)

var (
	// ErrInfeasibleQuantity means no price tier can supply the requirement.
	ErrInfeasibleQuantity = eris.New("optimize: no price tier can fulfill quantity")
	// ErrInvalidQuantity means the required quantity is not positive.
	ErrInvalidQuantity = eris.New("optimize: required quantity must be positive")
)

// costEpsilon absorbs float noise when comparing order totals.
const costEpsilon = 1e-9

type option struct {
	orderQty  int
	breakQty  int
	unitPrice float64
	total     float64
}

// Optimize returns the purchase that acquires at least max(requiredQty,
// minOrderQty) units. Tiers are quantity breaks: the whole order is priced at
// the unit price of the highest break it reaches.
//
// The baseline buys exactly the need at the highest reachable break. Every
// larger break is a buy-up candidate priced at break.qty × break.price. Among
// candidates costing no more than the cheapest total × (1 + buyUpThresholdPct)
// the largest order wins, so a strictly cheaper larger order always wins and
// raising the threshold never shrinks the order.
func Optimize(requiredQty int, tiers []model.PriceTier, minOrderQty int, buyUpThresholdPct float64) (model.OptimizedPurchase, error) {
	if requiredQty <= 0 {
		return model.OptimizedPurchase{}, eris.Wrapf(ErrInvalidQuantity, "got %d", requiredQty)
	}

	valid := validTiers(tiers)
	if len(valid) == 0 {
		return model.OptimizedPurchase{}, eris.Wrapf(ErrInfeasibleQuantity, "need %d, no usable price tiers", requiredQty)
	}
	if buyUpThresholdPct < 0 || math.IsNaN(buyUpThresholdPct) {
		buyUpThresholdPct = 0
	}

	need := requiredQty
	if minOrderQty > need {
		need = minOrderQty
	}

	var notes []string
	if need > requiredQty {
		notes = append(notes, fmt.Sprintf("MOQ %d exceeds requirement", minOrderQty))
	}

	base := baseline(need, valid)
	if base.orderQty > need {
		notes = append(notes, fmt.Sprintf("MOQ adjusted to first break %d", base.orderQty))
	}

	candidates := []option{base}
	for _, t := range valid {
		if t.Qty > base.orderQty {
			candidates = append(candidates, option{
				orderQty:  t.Qty,
				breakQty:  t.Qty,
				unitPrice: t.UnitPrice,
				total:     float64(t.Qty) * t.UnitPrice,
			})
		}
	}

	minTotal := candidates[0].total
	for _, c := range candidates[1:] {
		if c.total < minTotal {
			minTotal = c.total
		}
	}
	limit := minTotal*(1+buyUpThresholdPct) + costEpsilon

	chosen := base
	picked := false
	for _, c := range candidates {
		if c.total > limit {
			continue
		}
		if !picked || c.orderQty > chosen.orderQty {
			chosen = c
			picked = true
		}
	}

	boughtUp := chosen.orderQty > base.orderQty
	if boughtUp {
		switch {
		case chosen.total < base.total-costEpsilon:
			notes = append(notes, fmt.Sprintf("bought up %d→%d, saves %.2f", base.orderQty, chosen.orderQty, base.total-chosen.total))
		default:
			notes = append(notes, fmt.Sprintf("bought up %d→%d for %.2f premium", base.orderQty, chosen.orderQty, chosen.total-base.total))
		}
	}

	return model.OptimizedPurchase{
		RequiredQty:       requiredQty,
		ChosenTierQty:     chosen.orderQty,
		BreakQty:          chosen.breakQty,
		UnitPrice:         chosen.unitPrice,
		TotalCost:         chosen.total,
		EffectiveUnitCost: chosen.total / float64(requiredQty),
		BoughtUp:          boughtUp,
		Notes:             strings.Join(notes, "; "),
	}, nil
}

// baseline buys need units at the highest break not above need. When need is
// below the first break the order is raised to that break.
func baseline(need int, tiers []model.PriceTier) option {
	first := tiers[0]
	if need < first.Qty {
		return option{orderQty: first.Qty, breakQty: first.Qty, unitPrice: first.UnitPrice, total: float64(first.Qty) * first.UnitPrice}
	}
	best := first
	for _, t := range tiers {
		if t.Qty <= need {
			best = t
		}
	}
	return option{orderQty: need, breakQty: best.Qty, unitPrice: best.UnitPrice, total: float64(need) * best.UnitPrice}
}

// validTiers drops unusable breaks, sorts by quantity and keeps the lowest
// price for duplicate quantities.
func validTiers(tiers []model.PriceTier) []model.PriceTier {
	out := make([]model.PriceTier, 0, len(tiers))
	for _, t := range tiers {
		if t.Qty <= 0 || t.UnitPrice < 0 || math.IsNaN(t.UnitPrice) || math.IsInf(t.UnitPrice, 0) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Qty != out[j].Qty {
			return out[i].Qty < out[j].Qty
		}
		return out[i].UnitPrice < out[j].UnitPrice
	})
	dedup := make([]model.PriceTier, 0, len(out))
	for _, t := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Qty == t.Qty {
			continue
		}
		dedup = append(dedup, t)
	}
	return dedup
}
