// Package normalize turns raw supplier responses into canonical offers.
// Adapters never fail: absent, malformed or empty payloads become a
// "not found" lookup carrying the reason.
package normalize

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// Raw is one supplier collaborator's response for one BOM line.
type Raw struct {
	Source model.Source
	// PartNumber is the BOM part number that was searched.
	PartNumber string
	Body       []byte
	// Canonical marks a body already in this tool's offer shape, whatever
	// supplier it describes.
	Canonical bool
	// Err is set when the fetch itself failed.
	Err error
}

// Adapter maps a raw payload to a lookup.
type Adapter func(partNumber string, body []byte) model.OfferLookup

var adapters = map[model.Source]Adapter{
	model.SourceMouser:  Mouser,
	model.SourceNexar:   Nexar,
	model.SourceFixture: Canonical,
}

// Normalize dispatches raw to its source adapter.
func Normalize(raw Raw) (lookup model.OfferLookup) {
	defer func() {
		if r := recover(); r != nil {
			lookup = model.NotFound(raw.Source, fmt.Sprintf("malformed response: %v", r))
		}
	}()

	if raw.Err != nil {
		return model.NotFound(raw.Source, raw.Err.Error())
	}
	if len(raw.Body) == 0 {
		return model.NotFound(raw.Source, "no response")
	}
	if !gjson.ValidBytes(raw.Body) {
		return model.NotFound(raw.Source, "malformed response")
	}
	adapt := Canonical
	if a, ok := adapters[raw.Source]; ok && !raw.Canonical {
		adapt = a
	}
	lookup = adapt(raw.PartNumber, raw.Body)
	if !lookup.Found {
		if raw.Source != "" {
			lookup.Source = raw.Source
		}
		return lookup
	}
	if lookup.Offer.Source == model.SourceFixture && raw.Source != "" {
		lookup.Offer.Source = raw.Source
	}
	lookup.Source = lookup.Offer.Source
	return lookup
}

// num coerces a JSON value to a Number; missing, null or non-numeric is unknown.
func num(r gjson.Result) model.Number {
	if !r.Exists() {
		return model.Unknown()
	}
	return model.ParseNumber(r.Value())
}

// count is a non-negative integer quantity such as stock.
func count(r gjson.Result) model.Number {
	n := num(r)
	if !n.Known || n.Value < 0 {
		return model.Unknown()
	}
	return model.Known(float64(n.Int()))
}

// moq defaults to 1 when missing or not positive.
func moq(r gjson.Result) int {
	n := num(r)
	if !n.Known || n.Int() < 1 {
		return 1
	}
	return n.Int()
}

func leadTime(r gjson.Result) model.Number {
	if !r.Exists() {
		return model.Unknown()
	}
	return model.ParseLeadTimeDays(r.Value())
}

// tiers reads price breaks, dropping entries without a positive quantity or
// a non-negative price.
func tiers(arr gjson.Result, qtyPath, pricePath string, keep func(gjson.Result) bool) []model.PriceTier {
	var out []model.PriceTier
	arr.ForEach(func(_, pb gjson.Result) bool {
		if keep != nil && !keep(pb) {
			return true
		}
		q := num(pb.Get(qtyPath))
		p := num(pb.Get(pricePath))
		if q.Known && q.Int() > 0 && p.Known && p.Value >= 0 {
			out = append(out, model.PriceTier{Qty: q.Int(), UnitPrice: p.Value})
		}
		return true
	})
	return out
}

func str(r gjson.Result) string {
	return strings.TrimSpace(r.String())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
