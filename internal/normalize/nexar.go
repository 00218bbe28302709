package normalize

import (
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// Nexar adapts a supSearch GraphQL response. Across all sellers the offer
// with the lowest USD price break is kept; the seller becomes the label.
func Nexar(partNumber string, body []byte) model.OfferLookup {
	root := gjson.ParseBytes(body)

	if errs := root.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return model.NotFound(model.SourceNexar, firstNonEmpty(str(errs.Get("0.message")), "api error"))
	}

	hits := root.Get("data.supSearch.results")
	if !hits.Exists() {
		hits = root.Get("data.supSearch.hits")
	}
	if !hits.IsArray() || len(hits.Array()) == 0 {
		return model.NotFound(model.SourceNexar, "no match")
	}
	part := hits.Array()[0].Get("part")
	for _, h := range hits.Array() {
		if strings.EqualFold(str(h.Get("part.mpn")), partNumber) {
			part = h.Get("part")
			break
		}
	}

	usd := func(p gjson.Result) bool {
		c := str(p.Get("currency"))
		return c == "" || strings.EqualFold(c, "USD")
	}

	var (
		bestOffer  gjson.Result
		bestSeller string
		bestPrice  = math.Inf(1)
	)
	part.Get("sellers").ForEach(func(_, seller gjson.Result) bool {
		seller.Get("offers").ForEach(func(_, offer gjson.Result) bool {
			for _, t := range tiers(offer.Get("prices"), "quantity", "price", usd) {
				if t.UnitPrice < bestPrice {
					bestPrice = t.UnitPrice
					bestOffer = offer
					bestSeller = str(seller.Get("company.name"))
				}
			}
			return true
		})
		return true
	})
	if !bestOffer.Exists() {
		return model.NotFound(model.SourceNexar, "no USD offers")
	}

	lifecycle := strings.ToLower(str(part.Get("specs.#(attribute.shortname==\"lifecyclestatus\").displayValue")))

	return model.FoundOffer(model.SupplierOffer{
		Source:                 model.SourceNexar,
		Seller:                 bestSeller,
		SourcePartNumber:       str(bestOffer.Get("sku")),
		ManufacturerPartNumber: firstNonEmpty(str(part.Get("mpn")), partNumber),
		Manufacturer:           str(part.Get("manufacturer.name")),
		Description:            str(part.Get("shortDescription")),
		Stock:                  count(bestOffer.Get("inventoryLevel")),
		LeadTimeDays:           leadTime(bestOffer.Get("factoryLeadDays")),
		MinOrderQty:            moq(bestOffer.Get("moq")),
		Pricing:                tiers(bestOffer.Get("prices"), "quantity", "price", usd),
		CountryOfOrigin:        str(part.Get("countryOfOrigin")),
		NormallyStocking:       true,
		Discontinued:           strings.Contains(lifecycle, "discontinued"),
		EndOfLife:              strings.Contains(lifecycle, "eol") || strings.Contains(lifecycle, "obsolete") || strings.Contains(lifecycle, "end of life"),
		DatasheetURL:           str(part.Get("bestDatasheet.url")),
	})
}
