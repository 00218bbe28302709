package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sells-group/bom-analyzer/internal/model"
)

var eolMarkers = []string{"OBSOLETE", "EOL", "END OF LIFE", "DISCONTINUED", "NOT RECOMMENDED"}

// Mouser adapts a Search API "search/partnumber" response. The part whose
// manufacturer part number matches the request wins; otherwise the first.
func Mouser(partNumber string, body []byte) model.OfferLookup {
	root := gjson.ParseBytes(body)

	if errs := root.Get("Errors"); errs.IsArray() && len(errs.Array()) > 0 {
		msg := str(errs.Get("0.Message"))
		if msg == "" {
			msg = "api error"
		}
		return model.NotFound(model.SourceMouser, msg)
	}

	var parts []gjson.Result
	for _, p := range root.Get("SearchResults.Parts").Array() {
		if p.IsObject() {
			parts = append(parts, p)
		}
	}
	if !root.Get("SearchResults.Parts").IsArray() || len(parts) == 0 {
		return model.NotFound(model.SourceMouser, "no match")
	}

	p := parts[0]
	for _, cand := range parts {
		if strings.EqualFold(str(cand.Get("ManufacturerPartNumber")), partNumber) {
			p = cand
			break
		}
	}

	status := strings.ToUpper(str(p.Get("LifecycleStatus")))
	eol := false
	for _, m := range eolMarkers {
		if strings.Contains(status, m) {
			eol = true
			break
		}
	}

	stock := count(p.Get("AvailabilityInStock"))
	if !stock.Known {
		stock = count(p.Get("Availability"))
	}

	return model.FoundOffer(model.SupplierOffer{
		Source:                 model.SourceMouser,
		SourcePartNumber:       str(p.Get("MouserPartNumber")),
		ManufacturerPartNumber: firstNonEmpty(str(p.Get("ManufacturerPartNumber")), partNumber),
		Manufacturer:           str(p.Get("Manufacturer")),
		Description:            str(p.Get("Description")),
		Stock:                  stock,
		LeadTimeDays:           leadTime(p.Get("LeadTime")),
		MinOrderQty:            moq(p.Get("Min")),
		Pricing:                tiers(p.Get("PriceBreaks"), "Quantity", "Price", nil),
		CountryOfOrigin:        str(p.Get("CountryOfOrigin")),
		NormallyStocking:       true,
		Discontinued:           strings.Contains(status, "DISCONTINUED"),
		EndOfLife:              eol,
		DatasheetURL:           str(p.Get("DataSheetUrl")),
	})
}
