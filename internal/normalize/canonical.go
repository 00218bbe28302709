package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/sells-group/bom-analyzer/internal/model"
)

// Canonical adapts an offer already in this tool's own JSON shape, as used by
// fixture files and API clients that pre-fetch supplier data. A payload with
// "found": false is a recorded miss.
func Canonical(partNumber string, body []byte) model.OfferLookup {
	o := gjson.ParseBytes(body)
	if !o.IsObject() {
		return model.NotFound(model.SourceFixture, "malformed offer")
	}
	if f := o.Get("found"); f.Exists() && !f.Bool() {
		return model.NotFound(model.SourceFixture, firstNonEmpty(str(o.Get("reason")), "no match"))
	}

	src := model.Source(firstNonEmpty(str(o.Get("source")), string(model.SourceFixture)))
	lead := o.Get("lead_time_days")
	if !lead.Exists() {
		lead = o.Get("lead_time")
	}

	return model.FoundOffer(model.SupplierOffer{
		Source:                 src,
		Seller:                 str(o.Get("seller")),
		SourcePartNumber:       str(o.Get("source_part_number")),
		ManufacturerPartNumber: firstNonEmpty(str(o.Get("manufacturer_part_number")), partNumber),
		Manufacturer:           str(o.Get("manufacturer")),
		Description:            str(o.Get("description")),
		Stock:                  count(o.Get("stock")),
		LeadTimeDays:           leadTime(lead),
		MinOrderQty:            moq(o.Get("min_order_qty")),
		Pricing:                tiers(o.Get("pricing"), "qty", "unit_price", nil),
		CountryOfOrigin:        str(o.Get("country_of_origin")),
		NormallyStocking:       o.Get("normally_stocking").Bool(),
		Discontinued:           o.Get("discontinued").Bool(),
		EndOfLife:              o.Get("end_of_life").Bool(),
		DatasheetURL:           str(o.Get("datasheet_url")),
	})
}
