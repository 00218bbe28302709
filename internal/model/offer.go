package model

import "strings"

// Source identifies the supplier collaborator an offer came from.
type Source string

const (
	SourceMouser  Source = "Mouser"
	SourceNexar   Source = "Nexar"
	SourceFixture Source = "Fixture"
)

// BOMLine is one requested part from the parsed BOM.
type BOMLine struct {
	PartNumber      string `json:"part_number" yaml:"part_number"`
	QuantityPerUnit int    `json:"quantity_per_unit" yaml:"quantity_per_unit"`
	Manufacturer    string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RequiredQty is the total quantity needed to build totalUnits units.
func (l BOMLine) RequiredQty(totalUnits int) int {
	return l.QuantityPerUnit * totalUnits
}

// PriceTier is a quantity break: buying at least Qty units unlocks UnitPrice.
type PriceTier struct {
	Qty       int     `json:"qty" yaml:"qty"`
	UnitPrice float64 `json:"unit_price" yaml:"unit_price"`
}

// SupplierOffer is one supplier's canonical quote for a part. Offers are never
// mutated after the normalizer builds them.
type SupplierOffer struct {
	Source                 Source      `json:"source"`
	Seller                 string      `json:"seller,omitempty"`
	SourcePartNumber       string      `json:"source_part_number"`
	ManufacturerPartNumber string      `json:"manufacturer_part_number"`
	Manufacturer           string      `json:"manufacturer"`
	Description            string      `json:"description"`
	Stock                  Number      `json:"stock"`
	LeadTimeDays           Number      `json:"lead_time_days"`
	MinOrderQty            int         `json:"min_order_qty"`
	Pricing                []PriceTier `json:"pricing"`
	CountryOfOrigin        string      `json:"country_of_origin,omitempty"`
	NormallyStocking       bool        `json:"normally_stocking"`
	Discontinued           bool        `json:"discontinued"`
	EndOfLife              bool        `json:"end_of_life"`
	DatasheetURL           string      `json:"datasheet_url,omitempty"`
}

// Label is the name shown for the offer: the seller when a marketplace source
// reports one, otherwise the source.
func (o SupplierOffer) Label() string {
	if o.Seller != "" {
		return o.Seller
	}
	return string(o.Source)
}

// HasStockFor reports whether known stock covers qty.
func (o SupplierOffer) HasStockFor(qty int) bool {
	return o.Stock.Known && o.Stock.Value >= float64(qty)
}

// EffectiveLeadTime is zero when known stock covers qty, otherwise the quoted
// lead time, which may be unknown.
func (o SupplierOffer) EffectiveLeadTime(qty int) Number {
	if o.HasStockFor(qty) {
		return Known(0)
	}
	return o.LeadTimeDays
}

// LifecycleRisk reports whether the offer is discontinued or end-of-life.
func (o SupplierOffer) LifecycleRisk() bool {
	return o.Discontinued || o.EndOfLife
}

// KnownCountry returns the country of origin, or "" when it is missing or a
// placeholder such as "Unknown" or "N/A".
func (o SupplierOffer) KnownCountry() string {
	c := strings.TrimSpace(o.CountryOfOrigin)
	switch strings.ToLower(c) {
	case "", "unknown", "n/a", "na", "none":
		return ""
	}
	return c
}

// OfferLookup is the outcome of asking one source about one part: either a
// usable offer or an explicit "not found" placeholder with a reason.
type OfferLookup struct {
	Source Source        `json:"source"`
	Found  bool          `json:"found"`
	Reason string        `json:"reason,omitempty"`
	Offer  SupplierOffer `json:"offer"`
}

// NotFound builds a placeholder lookup.
func NotFound(source Source, reason string) OfferLookup {
	return OfferLookup{Source: source, Reason: reason}
}

// FoundOffer wraps a usable offer.
func FoundOffer(offer SupplierOffer) OfferLookup {
	return OfferLookup{Source: offer.Source, Found: true, Offer: offer}
}

// UsableOffers returns the offers of every found lookup, in input order.
func UsableOffers(lookups []OfferLookup) []SupplierOffer {
	var out []SupplierOffer
	for _, l := range lookups {
		if l.Found {
			out = append(out, l.Offer)
		}
	}
	return out
}
