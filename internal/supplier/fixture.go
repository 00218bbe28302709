package supplier

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/normalize"
)

// FixtureFile is a recorded set of offers keyed by part number. Each offer
// uses the canonical offer fields; an entry with found: false records a miss.
//
//	parts:
//	  LM358DR:
//	    - source: Mouser
//	      stock: 1200
//	      lead_time: 6 weeks
//	      pricing: [{qty: 1, unit_price: 0.45}]
//	    - source: Nexar
//	      found: false
//	      reason: no match
type FixtureFile struct {
	Parts map[string][]map[string]any `yaml:"parts" json:"parts"`
}

// Fixture serves offers from a FixtureFile, for offline runs and tests.
type Fixture struct {
	parts   map[string][]map[string]any
	sources []model.Source
}

// LoadFixture reads a YAML or JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "supplier: read fixture %s", path)
	}
	var f FixtureFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "supplier: parse fixture %s", path)
	}
	return NewFixture(f), nil
}

// NewFixture builds a Fixture from an in-memory file. Part numbers that
// differ only in case or surrounding space are merged, their offers
// concatenated in sorted key order.
func NewFixture(f FixtureFile) *Fixture {
	fx := &Fixture{parts: make(map[string][]map[string]any, len(f.Parts))}
	keys := make([]string, 0, len(f.Parts))
	for pn := range f.Parts {
		keys = append(keys, pn)
	}
	sort.Strings(keys)

	seen := map[model.Source]bool{}
	for _, pn := range keys {
		offers := f.Parts[pn]
		k := foldPart(pn)
		fx.parts[k] = append(fx.parts[k], offers...)
		for _, o := range offers {
			seen[entrySource(o)] = true
		}
	}
	for s := range seen {
		fx.sources = append(fx.sources, s)
	}
	sort.Slice(fx.sources, func(i, j int) bool { return fx.sources[i] < fx.sources[j] })
	return fx
}

// Sources implements Fetcher.
func (f *Fixture) Sources() []model.Source {
	return f.sources
}

// Fetch implements Fetcher. A part missing from the file yields one
// "not found" response so the line still resolves.
func (f *Fixture) Fetch(_ context.Context, line model.BOMLine) []normalize.Raw {
	entries, ok := f.parts[foldPart(line.PartNumber)]
	if !ok {
		return []normalize.Raw{{
			Source:     model.SourceFixture,
			PartNumber: line.PartNumber,
			Err:        eris.New("not in fixture"),
		}}
	}

	out := make([]normalize.Raw, 0, len(entries))
	for _, e := range entries {
		raw := normalize.Raw{Source: entrySource(e), PartNumber: line.PartNumber, Canonical: true}
		body, err := json.Marshal(e)
		if err != nil {
			raw.Err = eris.Wrap(err, "supplier: encode fixture offer")
		}
		raw.Body = body
		out = append(out, raw)
	}
	return out
}

func entrySource(e map[string]any) model.Source {
	if s, ok := e["source"].(string); ok && strings.TrimSpace(s) != "" {
		return model.Source(strings.TrimSpace(s))
	}
	return model.SourceFixture
}

func foldPart(pn string) string {
	return strings.ToUpper(strings.TrimSpace(pn))
}
