// Package country canonicalizes country-of-origin strings for table lookups.
package country

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// aliases maps ISO-3166 alpha-2 codes and common spellings to table keys.
var aliases = map[string]string{
	"cn": "china", "prc": "china", "people's republic of china": "china",
	"ru": "russia", "russian federation": "russia",
	"tw": "taiwan", "republic of china": "taiwan",
	"my": "malaysia", "vn": "vietnam", "viet nam": "vietnam",
	"in": "india", "ph": "philippines", "th": "thailand",
	"kr": "south korea", "korea": "south korea", "republic of korea": "south korea",
	"us": "usa", "u.s.": "usa", "u.s.a.": "usa", "united states of america": "usa",
	"mx": "mexico", "ca": "canada", "jp": "japan",
	"de": "germany", "fr": "france",
	"gb": "uk", "united kingdom": "uk", "great britain": "uk",
	"ie": "ireland", "ch": "switzerland",
	"hk": "hong kong", "sg": "singapore", "id": "indonesia",
	"il": "israel", "it": "italy", "nl": "netherlands", "cz": "czech republic",
	"hu": "hungary", "pl": "poland", "at": "austria", "cr": "costa rica",
}

// Normalize folds case, trims space and resolves aliases. Placeholders such as
// "unknown" or "n/a" normalize to "".
func Normalize(s string) string {
	k := folder.String(strings.TrimSpace(s))
	k = strings.Join(strings.Fields(k), " ")
	switch k {
	case "", "unknown", "n/a", "na", "none", "-":
		return ""
	}
	if a, ok := aliases[k]; ok {
		return a
	}
	return k
}

// Table is a country-keyed lookup table with folded keys.
type Table struct {
	values map[string]float64
	// keys sorted longest first for substring matching.
	keys []string
}

// NewTable builds a table from raw keys. Later duplicates after folding win
// in key order, so construction is deterministic.
func NewTable(raw map[string]float64) Table {
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)

	t := Table{values: make(map[string]float64, len(raw))}
	for _, name := range names {
		k := Normalize(name)
		if k == "" {
			continue
		}
		if _, dup := t.values[k]; !dup {
			t.keys = append(t.keys, k)
		}
		t.values[k] = raw[name]
	}
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
	return t
}

// Lookup matches a country exactly after normalization, then falls back to
// the longest table key contained in it ("Made in China" → "china").
func (t Table) Lookup(country string) (float64, bool) {
	k := Normalize(country)
	if k == "" {
		return 0, false
	}
	if v, ok := t.values[k]; ok {
		return v, true
	}
	for _, key := range t.keys {
		if len(key) > 2 && containsWord(k, key) {
			return t.values[key], true
		}
	}
	return 0, false
}

// Len returns the number of entries.
func (t Table) Len() int { return len(t.values) }

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		if (start == 0 || !isLetter(s[start-1])) && (end == len(s) || !isLetter(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
