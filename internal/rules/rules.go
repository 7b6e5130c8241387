package rules

import (
	"maps"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is a compiled, read-only rule set. Build one with New, Default or
// Load; the zero value is not usable.
type Rules struct {
	province    string
	country     string
	suffixes    map[string]struct{}
	provinces   map[string]struct{}
	countries   map[string]struct{}
	abbrev      map[string]string
	streetExc   map[string]string
	houseNumExc map[string]UnitHousenumber
}

func toSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// New compiles t into a Rules value. The tables are copied, so later
// changes to t do not leak into the returned rule set.
func New(t Tables) *Rules {
	return &Rules{
		province:    t.Province,
		country:     t.Country,
		suffixes:    toSet(t.StreetSuffixes),
		provinces:   toSet(t.ProvinceSynonyms),
		countries:   toSet(t.CountrySynonyms),
		abbrev:      maps.Clone(t.StreetAbbreviations),
		streetExc:   maps.Clone(t.StreetExceptions),
		houseNumExc: maps.Clone(t.HousenumberExceptions),
	}
}

// Default returns the compiled Metro Vancouver rule set.
func Default() *Rules {
	return New(DefaultTables())
}

// Load reads a YAML rule file and overlays it on DefaultTables. Lists and
// scalar values in the file replace the defaults; map entries are merged
// key by key. An empty path returns Default.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}

	return New(Merge(DefaultTables(), override)), nil
}

// Merge overlays override onto base and returns the result.
func Merge(base, override Tables) Tables {
	if len(override.StreetSuffixes) > 0 {
		base.StreetSuffixes = override.StreetSuffixes
	}
	if override.Province != "" {
		base.Province = override.Province
	}
	if len(override.ProvinceSynonyms) > 0 {
		base.ProvinceSynonyms = override.ProvinceSynonyms
	}
	if override.Country != "" {
		base.Country = override.Country
	}
	if len(override.CountrySynonyms) > 0 {
		base.CountrySynonyms = override.CountrySynonyms
	}
	base.StreetAbbreviations = mergeMap(base.StreetAbbreviations, override.StreetAbbreviations)
	base.StreetExceptions = mergeMap(base.StreetExceptions, override.StreetExceptions)
	base.HousenumberExceptions = mergeMap(base.HousenumberExceptions, override.HousenumberExceptions)
	return base
}

func mergeMap[V any](base, override map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// Province returns the canonical province name.
func (r *Rules) Province() string { return r.province }

// Country returns the canonical country name.
func (r *Rules) Country() string { return r.country }

// IsExpectedSuffix reports whether suffix is an accepted street type.
func (r *Rules) IsExpectedSuffix(suffix string) bool {
	_, ok := r.suffixes[suffix]
	return ok
}

// IsProvince reports whether s is a recognized spelling of the province.
func (r *Rules) IsProvince(s string) bool {
	_, ok := r.provinces[s]
	return ok
}

// IsCountry reports whether s is a recognized spelling of the country.
func (r *Rules) IsCountry(s string) bool {
	_, ok := r.countries[s]
	return ok
}

// Abbreviation returns the full street type for an abbreviated suffix.
func (r *Rules) Abbreviation(suffix string) (string, bool) {
	v, ok := r.abbrev[suffix]
	return v, ok
}

// StreetException returns the hand-fixed replacement for a street name.
func (r *Rules) StreetException(street string) (string, bool) {
	v, ok := r.streetExc[street]
	return v, ok
}

// HousenumberException returns the hand-fixed split for a housenumber.
func (r *Rules) HousenumberException(s string) (UnitHousenumber, bool) {
	v, ok := r.houseNumExc[s]
	return v, ok
}
