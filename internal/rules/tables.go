package rules

// UnitHousenumber is a manually curated split of a housenumber string.
// A nil Unit means no unit is extracted.
type UnitHousenumber struct {
	Unit        *string `yaml:"unit" json:"unit,omitempty"`
	Housenumber string  `yaml:"housenumber" json:"housenumber"`
}

// Tables is the raw, serializable form of a regional rule set.
type Tables struct {
	StreetSuffixes        []string                   `yaml:"street_suffixes"`
	Province              string                     `yaml:"province"`
	ProvinceSynonyms      []string                   `yaml:"province_synonyms"`
	Country               string                     `yaml:"country"`
	CountrySynonyms       []string                   `yaml:"country_synonyms"`
	StreetAbbreviations   map[string]string          `yaml:"street_abbreviations"`
	StreetExceptions      map[string]string          `yaml:"street_exceptions"`
	HousenumberExceptions map[string]UnitHousenumber `yaml:"housenumber_exceptions"`
}

func strPtr(s string) *string { return &s }

// DefaultTables returns the rule set tuned for the Metro Vancouver export.
func DefaultTables() Tables {
	return Tables{
		StreetSuffixes: []string{
			"Avenue", "Boulevard", "Centre", "Close", "Court", "Crescent", "Diversion", "Drive", "East",
			"Forest", "Gate", "Grove", "Highway", "Kingsway", "Lane", "Mall", "Mews", "North", "Parkway",
			"Place", "Road", "South", "Street", "Terrace", "Trail", "Way", "West", "Wynd", "Broadway",
			"Tsawwassen", "Walk", "Park", "Alley",
		},
		Province:         "British Columbia",
		ProvinceSynonyms: []string{"BC", "British Columbia", "british columbia", "bc", "British columbia", "Bc"},
		Country:          "Canada",
		CountrySynonyms:  []string{"CA", "Canada", "Ca", "ca", "canada"},
		StreetAbbreviations: map[string]string{
			"Ave":        "Avenue",
			"ave":        "Avenue",
			"Ave.":       "Avenue",
			"av":         "Avenue",
			"Commercial": "Commercial Drive",
			"Cornwall":   "Cornwall Avenue",
			"Davie":      "Davie Street",
			"St":         "Street",
			"St.":        "Street",
			"street":     "Street",
			"st":         "Street",
			"ST.":        "Street",
			"Streettt":   "Street",
			"Dunbar":     "Dunbar Street",
			"Hwy":        "Highway",
			"Hwy.":       "Highway",
			"Highway'":   "Highway",
			"Granville":  "Granville Street",
			"Hamilton":   "Hamilton Street",
			"Dr":         "Drive",
			"Dr.":        "Drive",
			"drive":      "Drive",
			"Duranleau":  "Duranleau Street",
			"Hastings":   "Hastings Street",
			"Edmonds":    "Edmonds Street",
			"Fir":        "Fir Street",
			"Main":       "Main Street",
			"Blvd":       "Boulevard",
			"Blvd.":      "Boulevard",
			"Rd":         "Road",
			"Rd.":        "Road",
			"RD":         "Road",
			"Road,":      "Road",
			"Pl":         "Place",
			"Pl.":        "Place",
			"W":          "West",
			"W.":         "West",
			"E":          "East",
			"E.":         "East",
			"S.":         "South",
			"S":          "South",
			"N.":         "North",
			"N":          "North",
			"Burrard":    "Burrard Street",
			"Cambie":     "Cambie Street",
			"Carrall":    "Carrall Street",
			"Homer":      "Homer Street",
			"Hornby":     "Hornby Street",
			"Keefer":     "Keefer Street",
			"Kootenay":   "Kootenay Street",
			"Lougheed":   "Lougheed Highway",
			"Mainland":   "Mainland Street",
			"Manitoba":   "Manitoba Street",
			"Cres":       "Crescent",
			"Moncton":    "Moncton Street",
			"Oak":        "Oak Street",
			"Powell":     "Powell Street",
			"Quebec":     "Quebec Street",
			"Sanders":    "Sanders Street",
			"Venables":   "Venables Street",
			"Victoria":   "Victoria Drive",
			"Pender":     "Pender Street",
			"Willingdon": "Willingdon Avenue",
			"Yukon":      "Yukon Street",
		},
		StreetExceptions: map[string]string{
			"ing George Hwy.": "King George Highway",
			"Mast Tower":      "Mast Tower Lane",
			"e Broadway":      "East Broadway",
			"41st Ave. W":     "41st Avenue West",
			"Hastings St E":   "Hastings Street East",
		},
		HousenumberExceptions: map[string]UnitHousenumber{
			"201 City Square, 555": {Unit: strPtr("555"), Housenumber: "201 City Square"},
			"3917, Army, Navy, & Airforce Veterans Club, Taurus Unit #298": {
				Housenumber: "3917 Army, Navy, & Airforce Veterans Club, Taurus Unit #298",
			},
		},
	}
}
