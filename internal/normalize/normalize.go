// Package normalize applies the address correction rules to shaped records
// and decides whether each record is kept.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/rules"
)

// Rule names reported in Result.Rejections.
const (
	RulePostcode    = "postcode"
	RuleState       = "state"
	RuleProvince    = "province"
	RuleCountry     = "country"
	RuleCity        = "city"
	RuleHousename   = "housename"
	RuleHousenumber = "housenumber"
	RuleStreet      = "street"
	RuleUnit        = "unit"
)

// Special-cased extractor output that carries a street along with the number.
const (
	splitStreetInput   = "205 East 10th Ave"
	splitStreetNumber  = "205"
	splitStreetReplace = "East 10th Avenue"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// Result is the outcome of normalizing one record.
type Result struct {
	Record *model.Record
	Keep   bool
	// Rejections lists the rules that marked the record for discard, in
	// rule order.
	Rejections []string
	// Pattern is the extractor pattern used for the housenumber, if any.
	Pattern string
}

type rule struct {
	name string
	// apply edits a in place and returns false to discard the record.
	apply func(n *Normalizer, a model.Address, res *Result) bool
}

// rules run in this order; later rules read fields earlier ones rewrote.
var ruleChain = []rule{
	{RulePostcode, (*Normalizer).postcode},
	{RuleState, (*Normalizer).state},
	{RuleProvince, (*Normalizer).province},
	{RuleCountry, (*Normalizer).country},
	{RuleCity, (*Normalizer).city},
	{RuleHousename, (*Normalizer).housename},
	{RuleHousenumber, (*Normalizer).housenumber},
	{RuleStreet, (*Normalizer).street},
	{RuleUnit, (*Normalizer).unit},
}

// Normalizer cleans the address of shaped records.
type Normalizer struct {
	rules   *rules.Rules
	extract *Extractor
	ascii   transform.Transformer
}

// New returns a Normalizer using r and ex.
func New(r *rules.Rules, ex *Extractor) *Normalizer {
	return &Normalizer{
		rules:   r,
		extract: ex,
		ascii:   runes.Remove(runes.Predicate(func(c rune) bool { return c >= utf8.RuneSelf })),
	}
}

// Normalize runs every rule against a copy of rec. All rules run even after
// one has rejected the record. Records without an address come back
// unchanged and kept.
func (n *Normalizer) Normalize(rec *model.Record) Result {
	out := rec.Clone()
	res := Result{Record: out, Keep: true}
	if out.Address == nil {
		return res
	}

	for _, r := range ruleChain {
		if !r.apply(n, out.Address, &res) {
			res.Keep = false
			res.Rejections = append(res.Rejections, r.name)
		}
	}
	return res
}

func (n *Normalizer) postcode(a model.Address, _ *Result) bool {
	pc, ok := a.Get(model.AddrPostcode)
	if !ok {
		return true
	}
	if !rules.IsPostcodeRelaxed(pc) {
		return false
	}
	if !rules.IsPostcode(pc) {
		compact := strings.Join(strings.Fields(pc), "")
		a[model.AddrPostcode] = compact[:3] + " " + compact[3:]
	}
	return true
}

func (n *Normalizer) state(a model.Address, _ *Result) bool {
	st, ok := a.Get(model.AddrState)
	if !ok {
		return true
	}
	if !n.rules.IsProvince(st) {
		return false
	}
	a[model.AddrProvince] = st
	delete(a, model.AddrState)
	return true
}

func (n *Normalizer) province(a model.Address, _ *Result) bool {
	return n.canonicalize(a, model.AddrProvince, n.rules.IsProvince, n.rules.Province())
}

func (n *Normalizer) country(a model.Address, _ *Result) bool {
	return n.canonicalize(a, model.AddrCountry, n.rules.IsCountry, n.rules.Country())
}

// canonicalize rewrites a recognized synonym to canonical and fills the
// field in when a street is present but the field is not.
func (n *Normalizer) canonicalize(a model.Address, field string, known func(string) bool, canonical string) bool {
	v, ok := a.Get(field)
	if !ok {
		if a.Has(model.AddrStreet) {
			a[field] = canonical
		}
		return true
	}
	if !known(v) {
		return false
	}
	a[field] = canonical
	return true
}

func (n *Normalizer) city(a model.Address, _ *Result) bool {
	city, ok := a.Get(model.AddrCity)
	if !ok {
		return true
	}

	keep := true
	if parts := strings.Split(city, ","); len(parts) > 1 {
		if n.rules.IsProvince(strings.TrimSpace(parts[1])) {
			city = strings.TrimSpace(parts[0])
		} else {
			keep = false
		}
	}
	if rules.IsLowercase(city) && city != "" {
		city = strings.ToUpper(city[:1]) + city[1:]
	}
	a[model.AddrCity] = city
	return keep
}

func (n *Normalizer) housename(a model.Address, _ *Result) bool {
	name, ok := a.Get(model.AddrHousename)
	if !ok {
		return true
	}
	digits, ok := rules.FirstDigits(name)
	if !ok {
		return true
	}

	hn, has := a.Get(model.AddrHousenumber)
	switch {
	case !has:
		a[model.AddrHousenumber] = digits
	case strings.Contains(hn, digits):
	default:
		a[model.AddrHousenumber] = hn + ", " + name
	}
	delete(a, model.AddrHousename)
	return true
}

func (n *Normalizer) housenumber(a model.Address, res *Result) bool {
	hn, ok := a.Get(model.AddrHousenumber)
	if !ok {
		return true
	}

	if !rules.IsASCII(hn) {
		stripped, _, err := transform.String(n.ascii, hn)
		if err == nil {
			hn = multiSpaceRe.ReplaceAllString(stripped, " ")
		}
	}
	hn = strings.TrimSpace(hn)
	a[model.AddrHousenumber] = hn
	if rules.IsDigitsOnly(hn) {
		return true
	}

	x := n.extract.Extract(hn)
	res.Pattern = x.Pattern
	if x.Unit != nil && !a.Has(model.AddrUnit) {
		a[model.AddrUnit] = *x.Unit
	}
	a[model.AddrHousenumber] = x.Housenumber
	if x.Housenumber == splitStreetInput {
		a[model.AddrHousenumber] = splitStreetNumber
		a[model.AddrStreet] = splitStreetReplace
	}
	return true
}

func (n *Normalizer) street(a model.Address, _ *Result) bool {
	street, ok := a.Get(model.AddrStreet)
	if !ok {
		return true
	}
	if fixed, ok := n.rules.StreetException(street); ok {
		a[model.AddrStreet] = fixed
		return true
	}

	suffix, ok := rules.StreetSuffix(street)
	if !ok || n.rules.IsExpectedSuffix(suffix) {
		return true
	}
	if full, ok := n.rules.Abbreviation(suffix); ok {
		a[model.AddrStreet] = rules.ReplaceStreetSuffix(street, full)
	}
	return true
}

func (n *Normalizer) unit(a model.Address, _ *Result) bool {
	unit, ok := a.Get(model.AddrUnit)
	if !ok || !strings.Contains(strings.ToLower(unit), "suite") {
		return true
	}
	unit = strings.ReplaceAll(unit, "Suite", "")
	unit = strings.ReplaceAll(unit, "suite", "")
	a[model.AddrUnit] = strings.TrimSpace(unit)
	return true
}
