package normalize

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/rules"
)

// Pattern names reported by Extract besides the cascade entries.
const (
	PatternException = "exception"
	PatternFallback  = "fallback"
)

// DefaultCacheSize is the number of distinct inputs an Extractor remembers.
const DefaultCacheSize = 4096

// Extraction is the outcome of splitting a composite housenumber.
type Extraction struct {
	Unit        *string
	Housenumber string
	// Pattern names the cascade entry, PatternException or PatternFallback.
	Pattern string
}

// unitFirst picks (unit, number) from groups 1 and 2.
func unitFirst(m []string) (string, string, bool) { return m[1], m[2], true }

// numberFirst picks (unit, number) from groups 2 and 1.
func numberFirst(m []string) (string, string, bool) { return m[2], m[1], true }

// shorterIsUnit treats the shorter of two digit runs as the unit. Equal
// lengths are ambiguous and fall through.
func shorterIsUnit(m []string) (string, string, bool) {
	switch {
	case len(m[1]) < len(m[2]):
		return m[1], m[2], true
	case len(m[1]) > len(m[2]):
		return m[2], m[1], true
	default:
		return "", "", false
	}
}

type pattern struct {
	name  string
	re    *regexp.Regexp
	split func(m []string) (unit, number string, ok bool)
}

// cascade is tried in order; the first entry that matches and splits wins.
var cascade = []pattern{
	{"p1", regexp.MustCompile(`^#([0-9]{1,5}[A-Za-z]{0,3})[\-\s,]{1,3}([0-9]+)$`), unitFirst},
	{"p2", regexp.MustCompile(`(?i)^([0-9]+), suite #?([0-9A-Za-z\-\s]+)$`), numberFirst},
	{"p3", regexp.MustCompile(`^([0-9]+), #([0-9\-]+)$`), numberFirst},
	{"p4", regexp.MustCompile(`^([A-Za-z]{1,3}[0-9]{1,5}|[0-9]{1,5}[A-Za-z]{1,3})[\-\s,]{1,3}([0-9]+)$`), unitFirst},
	{"p5", regexp.MustCompile(`(?i)^suite #?([0-9]{1,5}[A-Za-z]{0,3})[\-\s,]{1,3}([0-9]+)$`), unitFirst},
	{"p6", regexp.MustCompile(`(?i)^unit:? #?([0-9]{1,5}[A-Za-z]{0,3})[\-\s,]{1,3}([0-9]+)$`), unitFirst},
	{"p7", regexp.MustCompile(`(?i)^studio #?([0-9]{1,5}[A-Za-z]{0,3})[\-\s,]{1,3}([0-9]+)$`), unitFirst},
	{"p8", regexp.MustCompile(`(?i)^([0-9]+),? #([0-9A-Za-z\-\s]+)$`), numberFirst},
	{"p9", regexp.MustCompile(`^([0-9]+)[\-\s,]{1,3}([0-9]+)$`), shorterIsUnit},
}

// fallbackReplacements run one after another, so a replacement can feed
// the next ("a ; b" becomes "a - b" and then "a-b").
var fallbackReplacements = [][2]string{
	{";", "-"},
	{" - ", "-"},
	{", ", "-"},
	{":", ""},
	{",", "-"},
}

func fallbackClean(s string) string {
	for _, r := range fallbackReplacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// Extractor splits composite housenumber strings into unit and number.
// It is safe for concurrent use.
type Extractor struct {
	rules *rules.Rules
	cache *lru.Cache[string, Extraction]
}

// NewExtractor returns an Extractor backed by r. A cacheSize of zero or
// less uses DefaultCacheSize.
func NewExtractor(r *rules.Rules, cacheSize int) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Extraction](cacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: create extract cache")
	}
	return &Extractor{rules: r, cache: cache}, nil
}

// Extract never fails: input no pattern recognizes comes back cleaned by
// the fallback replacements with no unit.
func (e *Extractor) Extract(s string) Extraction {
	if hit, ok := e.cache.Get(s); ok {
		return copyExtraction(hit)
	}
	res := e.extract(s)
	e.cache.Add(s, res)
	return copyExtraction(res)
}

func (e *Extractor) extract(s string) Extraction {
	for _, p := range cascade {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if unit, number, ok := p.split(m); ok {
			return Extraction{Unit: model.Ptr(unit), Housenumber: number, Pattern: p.name}
		}
	}

	if exc, ok := e.rules.HousenumberException(s); ok {
		return Extraction{Unit: exc.Unit, Housenumber: exc.Housenumber, Pattern: PatternException}
	}

	return Extraction{Housenumber: fallbackClean(s), Pattern: PatternFallback}
}

// copyExtraction keeps callers from sharing the cached unit pointer.
func copyExtraction(x Extraction) Extraction {
	if x.Unit != nil {
		x.Unit = model.Ptr(*x.Unit)
	}
	return x
}
