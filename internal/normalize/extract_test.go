package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/rules"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	ex, err := NewExtractor(rules.Default(), 0)
	require.NoError(t, err)
	return ex
}

func TestExtract_Cascade(t *testing.T) {
	tests := []struct {
		in      string
		unit    *string
		number  string
		pattern string
	}{
		{"#101-7885", model.Ptr("101"), "7885", "p1"},
		{"#12B, 1050", model.Ptr("12B"), "1050", "p1"},
		{"1050, Suite #200", model.Ptr("200"), "1050", "p2"},
		{"1050, suite 2-3", model.Ptr("2-3"), "1050", "p2"},
		{"2250, #101-102", model.Ptr("101-102"), "2250", "p3"},
		{"A12 4500", model.Ptr("A12"), "4500", "p4"},
		{"12A-4500", model.Ptr("12A"), "4500", "p4"},
		{"Suite 300 - 1090", model.Ptr("300"), "1090", "p5"},
		{"Unit: #5 1234", model.Ptr("5"), "1234", "p6"},
		{"Studio 7-1234", model.Ptr("7"), "1234", "p7"},
		{"1234 #5B", model.Ptr("5B"), "1234", "p8"},
		{"101-7885", model.Ptr("101"), "7885", "p9"},
		{"7885 101", model.Ptr("101"), "7885", "p9"},
		{"201 City Square, 555", model.Ptr("555"), "201 City Square", PatternException},
		{"3917, Army, Navy, & Airforce Veterans Club, Taurus Unit #298", nil,
			"3917 Army, Navy, & Airforce Veterans Club, Taurus Unit #298", PatternException},
	}

	ex := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ex.Extract(tt.in)
			assert.Equal(t, tt.unit, got.Unit)
			assert.Equal(t, tt.number, got.Housenumber)
			assert.Equal(t, tt.pattern, got.Pattern)
		})
	}
}

func TestExtract_Fallback(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1200-1250", "1200-1250"},
		{"1200;1250", "1200-1250"},
		{"1200 - 1250", "1200-1250"},
		{"1200, 1250, 1300", "1200-1250-1300"},
		{"Unit: 1200 A", "Unit 1200 A"},
		{"1200 ; 1250", "1200-1250"},
		{"", ""},
	}

	ex := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ex.Extract(tt.in)
			assert.Nil(t, got.Unit)
			assert.Equal(t, tt.want, got.Housenumber)
			assert.Equal(t, PatternFallback, got.Pattern)
		})
	}
}

func TestExtract_FallbackReextraction(t *testing.T) {
	unit := func(s string) *string { return &s }
	tests := []struct {
		in        string
		fallback  string
		unit      *string
		reextract string
		pattern   string
	}{
		{in: "12; 14, 16", fallback: "12- 14-16", reextract: "12- 14-16", pattern: PatternFallback},
		{in: "1200 ; 1250", fallback: "1200-1250", reextract: "1200-1250", pattern: PatternFallback},
		// Cleaned output can match a pattern on a second pass.
		{in: "1 : 234", fallback: "1  234", unit: unit("1"), reextract: "234", pattern: "p9"},
		{in: "1 ;234", fallback: "1 -234", unit: unit("1"), reextract: "234", pattern: "p9"},
	}

	ex := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first := ex.Extract(tt.in)
			assert.Equal(t, PatternFallback, first.Pattern)
			assert.Equal(t, tt.fallback, first.Housenumber)

			second := ex.Extract(first.Housenumber)
			assert.Equal(t, tt.pattern, second.Pattern)
			assert.Equal(t, tt.unit, second.Unit)
			assert.Equal(t, tt.reextract, second.Housenumber)
		})
	}
}

func TestExtract_CachedResultsAreIndependent(t *testing.T) {
	ex := newTestExtractor(t)

	first := ex.Extract("#101-7885")
	require.NotNil(t, first.Unit)
	*first.Unit = "mutated"

	second := ex.Extract("#101-7885")
	require.NotNil(t, second.Unit)
	assert.Equal(t, "101", *second.Unit)
}

func TestExtract_ExceptionUnitNotShared(t *testing.T) {
	r := rules.Default()
	ex, err := NewExtractor(r, 1)
	require.NoError(t, err)

	got := ex.Extract("201 City Square, 555")
	*got.Unit = "mutated"

	exc, ok := r.HousenumberException("201 City Square, 555")
	require.True(t, ok)
	assert.Equal(t, "555", *exc.Unit)
}
