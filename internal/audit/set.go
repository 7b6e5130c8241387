package audit

import (
	"encoding/json"
	"sort"
)

// StringSet is a set of distinct strings. It serializes as a sorted array.
type StringSet map[string]struct{}

// Add inserts v.
func (s StringSet) Add(v string) { s[v] = struct{}{} }

// Has reports whether v is in the set.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return nil
}
