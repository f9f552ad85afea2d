package value

import (
	"sort"
	"strings"
)

const (
	// Separator joins elements in a canonical value.
	Separator = ", "
	// PairSeparator separates a hash field from its value.
	PairSeparator = ": "
)

// Join flattens elements into a canonical value.
func Join(elems []string) string {
	return strings.Join(elems, Separator)
}

// JoinPairs renders hash fields as "field: value" pairs sorted by field.
func JoinPairs(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, f := range names {
		pairs[i] = f + PairSeparator + fields[f]
	}
	return Join(pairs)
}

// Split breaks a canonical value on commas and trims each element.
// Empty elements are dropped, so "" yields no elements.
func Split(canonical string) []string {
	parts := strings.Split(canonical, ",")
	elems := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			elems = append(elems, p)
		}
	}
	return elems
}

// SplitPair splits one "field: value" component on its first colon. Both
// halves are trimmed; a component without a colon yields an empty value.
func SplitPair(component string) (field, val string) {
	field, val, _ = strings.Cut(component, ":")
	return strings.TrimSpace(field), strings.TrimSpace(val)
}
