package ctph

import (
	"strconv"
	"strings"
)

// Similarity compares two serialized digests and returns the Jaccard index
// of their block sets, in [0, 1].
//
// Digests with different window or digest sizes are incomparable and score
// 0. Malformed input never fails: strings with fewer than three fields
// score 0, and unparsable sizes are read as 0.
func Similarity(a, b string) float64 {
	fa := strings.Split(a, ":")
	fb := strings.Split(b, ":")
	if len(fa) < 3 || len(fb) < 3 {
		return 0
	}

	if parseSize(fa[0]) != parseSize(fb[0]) {
		return 0
	}
	if parseSize(fa[1]) != parseSize(fb[1]) {
		return 0
	}

	return jaccard(fa[2:], fb[2:])
}

// parseSize reads a decimal size field. A single leading '+' is allowed.
func parseSize(s string) uint64 {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// jaccard treats a and b as sets. Empty strings are not blocks and are
// ignored, so two empty digests have an empty union and score 0.
func jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		if s != "" {
			set[s] = false
		}
	}

	inter := 0
	for _, s := range b {
		if s == "" {
			continue
		}
		seen, ok := set[s]
		switch {
		case !ok:
			set[s] = true
		case !seen:
			set[s] = true
			inter++
		}
	}

	union := len(set)
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
