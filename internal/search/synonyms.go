// Package search implements the ranking engine for free-text place search:
// synonym expansion, fuzzy field scoring, and proximity-weighted ranking.
package search

import "strings"

// synonymTargets maps colloquial query tokens to the canonical subcategories
// they should match. The mapping is intentionally small and fixed; it covers
// the everyday phrasings observed in search logs rather than attempting a
// full thesaurus.
var synonymTargets = map[string][]string{
	"coffee": {"cafe", "coffee_shop"},
	"drink":  {"pub", "bar", "nightclub"},
	"beer":   {"pub", "bar"},
	"food":   {"restaurant", "fast_food"},
	"eat":    {"restaurant", "fast_food", "cafe"},
	"books":  {"library", "bookshop"},
	"sleep":  {"hotel", "hostel", "guest_house"},
	"stay":   {"hotel", "hostel", "guest_house"},
}

// ExpandSynonyms tokenizes the query by whitespace, lower-cases it, and
// returns the set of target subcategories triggered by any token. The result
// is empty when no token matches. Token order and repetition do not affect
// the output.
func ExpandSynonyms(query string) map[string]struct{} {
	targets := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(query)) {
		for _, sub := range synonymTargets[token] {
			targets[sub] = struct{}{}
		}
	}
	return targets
}
