package search

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/weplace/weplace/internal/place"
)

// Scorer produces similarity scores in [0, 100] between a query and a field
// value. The two methods are deliberately separate strategies:
//
//   - Partial tolerates substring containment, so a short query buried in a
//     long name or description still scores near 100. Used for free-text
//     fields.
//   - Strict compares whole strings. Used for categorical fields, where a
//     partial metric would let a short generic query ("shop") over-match
//     every record in an unrelated exact category.
//
// Conflating the two reintroduces false positives on single-word category
// names; keep them independent.
type Scorer interface {
	Partial(query, field string) int
	Strict(query, field string) int
}

// FuzzyScorer scores with Levenshtein-based ratios.
type FuzzyScorer struct{}

// Partial returns the best partial-alignment ratio of query against field.
func (FuzzyScorer) Partial(query, field string) int {
	if query == "" || field == "" {
		return 0
	}
	return fuzzy.PartialRatio(strings.ToLower(query), strings.ToLower(field))
}

// Strict returns the whole-string ratio of query against field.
func (FuzzyScorer) Strict(query, field string) int {
	if query == "" || field == "" {
		return 0
	}
	return fuzzy.Ratio(strings.ToLower(query), strings.ToLower(field))
}

// ContainsScorer is the degraded-mode scorer: literal substring containment,
// no graded similarity. Search quality drops but the service keeps answering.
type ContainsScorer struct{}

// Partial returns 100 when either string contains the other, else 0.
func (ContainsScorer) Partial(query, field string) int {
	q, f := strings.ToLower(query), strings.ToLower(field)
	if q == "" || f == "" {
		return 0
	}
	if strings.Contains(f, q) || strings.Contains(q, f) {
		return 100
	}
	return 0
}

// Strict returns 100 on exact equality, else 0.
func (ContainsScorer) Strict(query, field string) int {
	if query == "" || field == "" {
		return 0
	}
	if strings.EqualFold(query, field) {
		return 100
	}
	return 0
}

// BaseScore computes the query-relevance score for one record: the maximum
// across the per-field sub-scores, not an average, so a strong match on any
// single field carries the record. When the record's subcategory is in the
// expanded synonym target set, the subcategory sub-score is forced to 100
// regardless of literal similarity.
func BaseScore(s Scorer, query string, p *place.Place, synonyms map[string]struct{}) int {
	best := s.Partial(query, p.Name)

	if v := s.Partial(query, p.Description); v > best {
		best = v
	}
	if v := s.Strict(query, p.Category); v > best {
		best = v
	}

	subScore := s.Strict(query, p.Subcategory)
	if p.Subcategory != "" {
		if _, ok := synonyms[strings.ToLower(p.Subcategory)]; ok {
			subScore = 100
		}
	}
	if subScore > best {
		best = subScore
	}

	return best
}
