package search

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/weplace/weplace/internal/geo"
	"github.com/weplace/weplace/internal/place"
)

// MinQueryLength is the shortest query the ranking engine accepts. Shorter
// queries match everything and nothing usefully.
const MinQueryLength = 3

// DefaultThreshold is the base-score cutoff for accepting a candidate.
// The strict-search variant of this engine historically used 60; the
// proximity-aware variant uses 55, and that is the one this service ships.
const DefaultThreshold = 55

// proximityDecay controls how fast the proximity score falls off with
// distance: 100 at 0 km, ~66 at 1 km, ~16 at 5 km.
const proximityDecay = 0.5

// ErrQueryTooShort is returned for queries under MinQueryLength.
var ErrQueryTooShort = errors.New("query too short")

// Options configures one ranking request.
type Options struct {
	// Query is the free-text search string. Minimum MinQueryLength runes.
	Query string

	// Origin is the requester's location; nil disables proximity bonuses.
	Origin *place.Coordinates

	// ProximityWeight scales the proximity bonus. Recommended range 0-2;
	// zero disables the bonus entirely.
	ProximityWeight float64

	// Limit truncates the result list; <= 0 means no truncation.
	Limit int
}

// Result is one ranked candidate. DistanceKm is nil when the distance could
// not be computed (either side lacks coordinates).
type Result struct {
	Place      *place.Place
	Score      float64
	DistanceKm *float64
}

// Ranker filters and orders place candidates against a query.
//
// Acceptance is decided on the base (text relevance) score alone, so
// proximity can re-rank relevant candidates but never promote an irrelevant
// one past the threshold.
type Ranker struct {
	scorer    Scorer
	threshold int
	degraded  bool
}

// NewRanker builds a ranker with the fuzzy scorer and default threshold.
func NewRanker() *Ranker {
	return &Ranker{scorer: FuzzyScorer{}, threshold: DefaultThreshold}
}

// NewDegradedRanker builds a ranker that uses literal substring containment
// instead of fuzzy scoring. Used when fuzzy matching is disabled by
// configuration; quality degrades but search stays up.
func NewDegradedRanker() *Ranker {
	return &Ranker{scorer: ContainsScorer{}, threshold: DefaultThreshold, degraded: true}
}

// WithThreshold overrides the acceptance threshold.
func (r *Ranker) WithThreshold(threshold int) *Ranker {
	r.threshold = threshold
	return r
}

// Degraded reports whether the ranker is in substring-fallback mode.
func (r *Ranker) Degraded() bool {
	return r.degraded
}

// Rank scores the candidates, drops those whose base score does not exceed
// the threshold, and returns the survivors ordered by final score descending.
// The sort is stable: candidates with equal final scores keep their original
// retrieval order. The candidate slice itself is never modified.
func (r *Ranker) Rank(candidates []*place.Place, opts Options) ([]Result, error) {
	query := strings.TrimSpace(opts.Query)
	if len([]rune(query)) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	synonyms := ExpandSynonyms(query)

	var results []Result
	for _, p := range candidates {
		var base int
		if r.degraded {
			if !containsLiteral(p, query) {
				continue
			}
			base = 100
		} else {
			base = BaseScore(r.scorer, query, p, synonyms)
			if base <= r.threshold {
				continue
			}
		}

		score := float64(base)
		var distPtr *float64

		dist := geo.DistanceBetween(opts.Origin, p.Coordinates)
		if !math.IsInf(dist, 1) {
			d := dist
			distPtr = &d
			if opts.ProximityWeight != 0 {
				proximity := 100 / (1 + proximityDecay*dist)
				score += opts.ProximityWeight * proximity
			}
		}

		results = append(results, Result{Place: p, Score: score, DistanceKm: distPtr})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// containsLiteral is the degraded-mode acceptance check: case-insensitive
// substring containment across every searchable field, address included.
func containsLiteral(p *place.Place, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{p.Name, p.Address, p.Category, p.Subcategory, p.Description} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
