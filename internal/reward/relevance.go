package reward

import (
	"context"
	"math/rand"
	"sync"

	"github.com/weplace/weplace/internal/place"
)

// Relevance bounds. Even a forgotten record keeps a small floor so that
// correcting it is never worthless, and no record saturates the scale.
const (
	MinRelevance = 0.1
	MaxRelevance = 0.9
)

// RelevanceEstimator produces a value in [MinRelevance, MaxRelevance]
// representing the estimated importance of a record. This is a different
// axis from search-query relevance: it measures how much anyone cares about
// the record at all, not how well it matches a query.
//
// A production implementation should source this from per-record call and
// search volume. Until that telemetry exists, SimulatedEstimator stands in
// behind the same interface, so swapping in the real signal requires no
// caller changes.
type RelevanceEstimator interface {
	Estimate(ctx context.Context, p *place.Place) float64
}

// SimulatedEstimator draws a uniform value from the relevance range.
// Deterministic when constructed with a fixed seed, which is how tests
// pin its output.
type SimulatedEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ RelevanceEstimator = (*SimulatedEstimator)(nil)

// NewSimulatedEstimator creates a simulated estimator seeded with the given
// value.
func NewSimulatedEstimator(seed int64) *SimulatedEstimator {
	return &SimulatedEstimator{rng: rand.New(rand.NewSource(seed))}
}

// Estimate returns a simulated relevance in [MinRelevance, MaxRelevance].
func (s *SimulatedEstimator) Estimate(ctx context.Context, p *place.Place) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MinRelevance + s.rng.Float64()*(MaxRelevance-MinRelevance)
}

// FixedEstimator always returns the same relevance. Used in tests and as a
// neutral default when simulation is unwanted.
type FixedEstimator struct {
	Value float64
}

var _ RelevanceEstimator = FixedEstimator{}

// Estimate returns the fixed value.
func (f FixedEstimator) Estimate(ctx context.Context, p *place.Place) float64 {
	return f.Value
}
