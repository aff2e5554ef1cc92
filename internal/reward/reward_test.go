package reward

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/weplace/weplace/internal/place"
)

func TestStaleness(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ts := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name        string
		lastUpdated *time.Time
		want        float64
	}{
		{"nil timestamp is fully stale", nil, 1.0},
		{"updated now", ts(0), 0.0},
		{"future timestamp clamps to zero", ts(-time.Hour), 0.0},
		{"half a year", ts(365 * 12 * time.Hour), 0.5},
		{"exactly one year", ts(365 * 24 * time.Hour), 1.0},
		{"beyond one year clamps", ts(5 * 365 * 24 * time.Hour), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Staleness(tt.lastUpdated, now)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Staleness() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSimulatedEstimator_Bounds(t *testing.T) {
	est := NewSimulatedEstimator(42)
	p := &place.Place{ID: "x"}

	for i := 0; i < 1000; i++ {
		v := est.Estimate(context.Background(), p)
		if v < MinRelevance || v > MaxRelevance {
			t.Fatalf("relevance %f outside [%f, %f]", v, MinRelevance, MaxRelevance)
		}
	}
}

func TestSimulatedEstimator_Deterministic(t *testing.T) {
	a := NewSimulatedEstimator(7)
	b := NewSimulatedEstimator(7)
	p := &place.Place{ID: "x"}

	for i := 0; i < 10; i++ {
		if av, bv := a.Estimate(context.Background(), p), b.Estimate(context.Background(), p); av != bv {
			t.Fatalf("same seed diverged at draw %d: %f vs %f", i, av, bv)
		}
	}
}

func TestFixedEstimator(t *testing.T) {
	est := FixedEstimator{Value: 0.5}
	if got := est.Estimate(context.Background(), nil); got != 0.5 {
		t.Errorf("FixedEstimator = %f, want 0.5", got)
	}
}

func TestCompensation(t *testing.T) {
	tests := []struct {
		name      string
		baseRate  float64
		staleness float64
		relevance float64
		want      float64
	}{
		{"full payout", 10.0, 1.0, 1.0, 10.0},
		{"zero staleness pays nothing", 10.0, 0.0, 0.9, 0.0},
		{"zero relevance pays nothing", 10.0, 1.0, 0.0, 0.0},
		{"typical", 10.0, 0.5, 0.4, 2.0},
		{"rounded to two decimals", 10.0, 1.0/3.0, 0.1, 0.33},
		{"staleness clamped above one", 10.0, 1.7, 1.0, 10.0},
		{"negative factors clamp to zero", 10.0, -0.5, 0.5, 0.0},
		{"custom base rate", 25.0, 1.0, 0.5, 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compensation(tt.baseRate, tt.staleness, tt.relevance)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Compensation() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCompensation_Bounded(t *testing.T) {
	for s := 0.0; s <= 1.0; s += 0.1 {
		for r := 0.0; r <= 1.0; r += 0.1 {
			got := Compensation(DefaultBaseRate, s, r)
			if got < 0 || got > DefaultBaseRate {
				t.Fatalf("Compensation(%f, %f) = %f, outside [0, %f]", s, r, got, DefaultBaseRate)
			}
		}
	}
}
