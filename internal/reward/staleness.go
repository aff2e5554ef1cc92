// Package reward implements the incentive model for crowdsourced place
// updates: staleness of the stored record, estimated record relevance, and
// the bounded compensation derived from the two.
package reward

import "time"

// stalenessHorizon is the age at which a record is considered fully stale.
const stalenessHorizon = 365 * 24 * time.Hour

// Staleness derives a freshness score from a record's last-updated
// timestamp: 0.0 for a record updated at now, growing linearly to 1.0 at one
// year and clamped there. A nil timestamp (never updated since import) is
// maximally stale.
//
// Callers must pass the same now for every calculation inside a single
// orchestration, so staleness and the persisted timestamp cannot skew.
func Staleness(lastUpdated *time.Time, now time.Time) float64 {
	if lastUpdated == nil {
		return 1.0
	}

	age := now.Sub(*lastUpdated)
	if age <= 0 {
		return 0.0
	}
	if age >= stalenessHorizon {
		return 1.0
	}
	return float64(age) / float64(stalenessHorizon)
}
