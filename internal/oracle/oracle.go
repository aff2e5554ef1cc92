// Package oracle adapts an external text-generation service into a
// content-validation gate for crowdsourced place updates. The adapter is
// fail-closed: any transport or parse problem talking to the service becomes
// a rejection with a reason, never an error and never a silent acceptance.
package oracle

import "context"

// Verdict is the oracle's decision on a proposed update. It is transient:
// returned to the caller, surfaced in the update response, never stored.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// Validator decides whether a proposed change to a place record should be
// applied. current is the full stored record as a field map; proposed holds
// only the changed fields. Implementations must not return errors: every
// failure mode collapses into a rejecting Verdict.
type Validator interface {
	Validate(ctx context.Context, current, proposed map[string]string) Verdict
}

// Reject builds a rejecting verdict with the given reason.
func Reject(reason string) Verdict {
	return Verdict{Accepted: false, Reason: reason}
}
