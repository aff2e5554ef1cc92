// Package update sequences validation, incentive scoring, and persistence
// for crowdsourced place edits. One Apply call is one atomic-per-record
// operation: it either reaches a terminal state (accepted, rejected,
// not-found) or fails without touching the store.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/weplace/weplace/internal/oracle"
	"github.com/weplace/weplace/internal/place"
	"github.com/weplace/weplace/internal/reward"
)

// Terminal statuses of an update.
const (
	StatusAccepted = "success"
	StatusRejected = "rejected"
)

// ErrMalformedInput is returned for proposals that are empty or name fields
// outside the editable schema. Checked before any store access.
var ErrMalformedInput = errors.New("malformed update proposal")

// Result is the outcome of one update orchestration.
//
// Staleness and Relevance describe the record as it was before the write
// landed: compensation rewards the act of correcting stale data, so it must
// be computed against the pre-update state.
type Result struct {
	Status       string
	Message      string
	Compensation float64
	Staleness    float64
	Relevance    float64
	Reason       string
}

// Orchestrator runs the update state machine. It holds no locks and keeps no
// per-request state; record-level serialization is the store's job.
type Orchestrator struct {
	store     place.Repository
	validator oracle.Validator
	relevance reward.RelevanceEstimator
	baseRate  float64
	now       func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithBaseRate overrides the compensation base rate.
func WithBaseRate(rate float64) Option {
	return func(o *Orchestrator) { o.baseRate = rate }
}

// WithClock overrides the time source. Tests use this to pin "now"; the
// production clock is time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(store place.Repository, validator oracle.Validator, relevance reward.RelevanceEstimator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		validator: validator,
		relevance: relevance,
		baseRate:  reward.DefaultBaseRate,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply runs one update through its terminal state:
//
//  1. Reject malformed proposals before touching the store.
//  2. Fetch the current record; place.ErrNotFound passes through.
//  3. Ask the validation oracle. A rejection is a valid terminal outcome
//     with zero compensation, not an error.
//  4. Score staleness and relevance against the pre-update record, using a
//     single now() for both the arithmetic and the persisted timestamp.
//  5. Persist the proposed fields and the timestamp refresh in one atomic
//     store write.
func (o *Orchestrator) Apply(ctx context.Context, id string, changes map[string]string) (*Result, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrMalformedInput)
	}
	if err := place.ValidateFields(changes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	current, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verdict := o.validator.Validate(ctx, recordFields(current), changes)
	if !verdict.Accepted {
		slog.InfoContext(ctx, "update rejected by validation oracle",
			"place_id", id, "reason", verdict.Reason)
		return &Result{
			Status:  StatusRejected,
			Message: verdict.Reason,
			Reason:  verdict.Reason,
		}, nil
	}

	now := o.now()
	staleness := reward.Staleness(current.LastUpdated, now)
	relevance := o.relevance.Estimate(ctx, current)
	compensation := reward.Compensation(o.baseRate, staleness, relevance)

	if err := o.store.UpdateFields(ctx, id, changes, now); err != nil {
		return nil, fmt.Errorf("persist update for %s: %w", id, err)
	}

	slog.InfoContext(ctx, "update accepted",
		"place_id", id,
		"fields", len(changes),
		"staleness", staleness,
		"compensation", compensation)

	return &Result{
		Status:       StatusAccepted,
		Message:      "Update accepted",
		Compensation: compensation,
		Staleness:    staleness,
		Relevance:    relevance,
		Reason:       verdict.Reason,
	}, nil
}

// recordFields flattens a record into the key-value map the oracle compares
// proposals against. Only human-editable context is included; coordinates
// and timestamps add nothing to a content-validation prompt.
func recordFields(p *place.Place) map[string]string {
	return map[string]string{
		"name":          p.Name,
		"category":      p.Category,
		"subcategory":   p.Subcategory,
		"address":       p.Address,
		"description":   p.Description,
		"phone":         p.Phone,
		"website":       p.Website,
		"opening_hours": p.OpeningHours,
	}
}
