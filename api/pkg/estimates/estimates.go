// Package estimates keeps the totals of the last finished test run per
// agent so the next run can be compared against it.
package estimates

import (
	"context"
	"errors"
	"time"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

var ErrNotFound = errors.New("estimate not found")

//go:generate mockgen -source $GOFILE -destination estimates_mocks.go -package $GOPACKAGE

// Store holds one estimate per agent. Put overwrites unconditionally.
type Store interface {
	Get(ctx context.Context, agentID string) (*types.StoredEstimate, error)
	Put(ctx context.Context, agentID string, estimate *types.StoredEstimate) error
}

// Delta is the difference between two runs, current minus previous.
type Delta struct {
	Previous *types.StoredEstimate
	Current  *types.StoredEstimate

	Time    float64
	Credits float64
}

func (d *Delta) HasPrevious() bool {
	return d.Previous != nil
}

// Faster reports whether the current run took less time than the previous one.
func (d *Delta) Faster() bool {
	return d.HasPrevious() && d.Time < 0
}

// Cheaper reports whether the current run used fewer credits.
func (d *Delta) Cheaper() bool {
	return d.HasPrevious() && d.Credits < 0
}

// Compare computes the before/after delta. prev may be nil when the agent
// has never finished a run.
func Compare(prev, cur *types.StoredEstimate) *Delta {
	d := &Delta{Previous: prev, Current: cur}
	if prev == nil || cur == nil {
		return d
	}
	d.Time = cur.Time - prev.Time
	d.Credits = cur.Credits - prev.Credits
	return d
}

// Lookup returns the stored estimate or nil when none exists yet.
func Lookup(ctx context.Context, store Store, agentID string) (*types.StoredEstimate, error) {
	estimate, err := store.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return estimate, nil
}

func validate(agentID string, estimate *types.StoredEstimate) error {
	if agentID == "" {
		return errors.New("agent ID is required")
	}
	if estimate == nil {
		return errors.New("estimate is required")
	}
	if estimate.Time < 0 || estimate.Credits < 0 {
		return errors.New("estimate cannot be negative")
	}
	return nil
}

func stamp(estimate *types.StoredEstimate) types.StoredEstimate {
	e := *estimate
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}
