/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package executor

import (
	stderrors "errors"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/storagemodels"
)

// Outcome is the result of one item of a bulk operation.
type Outcome struct {
	ID string
	// Applied reports that the item resolved: found, created, removed or
	// updated. An absent key leaves it false without an error.
	Applied bool
	Record  storagemodels.Record
	Err     error
}

// Aggregate combines the outcomes of a bulk operation. Outcomes keep the
// order of the items they were produced for.
type Aggregate struct {
	Op         string
	Collection string
	Outcomes   []Outcome
}

// Count returns the number of applied items.
func (a *Aggregate) Count() int {
	n := 0
	for _, o := range a.Outcomes {
		if o.Applied && o.Err == nil {
			n++
		}
	}
	return n
}

// Records returns the records of applied items in item order.
func (a *Aggregate) Records() []storagemodels.Record {
	out := make([]storagemodels.Record, 0, len(a.Outcomes))
	for _, o := range a.Outcomes {
		if o.Applied && o.Err == nil && o.Record != nil {
			out = append(out, o.Record)
		}
	}
	return out
}

// Failures returns the failed items with their positions.
func (a *Aggregate) Failures() []errors.ItemError {
	var failures []errors.ItemError
	for i, o := range a.Outcomes {
		if o.Err != nil {
			failures = append(failures, errors.ItemError{Index: i, ID: o.ID, Err: o.Err})
		}
	}
	return failures
}

// Err returns a *errors.BatchError listing the failed items, or nil.
func (a *Aggregate) Err() error {
	failures := a.Failures()
	if len(failures) == 0 {
		return nil
	}
	return &errors.BatchError{Op: a.Op, Failures: failures}
}

// Fatal returns an error when no item succeeded and at least one failed:
// the batch as a whole could not be carried out. When every item failed
// with the same error, that error is returned unchanged.
func (a *Aggregate) Fatal() error {
	failures := a.Failures()
	if len(failures) == 0 || len(failures) < len(a.Outcomes) {
		return nil
	}
	first := failures[0].Err
	for _, f := range failures[1:] {
		if !stderrors.Is(f.Err, first) {
			return a.Err()
		}
	}
	return first
}
