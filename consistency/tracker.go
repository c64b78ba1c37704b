/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package consistency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/metrics"
)

// Policy decides what happens to an indexed query issued while key-path
// mutations on its collection may not have reached the index yet.
type Policy string

const (
	// Ignore lets the query run silently.
	Ignore Policy = "ignore"
	// Warn lets the query run, logging and counting it as possibly stale.
	Warn Policy = "warn"
	// Reject fails the query with an IndexPendingError.
	Reject Policy = "reject"
)

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case Ignore, Warn, Reject:
		return p, nil
	case "":
		return Warn, nil
	default:
		return "", fmt.Errorf("unknown consistency policy %q", s)
	}
}

// Config holds the tracker parameters.
type Config struct {
	// Policy applied inside the lag window. Defaults to Warn.
	Policy Policy
	// IndexLag is how long after a key-path mutation an indexed query on
	// the same collection is considered possibly stale. Defaults to 1s.
	IndexLag time.Duration
}

func (c Config) withDefaults() Config {
	if c.Policy == "" {
		c.Policy = Warn
	}
	if c.IndexLag <= 0 {
		c.IndexLag = time.Second
	}
	return c
}

// Tracker remembers the last key-path mutation per collection. It never
// waits for the index and never retries; it only annotates or rejects.
type Tracker struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Collector

	mu      sync.RWMutex
	mutated map[string]time.Time
	// now is injectable for testing.
	now func() time.Time
}

// NewTracker creates a Tracker. logger and m may be nil.
func NewTracker(cfg Config, logger *slog.Logger, m *metrics.Collector) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		config:  cfg.withDefaults(),
		logger:  logger,
		metrics: m,
		mutated: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Policy returns the configured policy.
func (t *Tracker) Policy() Policy {
	return t.config.Policy
}

// Mark records a key-path mutation on collection.
func (t *Tracker) Mark(collection string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mutated[collection] = t.now()
}

// Since returns the time elapsed since the last key-path mutation on
// collection, and false when none was recorded.
func (t *Tracker) Since(collection string) (time.Duration, bool) {
	t.mu.RLock()
	at, ok := t.mutated[collection]
	t.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return t.now().Sub(at), true
}

// Pending reports whether an indexed query on collection may miss recent
// key-path mutations.
func (t *Tracker) Pending(collection string) bool {
	since, ok := t.Since(collection)
	return ok && since < t.config.IndexLag
}

// Check applies the policy before an indexed query on collection.
func (t *Tracker) Check(ctx context.Context, collection string) error {
	since, ok := t.Since(collection)
	if !ok || since >= t.config.IndexLag {
		return nil
	}

	switch t.config.Policy {
	case Reject:
		t.metrics.RecordStaleQuery(collection, string(Reject))
		return errors.NewIndexPendingError(collection, since)
	case Warn:
		t.metrics.RecordStaleQuery(collection, string(Warn))
		t.logger.WarnContext(ctx, "indexed query may miss recent writes",
			"collection", collection,
			"since", since,
			"indexLag", t.config.IndexLag)
	}
	return nil
}

// Forget drops the mutation record of collection.
func (t *Tracker) Forget(collection string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.mutated, collection)
}
