/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	c := NewCollector("test")
	c.RecordOperation("person", "find", "key", nil, 5*time.Millisecond)
	c.RecordOperation("person", "find", "key", nil, 5*time.Millisecond)
	c.RecordOperation("person", "find", "index", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(c.Operations.WithLabelValues("person", "find", "key", StatusOK)); got != 2 {
		t.Errorf("expected 2 ok key finds, got %v", got)
	}
	if got := testutil.ToFloat64(c.Operations.WithLabelValues("person", "find", "index", StatusError)); got != 1 {
		t.Errorf("expected 1 failed index find, got %v", got)
	}
}

func TestRecordStaleAndFailures(t *testing.T) {
	c := NewCollector("")
	c.RecordStaleQuery("person", "warn")
	c.RecordItemFailures("person", "create", 2)
	c.RecordItemFailures("person", "create", 0)

	if got := testutil.ToFloat64(c.StaleQueries.WithLabelValues("person", "warn")); got != 1 {
		t.Errorf("expected 1 stale query, got %v", got)
	}
	if got := testutil.ToFloat64(c.ItemFailures.WithLabelValues("person", "create")); got != 2 {
		t.Errorf("expected 2 item failures, got %v", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordOperation("person", "find", "key", nil, time.Millisecond)
	c.RecordStaleQuery("person", "warn")
	c.RecordItemFailures("person", "remove", 1)
	if c.Registry() != nil {
		t.Error("expected nil registry")
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil collector handler, got %d", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector("recordstore")
	c.RecordOperation("person", "remove", "key", nil, time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "recordstore_operations_total") {
		t.Errorf("expected operations counter in output, got:\n%s", body)
	}
}
