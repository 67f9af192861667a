package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.IncSuccess("profile-merge")
	m.IncSuccess("profile-merge")
	m.IncFailure("path-mining")
	m.AddRecords("profile-merge", 123)
	m.ObserveDuration("profile-merge", 2*time.Second)

	if got := testutil.ToFloat64(m.success.WithLabelValues("profile-merge")); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("path-mining")); got != 1 {
		t.Fatalf("failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("profile-merge")); got != 123 {
		t.Fatalf("records count = %v, want 123", got)
	}
}

func TestJobMetricsNilSafe(t *testing.T) {
	var m *JobMetrics
	m.IncSuccess("x")
	m.IncFailure("x")
	m.AddRecords("x", 1)
	m.ObserveDuration("x", time.Second)

	empty := NewJobMetrics(nil)
	empty.IncSuccess("x")
}

func TestIngestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg)

	m.IncReceived("view")
	m.IncReceived("view")
	m.IncRejected("invalid_payload")
	m.AddInserted(10)

	if got := testutil.ToFloat64(m.received.WithLabelValues("view")); got != 2 {
		t.Fatalf("received count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.inserted); got != 10 {
		t.Fatalf("inserted count = %v, want 10", got)
	}
}
