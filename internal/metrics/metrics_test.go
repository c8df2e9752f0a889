package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	// Verify all metric fields are initialized
	if m.UpstreamRequestsTotal == nil {
		t.Error("UpstreamRequestsTotal is nil")
	}
	if m.UpstreamDurationSeconds == nil {
		t.Error("UpstreamDurationSeconds is nil")
	}
	if m.UpstreamRetriesTotal == nil {
		t.Error("UpstreamRetriesTotal is nil")
	}
	if m.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
	if m.CacheMissesTotal == nil {
		t.Error("CacheMissesTotal is nil")
	}
	if m.ExtractionDurationSeconds == nil {
		t.Error("ExtractionDurationSeconds is nil")
	}
	if m.WeeksParsedTotal == nil {
		t.Error("WeeksParsedTotal is nil")
	}
	if m.APIRequestsTotal == nil {
		t.Error("APIRequestsTotal is nil")
	}
	if m.HTTPErrorsTotal == nil {
		t.Error("HTTPErrorsTotal is nil")
	}
	if m.LimiterLevel == nil {
		t.Error("LimiterLevel is nil")
	}
	if m.LimiterWaitDuration == nil {
		t.Error("LimiterWaitDuration is nil")
	}
	if m.SingleflightDedupTotal == nil {
		t.Error("SingleflightDedupTotal is nil")
	}
}

func TestRecordUpstreamRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordUpstreamRequest("udvalg", "success", 1.5)
	m.RecordUpstreamRequest("note", "error", 2.0)
	m.RecordUpstreamRequest("base", "timeout", 30.0)
}

func TestRecordUpstreamRetry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordUpstreamRetry("udvalg", "timeout")
	m.RecordUpstreamRetry("note", "status")
}

func TestRecordCacheHitAndMiss(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordCacheHit("teacher_map")
	m.RecordCacheMiss("teacher_map")
}

func TestRecordWeekParsed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordWeekParsed("ok")
	m.RecordWeekParsed("empty")
	m.RecordWeekParsed("degraded")
	m.RecordWeekParsed("error")
}

func TestRecordHTTPError(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordHTTPError("bad_request")
	m.RecordHTTPError("upstream_error")
	m.RecordHTTPError("network_error")
}

func TestSetLimiterLevel(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.SetLimiterLevel("week_fetch", 5)
	m.SetLimiterLevel("homework_fetch", 20)
}

func TestMetrics_WithDefaultRegistry(t *testing.T) {
	// Test that metrics can be created with a new registry
	// without conflicting with default registry
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Record some metrics
	m.RecordUpstreamRequest("udvalg", "success", 1.0)
	m.RecordCacheHit("teacher_map")
	m.RecordWeekParsed("ok")
	m.RecordAPIRequest("/profiles/:username/weeks/:offset", "200")

	// Gather metrics to verify they were recorded
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Should have metrics registered
	if len(metricFamilies) == 0 {
		t.Error("No metrics were gathered")
	}

	// Check for specific metric names
	expectedMetrics := map[string]bool{
		"glasir_upstream_requests_total":   false,
		"glasir_upstream_duration_seconds": false,
		"glasir_cache_hits_total":          false,
		"glasir_weeks_parsed_total":        false,
		"glasir_api_requests_total":        false,
	}

	for _, mf := range metricFamilies {
		if _, ok := expectedMetrics[mf.GetName()]; ok {
			expectedMetrics[mf.GetName()] = true
		}
	}

	for name, found := range expectedMetrics {
		if !found {
			t.Errorf("Expected metric %q not found", name)
		}
	}
}
