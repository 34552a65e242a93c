package core

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	var _ MetricsRecorder = rec

	ctx := context.Background()
	rec.Observe(ctx, "create_baby", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_baby", true, 2*time.Millisecond)
	rec.Observe(ctx, "share_baby", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // unnamed operations are dropped

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("create_baby", "success")); got != 2 {
		t.Fatalf("create_baby success count %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("share_baby", "error")); got != 1 {
		t.Fatalf("share_baby error count %v", got)
	}
	// One histogram series per observed operation.
	if got := testutil.CollectAndCount(rec.durations); got != 2 {
		t.Fatalf("expected 2 duration series, got %d", got)
	}
}

func TestPrometheusMetricsRecorderDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "add_feeding", true, 10*time.Millisecond)
	rec.Observe(ctx, "add_feeding", false, 5*time.Millisecond)

	snap := rec.Snapshot()
	if snap.Results["add_feeding"]["success"] != 1 || snap.Results["add_feeding"]["error"] != 1 {
		t.Fatalf("result counters %+v", snap.Results)
	}
	if snap.DurationsMS["add_feeding"] != 15 {
		t.Fatalf("duration total %v", snap.DurationsMS["add_feeding"])
	}
}

func TestJSONTracerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "export")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != "export" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if buf.Len() == 0 {
		t.Fatal("no trace output written")
	}
}
