package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("yield", OutcomeGenerated, 20*time.Millisecond)
	m.Observe("yield", OutcomeGenerated, 30*time.Millisecond)
	m.Observe("economic", OutcomeEmptyCell, time.Millisecond)

	if got := testutil.ToFloat64(m.Requests().WithLabelValues("yield", OutcomeGenerated)); got != 2 {
		t.Errorf("expected 2 generated yield requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests().WithLabelValues("economic", OutcomeEmptyCell)); got != 1 {
		t.Errorf("expected 1 empty economic request, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 2 {
		t.Errorf("expected 2 metric families, got %d", len(families))
	}
}

func TestObserveNil(t *testing.T) {
	var m *Metrics
	m.Observe("yield", OutcomeGenerated, time.Millisecond)
}

func TestReject(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Reject("economic", OutcomeBadRequest)

	if got := testutil.ToFloat64(m.Requests().WithLabelValues("economic", OutcomeBadRequest)); got != 1 {
		t.Errorf("expected 1 rejected request, got %v", got)
	}
	if got := testutil.CollectAndCount(reg, "nitrogen_response_chart_generation_seconds"); got != 0 {
		t.Errorf("expected no duration samples for rejected requests, got %d", got)
	}

	var empty *Metrics
	empty.Reject("yield", OutcomeError)
}
