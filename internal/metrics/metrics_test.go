package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrementAndAreLabeled(t *testing.T) {
	IndexRunsTotal.WithLabelValues(OutcomeOK, PathInProcess).Inc()
	if got := testutil.ToFloat64(IndexRunsTotal.WithLabelValues(OutcomeOK, PathInProcess)); got < 1 {
		t.Fatalf("expected IndexRunsTotal to have been incremented, got %v", got)
	}

	IpcRequestsTotal.WithLabelValues("projects:list", OutcomeError).Inc()
	if got := testutil.ToFloat64(IpcRequestsTotal.WithLabelValues("projects:list", OutcomeError)); got < 1 {
		t.Fatalf("expected IpcRequestsTotal to have been incremented, got %v", got)
	}
}

func TestIndexedFilesGaugeSettable(t *testing.T) {
	IndexedFiles.Set(42)
	if got := testutil.ToFloat64(IndexedFiles); got != 42 {
		t.Fatalf("expected gauge set to 42, got %v", got)
	}
}
