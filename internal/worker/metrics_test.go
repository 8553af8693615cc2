package worker

import "testing"

func TestNewMetrics_RegistersWithoutPanicking(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("expected a non-nil Metrics")
	}
	m.recordCycle("success", 1.5)
	m.ArticlesProcessedTotal.Inc()
	m.CycleLastSuccessStamp.SetToCurrentTime()
}
