package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordTriageOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRun("auto_closed")
	m.RecordRun("auto_closed")
	m.RecordRun("failed")
	m.RecordRetrievalFailure()
	m.RecordAuditFailure()
	m.SetQueueDepth(3)
	m.ObserveStage("classify", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TriageRuns.WithLabelValues("auto_closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TriageRuns.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun("failed")
		m.RecordRequest("/x", "GET", 200, time.Millisecond)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.ObserveConfidence("tech", 0.5)
		m.SetQueueDepth(1)
	})
}
