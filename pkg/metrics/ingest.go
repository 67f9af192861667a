package metrics

import "github.com/prometheus/client_golang/prometheus"

// IngestMetrics tracks the event intake pipeline.
type IngestMetrics struct {
	received *prometheus.CounterVec
	rejected *prometheus.CounterVec
	inserted prometheus.Counter
}

// NewIngestMetrics registers intake counters on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_received",
		Help: "Raw interaction events received from the event source.",
	}, []string{"event_type"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_rejected",
		Help: "Events rejected at ingest, by reason.",
	}, []string{"reason"})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_events_inserted",
		Help: "Events appended to the event store.",
	})
	reg.MustRegister(received, rejected, inserted)
	return &IngestMetrics{received: received, rejected: rejected, inserted: inserted}
}

func (m *IngestMetrics) IncReceived(eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *IngestMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *IngestMetrics) AddInserted(count int) {
	if m == nil || m.inserted == nil || count <= 0 {
		return
	}
	m.inserted.Add(float64(count))
}
