package driftsync

import (
	"github.com/driftsync/driftsync/utils"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments one batcher. Register with any prometheus
// registerer; a nil *Metrics disables instrumentation.
type Metrics struct {
	batches   *prometheus.CounterVec
	bytesOut  prometheus.Counter
	unbatches prometheus.Counter
	bytesIn   prometheus.Counter
	adopted   prometheus.Counter

	avgBatch *utils.AvgVal
}

func NewMetrics() *Metrics {
	return &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "driftsync_batches_total",
			Help: "Messages produced by Batch, by kind",
		}, []string{"kind"}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftsync_batch_bytes_total",
			Help: "Bytes produced by Batch",
		}),
		unbatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftsync_unbatches_total",
			Help: "Messages consumed by Unbatch",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftsync_unbatch_bytes_total",
			Help: "Bytes consumed by Unbatch",
		}),
		adopted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftsync_adopted_entities_total",
			Help: "Classes and fields created on demand during Unbatch",
		}),
		avgBatch: utils.NewAvgVal(),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.batches, m.bytesOut, m.unbatches, m.bytesIn, m.adopted} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// AvgBatchBytes reports the running mean size of produced messages.
func (m *Metrics) AvgBatchBytes() float64 {
	if m == nil {
		return 0
	}
	return m.avgBatch.Val()
}

func (m *Metrics) observeBatch(kind string, n int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(kind).Inc()
	m.bytesOut.Add(float64(n))
	m.avgBatch.Add(float64(n))
}

func (m *Metrics) observeUnbatch(n int) {
	if m == nil {
		return
	}
	m.unbatches.Inc()
	m.bytesIn.Add(float64(n))
}

func (m *Metrics) observeAdopted() {
	if m == nil {
		return
	}
	m.adopted.Inc()
}
