package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/durable"
)

const (
	opAdd    = "add"
	opDelete = "delete"
	opClear  = "clear"

	resultOK           = "ok"
	resultDuplicate    = "duplicate"
	resultNotFound     = "not_found"
	resultMemoryOnly   = "memory_only"
	resultDurableError = "durable_error"
)

// Metrics holds the registry's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ops          *prometheus.CounterVec
	records      prometheus.Gauge
	bytes        prometheus.Gauge
	durableCount prometheus.Gauge
	connected    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medstudy",
			Name:      "operations_total",
			Help:      "Registry mutations by operation and outcome.",
		}, []string{"op", "result"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medstudy",
			Name:      "memory_records",
			Help:      "Records in the in-memory index.",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medstudy",
			Name:      "memory_size_bytes",
			Help:      "Summed study size of the in-memory records.",
		}),
		durableCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medstudy",
			Name:      "durable_records",
			Help:      "Durable record count at the last consistency check.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medstudy",
			Name:      "durable_connected",
			Help:      "1 when the durable tier is connected, 0 when degraded.",
		}),
	}
	reg.MustRegister(m.ops, m.records, m.bytes, m.durableCount, m.connected)
	return m
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setMemory(n int, size int64) {
	if m == nil {
		return
	}
	m.records.Set(float64(n))
	m.bytes.Set(float64(size))
}

func (m *Metrics) setDurableCount(n int) {
	if m == nil {
		return
	}
	m.durableCount.Set(float64(n))
}

func (m *Metrics) setDurableState(s durable.State) {
	if m == nil {
		return
	}
	if s == durable.Connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}
