package tasks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/desertthunder/bilisync/internal/models"
)

const (
	statusSuccess        = "success"
	statusFailure        = "failure"
	statusAlreadyRunning = "already_running"
)

// Metrics holds the sync engine's Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	SyncsTotal       *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	HiddenItemsTotal prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bilisync_syncs_total",
				Help: "Total number of syncs by playlist type and outcome",
			},
			[]string{"type", "status"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bilisync_sync_duration_seconds",
				Help:    "Time spent running syncs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		HiddenItemsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bilisync_hidden_items_total",
				Help: "Total number of remote items skipped because they were hidden from listings",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.SyncsTotal, m.SyncDuration, m.HiddenItemsTotal)
	}
	return m
}

func (m *Metrics) observe(t models.PlaylistType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(string(t), status).Inc()
	if status != statusAlreadyRunning {
		m.SyncDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) hidden(n int) {
	if m == nil || n == 0 {
		return
	}
	m.HiddenItemsTotal.Add(float64(n))
}
