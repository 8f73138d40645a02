// Package metrics publishes the monitor's periodic snapshot as prometheus
// gauges (spec §4.7's EXPANSION note) — pure ambient observability, reading
// the same data the human-readable reporter reads and performing no
// control action. Grounded on aistore's go.mod, the pack's
// prometheus/client_golang donor.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/task"
	"github.com/five82/dashcamd/internal/worker"
)

// Metrics holds the gauge vectors updated on every monitor tick.
type Metrics struct {
	registry     *prometheus.Registry
	queueDepth   *prometheus.GaugeVec
	backedUp     *prometheus.GaugeVec
	heartbeatAge *prometheus.GaugeVec
	laneBacklog  *prometheus.GaugeVec
}

// New registers and returns a fresh Metrics against its own registry, so
// tests never collide with a global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashcamd_queue_depth",
			Help: "Current task count per category.",
		}, []string{"category"}),
		backedUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashcamd_queue_backed_up",
			Help: "1 if the category is currently flagged backed up.",
		}, []string{"category"}),
		heartbeatAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashcamd_worker_heartbeat_age_seconds",
			Help: "Seconds since a worker last updated its status.",
		}, []string{"lane", "worker_id"}),
		laneBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashcamd_lane_backlog",
			Help: "Combined backlog across a lane's categories.",
		}, []string{"lane"}),
	}

	reg.MustRegister(m.queueDepth, m.backedUp, m.heartbeatAge, m.laneBacklog)
	return m
}

// Registry exposes the underlying prometheus registry for the /metrics
// HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record implements monitor.Recorder.
func (m *Metrics) Record(snap queue.Snapshot, gpuStatuses, cpuStatuses []worker.Status) {
	for _, c := range task.Categories() {
		m.queueDepth.WithLabelValues(c.String()).Set(float64(snap.Backlog[c]))
		flag := 0.0
		if snap.BackedUp[c] {
			flag = 1.0
		}
		m.backedUp.WithLabelValues(c.String()).Set(flag)
	}
	m.laneBacklog.WithLabelValues("gpu").Set(float64(snap.GPUBacklog))
	m.laneBacklog.WithLabelValues("cpu").Set(float64(snap.CPUBacklog))

	recordHeartbeats(m.heartbeatAge, "gpu", gpuStatuses)
	recordHeartbeats(m.heartbeatAge, "cpu", cpuStatuses)
}

func recordHeartbeats(gauge *prometheus.GaugeVec, lane string, statuses []worker.Status) {
	now := time.Now()
	for _, s := range statuses {
		age := now.Sub(s.LastHeartbeat).Seconds()
		gauge.WithLabelValues(lane, strconv.Itoa(s.WorkerID)).Set(age)
	}
}
