// Package monitor produces periodic human-readable snapshots of queue
// depths and worker liveness (spec §4.7). It takes no control action; it
// only reads queue.Snapshot() and the worker status tables.
package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/task"
	"github.com/five82/dashcamd/internal/worker"
)

// Monitor periodically prints a snapshot to its writer and, when metrics
// is non-nil, mirrors the same snapshot into prometheus gauges.
type Monitor struct {
	queue    *queue.CentralQueue
	gpu      *worker.StatusTable
	cpu      *worker.StatusTable
	interval time.Duration
	out      io.Writer
	metrics  Recorder

	cyan *color.Color
	dim  *color.Color
}

// Recorder is the ambient metrics sink (internal/metrics), kept as an
// interface here so monitor has no direct prometheus dependency of its
// own — it only needs something to hand snapshots to.
type Recorder interface {
	Record(snapshot queue.Snapshot, gpuStatuses, cpuStatuses []worker.Status)
}

// New builds a Monitor. metrics may be nil to skip prometheus recording.
func New(q *queue.CentralQueue, gpu, cpu *worker.StatusTable, interval time.Duration, out io.Writer, metrics Recorder) *Monitor {
	return &Monitor{
		queue:    q,
		gpu:      gpu,
		cpu:      cpu,
		interval: interval,
		out:      out,
		metrics:  metrics,
		cyan:     color.New(color.FgCyan, color.Bold),
		dim:      color.New(color.Faint),
	}
}

// Run ticks until ctx is cancelled, printing one snapshot per tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	snap := m.queue.Snapshot()
	gpuStatuses := m.gpu.Snapshot()
	cpuStatuses := m.cpu.Snapshot()

	if m.metrics != nil {
		m.metrics.Record(snap, gpuStatuses, cpuStatuses)
	}

	if m.out == nil {
		return
	}

	now := time.Now()

	fmt.Fprintln(m.out)
	_, _ = m.cyan.Fprintln(m.out, "PIPELINE STATUS")
	fmt.Fprintf(m.out, "  gpu backlog: %d   cpu backlog: %d\n", snap.GPUBacklog, snap.CPUBacklog)

	for _, c := range task.Categories() {
		flag := ""
		if snap.BackedUp[c] {
			flag = m.dim.Sprint(" [backed up]")
		}
		fmt.Fprintf(m.out, "  %-16s %4d%s\n", c.String(), snap.Backlog[c], flag)
	}

	printWorkers(m.out, "GPU", gpuStatuses, now)
	printWorkers(m.out, "CPU", cpuStatuses, now)
}

func printWorkers(w io.Writer, label string, statuses []worker.Status, now time.Time) {
	fmt.Fprintf(w, "  %s workers:\n", label)
	if len(statuses) == 0 {
		fmt.Fprintln(w, "    (none active)")
		return
	}
	for _, s := range statuses {
		cat := "idle"
		if s.Category != nil {
			cat = s.Category.String()
		}
		age := now.Sub(s.LastHeartbeat)
		fmt.Fprintf(w, "    worker %d  category=%-16s  heartbeat_age=%s\n", s.WorkerID, cat, age.Round(time.Millisecond))
	}
}
