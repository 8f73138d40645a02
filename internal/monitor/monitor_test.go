package monitor

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/task"
	"github.com/five82/dashcamd/internal/worker"
)

func allLimits(soft, hard int) map[task.Category]queue.Limits {
	m := make(map[task.Category]queue.Limits, len(task.Categories()))
	for _, c := range task.Categories() {
		m[c] = queue.Limits{Soft: soft, Hard: hard}
	}
	return m
}

type fakeRecorder struct {
	calls int
}

func (f *fakeRecorder) Record(queue.Snapshot, []worker.Status, []worker.Status) {
	f.calls++
}

func TestTickWritesSnapshotAndRecordsMetrics(t *testing.T) {
	q := queue.New(allLimits(100, 100), 0.8)
	q.Push(task.Task{Category: task.VehicleDetect})

	gpu := worker.NewStatusTable()
	cpu := worker.NewStatusTable()
	rec := &fakeRecorder{}

	var buf bytes.Buffer
	m := New(q, gpu, cpu, time.Second, &buf, rec)
	m.tick()

	if rec.calls != 1 {
		t.Errorf("Recorder.Record calls = %d, want 1", rec.calls)
	}
	out := buf.String()
	if !strings.Contains(out, "PIPELINE STATUS") {
		t.Error("expected output to contain the status header")
	}
	if !strings.Contains(out, task.VehicleDetect.String()) {
		t.Error("expected output to mention the category with backlog")
	}
}

func TestTickSkipsOutputWhenWriterIsNil(t *testing.T) {
	q := queue.New(allLimits(100, 100), 0.8)
	rec := &fakeRecorder{}
	m := New(q, worker.NewStatusTable(), worker.NewStatusTable(), time.Second, nil, rec)
	m.tick() // must not panic
	if rec.calls != 1 {
		t.Errorf("Recorder.Record calls = %d, want 1 (still recorded even with no writer)", rec.calls)
	}
}

func TestTickSkipsMetricsWhenRecorderIsNil(t *testing.T) {
	q := queue.New(allLimits(100, 100), 0.8)
	var buf bytes.Buffer
	m := New(q, worker.NewStatusTable(), worker.NewStatusTable(), time.Second, &buf, nil)
	m.tick() // must not panic with a nil Recorder
	if buf.Len() == 0 {
		t.Error("expected output even without a metrics recorder")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := queue.New(allLimits(100, 100), 0.8)
	m := New(q, worker.NewStatusTable(), worker.NewStatusTable(), time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
