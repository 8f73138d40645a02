package queue

import (
	"testing"

	"github.com/five82/dashcamd/internal/task"
)

func allLimits(soft, hard int) map[task.Category]Limits {
	m := make(map[task.Category]Limits, len(task.Categories()))
	for _, c := range task.Categories() {
		m[c] = Limits{Soft: soft, Hard: hard}
	}
	return m
}

func TestPushPopFIFO(t *testing.T) {
	q := New(allLimits(10, 20), 0.8)
	for i := 0; i < 3; i++ {
		if !q.Push(task.Task{Category: task.VehicleDetect, FrameIdx: i}) {
			t.Fatalf("push %d rejected", i)
		}
	}
	for i := 0; i < 3; i++ {
		tk, ok := q.Pop(task.VehicleDetect)
		if !ok {
			t.Fatalf("pop %d: empty", i)
		}
		if tk.FrameIdx != i {
			t.Errorf("pop %d: got frame %d, want %d (not FIFO)", i, tk.FrameIdx, i)
		}
	}
	if _, ok := q.Pop(task.VehicleDetect); ok {
		t.Fatal("expected empty queue")
	}
}

// TestHardLimitBackpressure matches the backpressure scenario: hard_limit=2,
// 5 frames pushed — 2 succeed, 3 are rejected until popped.
func TestHardLimitBackpressure(t *testing.T) {
	limits := allLimits(2, 2)
	q := New(limits, 0.8)

	accepted := 0
	for i := 0; i < 5; i++ {
		if q.Push(task.Task{Category: task.VehicleDetect, FrameIdx: i}) {
			accepted++
		}
	}
	if accepted != 2 {
		t.Fatalf("accepted = %d, want 2", accepted)
	}
	if !q.IsBackedUp(task.VehicleDetect) {
		t.Error("expected category flagged backed up at hard limit")
	}

	if _, ok := q.Pop(task.VehicleDetect); !ok {
		t.Fatal("expected a task to pop")
	}
	if q.Push(task.Task{Category: task.VehicleDetect, FrameIdx: 5}) != true {
		t.Fatal("expected push to succeed after popping below hard limit")
	}
}

func TestRecoverHysteresis(t *testing.T) {
	// soft=10, recoverRatio=0.8 -> backed_up set at >=10, clears at <=8.
	q := New(allLimits(10, 100), 0.8)

	for i := 0; i < 10; i++ {
		q.Push(task.Task{Category: task.VehicleDetect, FrameIdx: i})
	}
	if !q.IsBackedUp(task.VehicleDetect) {
		t.Fatal("expected backed up at soft limit")
	}

	// Drain to 9: still above 0.8*10=8, should remain backed up.
	q.Pop(task.VehicleDetect)
	if !q.IsBackedUp(task.VehicleDetect) {
		t.Fatal("expected still backed up at depth 9")
	}

	// Drain to 8: at the recover threshold, should clear.
	q.Pop(task.VehicleDetect)
	if q.IsBackedUp(task.VehicleDetect) {
		t.Fatal("expected recovered at depth 8")
	}
}

func TestBusiestCategoryTieBreakDeclarationOrder(t *testing.T) {
	q := New(allLimits(100, 100), 0.8)
	// VehicleDetect and PlateDetect tied at 1 each; PlateDetect declared
	// after VehicleDetect, so VehicleDetect should win the tie.
	q.Push(task.Task{Category: task.PlateDetect})
	q.Push(task.Task{Category: task.VehicleDetect})

	cat, ok := q.BusiestCategory(task.GPULane)
	if !ok {
		t.Fatal("expected a busiest category")
	}
	if cat != task.VehicleDetect {
		t.Errorf("BusiestCategory = %s, want %s (declaration-order tie-break)", cat, task.VehicleDetect)
	}
}

func TestBusiestCategoryEmptyLane(t *testing.T) {
	q := New(allLimits(100, 100), 0.8)
	if _, ok := q.BusiestCategory(task.GPULane); ok {
		t.Fatal("expected no busiest category when lane is empty")
	}
}

func TestSnapshotConsistency(t *testing.T) {
	q := New(allLimits(2, 2), 0.8)
	q.Push(task.Task{Category: task.VehicleDetect})
	q.Push(task.Task{Category: task.VehicleDetect})

	snap := q.Snapshot()
	if snap.Backlog[task.VehicleDetect] != 2 {
		t.Errorf("Backlog = %d, want 2", snap.Backlog[task.VehicleDetect])
	}
	if !snap.BackedUp[task.VehicleDetect] {
		t.Error("expected backed up in snapshot")
	}
	if snap.GPUBacklog != 2 {
		t.Errorf("GPUBacklog = %d, want 2", snap.GPUBacklog)
	}
}

func TestUnboundedCategoryNeverBackedUp(t *testing.T) {
	limits := allLimits(0, 0)
	q := New(limits, 0.8)
	for i := 0; i < 1000; i++ {
		if !q.Push(task.Task{Category: task.VehicleDetect}) {
			t.Fatalf("push %d rejected with soft=hard=0", i)
		}
	}
	if q.IsBackedUp(task.VehicleDetect) {
		t.Error("expected never backed up with soft=0")
	}
}

func TestShutdownDiscardsEveryQueuedTask(t *testing.T) {
	q := New(allLimits(10, 20), 0.8)
	q.Push(task.Task{Category: task.VehicleDetect})
	q.Push(task.Task{Category: task.PlateDetect})

	q.Shutdown()

	if q.TotalBacklog() != 0 {
		t.Errorf("TotalBacklog after Shutdown = %d, want 0", q.TotalBacklog())
	}
	if q.IsBackedUp(task.VehicleDetect) {
		t.Error("expected backed_up cleared after Shutdown")
	}
	if _, ok := q.Pop(task.VehicleDetect); ok {
		t.Error("expected no tasks poppable after Shutdown")
	}
}
