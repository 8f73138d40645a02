package shutdown

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestStopCancelsStopCtxOnly(t *testing.T) {
	c := New()
	c.Stop()

	select {
	case <-c.StopCtx().Done():
	default:
		t.Fatal("expected StopCtx to be cancelled after Stop")
	}
	select {
	case <-c.TerminateCtx().Done():
		t.Fatal("Stop must not cancel TerminateCtx")
	default:
	}
}

// realWorker mimics the production worker loop: it never exits on its own,
// only when terminateCtx is cancelled, exactly like an idle worker.Pool
// goroutine looping on sleepOrDone.
func realWorker(c *Coordinator) {
	c.WaitGroup().Add(1)
	go func() {
		<-c.TerminateCtx().Done()
		c.WaitGroup().Done()
	}()
}

func TestTerminateReturnsCleanWhenDrainedBeforeTimeout(t *testing.T) {
	c := New()
	realWorker(c)

	var drainedFlag int32
	go func() {
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt32(&drainedFlag, 1)
	}()

	clean := c.Terminate(time.Second, func() bool { return atomic.LoadInt32(&drainedFlag) == 1 })
	if !clean {
		t.Error("expected a clean shutdown once the drain predicate reports zero backlog/activity")
	}
	select {
	case <-c.TerminateCtx().Done():
	default:
		t.Error("expected TerminateCtx cancelled after a clean Terminate")
	}
}

func TestTerminateForceCancelsWhenNeverDrained(t *testing.T) {
	c := New()
	realWorker(c) // only exits once terminateCtx is force-cancelled

	clean := c.Terminate(10*time.Millisecond, func() bool { return false })
	if clean {
		t.Error("expected an unclean shutdown when drained never reports true before the deadline")
	}
	select {
	case <-c.TerminateCtx().Done():
	default:
		t.Error("expected TerminateCtx force-cancelled after timeout")
	}
}

func TestTerminateWaitsForActualExitNotJustDrain(t *testing.T) {
	c := New()
	exited := make(chan struct{})
	c.WaitGroup().Add(1)
	go func() {
		<-c.TerminateCtx().Done()
		time.Sleep(20 * time.Millisecond) // simulate finishing an in-flight task
		close(exited)
		c.WaitGroup().Done()
	}()

	c.Terminate(time.Second, func() bool { return true })

	select {
	case <-exited:
	default:
		t.Error("expected Terminate to block until the tracked goroutine actually exited")
	}
}

func TestTerminateNilDrainedTreatsAsImmediatelyDrained(t *testing.T) {
	c := New()
	clean := c.Terminate(time.Second, nil)
	if !clean {
		t.Error("expected a nil drained predicate to be treated as already drained")
	}
}

func TestTerminateIsIdempotentWithStop(t *testing.T) {
	c := New()
	c.Stop()
	// Calling Terminate after Stop must not panic or double-cancel badly.
	clean := c.Terminate(50*time.Millisecond, func() bool { return true })
	if !clean {
		t.Error("expected clean shutdown: no goroutines were ever tracked")
	}
}
