// Package worker implements the busiest-first worker pool described in
// spec §4.4: one Pool per lane, each running a configurable number of
// goroutines that pop tasks from their lane's busiest category, run the
// category's processor and dispatch handler, and release the task's frame
// references in a finally discipline.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/dashcamd/internal/dispatch"
	"github.com/five82/dashcamd/internal/framestore"
	"github.com/five82/dashcamd/internal/processor"
	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/task"
)

// Status is one worker's published liveness record. Each worker writes
// only its own entry (spec §5's single-writer-per-entry policy); readers
// (the monitor) accept eventual consistency.
type Status struct {
	WorkerID      int
	Lane          task.Lane
	Category      *task.Category
	LastHeartbeat time.Time
}

// StatusTable is the shared worker_id → Status mapping the monitor reads.
type StatusTable struct {
	m sync.Map // int -> *Status
}

// NewStatusTable returns an empty table.
func NewStatusTable() *StatusTable {
	return &StatusTable{}
}

func (t *StatusTable) set(workerID int, lane task.Lane, cat *task.Category) {
	t.m.Store(workerID, &Status{
		WorkerID:      workerID,
		Lane:          lane,
		Category:      cat,
		LastHeartbeat: time.Now(),
	})
}

// Clear removes a worker's entry, published once its loop exits.
func (t *StatusTable) Clear(workerID int) {
	t.m.Delete(workerID)
}

// Snapshot returns a copy of every published status, for the monitor.
func (t *StatusTable) Snapshot() []Status {
	var out []Status
	t.m.Range(func(_, v any) bool {
		out = append(out, *v.(*Status))
		return true
	})
	return out
}

// Pool runs every worker goroutine for one lane (GPU or CPU).
type Pool struct {
	lane       task.Lane
	queue      *queue.CentralQueue
	store      *framestore.Store
	processors map[task.Category]processor.Processor
	handlers   dispatch.Registry
	statuses   *StatusTable
	logger     *zap.Logger
	idleSleep  time.Duration
}

// New builds a Pool for one lane.
func New(
	lane task.Lane,
	q *queue.CentralQueue,
	store *framestore.Store,
	processors map[task.Category]processor.Processor,
	handlers dispatch.Registry,
	statuses *StatusTable,
	logger *zap.Logger,
	idleSleep time.Duration,
) *Pool {
	return &Pool{
		lane:       lane,
		queue:      q,
		store:      store,
		processors: processors,
		handlers:   handlers,
		statuses:   statuses,
		logger:     logger,
		idleSleep:  idleSleep,
	}
}

// Run starts n worker goroutines, tracked by wg, all exiting when
// terminateCtx is cancelled (spec §4.8 phase 2: workers exit after
// finishing their current task).
func (p *Pool) Run(terminateCtx context.Context, n int, wg *sync.WaitGroup) {
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.runWorker(terminateCtx, workerID)
		}(i)
	}
}

func (p *Pool) runWorker(ctx context.Context, workerID int) {
	logger := p.logger.With(zap.Int("worker_id", workerID), zap.String("lane", p.lane.String()))
	defer p.statuses.Clear(workerID)

	var current *task.Category
	var resource processor.Resource

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cat, found := p.chooseBusiest(current)
		if !found {
			p.statuses.set(workerID, p.lane, nil)
			if sleepOrDone(ctx, p.idleSleep) {
				return
			}
			continue
		}

		if current == nil || *current != cat {
			proc, ok := p.processors[cat]
			if !ok {
				logger.Error("no processor registered for category", zap.String("category", cat.String()))
				if sleepOrDone(ctx, p.idleSleep) {
					return
				}
				continue
			}
			r, err := proc.Load()
			if err != nil {
				logger.Error("failed to load resource for category", zap.String("category", cat.String()), zap.Error(err))
				if sleepOrDone(ctx, p.idleSleep) {
					return
				}
				continue
			}
			c := cat
			current = &c
			resource = r
			logger.Debug("switched category", zap.String("category", cat.String()))
		}

		p.statuses.set(workerID, p.lane, current)

		t, ok := p.queue.Pop(cat)
		if !ok {
			if sleepOrDone(ctx, p.idleSleep) {
				return
			}
			continue
		}

		p.processOne(ctx, logger, cat, t, resource)
		p.statuses.set(workerID, p.lane, current)
	}
}

// processOne runs steps 2-4 of spec §4.4's processing loop inside a
// recover() boundary so a panicking processor degrades to a logged
// failure instead of crashing the worker, and guarantees the task's
// dependencies are released exactly once regardless of outcome.
func (p *Pool) processOne(ctx context.Context, logger *zap.Logger, cat task.Category, t task.Task, resource processor.Resource) {
	deps := t.Dependencies()
	defer p.store.ReleaseRefs(deps)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("processor panicked, task dropped",
				zap.String("category", cat.String()),
				zap.String("task", t.String()),
				zap.Any("panic", r),
			)
		}
	}()

	proc := p.processors[cat]
	result, err := proc.Process(ctx, t, resource)
	if err != nil {
		logger.Error("processor failed, task dropped",
			zap.String("category", cat.String()),
			zap.String("task", t.String()),
			zap.Error(err),
		)
		return
	}

	handler, ok := p.handlers[cat]
	if !ok {
		return
	}
	handler(t, result, p.queue, p.store)
}

// chooseBusiest picks the lane category with the largest backlog. Ties
// break toward the currently loaded category first, then by category
// declaration order (spec §4.4) — stricter than a bare max() scan, which
// is why this reads backlog per category itself rather than delegating to
// queue.CentralQueue.BusiestCategory.
func (p *Pool) chooseBusiest(current *task.Category) (task.Category, bool) {
	cats := task.CategoriesInLane(p.lane)

	bestSize := 0
	var best task.Category
	found := false

	for _, c := range cats {
		n := p.queue.Backlog(c)
		if n <= 0 {
			continue
		}
		switch {
		case !found:
			best, bestSize, found = c, n, true
		case n > bestSize:
			best, bestSize = c, n
		case n == bestSize && current != nil && *current == c && best != c:
			best = c
		}
	}

	return best, found
}

// sleepOrDone sleeps for d or returns early (true) if ctx is cancelled
// first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
