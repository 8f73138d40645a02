// Package engine wires every package into the running pipeline described
// by spec §4: discovery finds files, readers decode them into the queue,
// worker pools drain the queue through the dispatch graph, and the
// monitor/metrics/reporter packages observe the result. Grounded on the
// teacher's processing.ProcessVideos or file-at-a-time orchestration loop,
// generalized from "encode each file" to "ingest each file concurrently".
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/dashcamd/internal/config"
	"github.com/five82/dashcamd/internal/dispatch"
	"github.com/five82/dashcamd/internal/discovery"
	"github.com/five82/dashcamd/internal/framestore"
	"github.com/five82/dashcamd/internal/metrics"
	"github.com/five82/dashcamd/internal/monitor"
	"github.com/five82/dashcamd/internal/processor"
	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/reporter"
	"github.com/five82/dashcamd/internal/shutdown"
	"github.com/five82/dashcamd/internal/sink"
	"github.com/five82/dashcamd/internal/task"
	"github.com/five82/dashcamd/internal/videoreader"
	"github.com/five82/dashcamd/internal/worker"
)

// Models bundles the external model-boundary implementations (spec §1).
// Any field left nil falls back to a null implementation that produces no
// detections — the pipeline still runs end to end, it just finds nothing.
type Models struct {
	Detector      processor.Detector
	PlateDetector processor.PlateDetector
	OCREngine     processor.OCREngine
}

// Engine owns every long-lived component of one pipeline run.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	rep    reporter.Reporter
	sink   sink.Sink
	models Models

	queue      *queue.CentralQueue
	store      *framestore.Store
	gpuStatus  *worker.StatusTable
	cpuStatus  *worker.StatusTable
	coord      *shutdown.Coordinator
	metricsReg *metrics.Metrics
}

// New builds an Engine ready to Run. sink must not be nil; models may be
// the zero value, which wires null model stand-ins.
func New(cfg *config.Config, logger *zap.Logger, rep reporter.Reporter, sk sink.Sink, models Models) (*Engine, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	soft, hard := cfg.QueueLimitsPerCategory()
	limits := make(map[task.Category]queue.Limits, len(task.Categories()))
	for _, c := range task.Categories() {
		limits[c] = queue.Limits{Soft: soft, Hard: hard}
	}

	store, err := framestore.New()
	if err != nil {
		return nil, fmt.Errorf("engine: new framestore: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		logger:     logger,
		rep:        rep,
		sink:       sk,
		models:     models,
		queue:      queue.New(limits, cfg.RecoverRatio),
		store:      store,
		gpuStatus:  worker.NewStatusTable(),
		cpuStatus:  worker.NewStatusTable(),
		coord:      shutdown.New(),
		metricsReg: metrics.New(),
	}, nil
}

// Metrics exposes the prometheus registry for an HTTP /metrics handler.
func (e *Engine) Metrics() *metrics.Metrics { return e.metricsReg }

// Stop begins phase 1 shutdown: readers stop producing new frames.
func (e *Engine) Stop() { e.coord.Stop() }

// Close releases the frame store's compressor resources and discards any
// tasks left queued after a forced termination.
func (e *Engine) Close() {
	e.queue.Shutdown()
	e.store.Close()
}

// drained reports whether backlog and worker activity have reached zero:
// the Terminate drain predicate (spec §4.8 / §8 scenario 6).
func (e *Engine) drained() bool {
	if e.queue.TotalBacklog() != 0 {
		return false
	}
	for _, s := range e.gpuStatus.Snapshot() {
		if s.Category != nil {
			return false
		}
	}
	for _, s := range e.cpuStatus.Snapshot() {
		if s.Category != nil {
			return false
		}
	}
	return true
}

// buildProcessors wires the six fixed categories to their Processor
// implementations (spec §4.6).
func (e *Engine) buildProcessors() map[task.Category]processor.Processor {
	detector := e.models.Detector
	if detector == nil {
		detector = processor.NullDetector{}
	}
	plateDetector := e.models.PlateDetector
	if plateDetector == nil {
		plateDetector = processor.NullPlateDetector{}
	}
	ocr := e.models.OCREngine
	if ocr == nil {
		ocr = processor.NullOCREngine{}
	}

	return map[task.Category]processor.Processor{
		task.VehicleDetect: processor.VehicleDetectProcessor{Store: e.store, Detector: detector},
		task.PlateDetect:   processor.PlateDetectProcessor{Store: e.store, Detector: plateDetector},
		task.VehicleTrack:  processor.VehicleTrackProcessor{},
		task.OCR:           processor.OCRProcessor{Store: e.store, Engine: ocr},
		task.PlateSmooth:   processor.PlateSmoothProcessor{},
		task.FinalWrite:    processor.FinalWriteProcessor{Sink: e.sink},
	}
}

// Run discovers every video file under cfg.InputDir, then runs the full
// pipeline (readers -> queue -> worker pools -> sink) until every reader
// has drained its file list and every in-flight task has been processed,
// or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) (reporter.RunOutcome, error) {
	files, err := discovery.FindVideoFiles(e.cfg.InputDir)
	if err != nil {
		return reporter.RunOutcome{}, fmt.Errorf("engine: discover video files: %w", err)
	}

	gpuWorkers := e.cfg.NumGPUWorkers
	if len(files) > 0 {
		if width, height, _, err := videoreader.ProbeVideo(files[0]); err == nil {
			if capped, reduced := config.CapGPUWorkers(gpuWorkers, width, height); reduced {
				e.rep.Warning(fmt.Sprintf("reducing GPU workers from %d to %d: insufficient memory for %dx%d frames", gpuWorkers, capped, width, height))
				gpuWorkers = capped
			}
		}
	}

	e.rep.Startup(reporter.RunSummary{
		InputDir:      e.cfg.InputDir,
		NumVideos:     len(files),
		NumGPUWorkers: gpuWorkers,
		NumCPUWorkers: e.cfg.NumCPUWorkers,
		NumReaders:    e.cfg.NumReaders,
	})

	processors := e.buildProcessors()
	handlers := dispatch.NewRegistry()

	gpuPool := worker.New(task.GPULane, e.queue, e.store, processors, handlers, e.gpuStatus, e.logger, time.Duration(e.cfg.WorkerIdleSleepMS)*time.Millisecond)
	cpuPool := worker.New(task.CPULane, e.queue, e.store, processors, handlers, e.cpuStatus, e.logger, time.Duration(e.cfg.WorkerIdleSleepMS)*time.Millisecond)

	wg := e.coord.WaitGroup()
	gpuPool.Run(e.coord.TerminateCtx(), gpuWorkers, wg)
	cpuPool.Run(e.coord.TerminateCtx(), e.cfg.NumCPUWorkers, wg)

	mon := monitor.New(e.queue, e.gpuStatus, e.cpuStatus, time.Duration(e.cfg.MonitorIntervalSecs)*time.Second, nil, e.metricsReg)
	monCtx, monCancel := context.WithCancel(context.Background())
	defer monCancel()
	go mon.Run(monCtx)

	// External cancellation (e.g. a signal handler in main) maps onto
	// phase 1 of the two-phase shutdown: readers stop producing first.
	go func() {
		select {
		case <-ctx.Done():
			e.coord.Stop()
		case <-e.coord.StopCtx().Done():
		}
	}()

	start := time.Now()
	outcome := e.runReaders(e.coord.StopCtx(), files)
	outcome.TotalDuration = time.Since(start)

	// Phase 1: readers have returned already (runReaders waits for them).
	// Phase 2: give workers a drain window, then force-terminate.
	e.coord.Terminate(30*time.Second, e.drained)

	e.rep.RunComplete(outcome)
	return outcome, nil
}

// runReaders assigns files across cfg.NumReaders goroutines pulling from a
// shared worklist, so a slow video doesn't stall readers assigned to
// others (spec's NUM_VIDEO_READERS knob). errgroup.Group is used in place
// of a bare sync.WaitGroup purely for its Go(func() error) ergonomics;
// runOneVideo never actually returns an error (failures are reported
// through e.rep.Error and folded into the outcome), so the group's error
// return is always nil.
func (e *Engine) runReaders(ctx context.Context, files []string) reporter.RunOutcome {
	jobs := make(chan indexedFile, len(files))
	for i, f := range files {
		jobs <- indexedFile{index: i + 1, path: f}
	}
	close(jobs)

	var mu sync.Mutex
	outcome := reporter.RunOutcome{TotalVideos: len(files)}

	n := e.cfg.NumReaders
	if n > len(files) {
		n = len(files)
	}
	if n < 1 {
		n = 1
	}

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for job := range jobs {
				e.runOneVideo(ctx, job, len(files), &mu, &outcome)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcome
}

type indexedFile struct {
	index int
	path  string
}

func (e *Engine) runOneVideo(ctx context.Context, job indexedFile, total int, mu *sync.Mutex, outcome *reporter.RunOutcome) {
	filename := filepath.Base(job.path)
	videoID := strings.TrimSuffix(filename, filepath.Ext(filename))

	e.rep.VideoStarted(reporter.VideoStart{Filename: filename, Index: job.index, Total: total})

	reader := videoreader.New(
		videoreader.OpenFFmpeg,
		e.store,
		e.queue,
		e.logger,
		videoreader.WithGPUBacklogLimit(e.cfg.MaxGPUBacklog),
		videoreader.WithCPUBacklogLimit(e.cfg.MaxCPUBacklog),
		videoreader.WithSleepInterval(time.Duration(e.cfg.ReaderSleepMS)*time.Millisecond),
		videoreader.WithPushRetrySleep(time.Duration(e.cfg.PushRetrySleepMS)*time.Millisecond),
	)

	start := time.Now()
	framesRead, err := reader.Run(ctx, videoID, job.path)
	if err != nil {
		e.rep.Error(reporter.ReporterError{
			Title:   "Ingest error",
			Message: fmt.Sprintf("failed to ingest %s: %v", filename, err),
			Context: fmt.Sprintf("video_id: %s", videoID),
		})
		return
	}

	vehicles, tracks, plates := e.countsFor(videoID)
	result := reporter.VideoOutcome{
		Filename:        filename,
		FramesRead:      framesRead,
		Duration:        time.Since(start),
		VehiclesWritten: vehicles,
		TracksWritten:   tracks,
		PlatesWritten:   plates,
	}
	e.rep.VideoComplete(result)

	mu.Lock()
	outcome.SuccessfulVideos++
	outcome.TotalFrames += framesRead
	outcome.TotalVehicles += vehicles
	outcome.TotalTracks += tracks
	outcome.TotalPlates += plates
	mu.Unlock()
}

// countsFor reports per-video sink counts when the sink supports it
// (sink.VideoCounter); otherwise the counts are left at zero. A vehicles
// row only exists once the plate smoother has produced a final plate
// (dispatch.handlePlateSmoothResult), so vehicle count and plate count
// coincide.
func (e *Engine) countsFor(videoID string) (vehicles, tracks, plates int) {
	counter, ok := e.sink.(sink.VideoCounter)
	if !ok {
		return 0, 0, 0
	}
	vehicles, _ = counter.CountForVideo(sink.TableVehicles, videoID)
	tracks, _ = counter.CountForVideo(sink.TableTracks, videoID)
	return vehicles, tracks, vehicles
}
