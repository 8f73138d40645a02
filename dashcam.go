// Package dashcamd provides a Go library for extracting vehicles, tracks,
// and license plate reads from dashcam footage.
//
// Dashcamd is a concurrent, multi-stage ingest pipeline: each video is
// decoded frame by frame, run through vehicle detection, plate detection,
// tracking, OCR, and plate smoothing, and written to a caller-supplied
// Sink. The detection, plate-detection, and OCR stages are external model
// boundaries — plug in real implementations via Models, or leave them nil
// to run the pipeline end to end with null models that find nothing.
//
// Basic usage:
//
//	pipeline, err := dashcamd.New("/footage",
//	    dashcamd.WithGPUWorkers(2),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sk := sink.NewLogSink(logger)
//	outcome, err := pipeline.Run(ctx, sk, dashcamd.Models{}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("videos: %d, plates: %d\n", outcome.SuccessfulVideos, outcome.TotalPlates)
package dashcamd

import (
	"context"

	"github.com/five82/dashcamd/internal/config"
	"github.com/five82/dashcamd/internal/discovery"
	"github.com/five82/dashcamd/internal/engine"
	"github.com/five82/dashcamd/internal/plog"
	"github.com/five82/dashcamd/internal/reporter"
	"github.com/five82/dashcamd/internal/sink"
)

// Models bundles the external model-boundary implementations (detection,
// plate detection, OCR). A zero-value Models runs the pipeline with null
// stand-ins that produce no detections.
type Models = engine.Models

// Pipeline is the main entry point for running the ingest pipeline.
type Pipeline struct {
	config *config.Config
}

// Option configures a Pipeline's Config.
type Option func(*config.Config)

// New creates a Pipeline over inputDir with the given options applied on
// top of the environment-resolved defaults (internal/config).
func New(inputDir string, opts ...Option) (*Pipeline, error) {
	cfg := config.NewConfig(inputDir)

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{config: cfg}, nil
}

// WithGPUWorkers sets the number of GPU-lane worker goroutines.
func WithGPUWorkers(n int) Option {
	return func(c *config.Config) { c.NumGPUWorkers = n }
}

// WithCPUWorkers sets the number of CPU-lane worker goroutines.
func WithCPUWorkers(n int) Option {
	return func(c *config.Config) { c.NumCPUWorkers = n }
}

// WithReaders sets the number of concurrent video readers.
func WithReaders(n int) Option {
	return func(c *config.Config) { c.NumReaders = n }
}

// WithQueueLimits sets the shared soft/hard backpressure limits applied to
// every task category.
func WithQueueLimits(soft, hard int) Option {
	return func(c *config.Config) {
		c.QueueSoftLimit = soft
		c.QueueHardLimit = hard
	}
}

// WithBacklogLimits sets the per-lane backlog thresholds a reader pauses
// at (MAX_GPU_BACKLOG / MAX_CPU_BACKLOG).
func WithBacklogLimits(gpu, cpu int) Option {
	return func(c *config.Config) {
		c.MaxGPUBacklog = gpu
		c.MaxCPUBacklog = cpu
	}
}

// WithVerbose enables debug-level logging and reporting.
func WithVerbose() Option {
	return func(c *config.Config) { c.Verbose = true }
}

// Run executes the pipeline to completion against sk as the record sink
// and models as the detection/OCR boundary. Every internal reporter event
// except Verbose is forwarded to handler, if non-nil. Run blocks until every video file
// under the Pipeline's input directory has been ingested or ctx is
// cancelled, in which case in-flight work still drains before returning
// (the two-phase shutdown described by internal/shutdown).
func (p *Pipeline) Run(ctx context.Context, sk sink.Sink, models Models, handler EventHandler) (RunOutcome, error) {
	logger := plog.NewNop()

	var rep reporter.Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}

	eng, err := engine.New(p.config, logger, rep, sk, models)
	if err != nil {
		return RunOutcome{}, err
	}
	defer eng.Close()

	return eng.Run(ctx)
}

// FindVideos finds video files in a directory, in the same sorted,
// hidden-file-skipping order the pipeline itself discovers them in.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// eventReporter adapts EventHandler to the internal Reporter interface.
type eventReporter struct {
	handler EventHandler
}

func newEventReporter(handler EventHandler) *eventReporter {
	return &eventReporter{handler: handler}
}

func (r *eventReporter) Startup(s reporter.RunSummary) {
	_ = r.handler(StartupEvent{
		BaseEvent:     BaseEvent{EventType: EventTypeStartup, Time: NewTimestamp()},
		InputDir:      s.InputDir,
		NumVideos:     s.NumVideos,
		NumGPUWorkers: s.NumGPUWorkers,
		NumCPUWorkers: s.NumCPUWorkers,
	})
}

func (r *eventReporter) VideoStarted(v reporter.VideoStart) {
	_ = r.handler(VideoStartedEvent{
		BaseEvent: BaseEvent{EventType: EventTypeVideoStarted, Time: NewTimestamp()},
		Filename:  v.Filename,
		Index:     v.Index,
		Total:     v.Total,
	})
}

func (r *eventReporter) VideoProgress(v reporter.VideoProgressSnapshot) {
	_ = r.handler(VideoProgressEvent{
		BaseEvent:   BaseEvent{EventType: EventTypeVideoProgress, Time: NewTimestamp()},
		Filename:    v.Filename,
		FramesRead:  v.FramesRead,
		FramesTotal: v.FramesTotal,
		FPS:         v.FPS,
	})
}

func (r *eventReporter) VideoComplete(v reporter.VideoOutcome) {
	_ = r.handler(VideoCompleteEvent{
		BaseEvent:       BaseEvent{EventType: EventTypeVideoComplete, Time: NewTimestamp()},
		Filename:        v.Filename,
		FramesRead:      v.FramesRead,
		DurationSeconds: v.Duration.Seconds(),
		VehiclesWritten: v.VehiclesWritten,
		TracksWritten:   v.TracksWritten,
		PlatesWritten:   v.PlatesWritten,
	})
}

func (r *eventReporter) Warning(message string) {
	_ = r.handler(WarningEvent{
		BaseEvent: BaseEvent{EventType: EventTypeWarning, Time: NewTimestamp()},
		Message:   message,
	})
}

func (r *eventReporter) Error(e reporter.ReporterError) {
	_ = r.handler(ErrorEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeError, Time: NewTimestamp()},
		Title:      e.Title,
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}

func (r *eventReporter) RunComplete(o reporter.RunOutcome) {
	_ = r.handler(RunCompleteEvent{
		BaseEvent:        BaseEvent{EventType: EventTypeRunComplete, Time: NewTimestamp()},
		TotalVideos:      o.TotalVideos,
		SuccessfulVideos: o.SuccessfulVideos,
		TotalFrames:      o.TotalFrames,
		TotalVehicles:    o.TotalVehicles,
		TotalTracks:      o.TotalTracks,
		TotalPlates:      o.TotalPlates,
		TotalDurationSec: o.TotalDuration.Seconds(),
	})
}

func (r *eventReporter) Verbose(string) {}
