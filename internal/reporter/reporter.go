// Package reporter renders pipeline-run events for humans: a terminal
// reporter with color and a progress bar, and a log-file reporter. Both
// implement the same Reporter interface the engine emits events through,
// the same shape the teacher used for its encode-progress events, rebuilt
// around ingest-pipeline milestones instead of encode milestones.
package reporter

import "time"

// RunSummary describes the run about to start.
type RunSummary struct {
	InputDir      string
	NumVideos     int
	NumGPUWorkers int
	NumCPUWorkers int
	NumReaders    int
}

// VideoStart announces a video reader beginning a file.
type VideoStart struct {
	Filename string
	Index    int
	Total    int
}

// VideoProgressSnapshot reports how far a video reader has gotten.
type VideoProgressSnapshot struct {
	Filename    string
	FramesRead  int
	FramesTotal int
	FPS         float64
}

// VideoOutcome summarizes one finished video.
type VideoOutcome struct {
	Filename        string
	FramesRead      int
	Duration        time.Duration
	VehiclesWritten int
	TracksWritten   int
	PlatesWritten   int
}

// ReporterError carries a structured error for display.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// RunOutcome summarizes the whole run.
type RunOutcome struct {
	TotalVideos      int
	SuccessfulVideos int
	TotalFrames      int
	TotalVehicles    int
	TotalTracks      int
	TotalPlates      int
	TotalDuration    time.Duration
}

// Reporter receives pipeline-run events. Implementations must be safe for
// concurrent use: video readers run on separate goroutines.
type Reporter interface {
	Startup(RunSummary)
	VideoStarted(VideoStart)
	VideoProgress(VideoProgressSnapshot)
	VideoComplete(VideoOutcome)
	Warning(message string)
	Error(ReporterError)
	RunComplete(RunOutcome)
	Verbose(message string)
}

// NullReporter discards every event.
type NullReporter struct{}

func (NullReporter) Startup(RunSummary)                     {}
func (NullReporter) VideoStarted(VideoStart)                {}
func (NullReporter) VideoProgress(VideoProgressSnapshot)     {}
func (NullReporter) VideoComplete(VideoOutcome)              {}
func (NullReporter) Warning(string)                          {}
func (NullReporter) Error(ReporterError)                     {}
func (NullReporter) RunComplete(RunOutcome)                  {}
func (NullReporter) Verbose(string)                          {}

// CompositeReporter fans every event out to a list of reporters, in order.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter builds a CompositeReporter over the given reporters.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) Startup(s RunSummary) {
	for _, r := range c.reporters {
		r.Startup(s)
	}
}

func (c *CompositeReporter) VideoStarted(v VideoStart) {
	for _, r := range c.reporters {
		r.VideoStarted(v)
	}
}

func (c *CompositeReporter) VideoProgress(v VideoProgressSnapshot) {
	for _, r := range c.reporters {
		r.VideoProgress(v)
	}
}

func (c *CompositeReporter) VideoComplete(v VideoOutcome) {
	for _, r := range c.reporters {
		r.VideoComplete(v)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(e ReporterError) {
	for _, r := range c.reporters {
		r.Error(e)
	}
}

func (c *CompositeReporter) RunComplete(o RunOutcome) {
	for _, r := range c.reporters {
		r.RunComplete(o)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
