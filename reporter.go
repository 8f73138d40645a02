// Package dashcamd re-exports the internal Reporter interface and its
// associated types so callers can use them without importing
// internal/reporter.
package dashcamd

import "github.com/five82/dashcamd/internal/reporter"

// Reporter defines the interface for progress reporting during a run.
// Pipeline.Run does not take a Reporter; it delivers run events to an
// EventHandler instead.
type Reporter = reporter.Reporter

// NullReporter is a no-op reporter that discards all updates.
type NullReporter = reporter.NullReporter

// CompositeReporter fans every event out to a list of reporters.
type CompositeReporter = reporter.CompositeReporter

// NewCompositeReporter builds a CompositeReporter over the given reporters.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return reporter.NewCompositeReporter(reporters...)
}

// RunSummary describes the run about to start.
type RunSummary = reporter.RunSummary

// VideoStart announces a reader beginning a file.
type VideoStart = reporter.VideoStart

// VideoProgressSnapshot reports how far a video reader has gotten.
type VideoProgressSnapshot = reporter.VideoProgressSnapshot

// VideoOutcome summarizes one finished video.
type VideoOutcome = reporter.VideoOutcome

// ReporterError carries a structured error for display.
type ReporterError = reporter.ReporterError

// RunOutcome summarizes the whole run.
type RunOutcome = reporter.RunOutcome
