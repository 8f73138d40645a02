package reporter

import (
	"bytes"
	"strings"
	"testing"
)

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) Startup(RunSummary)                 { r.events = append(r.events, "startup") }
func (r *recordingReporter) VideoStarted(VideoStart)             { r.events = append(r.events, "video_started") }
func (r *recordingReporter) VideoProgress(VideoProgressSnapshot)  { r.events = append(r.events, "video_progress") }
func (r *recordingReporter) VideoComplete(VideoOutcome)          { r.events = append(r.events, "video_complete") }
func (r *recordingReporter) Warning(string)                       { r.events = append(r.events, "warning") }
func (r *recordingReporter) Error(ReporterError)                 { r.events = append(r.events, "error") }
func (r *recordingReporter) RunComplete(RunOutcome)              { r.events = append(r.events, "run_complete") }
func (r *recordingReporter) Verbose(string)                       { r.events = append(r.events, "verbose") }

func TestCompositeReporterFansOutToEveryMember(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	c := NewCompositeReporter(a, b)

	c.Startup(RunSummary{})
	c.VideoStarted(VideoStart{})
	c.VideoProgress(VideoProgressSnapshot{})
	c.VideoComplete(VideoOutcome{})
	c.Warning("w")
	c.Error(ReporterError{})
	c.RunComplete(RunOutcome{})
	c.Verbose("v")

	want := []string{"startup", "video_started", "video_progress", "video_complete", "warning", "error", "run_complete", "verbose"}
	for _, r := range []*recordingReporter{a, b} {
		if len(r.events) != len(want) {
			t.Fatalf("events = %v, want %v", r.events, want)
		}
		for i := range want {
			if r.events[i] != want[i] {
				t.Errorf("events[%d] = %s, want %s", i, r.events[i], want[i])
			}
		}
	}
}

func TestNullReporterDiscardsEverything(t *testing.T) {
	var r Reporter = NullReporter{}
	// None of these should panic.
	r.Startup(RunSummary{})
	r.VideoStarted(VideoStart{})
	r.VideoProgress(VideoProgressSnapshot{})
	r.VideoComplete(VideoOutcome{})
	r.Warning("w")
	r.Error(ReporterError{})
	r.RunComplete(RunOutcome{})
	r.Verbose("v")
}

func TestLogReporterWritesTimestampedLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(&buf)
	r.Startup(RunSummary{InputDir: "/videos", NumVideos: 3})

	out := buf.String()
	if !strings.Contains(out, "STARTUP") {
		t.Errorf("expected STARTUP in output, got %q", out)
	}
	if !strings.Contains(out, "/videos") {
		t.Errorf("expected input dir in output, got %q", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("expected an INFO level tag, got %q", out)
	}
}

func TestLogReporterVideoProgressThrottlesToTenPercentBuckets(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(&buf)

	r.VideoProgress(VideoProgressSnapshot{Filename: "a.mp4", FramesRead: 1, FramesTotal: 100})
	r.VideoProgress(VideoProgressSnapshot{Filename: "a.mp4", FramesRead: 5, FramesTotal: 100})
	lines := strings.Count(buf.String(), "\n")
	if lines != 1 {
		t.Errorf("expected exactly 1 log line within the same 10%% bucket, got %d", lines)
	}

	r.VideoProgress(VideoProgressSnapshot{Filename: "a.mp4", FramesRead: 15, FramesTotal: 100})
	lines = strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("expected a new log line after crossing into the next bucket, got %d lines", lines)
	}
}

func TestLogReporterVideoProgressIgnoresZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(&buf)
	r.VideoProgress(VideoProgressSnapshot{Filename: "a.mp4", FramesRead: 5, FramesTotal: 0})
	if buf.Len() != 0 {
		t.Error("expected no output when FramesTotal is unknown (<=0)")
	}
}

func TestLogReporterVideoStartedResetsProgressBucket(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(&buf)
	r.VideoProgress(VideoProgressSnapshot{Filename: "a.mp4", FramesRead: 50, FramesTotal: 100})
	r.VideoStarted(VideoStart{Filename: "b.mp4", Index: 2, Total: 2})
	buf.Reset()

	r.VideoProgress(VideoProgressSnapshot{Filename: "b.mp4", FramesRead: 1, FramesTotal: 100})
	if buf.Len() == 0 {
		t.Error("expected a progress line for the new video even though the old video reached bucket 5")
	}
}

func TestLogReporterErrorIncludesContextAndSuggestion(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(&buf)
	r.Error(ReporterError{Title: "Ingest error", Message: "boom", Context: "video_id: v1", Suggestion: "retry"})

	out := buf.String()
	for _, want := range []string{"Ingest error", "boom", "video_id: v1", "retry"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}
