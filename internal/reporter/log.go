package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/five82/dashcamd/internal/util"
)

// LogReporter writes pipeline events to a log file.
type LogReporter struct {
	w                  io.Writer
	mu                 sync.Mutex
	lastProgressBucket int // Track progress in 10% buckets
}

// NewLogReporter creates a new log reporter that writes to the given writer.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{w: w, lastProgressBucket: -1}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) Startup(s RunSummary) {
	r.log("INFO", "=== STARTUP ===")
	r.log("INFO", "Input dir: %s", s.InputDir)
	r.log("INFO", "Videos: %d, GPU workers: %d, CPU workers: %d, readers: %d",
		s.NumVideos, s.NumGPUWorkers, s.NumCPUWorkers, s.NumReaders)
}

func (r *LogReporter) VideoStarted(v VideoStart) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.mu.Unlock()
	r.log("INFO", "--- Video %d/%d: %s ---", v.Index, v.Total, v.Filename)
}

func (r *LogReporter) VideoProgress(v VideoProgressSnapshot) {
	if v.FramesTotal <= 0 {
		return
	}
	bucket := v.FramesRead * 10 / v.FramesTotal
	r.mu.Lock()
	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
		r.mu.Unlock()
		r.log("INFO", "%s: frame %d/%d (%.1f fps)", v.Filename, v.FramesRead, v.FramesTotal, v.FPS)
	} else {
		r.mu.Unlock()
	}
}

func (r *LogReporter) VideoComplete(v VideoOutcome) {
	r.log("INFO", "Video complete: %s (frames=%d, vehicles=%d, tracks=%d, plates=%d, time=%s)",
		v.Filename, v.FramesRead, v.VehiclesWritten, v.TracksWritten, v.PlatesWritten,
		util.FormatDurationFromSecs(int64(v.Duration.Seconds())))
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Error(err ReporterError) {
	r.log("ERROR", "%s: %s", err.Title, err.Message)
	if err.Context != "" {
		r.log("ERROR", "  Context: %s", err.Context)
	}
	if err.Suggestion != "" {
		r.log("ERROR", "  Suggestion: %s", err.Suggestion)
	}
}

func (r *LogReporter) RunComplete(o RunOutcome) {
	r.log("INFO", "=== RUN COMPLETE ===")
	r.log("INFO", "Videos: %d/%d succeeded", o.SuccessfulVideos, o.TotalVideos)
	r.log("INFO", "Frames: %d, vehicles: %d, tracks: %d, plates: %d",
		o.TotalFrames, o.TotalVehicles, o.TotalTracks, o.TotalPlates)
	r.log("INFO", "Time: %s", util.FormatDurationFromSecs(int64(o.TotalDuration.Seconds())))
}

func (r *LogReporter) Verbose(message string) {
	r.log("DEBUG", "%s", message)
}
