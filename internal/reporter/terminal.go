package reporter

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/dashcamd/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	progress *progressbar.ProgressBar
	verbose  bool
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	red      *color.Color
	bold     *color.Color
	dim      *color.Color
}

// NewTerminalReporter creates a new terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a new terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

const labelWidth = 16

func (r *TerminalReporter) printLabel(label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

func (r *TerminalReporter) Startup(s RunSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("DASHCAMD")
	r.printLabel("Input dir:", s.InputDir)
	r.printLabel("Videos:", fmt.Sprintf("%d", s.NumVideos))
	r.printLabel("GPU workers:", fmt.Sprintf("%d", s.NumGPUWorkers))
	r.printLabel("CPU workers:", fmt.Sprintf("%d", s.NumCPUWorkers))
	r.printLabel("Readers:", fmt.Sprintf("%d", s.NumReaders))
}

func (r *TerminalReporter) VideoStarted(v VideoStart) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.cyan.Printf("VIDEO %d/%d\n", v.Index, v.Total)
	r.printLabel("File:", v.Filename)

	r.mu.Lock()
	defer r.mu.Unlock()
	total := int64(v.Total)
	if total <= 0 {
		total = -1 // unknown length: spinner mode
	}
	r.progress = progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Ingesting [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) VideoProgress(v VideoProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress == nil {
		return
	}
	_ = r.progress.Set(v.FramesRead)
	r.progress.Describe(fmt.Sprintf("frame %d/%d, %.1f fps", v.FramesRead, v.FramesTotal, v.FPS))
}

func (r *TerminalReporter) VideoComplete(v VideoOutcome) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.cyan.Println("VIDEO COMPLETE")
	r.printLabel("File:", v.Filename)
	r.printLabel("Frames:", fmt.Sprintf("%d", v.FramesRead))
	r.printLabel("Vehicles:", fmt.Sprintf("%d", v.VehiclesWritten))
	r.printLabel("Tracks:", fmt.Sprintf("%d", v.TracksWritten))
	r.printLabel("Plates:", fmt.Sprintf("%d", v.PlatesWritten))
	r.printLabel("Time:", util.FormatDurationFromSecs(int64(v.Duration.Seconds())))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) RunComplete(o RunOutcome) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.cyan.Println("RUN SUMMARY")
	r.printLabel("Videos:", fmt.Sprintf("%s %d/%d",
		r.green.Sprint("✓"), o.SuccessfulVideos, o.TotalVideos))
	r.printLabel("Frames:", fmt.Sprintf("%d", o.TotalFrames))
	r.printLabel("Vehicles:", fmt.Sprintf("%d", o.TotalVehicles))
	r.printLabel("Tracks:", fmt.Sprintf("%d", o.TotalTracks))
	r.printLabel("Plates:", fmt.Sprintf("%d", o.TotalPlates))
	r.printLabel("Time:", util.FormatDurationFromSecs(int64(o.TotalDuration.Seconds())))
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s %s\n", r.dim.Sprint("›"), r.dim.Sprint(message))
}
