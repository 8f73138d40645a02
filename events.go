// Package dashcamd provides a Go library for extracting vehicles, tracks,
// and license plate reads from dashcam footage.
package dashcamd

import "time"

// Event types for downstream integration, mirroring the internal
// reporter.Reporter callbacks one-for-one except Verbose, which has no event.
const (
	EventTypeStartup       = "startup"
	EventTypeVideoStarted  = "video_started"
	EventTypeVideoProgress = "video_progress"
	EventTypeVideoComplete = "video_complete"
	EventTypeWarning       = "warning"
	EventTypeError         = "error"
	EventTypeRunComplete   = "run_complete"
)

// Event is the interface for all dashcamd events.
type Event interface {
	Type() string
	Timestamp() int64
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType string `json:"type"`
	Time      int64  `json:"timestamp"`
}

func (e BaseEvent) Type() string     { return e.EventType }
func (e BaseEvent) Timestamp() int64 { return e.Time }

// StartupEvent announces a run about to begin.
type StartupEvent struct {
	BaseEvent
	InputDir      string `json:"input_dir"`
	NumVideos     int    `json:"num_videos"`
	NumGPUWorkers int    `json:"num_gpu_workers"`
	NumCPUWorkers int    `json:"num_cpu_workers"`
}

// VideoStartedEvent announces a reader beginning a file.
type VideoStartedEvent struct {
	BaseEvent
	Filename string `json:"filename"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
}

// VideoProgressEvent reports how far a video reader has gotten.
type VideoProgressEvent struct {
	BaseEvent
	Filename    string  `json:"filename"`
	FramesRead  int     `json:"frames_read"`
	FramesTotal int     `json:"frames_total"`
	FPS         float64 `json:"fps"`
}

// VideoCompleteEvent summarizes one finished video.
type VideoCompleteEvent struct {
	BaseEvent
	Filename        string  `json:"filename"`
	FramesRead      int     `json:"frames_read"`
	DurationSeconds float64 `json:"duration_seconds"`
	VehiclesWritten int     `json:"vehicles_written"`
	TracksWritten   int     `json:"tracks_written"`
	PlatesWritten   int     `json:"plates_written"`
}

// WarningEvent represents a warning message.
type WarningEvent struct {
	BaseEvent
	Message string `json:"message"`
}

// ErrorEvent represents a structured error.
type ErrorEvent struct {
	BaseEvent
	Title      string `json:"title"`
	Message    string `json:"message"`
	Context    string `json:"context"`
	Suggestion string `json:"suggestion"`
}

// RunCompleteEvent summarizes the whole run.
type RunCompleteEvent struct {
	BaseEvent
	TotalVideos      int     `json:"total_videos"`
	SuccessfulVideos int     `json:"successful_videos"`
	TotalFrames      int     `json:"total_frames"`
	TotalVehicles    int     `json:"total_vehicles"`
	TotalTracks      int     `json:"total_tracks"`
	TotalPlates      int     `json:"total_plates"`
	TotalDurationSec float64 `json:"total_duration_seconds"`
}

// EventHandler is called with events as the pipeline runs.
type EventHandler func(Event) error

// NewTimestamp returns the current Unix timestamp.
func NewTimestamp() int64 {
	return time.Now().Unix()
}
