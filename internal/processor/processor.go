// Package processor defines the external processor contract (spec §4.6)
// and implements the two stages that are pure in-process logic:
// VEHICLE_TRACK and PLATE_SMOOTH. VEHICLE_DETECT, PLATE_DETECT, and OCR
// are model-internals boundaries (spec §1) and are represented here only
// as stubs satisfying the same contract.
package processor

import (
	"context"

	"github.com/five82/dashcamd/internal/task"
)

// Resource is the lazily-loaded per-category artifact a processor needs
// (e.g. model weights, or an in-process accumulator for the pure stages).
// It is opaque to the worker pool, which only loads/holds/evicts it.
type Resource any

// Result is the category-specific output of Process, shaped per spec §6.
type Result any

// Processor is the per-category contract every worker invokes.
type Processor interface {
	// Load returns a freshly initialized Resource for this category.
	// Called once per worker, on first use and again on every category
	// switch back to this category (§4.4's Switching state).
	Load() (Resource, error)

	// Process runs one task against the category's resource and returns
	// its result. Must return in bounded time — individual tasks are not
	// cancelled while executing (spec §5).
	Process(ctx context.Context, t task.Task, r Resource) (Result, error)
}

// Detection is one VEHICLE_DETECT output entry.
type Detection struct {
	BBox    task.BBox
	Conf    float64
	TrackID *int
}

// PlateBox is one PLATE_DETECT output entry, in car-ROI coordinates.
type PlateBox struct {
	BBox task.BBox
	Conf float64
}

// OCRResult is the OCR stage's output.
type OCRResult struct {
	Text string
	Conf float64
}

// TrackMotion is one VEHICLE_TRACK output entry.
type TrackMotion struct {
	GlobalID     string
	TrackID      int
	VideoID      string
	FrameIdx     int
	VideoTSFrame *int
	VideoTSMS    *float64
	BBox         task.BBox
	VX, VY       float64
	SpeedPxS     float64
	HeadingDeg   float64
	AgeFrames    int
	Conf         float64
	IsNew        bool
	ScaleRatio   float64
	ScaleRate    float64
}

// SmoothResult is the PLATE_SMOOTH stage's output.
type SmoothResult struct {
	Final *string
	Conf  float64
}
