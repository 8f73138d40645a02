// Package task defines the pipeline's unit of work and its closed category
// enumeration.
package task

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is a pipeline stage. Every Task belongs to exactly one.
type Category int

const (
	VehicleDetect Category = iota
	PlateDetect
	VehicleTrack
	OCR
	PlateSmooth
	FinalWrite

	numCategories
)

// categoryNames is declaration order, used both for display and as the
// tie-break in busiest-first worker selection.
var categoryNames = [numCategories]string{
	VehicleDetect: "VEHICLE_DETECT",
	PlateDetect:   "PLATE_DETECT",
	VehicleTrack:  "VEHICLE_TRACK",
	OCR:           "OCR",
	PlateSmooth:   "PLATE_SMOOTH",
	FinalWrite:    "FINAL_WRITE",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Lane is the resource class a category runs on.
type Lane int

const (
	GPULane Lane = iota
	CPULane
)

func (l Lane) String() string {
	if l == GPULane {
		return "gpu"
	}
	return "cpu"
}

// Lane returns the lane a category is pinned to, per spec: GPU-lane
// {DETECT, OCR}, CPU-lane {TRACK, SMOOTH, FINAL_WRITE}.
func (c Category) Lane() Lane {
	switch c {
	case VehicleDetect, PlateDetect, OCR:
		return GPULane
	default:
		return CPULane
	}
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// CategoriesInLane returns the categories belonging to a lane, in
// declaration order.
func CategoriesInLane(lane Lane) []Category {
	var out []Category
	for _, c := range Categories() {
		if c.Lane() == lane {
			out = append(out, c)
		}
	}
	return out
}

// PayloadRef is an opaque handle of the form "<video_id>:<frame_idx>"
// locating a frame in the frame store. It carries no semantics beyond
// identity; the frame store is the only code permitted to parse it.
type PayloadRef string

// NewPayloadRef builds the canonical wire format for a frame reference.
func NewPayloadRef(videoID string, frameIdx int) PayloadRef {
	return PayloadRef(fmt.Sprintf("%s:%d", videoID, frameIdx))
}

// Split parses a PayloadRef back into its video id and frame index.
func (r PayloadRef) Split() (videoID string, frameIdx int, err error) {
	s := string(r)
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("task: malformed payload ref %q", s)
	}
	videoID = s[:idx]
	frameIdx, err = strconv.Atoi(s[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("task: malformed payload ref %q: %w", s, err)
	}
	return videoID, frameIdx, nil
}

// BBox is an axis-aligned [x1,y1,x2,y2] box in frame pixel coordinates.
type BBox [4]float64

// Meta is the fixed set of recognized metadata keys a Task carries (spec
// §6). Unrecognized keys observed on ingestion are preserved in Extra so
// handlers can pass them through untouched, per the passthrough
// requirement.
type Meta struct {
	PayloadRef    PayloadRef
	Dependencies  []PayloadRef
	CarBBox       *BBox
	PlateBBox     *BBox
	VideoPath     string
	VideoFilename string
	VideoTSFrame  *int
	VideoTSMS     *float64
	FPS           *float64
	GlobalID      string
	Final         *string
	Conf          *float64

	// Extra holds any key not in the recognized set above. Dispatch
	// handlers must copy it forward unmodified.
	Extra map[string]any
}

// passthrough returns the keys carried forward across every stage unconditionally,
// per spec §4.5 "Metadata passthrough".
func (m Meta) passthrough() Meta {
	return Meta{
		VideoPath:     m.VideoPath,
		VideoFilename: m.VideoFilename,
		VideoTSFrame:  m.VideoTSFrame,
		GlobalID:      m.GlobalID,
		Extra:         m.Extra,
	}
}

// WithPassthrough returns a new Meta carrying forward only the fixed
// passthrough keys from m, then layering stage-specific overrides on top.
// This is the composition-based enforcement Design Note §9 calls for
// instead of runtime key filtering.
func WithPassthrough(m Meta, overrides Meta) Meta {
	out := m.passthrough()
	if overrides.PayloadRef != "" {
		out.PayloadRef = overrides.PayloadRef
	}
	if overrides.Dependencies != nil {
		out.Dependencies = overrides.Dependencies
	}
	if overrides.CarBBox != nil {
		out.CarBBox = overrides.CarBBox
	}
	if overrides.PlateBBox != nil {
		out.PlateBBox = overrides.PlateBBox
	}
	if overrides.VideoTSMS != nil {
		out.VideoTSMS = overrides.VideoTSMS
	}
	if overrides.FPS != nil {
		out.FPS = overrides.FPS
	}
	if overrides.GlobalID != "" {
		out.GlobalID = overrides.GlobalID
	}
	if overrides.Final != nil {
		out.Final = overrides.Final
	}
	if overrides.Conf != nil {
		out.Conf = overrides.Conf
	}
	return out
}

// Task is an immutable unit of pipeline work.
type Task struct {
	Category Category
	Payload  any

	Priority int // recorded on the task; CentralQueue pops each category in FIFO order and does not reorder by it
	VideoID  string
	FrameIdx int
	TrackID  *int

	Meta Meta
}

func (t Task) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Task(category=%s, priority=%d", t.Category, t.Priority)
	if t.VideoID != "" {
		fmt.Fprintf(&b, ", video_id=%s", t.VideoID)
	}
	fmt.Fprintf(&b, ", frame_idx=%d", t.FrameIdx)
	if t.TrackID != nil {
		fmt.Fprintf(&b, ", track_id=%d", *t.TrackID)
	}
	b.WriteByte(')')
	return b.String()
}

// Dependencies returns the refs whose lifetime this task extends, falling
// back to the task's own payload ref when no explicit dependency list was
// set (mirrors the Python dispatch handlers' `dependencies or [payload_ref]`
// fallback).
func (t Task) Dependencies() []PayloadRef {
	if len(t.Meta.Dependencies) > 0 {
		return t.Meta.Dependencies
	}
	if t.Meta.PayloadRef != "" {
		return []PayloadRef{t.Meta.PayloadRef}
	}
	return nil
}
