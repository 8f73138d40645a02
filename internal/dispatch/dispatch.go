// Package dispatch encodes the pipeline graph: one handler per category
// maps a processor's result to zero or more downstream tasks. Transliterated
// from the original dispatch_handlers module line for line.
package dispatch

import (
	"strconv"
	"time"

	"github.com/five82/dashcamd/internal/framestore"
	"github.com/five82/dashcamd/internal/processor"
	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/sink"
	"github.com/five82/dashcamd/internal/task"
)

// Handler transforms an upstream task's result into zero or more
// downstream tasks, pushing them onto q. It must add_refs every downstream
// task's dependencies before pushing it (spec §4.5's refcount discipline).
type Handler func(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store)

// Registry is the category → handler map realizing the pipeline graph.
// No dynamic dispatch through inheritance: a tagged variant plus this
// function table captures the whole graph (spec §9 design note).
type Registry map[task.Category]Handler

// pushRetrySleep is the bounded sleep between retries in
// pushWithBackpressure. Exposed as a var so tests can shrink it.
var pushRetrySleep = 10 * time.Millisecond

// pushWithBackpressure pushes t onto q, retrying with a short sleep while
// the category is at its hard limit. Handlers never lose downstream work.
func pushWithBackpressure(q *queue.CentralQueue, t task.Task) {
	for !q.Push(t) {
		time.Sleep(pushRetrySleep)
	}
}

// NewRegistry builds the fixed category → handler table described in
// spec §4.5's graph table.
func NewRegistry() Registry {
	return Registry{
		task.VehicleDetect: handleVehicleDetectResult,
		task.PlateDetect:   handlePlateDetectResult,
		task.VehicleTrack:  handleVehicleTrackResult,
		task.OCR:           handleOCRResult,
		task.PlateSmooth:   handlePlateSmoothResult,
		task.FinalWrite:    handleFinalWriteResult,
	}
}

// handleVehicleDetectResult fans out each detection to its own
// PLATE_DETECT task, plus exactly one VEHICLE_TRACK task for the frame
// carrying the full detection list.
func handleVehicleDetectResult(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store) {
	detections, _ := result.([]processor.Detection)

	deps := t.Dependencies()

	for _, d := range detections {
		trackID := d.TrackID
		bbox := d.BBox

		var globalID string
		if trackID != nil {
			globalID = t.VideoID + ":" + strconv.Itoa(*trackID)
		}

		meta := task.WithPassthrough(t.Meta, task.Meta{
			PayloadRef:   t.Meta.PayloadRef,
			Dependencies: deps,
			CarBBox:      &bbox,
			GlobalID:     globalID,
		})

		fs.AddRefs(deps)
		pushWithBackpressure(q, task.Task{
			Category: task.PlateDetect,
			Payload:  nil,
			VideoID:  t.VideoID,
			FrameIdx: t.FrameIdx,
			TrackID:  trackID,
			Meta:     meta,
		})
	}

	// Exactly one VEHICLE_TRACK task per frame, regardless of detection
	// count (including zero — spec §8 boundary behavior).
	fs.AddRefs(deps)
	pushWithBackpressure(q, task.Task{
		Category: task.VehicleTrack,
		Payload:  detections,
		VideoID:  t.VideoID,
		FrameIdx: t.FrameIdx,
		Meta: task.WithPassthrough(t.Meta, task.Meta{
			Dependencies: deps,
		}),
	})
}

// handlePlateDetectResult selects the highest-confidence plate box and
// spawns one OCR task. An empty result has no descendants.
func handlePlateDetectResult(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store) {
	boxes, _ := result.([]processor.PlateBox)
	if len(boxes) == 0 {
		return
	}

	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Conf > best.Conf {
			best = b
		}
	}
	plateBBox := best.BBox

	deps := t.Dependencies()
	fs.AddRefs(deps)
	pushWithBackpressure(q, task.Task{
		Category: task.OCR,
		VideoID:  t.VideoID,
		FrameIdx: t.FrameIdx,
		TrackID:  t.TrackID,
		Meta: task.WithPassthrough(t.Meta, task.Meta{
			PayloadRef:   t.Meta.PayloadRef,
			Dependencies: deps,
			CarBBox:      t.Meta.CarBBox,
			PlateBBox:    &plateBBox,
		}),
	})
}

// handleVehicleTrackResult spawns a track_motion FINAL_WRITE row for every
// tracked entry, plus a tracks FINAL_WRITE index row for first-seen tracks.
func handleVehicleTrackResult(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store) {
	entries, _ := result.([]processor.TrackMotion)
	deps := t.Dependencies()

	for _, e := range entries {
		if e.IsNew {
			fs.AddRefs(deps)
			pushWithBackpressure(q, task.Task{
				Category: task.FinalWrite,
				VideoID:  t.VideoID,
				FrameIdx: t.FrameIdx,
				TrackID:  &e.TrackID,
				Payload: sink.Record{
					"table":           string(sink.TableTracks),
					"global_id":       e.GlobalID,
					"video_id":        e.VideoID,
					"track_id":        e.TrackID,
					"first_frame_idx": e.FrameIdx,
					"video_ts_frame":  e.VideoTSFrame,
					"video_path":      t.Meta.VideoPath,
					"video_filename":  t.Meta.VideoFilename,
				},
				Meta: task.WithPassthrough(t.Meta, task.Meta{Dependencies: deps}),
			})
		}

		fs.AddRefs(deps)
		pushWithBackpressure(q, task.Task{
			Category: task.FinalWrite,
			VideoID:  t.VideoID,
			FrameIdx: t.FrameIdx,
			TrackID:  &e.TrackID,
			Payload: sink.Record{
				"table":          string(sink.TableTrackMotion),
				"global_id":      e.GlobalID,
				"track_id":       e.TrackID,
				"video_id":       e.VideoID,
				"frame_idx":      e.FrameIdx,
				"video_ts_frame": e.VideoTSFrame,
				"video_ts_ms":    e.VideoTSMS,
				"bbox":           e.BBox,
				"vx":             e.VX,
				"vy":             e.VY,
				"speed_px_s":     e.SpeedPxS,
				"heading_deg":    e.HeadingDeg,
				"age_frames":     e.AgeFrames,
				"conf":           e.Conf,
				"video_path":     t.Meta.VideoPath,
				"video_filename": t.Meta.VideoFilename,
			},
			Meta: task.WithPassthrough(t.Meta, task.Meta{Dependencies: deps}),
		})
	}
}

// handleOCRResult spawns a PLATE_SMOOTH task carrying the OCR text/conf,
// unless the text is empty.
func handleOCRResult(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store) {
	oc, _ := result.(processor.OCRResult)
	if oc.Text == "" {
		return
	}

	deps := t.Dependencies()
	fs.AddRefs(deps)
	pushWithBackpressure(q, task.Task{
		Category: task.PlateSmooth,
		Payload:  oc,
		VideoID:  t.VideoID,
		FrameIdx: t.FrameIdx,
		TrackID:  t.TrackID,
		Meta: task.WithPassthrough(t.Meta, task.Meta{
			Dependencies: deps,
			CarBBox:      t.Meta.CarBBox,
			PlateBBox:    t.Meta.PlateBBox,
		}),
	})
}

// handlePlateSmoothResult spawns a vehicles FINAL_WRITE task once the
// smoother has enough history; otherwise there are no descendants.
func handlePlateSmoothResult(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store) {
	sm, _ := result.(processor.SmoothResult)
	if sm.Final == nil {
		return
	}

	deps := t.Dependencies()
	fs.AddRefs(deps)
	pushWithBackpressure(q, task.Task{
		Category: task.FinalWrite,
		VideoID:  t.VideoID,
		FrameIdx: t.FrameIdx,
		TrackID:  t.TrackID,
		Payload: sink.Record{
			"table":            string(sink.TableVehicles),
			"video_id":         t.VideoID,
			"frame_idx":        t.FrameIdx,
			"final_plate":      *sm.Final,
			"plate_confidence": sm.Conf,
			"car_bbox":         t.Meta.CarBBox,
			"plate_bbox":       t.Meta.PlateBBox,
			"global_id":        t.Meta.GlobalID,
		},
		Meta: task.WithPassthrough(t.Meta, task.Meta{Dependencies: deps}),
	})
}

// handleFinalWriteResult is terminal: it has no descendants.
func handleFinalWriteResult(t task.Task, result processor.Result, q *queue.CentralQueue, fs *framestore.Store) {
}
