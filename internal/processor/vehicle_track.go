package processor

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/five82/dashcamd/internal/task"
)

// MaxSpeedPxS clamps implausible first-difference velocity spikes (sensor
// noise, detector box jitter) to a sane upper bound.
const MaxSpeedPxS = 3000.0

// SpeedSmoothAlpha is the exponential-smoothing weight applied to the
// freshly computed velocity against the track's prior smoothed velocity.
const SpeedSmoothAlpha = 0.5

// DefaultFPS is used when task.Meta.FPS is absent or not positive.
const DefaultFPS = 30.0

type trackState struct {
	bbox       task.BBox
	centerX    float64
	centerY    float64
	frameIdx   int
	tsMS       *float64
	vx, vy     float64
	svx, svy   float64
	speed      float64
	headingDeg float64
	age        int
	conf       float64
	globalID   string
	area       float64
}

type videoTrackState struct {
	tracks map[int]*trackState
}

// VehicleTrackResource is the in-process tracker state, keyed per video id.
// It is the Resource a VEHICLE_TRACK worker loads once and keeps across
// tasks until a category switch evicts it.
type VehicleTrackResource struct {
	mu     sync.Mutex
	videos map[string]*videoTrackState
}

// VehicleTrackProcessor implements the CPU-bound motion-tracking stage
// (spec §4.6), transliterated from the original tracker's first-difference
// velocity/heading computation with clamping and exponential smoothing.
type VehicleTrackProcessor struct{}

// Load returns a fresh, empty tracker.
func (VehicleTrackProcessor) Load() (Resource, error) {
	return &VehicleTrackResource{videos: make(map[string]*videoTrackState)}, nil
}

func center(b task.BBox) (float64, float64) {
	return (b[0] + b[2]) * 0.5, (b[1] + b[3]) * 0.5
}

func area(b task.BBox) float64 {
	return (b[2] - b[0]) * (b[3] - b[1])
}

func speedHeading(prevX, prevY, curX, curY, dtS float64) (vx, vy, speed, headingDeg float64) {
	if dtS < 1e-6 {
		dtS = 1e-3
	}
	vx = (curX - prevX) / dtS
	vy = (curY - prevY) / dtS
	speed = math.Hypot(vx, vy)
	if speed > 0 {
		headingDeg = math.Atan2(vy, vx) * 180 / math.Pi
	}
	return vx, vy, speed, headingDeg
}

// Process updates per-track motion state for every detection carrying a
// track id and returns one TrackMotion entry per such detection.
func (VehicleTrackProcessor) Process(_ context.Context, t task.Task, r Resource) (Result, error) {
	res, ok := r.(*VehicleTrackResource)
	if !ok {
		return nil, fmt.Errorf("processor: vehicle_track got wrong resource type %T", r)
	}

	detections, _ := t.Payload.([]Detection)

	fps := DefaultFPS
	if t.Meta.FPS != nil && *t.Meta.FPS > 0 {
		fps = *t.Meta.FPS
	}

	res.mu.Lock()
	defer res.mu.Unlock()

	vs, ok := res.videos[t.VideoID]
	if !ok {
		vs = &videoTrackState{tracks: make(map[int]*trackState)}
		res.videos[t.VideoID] = vs
	}

	var out []TrackMotion
	for _, d := range detections {
		if d.TrackID == nil {
			continue
		}
		trackID := *d.TrackID
		cx, cy := center(d.BBox)
		a := area(d.BBox)
		globalID := fmt.Sprintf("%s:%d", t.VideoID, trackID)

		prev, hasPrev := vs.tracks[trackID]

		var dtS float64
		switch {
		case hasPrev && prev.tsMS != nil && t.Meta.VideoTSMS != nil:
			dtS = (*t.Meta.VideoTSMS - *prev.tsMS) / 1000.0
		case hasPrev:
			frameDelta := float64(t.FrameIdx - prev.frameIdx)
			dtS = frameDelta / fps
		default:
			dtS = 1.0 / fps
		}

		var prevX, prevY, prevArea float64
		var prevAge int
		var psvx, psvy float64
		havePrevSmoothed := false
		if hasPrev {
			prevX, prevY = prev.centerX, prev.centerY
			prevArea = prev.area
			prevAge = prev.age
			if prev.svx != 0 || prev.svy != 0 {
				psvx, psvy = prev.svx, prev.svy
				havePrevSmoothed = true
			}
		} else {
			prevX, prevY = cx, cy
			prevArea = a
		}

		vx, vy, speed, headingDeg := speedHeading(prevX, prevY, cx, cy, dtS)

		if speed > MaxSpeedPxS {
			scale := MaxSpeedPxS / speed
			vx *= scale
			vy *= scale
			speed = MaxSpeedPxS
			if speed > 0 {
				headingDeg = math.Atan2(vy, vx) * 180 / math.Pi
			}
		}

		svx, svy := vx, vy
		if havePrevSmoothed {
			svx = SpeedSmoothAlpha*vx + (1-SpeedSmoothAlpha)*psvx
			svy = SpeedSmoothAlpha*vy + (1-SpeedSmoothAlpha)*psvy
			speed = math.Hypot(svx, svy)
			if speed > 0 {
				headingDeg = math.Atan2(svy, svx) * 180 / math.Pi
			} else {
				headingDeg = 0
			}
		}

		scaleRatio := 1.0
		if prevArea != 0 {
			scaleRatio = a / prevArea
		}
		scaleRate := (a - prevArea) / dtS

		age := 1
		if hasPrev {
			age = prevAge + 1
		}

		vs.tracks[trackID] = &trackState{
			bbox:       d.BBox,
			centerX:    cx,
			centerY:    cy,
			frameIdx:   t.FrameIdx,
			tsMS:       t.Meta.VideoTSMS,
			vx:         vx,
			vy:         vy,
			svx:        svx,
			svy:        svy,
			speed:      speed,
			headingDeg: headingDeg,
			age:        age,
			conf:       d.Conf,
			globalID:   globalID,
			area:       a,
		}

		out = append(out, TrackMotion{
			GlobalID:     globalID,
			TrackID:      trackID,
			VideoID:      t.VideoID,
			FrameIdx:     t.FrameIdx,
			VideoTSFrame: t.Meta.VideoTSFrame,
			VideoTSMS:    t.Meta.VideoTSMS,
			BBox:         d.BBox,
			VX:           svx,
			VY:           svy,
			SpeedPxS:     speed,
			HeadingDeg:   headingDeg,
			AgeFrames:    age,
			Conf:         d.Conf,
			IsNew:        !hasPrev,
			ScaleRatio:   scaleRatio,
			ScaleRate:    scaleRate,
		})
	}

	return out, nil
}
