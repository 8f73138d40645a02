// Package validation checks FINAL_WRITE records against the sink
// contract's per-table required-field list (spec §6) before they reach
// the sink. Adapted from the teacher's output-validation package: same
// ValidationStep/Result shape, applied to records instead of encoded
// video files.
package validation

import (
	"fmt"

	"github.com/five82/dashcamd/internal/sink"
)

// Step is one named pass/fail check, displayed the way the teacher's
// terminal reporter renders validation steps.
type Step struct {
	Name    string
	Passed  bool
	Details string
}

// Result is the outcome of validating one record.
type Result struct {
	Passed bool
	Steps  []Step
}

// requiredFields lists, per table, the keys a record must carry a
// non-nil value for before being handed to the sink (spec §6).
var requiredFields = map[sink.Table][]string{
	sink.TableVehicles: {
		"video_id", "frame_idx", "ts", "final_plate", "plate_confidence", "car_bbox", "plate_bbox",
	},
	sink.TableTracks: {
		"global_id", "video_id", "track_id", "first_frame_idx",
	},
	sink.TableTrackMotion: {
		"global_id", "track_id", "video_id", "frame_idx", "bbox", "vx", "vy", "speed_px_s", "heading_deg",
	},
}

// ValidateRecord checks table and record against the required-field list,
// returning one Step per required field plus an overall Result.
func ValidateRecord(table sink.Table, record sink.Record) Result {
	if !sink.ValidTable(table) {
		return Result{
			Passed: false,
			Steps:  []Step{{Name: "table", Passed: false, Details: fmt.Sprintf("unknown table %q", table)}},
		}
	}

	fields := requiredFields[table]
	steps := make([]Step, 0, len(fields))
	passed := true

	for _, f := range fields {
		v, ok := record[f]
		present := ok && v != nil
		if !present {
			passed = false
		}
		steps = append(steps, Step{
			Name:    f,
			Passed:  present,
			Details: fieldDetail(present, f),
		})
	}

	return Result{Passed: passed, Steps: steps}
}

func fieldDetail(present bool, field string) string {
	if present {
		return "present"
	}
	return fmt.Sprintf("missing required field %q", field)
}

// MissingFields returns the names of every required-but-absent field, for
// building an error message.
func (r Result) MissingFields() []string {
	var out []string
	for _, s := range r.Steps {
		if !s.Passed {
			out = append(out, s.Name)
		}
	}
	return out
}
