// Package sink implements the write-through contract to the external
// record store named in spec §6. The core only ever depends on the Sink
// interface; SQL persistence of finalized records is explicitly out of
// scope (spec §1), so no SQL driver is wired here.
package sink

import "fmt"

// Table is one of the three tables the FINAL_WRITE stage ever targets.
type Table string

const (
	TableVehicles     Table = "vehicles"
	TableTracks       Table = "tracks"
	TableTrackMotion  Table = "track_motion"
)

// Record is a table-specific payload. The sink never interprets its
// contents beyond reading the keys it needs to build a storage key; the
// core normalizes required fields before calling WriteRecord (internal/processor).
type Record map[string]any

// Sink is the external collaborator contract from spec §6:
// write_record(table, record).
type Sink interface {
	WriteRecord(table Table, record Record) error
	Close() error
}

// VideoCounter is an optional capability a Sink may implement to report how
// many records it holds for one video's table, used for run summaries. Not
// every Sink can answer this cheaply (LogSink cannot, since it writes
// through without retaining anything).
type VideoCounter interface {
	CountForVideo(table Table, videoID string) (int, error)
}

// ValidTable reports whether t is one of the three recognized tables.
func ValidTable(t Table) bool {
	switch t {
	case TableVehicles, TableTracks, TableTrackMotion:
		return true
	default:
		return false
	}
}

// ErrUnknownTable is returned by a Sink implementation when asked to
// write to a table outside the closed set.
func ErrUnknownTable(t Table) error {
	return fmt.Errorf("sink: unknown table %q", t)
}
