package sink

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/buntdb"
)

// BuntSink persists each record as a JSON blob in an embedded buntdb
// database, keyed by table:video_id:frame_idx:track_id. It exists to
// exercise a real embedded-KV dependency (grounded on aistore's go.mod,
// which lists tidwall/buntdb) while stopping short of a SQL driver, which
// spec.md places out of scope.
type BuntSink struct {
	db *buntdb.DB
}

// NewBuntSink opens (or creates) a buntdb database at path. Pass ":memory:"
// for an in-process, non-persistent instance, as the test suite does.
func NewBuntSink(path string) (*BuntSink, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sink: open buntdb at %s: %w", path, err)
	}
	return &BuntSink{db: db}, nil
}

func recordKey(table Table, record Record) string {
	videoID, _ := record["video_id"].(string)
	frameIdx := fmt.Sprint(record["frame_idx"])
	trackID := "-"
	if t, ok := record["track_id"]; ok && t != nil {
		trackID = fmt.Sprint(t)
	}
	return fmt.Sprintf("%s:%s:%s:%s", table, videoID, frameIdx, trackID)
}

// WriteRecord stores the record as JSON under its derived key. Writing
// twice under the same key overwrites in place — the sink contract says
// nothing about deduplication (spec §9's open question), so this
// implementation simply takes "last write wins" as its resolution rather
// than rejecting or appending.
func (s *BuntSink) WriteRecord(table Table, record Record) error {
	if !ValidTable(table) {
		return ErrUnknownTable(table)
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sink: marshal record for table %s: %w", table, err)
	}
	key := recordKey(table, record)
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(blob), nil)
		return err
	})
}

// Get retrieves a previously written record by its derived key, for tests
// asserting on end-to-end scenarios.
func (s *BuntSink) Get(table Table, record Record) (Record, bool, error) {
	key := recordKey(table, record)
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out Record
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Count returns the number of keys stored under a table prefix, for tests.
func (s *BuntSink) Count(table Table) (int, error) {
	n := 0
	prefix := string(table) + ":"
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			n++
			return true
		})
	})
	return n, err
}

// CountForVideo returns the number of keys stored under a table:videoID
// prefix, implementing VideoCounter.
func (s *BuntSink) CountForVideo(table Table, videoID string) (int, error) {
	n := 0
	prefix := string(table) + ":" + videoID + ":"
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			n++
			return true
		})
	})
	return n, err
}

// Close releases the underlying database handle.
func (s *BuntSink) Close() error {
	return s.db.Close()
}
