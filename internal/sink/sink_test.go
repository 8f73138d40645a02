package sink

import (
	"testing"

	"go.uber.org/zap"
)

func TestLogSinkRejectsUnknownTable(t *testing.T) {
	s := NewLogSink(zap.NewNop())
	defer s.Close()
	if err := s.WriteRecord(Table("bogus"), Record{}); err == nil {
		t.Fatal("expected error writing to an unknown table")
	}
}

func TestLogSinkAcceptsValidTable(t *testing.T) {
	s := NewLogSink(zap.NewNop())
	defer s.Close()
	if err := s.WriteRecord(TableVehicles, Record{"video_id": "v1"}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
}

func TestLogSinkIsNotAVideoCounter(t *testing.T) {
	var s Sink = NewLogSink(zap.NewNop())
	if _, ok := s.(VideoCounter); ok {
		t.Fatal("LogSink must not implement VideoCounter: it retains nothing to count")
	}
}

func TestBuntSinkWriteThenGetRoundTrip(t *testing.T) {
	s, err := NewBuntSink(":memory:")
	if err != nil {
		t.Fatalf("NewBuntSink: %v", err)
	}
	defer s.Close()

	rec := Record{"video_id": "vid1", "frame_idx": float64(3), "final_plate": "ABC123"}
	if err := s.WriteRecord(TableVehicles, rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	got, ok, err := s.Get(TableVehicles, rec)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be found")
	}
	if got["final_plate"] != "ABC123" {
		t.Errorf("final_plate = %v, want ABC123", got["final_plate"])
	}
}

func TestBuntSinkRejectsUnknownTable(t *testing.T) {
	s, _ := NewBuntSink(":memory:")
	defer s.Close()
	if err := s.WriteRecord(Table("bogus"), Record{}); err == nil {
		t.Fatal("expected error writing to an unknown table")
	}
}

func TestBuntSinkLastWriteWins(t *testing.T) {
	s, _ := NewBuntSink(":memory:")
	defer s.Close()

	rec := Record{"video_id": "vid1", "frame_idx": float64(1), "final_plate": "AAA111"}
	s.WriteRecord(TableVehicles, rec)
	rec["final_plate"] = "BBB222"
	s.WriteRecord(TableVehicles, rec)

	got, _, _ := s.Get(TableVehicles, rec)
	if got["final_plate"] != "BBB222" {
		t.Errorf("final_plate = %v, want BBB222 (last write wins)", got["final_plate"])
	}
	n, _ := s.Count(TableVehicles)
	if n != 1 {
		t.Errorf("Count = %d, want 1 (overwrite, not append)", n)
	}
}

func TestBuntSinkCountForVideoIsScopedPerVideo(t *testing.T) {
	s, _ := NewBuntSink(":memory:")
	defer s.Close()

	s.WriteRecord(TableVehicles, Record{"video_id": "vid1", "frame_idx": float64(0)})
	s.WriteRecord(TableVehicles, Record{"video_id": "vid1", "frame_idx": float64(1)})
	s.WriteRecord(TableVehicles, Record{"video_id": "vid2", "frame_idx": float64(0)})

	n, err := s.CountForVideo(TableVehicles, "vid1")
	if err != nil {
		t.Fatalf("CountForVideo: %v", err)
	}
	if n != 2 {
		t.Errorf("CountForVideo(vid1) = %d, want 2", n)
	}
}

func TestBuntSinkImplementsVideoCounter(t *testing.T) {
	var s Sink
	bunt, _ := NewBuntSink(":memory:")
	defer bunt.Close()
	s = bunt
	if _, ok := s.(VideoCounter); !ok {
		t.Fatal("BuntSink must implement VideoCounter")
	}
}

func TestValidTable(t *testing.T) {
	for _, tbl := range []Table{TableVehicles, TableTracks, TableTrackMotion} {
		if !ValidTable(tbl) {
			t.Errorf("ValidTable(%s) = false, want true", tbl)
		}
	}
	if ValidTable(Table("nope")) {
		t.Error("ValidTable(nope) = true, want false")
	}
}
