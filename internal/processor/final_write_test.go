package processor

import (
	"context"
	"testing"

	"github.com/five82/dashcamd/internal/sink"
	"github.com/five82/dashcamd/internal/task"
)

type fakeSink struct {
	records []sink.Record
	tables  []sink.Table
	closed  bool
}

func (f *fakeSink) WriteRecord(table sink.Table, record sink.Record) error {
	f.tables = append(f.tables, table)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func vehicleRecord() sink.Record {
	return sink.Record{
		"table":            string(sink.TableVehicles),
		"video_id":         "vid1",
		"frame_idx":        0,
		"final_plate":      "ABC123",
		"plate_confidence": 0.9,
		"car_bbox":         task.BBox{0, 0, 1, 1},
		"plate_bbox":       task.BBox{0, 0, 1, 1},
	}
}

func TestFinalWriteStampsTimestampForVehicles(t *testing.T) {
	fs := &fakeSink{}
	p := FinalWriteProcessor{Sink: fs}

	rec := vehicleRecord()
	tk := task.Task{VideoID: "vid1", FrameIdx: 0, Payload: rec}

	out, err := p.Process(context.Background(), tk, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	res := out.(FinalWriteResult)
	if res.Table != sink.TableVehicles {
		t.Errorf("Table = %v, want vehicles", res.Table)
	}
	if len(fs.records) != 1 {
		t.Fatalf("sink got %d records, want 1", len(fs.records))
	}
	if _, ok := fs.records[0]["ts"]; !ok {
		t.Error("expected ts to be stamped for a vehicles record missing one")
	}
}

func TestFinalWriteRejectsMissingRequiredField(t *testing.T) {
	fs := &fakeSink{}
	p := FinalWriteProcessor{Sink: fs}

	rec := vehicleRecord()
	delete(rec, "final_plate")
	tk := task.Task{VideoID: "vid1", Payload: rec}

	if _, err := p.Process(context.Background(), tk, nil); err == nil {
		t.Fatal("expected validation error for missing final_plate")
	}
	if len(fs.records) != 0 {
		t.Error("sink should not receive a record that failed validation")
	}
}

func TestFinalWriteRejectsNonRecordPayload(t *testing.T) {
	p := FinalWriteProcessor{Sink: &fakeSink{}}
	tk := task.Task{Payload: "not a record"}
	if _, err := p.Process(context.Background(), tk, nil); err == nil {
		t.Fatal("expected error for non-Record payload")
	}
}

func TestFinalWritePropagatesSinkError(t *testing.T) {
	p := FinalWriteProcessor{Sink: &erroringSink{}}
	tk := task.Task{Payload: vehicleRecord()}
	if _, err := p.Process(context.Background(), tk, nil); err == nil {
		t.Fatal("expected sink write error to propagate")
	}
}

type erroringSink struct{}

func (erroringSink) WriteRecord(sink.Table, sink.Record) error { return errWrite }
func (erroringSink) Close() error                              { return nil }

var errWrite = errWriteType("sink write failed")

type errWriteType string

func (e errWriteType) Error() string { return string(e) }
