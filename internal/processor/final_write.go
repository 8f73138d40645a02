package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/dashcamd/internal/sink"
	"github.com/five82/dashcamd/internal/task"
	"github.com/five82/dashcamd/internal/validation"
)

// FinalWriteResult is the ack returned by FinalWriteProcessor.Process,
// mirroring the original writer's {table, columns, video_id, frame_idx}
// acknowledgement.
type FinalWriteResult struct {
	Table    sink.Table
	Columns  []string
	VideoID  string
	FrameIdx int
}

// FinalWriteProcessor is the sink boundary (spec §4.6): it hands a typed
// record to the external store adapter after checking it against the
// sink contract's required-field list.
type FinalWriteProcessor struct {
	Sink sink.Sink
}

// Load returns nil: the sink connection is injected at construction, not
// lazily loaded per category switch like a model handle would be.
func (p FinalWriteProcessor) Load() (Resource, error) {
	return nil, nil
}

// Process validates the record and writes it through the sink. A failed
// validation or sink write is surfaced as a processor failure (spec §7:
// "Sink failure ... surfaced as a processor failure for the FINAL_WRITE
// category; not retried by the core").
func (p FinalWriteProcessor) Process(_ context.Context, t task.Task, _ Resource) (Result, error) {
	record, ok := t.Payload.(sink.Record)
	if !ok {
		return nil, fmt.Errorf("processor: final_write got non-record payload %T", t.Payload)
	}

	tableStr, _ := record["table"].(string)
	table := sink.Table(tableStr)

	if table == sink.TableVehicles {
		if _, ok := record["ts"]; !ok {
			record["ts"] = time.Now().UTC()
		}
	}

	result := validation.ValidateRecord(table, record)
	if !result.Passed {
		return nil, fmt.Errorf("processor: final_write record for table %s missing fields: %v",
			table, result.MissingFields())
	}

	if err := p.Sink.WriteRecord(table, record); err != nil {
		return nil, fmt.Errorf("processor: sink write failed for table %s: %w", table, err)
	}

	columns := make([]string, 0, len(record))
	for k := range record {
		columns = append(columns, k)
	}

	return FinalWriteResult{
		Table:    table,
		Columns:  columns,
		VideoID:  t.VideoID,
		FrameIdx: t.FrameIdx,
	}, nil
}
