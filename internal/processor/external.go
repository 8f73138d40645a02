package processor

import (
	"context"
	"fmt"

	"github.com/five82/dashcamd/internal/framestore"
	"github.com/five82/dashcamd/internal/task"
)

// Detector, PlateDetector, and OCREngine are the external model
// boundaries named in spec §1 ("ML model internals ... specified only by
// their input/output contract"). The core never implements them; it only
// adapts their results into the dispatch graph.
type Detector interface {
	Detect(ctx context.Context, frame []byte, width, height int) ([]Detection, error)
}

type PlateDetector interface {
	DetectPlates(ctx context.Context, frame []byte, width, height int, carBBox task.BBox) ([]PlateBox, error)
}

type OCREngine interface {
	Recognize(ctx context.Context, frame []byte, width, height int, carBBox, plateBBox task.BBox) (OCRResult, error)
}

// VehicleDetectProcessor loads the raw frame by payload_ref and runs the
// injected Detector over it.
type VehicleDetectProcessor struct {
	Store    *framestore.Store
	Detector Detector
}

func (VehicleDetectProcessor) Load() (Resource, error) { return nil, nil }

func (p VehicleDetectProcessor) Process(ctx context.Context, t task.Task, _ Resource) (Result, error) {
	frame, err := p.Store.Load(t.Meta.PayloadRef)
	if err != nil {
		return nil, fmt.Errorf("processor: vehicle_detect load frame: %w", err)
	}
	return p.Detector.Detect(ctx, frame.Data, frame.Width, frame.Height)
}

// PlateDetectProcessor loads the frame and runs the plate detector on it,
// passing car_bbox along; any cropping is left to the PlateDetector.
type PlateDetectProcessor struct {
	Store    *framestore.Store
	Detector PlateDetector
}

func (PlateDetectProcessor) Load() (Resource, error) { return nil, nil }

func (p PlateDetectProcessor) Process(ctx context.Context, t task.Task, _ Resource) (Result, error) {
	frame, err := p.Store.Load(t.Meta.PayloadRef)
	if err != nil {
		return nil, fmt.Errorf("processor: plate_detect load frame: %w", err)
	}
	var carBBox task.BBox
	if t.Meta.CarBBox != nil {
		carBBox = *t.Meta.CarBBox
	}
	return p.Detector.DetectPlates(ctx, frame.Data, frame.Width, frame.Height, carBBox)
}

// OCRProcessor loads the frame and runs OCR on it, passing the car and
// plate boxes along; any cropping is left to the OCREngine.
type OCRProcessor struct {
	Store  *framestore.Store
	Engine OCREngine
}

func (OCRProcessor) Load() (Resource, error) { return nil, nil }

func (p OCRProcessor) Process(ctx context.Context, t task.Task, _ Resource) (Result, error) {
	frame, err := p.Store.Load(t.Meta.PayloadRef)
	if err != nil {
		return nil, fmt.Errorf("processor: ocr load frame: %w", err)
	}
	var carBBox, plateBBox task.BBox
	if t.Meta.CarBBox != nil {
		carBBox = *t.Meta.CarBBox
	}
	if t.Meta.PlateBBox != nil {
		plateBBox = *t.Meta.PlateBBox
	}
	return p.Engine.Recognize(ctx, frame.Data, frame.Width, frame.Height, carBBox, plateBBox)
}

// NullDetector, NullPlateDetector, and NullOCREngine are no-result stand-
// ins used where no real model is wired (default wiring, and most tests).
type NullDetector struct{}

func (NullDetector) Detect(context.Context, []byte, int, int) ([]Detection, error) {
	return nil, nil
}

type NullPlateDetector struct{}

func (NullPlateDetector) DetectPlates(context.Context, []byte, int, int, task.BBox) ([]PlateBox, error) {
	return nil, nil
}

type NullOCREngine struct{}

func (NullOCREngine) Recognize(context.Context, []byte, int, int, task.BBox, task.BBox) (OCRResult, error) {
	return OCRResult{}, nil
}
