// Package videoreader produces VEHICLE_DETECT tasks from video files in
// frame order, honoring lane backpressure (spec §4.3). Video decoding
// itself is an external boundary (spec §1); VideoSource is the seam.
package videoreader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/five82/dashcamd/internal/framestore"
	"github.com/five82/dashcamd/internal/queue"
	"github.com/five82/dashcamd/internal/task"
)

// DecodedFrame is one frame pulled off a VideoSource.
type DecodedFrame struct {
	Index  int
	Width  int
	Height int
	Data   []byte
	FPS    float64
	TSMS   float64
}

// VideoSource is the decode boundary. Implementations wrap an external
// decoder (e.g. an ffmpeg subprocess, per the teacher's exec.Cmd-building
// pattern in internal/encoder) and are not specified further here — spec
// §1 places video decoding internals out of scope.
type VideoSource interface {
	// Next returns the next decoded frame, or ok=false at end of stream.
	Next() (frame DecodedFrame, ok bool, err error)
	Close() error
}

// OpenFunc opens a VideoSource for a path. The video id is not derived
// here; the caller passes it to Reader.Run.
type OpenFunc func(path string) (VideoSource, error)

// Reader drives one video file end to end: decode, save, refcount, enqueue,
// backpressure.
type Reader struct {
	open   OpenFunc
	store  *framestore.Store
	queue  *queue.CentralQueue
	logger *zap.Logger

	gpuBacklogLimit int
	cpuBacklogLimit int
	sleepInterval   time.Duration
	pushRetrySleep  time.Duration
}

// Option configures a Reader.
type Option func(*Reader)

func WithGPUBacklogLimit(n int) Option { return func(r *Reader) { r.gpuBacklogLimit = n } }
func WithCPUBacklogLimit(n int) Option { return func(r *Reader) { r.cpuBacklogLimit = n } }
func WithSleepInterval(d time.Duration) Option { return func(r *Reader) { r.sleepInterval = d } }
func WithPushRetrySleep(d time.Duration) Option { return func(r *Reader) { r.pushRetrySleep = d } }

// New builds a Reader. Defaults mirror the original video reader's
// gpu_backlog_limit=300, cpu_backlog_limit=300, sleep_interval=0.02,
// scaled down by the caller via options to the configured
// MAX_GPU_BACKLOG/MAX_CPU_BACKLOG.
func New(open OpenFunc, store *framestore.Store, q *queue.CentralQueue, logger *zap.Logger, opts ...Option) *Reader {
	r := &Reader{
		open:            open,
		store:           store,
		queue:           q,
		logger:          logger,
		gpuBacklogLimit: 300,
		cpuBacklogLimit: 300,
		sleepInterval:   20 * time.Millisecond,
		pushRetrySleep:  10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) gpuOverloaded() bool {
	return r.queue.TotalGPUBacklog() > r.gpuBacklogLimit
}

func (r *Reader) cpuOverloaded() bool {
	return r.queue.TotalCPUBacklog() > r.cpuBacklogLimit
}

// blockState tracks which lane(s) were blocking the reader the last time
// it checked, so transitions are logged exactly once rather than on every
// poll (spec §4.3).
type blockState struct {
	gpu bool
	cpu bool
}

// Run decodes videoID from path, enqueuing one VEHICLE_DETECT task per
// frame until the source is exhausted or stopCtx is cancelled (spec §4.8
// phase 1: producers stop after completing the current frame). It returns
// the number of frames successfully enqueued.
func (r *Reader) Run(stopCtx context.Context, videoID, path string) (int, error) {
	src, err := r.open(path)
	if err != nil {
		return 0, fmt.Errorf("videoreader: open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	logger := r.logger.With(zap.String("video_id", videoID))

	var last blockState
	frameIdx := 0

	for {
		select {
		case <-stopCtx.Done():
			return frameIdx, nil
		default:
		}

		gpuBlocked := r.gpuOverloaded()
		cpuBlocked := r.cpuOverloaded()

		r.logTransition(logger, last, blockState{gpu: gpuBlocked, cpu: cpuBlocked})
		last = blockState{gpu: gpuBlocked, cpu: cpuBlocked}

		if gpuBlocked || cpuBlocked {
			if sleepOrDone(stopCtx, r.sleepInterval) {
				return frameIdx, nil
			}
			continue
		}

		frame, ok, err := src.Next()
		if err != nil {
			logger.Error("decode failed, reader exiting", zap.Error(err))
			return frameIdx, err
		}
		if !ok {
			return frameIdx, nil
		}

		if err := r.enqueueFrame(stopCtx, videoID, path, frameIdx, frame); err != nil {
			return frameIdx, err
		}
		frameIdx++
	}
}

func (r *Reader) enqueueFrame(ctx context.Context, videoID, path string, frameIdx int, frame DecodedFrame) error {
	ref, err := r.store.Save(videoID, frameIdx, frame.Width, frame.Height, frame.Data)
	if err != nil {
		return fmt.Errorf("videoreader: save frame %d of %s: %w", frameIdx, videoID, err)
	}
	deps := []task.PayloadRef{ref}
	r.store.AddRefs(deps)

	fps := frame.FPS
	tsMS := frame.TSMS

	t := task.Task{
		Category: task.VehicleDetect,
		VideoID:  videoID,
		FrameIdx: frameIdx,
		Meta: task.Meta{
			PayloadRef:    ref,
			Dependencies:  deps,
			VideoPath:     path,
			VideoFilename: filepath.Base(path),
			VideoTSFrame:  &frameIdx,
			VideoTSMS:     &tsMS,
			FPS:           &fps,
		},
	}

	// A refused push is retried until accepted, even after stop is
	// requested, so the current frame is always completed.
	for !r.queue.Push(t) {
		time.Sleep(r.pushRetrySleep)
	}
	return nil
}

// logTransition logs exactly on blocked/unblocked edges, matching the
// original reader's four-message (plus two cross-state) discipline.
func (r *Reader) logTransition(logger *zap.Logger, prev, cur blockState) {
	if prev.gpu == cur.gpu && prev.cpu == cur.cpu {
		return
	}
	switch {
	case cur.gpu && !prev.gpu && cur.cpu:
		logger.Warn("GPU backlog over limit, reads paused")
	case cur.gpu && !prev.gpu && !cur.cpu:
		logger.Warn("GPU backlog over limit, reads paused")
	case !cur.gpu && prev.gpu && cur.cpu:
		logger.Info("GPU backlog recovered but CPU still blocked, keeping reads paused")
	case !cur.gpu && prev.gpu && !cur.cpu:
		logger.Info("GPU backlog recovered, reads resuming")
	}
	switch {
	case cur.cpu && !prev.cpu && cur.gpu:
		logger.Warn("CPU backlog over limit, reads paused")
	case cur.cpu && !prev.cpu && !cur.gpu:
		logger.Warn("CPU backlog over limit, reads paused")
	case !cur.cpu && prev.cpu && cur.gpu:
		logger.Info("CPU backlog recovered but GPU still blocked, keeping reads paused")
	case !cur.cpu && prev.cpu && !cur.gpu:
		logger.Info("CPU backlog recovered, reads resuming")
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
