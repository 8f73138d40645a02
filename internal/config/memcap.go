package config

import "github.com/five82/dashcamd/internal/util"

// Estimated resident memory per GPU worker by decoded frame resolution.
// Adapted from the teacher's per-resolution SVT-AV1 memory table
// (internal/encode/permits.go): there it capped encoder workers against
// encode buffers, here it caps GPU worker goroutines against the frame
// buffers and model activations they hold in flight.
const (
	MemPerGPUWorker4K    = 3 << 30   // 3 GB
	MemPerGPUWorker1080p = 1 << 30   // 1 GB
	MemPerGPUWorkerSD    = 384 << 20 // 384 MB
)

// GPUMemoryFraction is the fraction of available memory to reserve for GPU
// workers, leaving headroom for the CPU lane and the OS page cache.
const GPUMemoryFraction = 0.6

// CapGPUWorkers returns the safe number of GPU workers given the decoded
// frame resolution, and whether the requested count was reduced.
func CapGPUWorkers(requested, frameWidth, frameHeight int) (int, bool) {
	perWorker := memPerGPUWorker(frameWidth, frameHeight)

	maxByMemory := requested
	if available := util.AvailableMemoryBytes(); available > 0 {
		usable := uint64(float64(available) * GPUMemoryFraction)
		maxByMemory = max(int(usable/perWorker), 1)
	}

	if requested > maxByMemory {
		return maxByMemory, true
	}
	return requested, false
}

func memPerGPUWorker(width, height int) uint64 {
	switch {
	case width >= 3840 || height >= 2160:
		return MemPerGPUWorker4K
	case width >= 1920 || height >= 1080:
		return MemPerGPUWorker1080p
	default:
		return MemPerGPUWorkerSD
	}
}
