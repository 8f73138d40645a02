// Package framestore is the content-addressed, reference-counted frame
// store shared by every pipeline stage. Frames are stored in memory keyed
// by a PayloadRef; storage is released the instant a frame's reference
// count reaches zero, never by garbage collection.
package framestore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/five82/dashcamd/internal/task"
)

// ErrMissingFrame is returned by Load both when a ref has no entry and
// when an entry's checksum fails re-verification — a corrupted frame is
// treated the same as a missing one.
var ErrMissingFrame = errors.New("framestore: missing frame")

// Frame is a single decoded video frame plus the checksum computed at
// save time.
type Frame struct {
	VideoID  string
	Index    int
	Width    int
	Height   int
	Data     []byte // raw or zstd-compressed, see Store.compress
	Checksum uint64
}

type entry struct {
	frame    Frame
	refcount int
}

// Store holds every live frame in memory. All mutation (save, load,
// add/release refs, delete) takes the same mutex; eviction on
// release-to-zero happens inside that same critical section so a
// concurrent Load can never observe a freed-but-still-indexed frame.
type Store struct {
	mu      sync.Mutex
	entries map[task.PayloadRef]*entry

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithCompression enables zstd compression of frame bytes at rest. Useful
// when MAX_GPU_BACKLOG/MAX_CPU_BACKLOG are set high enough that many
// frames are held concurrently.
func WithCompression() Option {
	return func(s *Store) { s.compress = true }
}

// New creates an empty frame store.
func New(opts ...Option) (*Store, error) {
	s := &Store{entries: make(map[task.PayloadRef]*entry)}
	for _, opt := range opts {
		opt(s)
	}
	if s.compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("framestore: new zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("framestore: new zstd decoder: %w", err)
		}
		s.encoder = enc
		s.decoder = dec
	}
	return s, nil
}

// Close releases the store's compressor resources.
func (s *Store) Close() {
	if s.decoder != nil {
		s.decoder.Close()
	}
}

// Save stores a decoded frame and returns its PayloadRef. The ref is
// returned even for a frame with zero bytes; callers never fail a save
// because of empty content, mirroring the original store's
// save-even-on-partial-failure posture — the checksum still records what
// was written.
func (s *Store) Save(videoID string, frameIdx int, width, height int, data []byte) (task.PayloadRef, error) {
	stored := data
	if s.compress {
		stored = s.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	}

	sum := xxhash.Sum64(data)
	ref := task.NewPayloadRef(videoID, frameIdx)

	s.mu.Lock()
	s.entries[ref] = &entry{
		frame: Frame{
			VideoID:  videoID,
			Index:    frameIdx,
			Width:    width,
			Height:   height,
			Data:     stored,
			Checksum: sum,
		},
	}
	s.mu.Unlock()

	return ref, nil
}

// Load returns the decoded frame bytes for a ref, re-verifying the
// checksum recorded at Save time. The returned Data is a private copy on
// the compressed path (decompression allocates a fresh slice); on the
// uncompressed path it shares the stored slice, since nothing ever
// mutates it in place.
func (s *Store) Load(ref task.PayloadRef) (Frame, error) {
	s.mu.Lock()
	e, ok := s.entries[ref]
	if !ok {
		s.mu.Unlock()
		return Frame{}, fmt.Errorf("framestore: ref %q: %w", ref, ErrMissingFrame)
	}
	f := e.frame
	s.mu.Unlock()

	if s.compress {
		raw, err := s.decoder.DecodeAll(f.Data, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("framestore: decompress ref %q: %w", ref, err)
		}
		f.Data = raw
	}

	if xxhash.Sum64(f.Data) != f.Checksum {
		return Frame{}, fmt.Errorf("framestore: ref %q: checksum mismatch: %w", ref, ErrMissingFrame)
	}
	return f, nil
}

// AddRefs increments the reference count for every ref in the slice. Call
// this before handing the refs to a new downstream task, never after.
func (s *Store) AddRefs(refs []task.PayloadRef) {
	if len(refs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range refs {
		if e, ok := s.entries[r]; ok {
			e.refcount++
		}
	}
}

// ReleaseRefs decrements the reference count for every ref in the slice
// and evicts any entry whose count drops to zero or below. Eviction
// happens inside the same lock as the decrement so a frame can never be
// observed between "refcount hit zero" and "bytes freed".
func (s *Store) ReleaseRefs(refs []task.PayloadRef) {
	if len(refs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range refs {
		e, ok := s.entries[r]
		if !ok {
			continue
		}
		e.refcount--
		if e.refcount <= 0 {
			delete(s.entries, r)
		}
	}
}

// Delete removes a frame unconditionally, whatever its reference count.
func (s *Store) Delete(ref task.PayloadRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ref)
}

// Count returns the number of frames currently resident, for tests and
// monitoring.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RefCount returns the current reference count for a ref, or 0 if absent.
func (s *Store) RefCount(ref task.PayloadRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[ref]; ok {
		return e.refcount
	}
	return 0
}
