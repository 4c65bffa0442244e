// Package null implements an in-process, dependency-free PCM back-end: a
// plain byte ring buffer with no hardware underneath. It is the default
// back-end for "null:" device specs, and the one the engine's own tests
// exercise against.
//
// Grounded in the teacher's FileMediaSink (internal/media/file_media_sink.go)
// for the minimal-sink shape, and SharedBuffer (internal/media/buffer.go)
// for the release-counted buffer discipline, adapted here into one ring,
// drained whenever the stream is running, rather than a pool of discrete
// shared buffers.
package null

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/constraint"
)

// chanWaiter adapts a buffered channel into backend.Waiter.
type chanWaiter struct {
	ch chan struct{}
}

func (w *chanWaiter) Wait(timeoutMs int) bool {
	if timeoutMs < 0 {
		<-w.ch
		return true
	}
	select {
	case <-w.ch:
		return true
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return false
	}
}

func (w *chanWaiter) signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Backend is the null back-end: one contiguous byte ring, addressed as a
// single interleaved channel area, with the hardware pointer advanced
// in-process rather than by any real consumer/producer.
type Backend struct {
	info backend.Info

	mu       sync.Mutex
	nonblock bool
	geom     backend.Geometry
	sw       backend.SWParams
	state    backend.State

	ring   []byte
	areas  []area.Area
	waiter *chanWaiter

	// filled is playback-only: frames written but not yet considered
	// consumed, bounded by geom.BufferSize. The null back-end has no real
	// consumer, so it "plays" (drains) everything queued the moment the
	// stream is Running; before that, filled accumulates exactly like a
	// real hardware ring would before the trigger fires.
	filled uint64
}

// New returns an unopened null back-end for the given direction.
func New(name string, dir backend.Direction) *Backend {
	return &Backend{
		info:   backend.Info{Name: name, Direction: dir},
		waiter: &chanWaiter{ch: make(chan struct{}, 1)},
		state:  backend.Open,
	}
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Info() backend.Info { return b.info }

func (b *Backend) SetNonblock(nonblock bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonblock = nonblock
	return nil
}

func (b *Backend) SetAsync(enable bool) error { return nil }

// Refine is a no-op: the null back-end imposes no constraints of its own
// beyond the universal space HWParamsAny already declares.
func (b *Backend) Refine(space *constraint.Space) error {
	return nil
}

// Commit reads the now-single-point space directly via the ParamID
// constants the pcm package declares (mirrored here as plain ints to
// avoid an import cycle back into package pcm) and allocates the ring.
func (b *Backend) Commit(space *constraint.Space) (backend.Geometry, error) {
	const (
		paramAccess = iota
		paramFormat
		paramSubformat
		paramChannels
		paramRate
		_ // periodTime
		paramPeriodSize
		_ // periodBytes
		_ // periods
		_ // bufferTime
		paramBufferSize
		_ // bufferBytes
		paramTickTime
		paramSampleBits
		paramFrameBits
	)

	access, _ := space.Mask(paramAccess).Single()
	format, _ := space.Mask(paramFormat).Single()
	subformat, _ := space.Mask(paramSubformat).Single()
	channels, _ := space.Interval(paramChannels).Single()
	rate, _ := space.Interval(paramRate).Single()
	periodSize, _ := space.Interval(paramPeriodSize).Single()
	bufferSize, _ := space.Interval(paramBufferSize).Single()
	tickTime, _ := space.Interval(paramTickTime).Single()
	sampleBits, _ := space.Interval(paramSampleBits).Single()
	frameBits, _ := space.Interval(paramFrameBits).Single()

	if bufferSize == 0 {
		bufferSize = 4096
	}
	if frameBits == 0 {
		frameBits = sampleBits * channels
	}

	geom := backend.Geometry{
		Access:       backend.Access(access),
		Format:       area.Format(format),
		Subformat:    subformat,
		Channels:     int(channels),
		Rate:         uint(rate),
		FrameBits:    uint(frameBits),
		SampleBits:   uint(sampleBits),
		BufferSize:   bufferSize,
		PeriodSize:   periodSize,
		TickTimeUs:   tickTime,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.geom = geom
	b.ring = make([]byte, bufferSize*uint64(frameBits)/8)
	b.areas = area.AreasFromBuf(b.ring, geom.Channels, int(geom.SampleBits))
	b.state = backend.Setup
	return geom, nil
}

func (b *Backend) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring = nil
	b.areas = nil
	return nil
}

func (b *Backend) SetSWParams(sw backend.SWParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sw = sw
	return nil
}

func (b *Backend) Dump(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprintf(w, "%s: null backend, buffer=%d frames, %d channels @ %dHz\n",
		b.info.Name, b.geom.BufferSize, b.geom.Channels, b.geom.Rate)
	return err
}

func (b *Backend) State() backend.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) Status() backend.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return backend.Status{
		State:    b.state,
		Avail:    int64(b.geom.BufferSize),
		AvailMax: int64(b.geom.BufferSize),
	}
}

func (b *Backend) Delay() (int64, error) { return 0, nil }

func (b *Backend) Prepare() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = backend.Prepared
	b.filled = 0
	return nil
}

func (b *Backend) Reset() error { return b.Prepare() }

func (b *Backend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = backend.Running
	return nil
}

func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = backend.Prepared
	b.filled = 0
	return nil
}

func (b *Backend) Drain() error { return nil }

func (b *Backend) Pause(enable bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if enable {
		b.state = backend.Paused
	} else {
		b.state = backend.Running
	}
	return nil
}

func (b *Backend) Rewind(n uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.info.Direction == backend.Capture {
		return 0, nil
	}
	if n > b.filled {
		n = b.filled
	}
	b.filled -= n
	return n, nil
}

// AvailUpdate reports the number of frames currently available for
// transfer. Capture always reports a full ring: the null source generates
// silence on demand, so it is never short of data. Playback reports
// buffer_size - filled: once Running, the null sink is an infinitely fast
// consumer and drains whatever was queued on every poll, but before the
// stream starts (state Prepared), filled accumulates exactly like a real
// ring does while nothing has yet been triggered — this is what lets the
// engine's start_threshold auto-start logic observe a filling buffer.
func (b *Backend) AvailUpdate() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waiter.signal()
	if b.info.Direction == backend.Capture {
		return int64(b.geom.BufferSize), nil
	}
	if b.state == backend.Running {
		b.filled = 0
	}
	return int64(b.geom.BufferSize - b.filled), nil
}

func (b *Backend) Areas() []area.Area {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.areas
}

func (b *Backend) WriteI(areas []area.Area, offset int, frames int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filled += uint64(frames)
	if b.filled > b.geom.BufferSize {
		b.filled = b.geom.BufferSize
	}
	return frames, nil
}

func (b *Backend) ReadI(dsts []area.Area, offset int, frames int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := area.AreasSilence(dsts, 0, frames, b.geom.Format); err != nil {
		return 0, err
	}
	return frames, nil
}

func (b *Backend) MmapCommit(offset int, frames int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.info.Direction == backend.Playback {
		b.filled += uint64(frames)
		if b.filled > b.geom.BufferSize {
			b.filled = b.geom.BufferSize
		}
	}
	return nil
}

func (b *Backend) Munmap() error { return nil }

func (b *Backend) LinkDescriptor() (interface{}, bool) { return nil, false }

// LinkWith is never reached in practice: Link (see ../../../link.go) only
// calls it after checking LinkDescriptor, and the null back-end's
// LinkDescriptor always reports ok=false. Implemented defensively rather
// than silently succeeding.
func (b *Backend) LinkWith(peerDescriptor interface{}) error {
	return fmt.Errorf("null: back-end has no kernel trigger to link")
}

func (b *Backend) Unlink() error { return nil }

func (b *Backend) PollDescriptor() backend.Waiter { return b.waiter }
