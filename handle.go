// Package pcm is a user-space PCM streaming engine: it mediates between an
// application producing or consuming audio frames and a back-end (hardware,
// plugin chain, null sink, or shared stream) that owns a ring buffer. It
// negotiates a mutually acceptable hardware configuration (hw_params),
// exposes a well-defined lifecycle state machine, moves frames across the
// user/back-end boundary by blocking/non-blocking read/write or by
// memory-mapped access, and handles under/over-run conditions
// deterministically.
//
// Grounded in the teacher's webrtc media pipeline (lanikai/alohartc), whose
// Source/Sink interfaces and registry (internal/media/registry.go) are
// generalised here from a push-based media pipeline to the pull-based,
// back-end-driven PCM ring buffer model of spec.md.
package pcm

import (
	"sync"

	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/logging"
	"github.com/pkg/errors"
)

var log = logging.DefaultLogger.WithTag("pcm")

// Direction and Access re-export the backend package's enumerations so
// callers never need to import internal/backend directly.
type Direction = backend.Direction

const (
	Playback = backend.Playback
	Capture  = backend.Capture
)

type Access = backend.Access

const (
	MmapInterleaved    = backend.MmapInterleaved
	MmapNoninterleaved = backend.MmapNoninterleaved
	MmapComplex        = backend.MmapComplex
	RWInterleaved      = backend.RWInterleaved
	RWNoninterleaved   = backend.RWNoninterleaved
)

type Format = area.Format

const (
	S8        = area.S8
	U8        = area.U8
	S16LE     = area.S16LE
	S16BE     = area.S16BE
	S24LE     = area.S24LE
	S24BE     = area.S24BE
	S32LE     = area.S32LE
	S32BE     = area.S32BE
	Float32LE = area.Float32LE
	Float32BE = area.Float32BE
)

// Mode bits for Open, per spec.md §3.
type Mode int

const (
	ModeBlock Mode = 0
	// Nonblock makes read/write/drain/wait return -EAGAIN instead of
	// blocking on the poll descriptor.
	Nonblock Mode = 1 << 0
	// Async enables signal/event-driven delivery of async handlers.
	Async Mode = 1 << 1
)

// Handle is the per-stream object of spec.md §3.
type Handle struct {
	Name      string
	backendID string
	dir       Direction
	mode      Mode

	be backend.Backend

	mu    sync.Mutex
	state backend.State
	setup bool // true between hw_params success and hw_free

	geom backend.Geometry
	sw   SWParams

	boundary uint64

	applPtr uint64
	hwPtr   uint64 // last value observed from AvailUpdate, for monotonicity

	runningAreas []area.Area
	stoppedAreas []area.Area

	silencedTo uint64 // frontier (a boundary-wrapped frame position, like applPtr) of pre-silenced frames (playback only)

	link *linkGroup

	asyncHandlers []*AsyncHandler
}

// open constructs a handle already bound to a concrete back-end, in state
// OPEN. It is called by Open once internal/resolver has resolved a device
// spec to a Backend instance (spec.md §4.7, §6).
func open(name string, backendID string, be backend.Backend, dir Direction, mode Mode) *Handle {
	return &Handle{
		Name:      name,
		backendID: backendID,
		dir:       dir,
		mode:      mode,
		be:        be,
		state:     backend.Open,
	}
}

// State returns the handle's current stream state.
func (h *Handle) State() backend.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Direction returns the stream's fixed direction.
func (h *Handle) Direction() Direction {
	return h.dir
}

// Nonblock reports whether the handle was opened (or later switched) in
// non-blocking mode.
func (h *Handle) Nonblock() bool {
	return h.mode&Nonblock != 0
}

// SetNonblock toggles non-blocking mode, forwarding to the back-end.
func (h *Handle) SetNonblock(nonblock bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.be.SetNonblock(nonblock); err != nil {
		return errors.Wrap(err, "pcm: SetNonblock")
	}
	if nonblock {
		h.mode |= Nonblock
	} else {
		h.mode &^= Nonblock
	}
	return nil
}

// Geometry returns the fixed geometry latched by the last successful
// HWParams call. Valid only once Setup() is true.
func (h *Handle) Geometry() backend.Geometry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.geom
}

// Setup reports whether hw_params has succeeded and hw_free has not since
// been called (spec.md §3).
func (h *Handle) Setup() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setup
}

// Close implements spec.md §4.7: drains (playback, blocking mode) or drops
// (capture or non-block), frees hw params if still set up, detaches all
// async handlers, invokes the back-end close, and releases the handle.
// Close errors propagate; the handle's resources are released regardless.
func (h *Handle) Close() error {
	h.mu.Lock()
	st := h.state
	dir := h.dir
	nonblock := h.mode&Nonblock != 0
	h.mu.Unlock()

	var closeErr error
	if st == backend.Running || st == backend.Draining || st == backend.Paused {
		if dir == Playback && !nonblock {
			closeErr = h.Drain()
		} else {
			closeErr = h.Stop()
		}
	}

	h.detachAllAsync()

	if h.Setup() {
		if err := h.hwFree(); err != nil && closeErr == nil {
			closeErr = err
		}
	}

	if err := h.be.Close(); err != nil && closeErr == nil {
		closeErr = errors.Wrap(err, "pcm: backend Close")
	}
	return closeErr
}

// DumpHWParams returns the current geometry for rendering in the style of
// `aplay --dump-hw-params` (cmd/pcmcat does the rendering); see
// SPEC_FULL.md §4.8.
func (h *Handle) DumpHWParams() backend.Geometry {
	return h.Geometry()
}
