// Package backend defines the back-end dispatch vtable of spec.md §4.6: the
// operation table a concrete back-end (hardware, plugin chain, null sink,
// shared) exports so the configuration, state-machine, and transfer-engine
// components in the pcm package remain back-end agnostic.
//
// Grounded in the teacher's Source/Sink split (internal/media/source.go,
// internal/media/sinks.go: an interface each concrete transport implements,
// registered by tag) and design notes §9's guidance to model back-end
// polymorphism as an operation trait rather than inheritance.
package backend

import (
	"io"

	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/constraint"
)

// Direction is the stream direction, fixed for the lifetime of a handle.
type Direction int

const (
	Playback Direction = iota
	Capture
)

func (d Direction) String() string {
	if d == Capture {
		return "CAPTURE"
	}
	return "PLAYBACK"
}

// Access is the memory-layout access mode of spec.md §6.
type Access int

const (
	MmapInterleaved Access = iota
	MmapNoninterleaved
	MmapComplex
	RWInterleaved
	RWNoninterleaved
)

func (a Access) String() string {
	names := [...]string{"MMAP_INTERLEAVED", "MMAP_NONINTERLEAVED", "MMAP_COMPLEX", "RW_INTERLEAVED", "RW_NONINTERLEAVED"}
	if int(a) < len(names) {
		return names[a]
	}
	return "UNKNOWN"
}

func (a Access) IsMmap() bool {
	return a == MmapInterleaved || a == MmapNoninterleaved || a == MmapComplex
}

func (a Access) IsInterleaved() bool {
	return a == MmapInterleaved || a == RWInterleaved
}

// Geometry is the fixed, derived configuration a back-end hands back after
// Commit, latched verbatim into the handle per spec.md §3.
type Geometry struct {
	Access       Access
	Format       area.Format
	Subformat    int
	Channels     int
	Rate         uint
	RateNum      uint
	RateDen      uint
	SignificantBits uint
	FrameBits    uint
	SampleBits   uint
	BufferSize   uint64 // frames
	PeriodSize   uint64 // frames
	PeriodTimeUs uint64
	TickTimeUs   uint64
}

// Info is static back-end identification surfaced by the slow Info op.
type Info struct {
	Name      string
	Direction Direction
}

// SlowOps groups the rare, possibly-allocating back-end operations of
// spec.md §4.6.
type SlowOps interface {
	Close() error
	Info() Info
	SetNonblock(nonblock bool) error
	SetAsync(enable bool) error

	// Refine intersects space with whatever this back-end can actually
	// support, tightening it in place. It must be idempotent: refining an
	// already-refined space leaves it unchanged.
	Refine(space *constraint.Space) error

	// Commit fixes the (now single-point) space to the back-end, allocates
	// the hardware ring, and returns the resulting Geometry.
	Commit(space *constraint.Space) (Geometry, error)

	// Free releases the hardware ring established by Commit.
	Free() error

	SetSWParams(sw SWParams) error
	Dump(w io.Writer) error
}

// SWParams is the subset of software parameters a back-end needs in order
// to schedule wake-ups; see spec.md §4.3.
type SWParams struct {
	AvailMin         uint64
	StartThreshold   uint64
	StopThreshold    uint64
	SilenceThreshold uint64
	SilenceSize      uint64
	PeriodStep       uint
	SleepMinUs       uint
	XferAlign        uint64
}

// FastOps groups the hot-path operations of spec.md §4.6, which must never
// block indefinitely except where the engine has explicitly chosen to
// wait (spec.md §6).
type FastOps interface {
	State() State
	Status() Status
	Delay() (frames int64, err error)

	Prepare() error
	Reset() error
	Start() error
	Stop() error
	Drain() error
	Pause(enable bool) error
	Rewind(n uint64) (uint64, error)

	// AvailUpdate asks the back-end how many frames are currently available
	// for transfer: free ring space for playback, queued frames for
	// capture. It must be idempotent (spec.md §6); the engine derives its
	// own hw_ptr bookkeeping from this value rather than the other way
	// round.
	AvailUpdate() (avail int64, err error)

	// Areas returns the cached channel-area vector for the committed ring,
	// valid for mmap-access back-ends. Non-mmap (pure read/write) back-ends
	// return nil and are driven through WriteI/ReadI instead.
	Areas() []area.Area

	// WriteI/ReadI transfer frames frames between areas (engine- or
	// back-end-owned, depending on access mode) and the hardware ring
	// starting at ring offset offset (frames, modulo buffer size).
	WriteI(areas []area.Area, offset int, frames int) (int, error)
	ReadI(areas []area.Area, offset int, frames int) (int, error)

	// MmapCommit notifies a real mmap back-end that the engine has already
	// written/read frames frames directly into the window returned by
	// Areas(), starting at offset.
	MmapCommit(offset int, frames int) error

	Munmap() error

	// LinkDescriptor returns an opaque handle the back-end can use to join
	// this stream's kernel trigger with another's. ok is false when the
	// back-end has no such descriptor (link then fails -ENOSYS).
	LinkDescriptor() (interface{}, bool)

	// LinkWith joins this stream's kernel trigger group with the stream
	// that owns peerDescriptor (as returned by that stream's
	// LinkDescriptor), so PREPARE/START/STOP fire on both simultaneously
	// at the driver level (spec.md §4.6; Linux SNDRV_PCM_IOCTL_LINK).
	// Back-ends whose LinkDescriptor reports ok=false are never asked to
	// implement this for real and may return an error unconditionally.
	LinkWith(peerDescriptor interface{}) error

	// Unlink reverses LinkWith, removing this stream from its kernel
	// trigger group.
	Unlink() error

	// PollDescriptor returns the single descriptor the engine waits on
	// during blocking transfers and drain (spec.md §6). It may be nil for
	// back-ends that implement waiting some other way.
	PollDescriptor() Waiter
}

// Waiter abstracts the one poll descriptor per handle (spec.md §6); a
// concrete back-end adapts its real wait mechanism (eventfd, condvar,
// channel) to this shape.
type Waiter interface {
	// Wait blocks until the back-end can make progress or timeoutMs
	// elapses (a negative timeoutMs means no timeout). It returns false on
	// timeout.
	Wait(timeoutMs int) bool
}

// State mirrors the stream states of spec.md §6/§4.4. It is duplicated
// here (rather than imported from pcm) because back-ends must report it
// without creating an import cycle back into the engine package.
type State int

const (
	Open State = iota
	Setup
	Prepared
	Running
	Xrun
	Draining
	Paused
	Suspended
)

func (s State) String() string {
	names := [...]string{"OPEN", "SETUP", "PREPARED", "RUNNING", "XRUN", "DRAINING", "PAUSED", "SUSPENDED"}
	if int(s) < len(names) {
		return names[s]
	}
	return "UNKNOWN"
}

// Status is the immutable snapshot of spec.md §3.
type Status struct {
	State            State
	TriggerTimestamp int64 // ns since epoch
	NowTimestamp     int64
	Delay            int64
	Avail            int64
	AvailMax         int64
}

// Backend is the full vtable a concrete back-end (hardware, plugin chain,
// null sink, shared) must implement.
type Backend interface {
	SlowOps
	FastOps
}
