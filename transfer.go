package pcm

import (
	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
)

// AvailUpdate republishes the hardware pointer and returns the number of
// frames currently available for transfer (spec.md §4.5): for playback,
// free space to write into; for capture, filled space to read from.
// AvailUpdate is idempotent and safe to call at any time after setup.
func (h *Handle) AvailUpdate() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.availUpdateLocked()
}

// availUpdateLocked asks the back-end how many frames are available for
// transfer right now and derives the engine's own hw_ptr bookkeeping from
// it: hw_ptr is never taken directly from the back-end (spec.md §4.5's
// avail/hw_ptr relationship is avail = buffer_size - (appl_ptr - hw_ptr)
// for playback, avail = hw_ptr - appl_ptr for capture), so it is solved
// for hw_ptr here instead of re-deriving avail from a hw_ptr the back-end
// never actually reports. All arithmetic wraps at h.boundary, never at
// raw uint64 overflow (spec.md §4.5 "boundary wrap").
func (h *Handle) availUpdateLocked() (int64, error) {
	avail, err := h.be.AvailUpdate()
	if err != nil {
		return 0, err
	}
	a := uint64(avail)
	if a > h.geom.BufferSize {
		a = h.geom.BufferSize
	}

	if h.dir == Playback {
		filled := h.geom.BufferSize - a
		h.hwPtr = modSub(h.applPtr, filled, h.boundary)
	} else {
		h.hwPtr = modAdd(h.applPtr, a, h.boundary)
	}
	return int64(a), nil
}

// Delay reports the number of frames between the application pointer and
// the point currently being played/captured by hardware (spec.md §3/§4.5),
// computed from the engine's own appl_ptr/hw_ptr bookkeeping rather than
// forwarded verbatim from the back-end.
func (h *Handle) Delay() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.availUpdateLocked(); err != nil {
		return 0, err
	}
	if h.dir == Playback {
		return int64(modSub(h.applPtr, h.hwPtr, h.boundary)), nil
	}
	return int64(modSub(h.hwPtr, h.applPtr, h.boundary)), nil
}

// modAdd and modSub perform appl_ptr/hw_ptr arithmetic modulo the stream's
// boundary (spec.md §4.5): both pointers are 64-bit counters that wrap at
// boundary, never at raw uint64 overflow, and never via plain subtraction
// that could underflow. A zero boundary (not yet set up) falls back to
// plain arithmetic since no wrap is possible before hw_params.
func modAdd(a, n, boundary uint64) uint64 {
	if boundary == 0 {
		return a + n
	}
	return (a + n%boundary) % boundary
}

func modSub(a, n, boundary uint64) uint64 {
	if boundary == 0 {
		return a - n
	}
	return (a + boundary - n%boundary) % boundary
}

// waitLocked blocks (unless Nonblock) until at least minFrames are
// available, or returns -EAGAIN immediately in non-blocking mode. It drops
// h.mu while waiting on the poll descriptor and re-acquires it before
// returning. Caller must hold h.mu on entry and exit.
func (h *Handle) waitLocked(minFrames uint64) (uint64, error) {
	for {
		avail, err := h.availUpdateLocked()
		if err != nil {
			return 0, err
		}
		if uint64(avail) >= minFrames {
			return uint64(avail), nil
		}
		if h.mode&Nonblock != 0 {
			return 0, EAGAIN.Wrapf("wait: only %d of %d frames available", avail, minFrames)
		}
		waiter := h.be.PollDescriptor()
		h.mu.Unlock()
		if waiter != nil {
			waiter.Wait(-1)
		}
		h.mu.Lock()
		if h.state == backend.Xrun {
			return 0, EPIPE.Wrapf("wait: stream entered XRUN")
		}
	}
}

// xferAlign rounds frames down to the nearest multiple of sw.XferAlign
// (spec.md §4.5), never below 0.
func xferAlign(frames uint64, align uint64) uint64 {
	if align <= 1 {
		return frames
	}
	return (frames / align) * align
}

// WriteI writes the interleaved (or per-channel, for non-interleaved
// access) frames in bufs, blocking until avail_min frames of space are
// available, auto-starting the stream once start_threshold is crossed
// (spec.md §4.5). It returns the number of frames actually transferred.
func (h *Handle) WriteI(bufs [][]byte, frames int) (int, error) {
	h.mu.Lock()

	if h.dir != Playback {
		h.mu.Unlock()
		return 0, EINVAL.Wrapf("WriteI: handle is not a playback stream")
	}
	if h.state != backend.Prepared && h.state != backend.Running {
		st := h.state
		h.mu.Unlock()
		if st == backend.Xrun {
			return 0, EPIPE.Wrapf("WriteI: stream is in XRUN, call Prepare")
		}
		return 0, EBADFD.Wrapf("WriteI: illegal in state %v", st)
	}

	want := uint64(frames)
	avail, err := h.waitLocked(min64(h.sw.AvailMin, want))
	if err != nil {
		h.mu.Unlock()
		return 0, err
	}
	n := want
	if avail < n {
		n = avail
	}
	n = xferAlign(n, h.sw.XferAlign)
	if n == 0 {
		h.mu.Unlock()
		return 0, nil
	}

	srcAreas := area.AreasFromBufs(bufs, int(h.geom.SampleBits))
	offset := int(h.applPtr % h.geom.BufferSize)

	written, err := h.transferLocked(srcAreas, offset, int(n), true)
	if err != nil {
		h.mu.Unlock()
		return written, err
	}

	h.applPtr = modAdd(h.applPtr, uint64(written), h.boundary)
	if err := h.silenceAheadLocked(); err != nil {
		h.mu.Unlock()
		return written, err
	}
	started, err := h.startIfThresholdLocked()
	h.mu.Unlock()
	if err != nil {
		return written, err
	}
	if started {
		h.propagateLinkedRunning()
	}
	return written, nil
}

// ReadI reads frames into bufs from the capture ring (spec.md §4.5); the
// capture counterpart of WriteI. Capture streams auto-start on the first
// read (start_threshold is conventionally 1 for capture).
func (h *Handle) ReadI(bufs [][]byte, frames int) (int, error) {
	h.mu.Lock()

	if h.dir != Capture {
		h.mu.Unlock()
		return 0, EINVAL.Wrapf("ReadI: handle is not a capture stream")
	}
	started := false
	if h.state == backend.Prepared {
		if err := h.be.Start(); err != nil {
			h.mu.Unlock()
			return 0, err
		}
		h.state = backend.Running
		started = true
	} else if h.state != backend.Running {
		st := h.state
		h.mu.Unlock()
		if st == backend.Xrun {
			return 0, EPIPE.Wrapf("ReadI: stream is in XRUN, call Prepare")
		}
		return 0, EBADFD.Wrapf("ReadI: illegal in state %v", st)
	}

	want := uint64(frames)
	avail, err := h.waitLocked(min64(h.sw.AvailMin, want))
	if err != nil {
		h.mu.Unlock()
		return 0, err
	}
	n := want
	if avail < n {
		n = avail
	}
	n = xferAlign(n, h.sw.XferAlign)
	if n == 0 {
		h.mu.Unlock()
		return 0, nil
	}

	dstAreas := area.AreasFromBufs(bufs, int(h.geom.SampleBits))
	offset := int(h.applPtr % h.geom.BufferSize)

	read, err := h.transferLocked(dstAreas, offset, int(n), false)
	if err == nil {
		h.applPtr = modAdd(h.applPtr, uint64(read), h.boundary)
	}
	h.mu.Unlock()
	if err != nil {
		return read, err
	}
	if started {
		h.propagateLinkedRunning()
	}
	return read, nil
}

// transferLocked moves n frames between userAreas and the ring at
// ring-relative offset. For mmap back-ends it copies directly into/out of
// the cached Areas() window and calls MmapCommit; for RW back-ends it
// defers to WriteI/ReadI. write selects direction. Caller must hold h.mu.
func (h *Handle) transferLocked(userAreas []area.Area, offset, n int, write bool) (int, error) {
	if !h.geom.Access.IsMmap() {
		if write {
			return h.be.WriteI(userAreas, offset, n)
		}
		return h.be.ReadI(userAreas, offset, n)
	}

	ringAreas := h.runningAreas
	if ringAreas == nil {
		ringAreas = h.be.Areas()
		h.runningAreas = ringAreas
	}

	var err error
	if write {
		err = area.AreasCopy(ringAreas, offset, userAreas, 0, n, h.geom.Format)
	} else {
		err = area.AreasCopy(userAreas, 0, ringAreas, offset, n, h.geom.Format)
	}
	if err != nil {
		return 0, err
	}
	if err := h.be.MmapCommit(offset, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Rewind moves appl_ptr back by up to n frames without disturbing data
// already committed to the back-end (spec.md §4.5); used by applications
// that need to re-render recent frames (e.g. after detecting a glitch).
func (h *Handle) Rewind(n uint64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	got, err := h.be.Rewind(n)
	if err != nil {
		return 0, err
	}
	h.applPtr = modSub(h.applPtr, got, h.boundary)
	return got, nil
}

// Forward is the mirror of Rewind: re-advances appl_ptr after a Rewind
// that was not fully consumed by new writes.
func (h *Handle) Forward(n uint64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	avail, err := h.availUpdateLocked()
	if err != nil {
		return 0, err
	}
	if n > uint64(avail) {
		n = uint64(avail)
	}
	h.applPtr = modAdd(h.applPtr, n, h.boundary)
	return n, nil
}

// silenceAheadLocked implements spec.md §4.5's silencing rule: whenever
// appl_ptr advances, if the distance to hardware underrun (the frames
// still queued ahead of hw_ptr) falls at or below silence_threshold,
// pre-zero up to silence_size frames ahead of appl_ptr, tracking the
// frontier already silenced (h.silencedTo) to avoid repeated writes.
// Playback-only, and only for back-ends the engine can reach directly
// through a mapped ring (Areas() non-nil); pure RW back-ends own their
// buffer and are responsible for their own silencing (spec.md §4.5's open
// choice of engine-vs-back-end, recorded in DESIGN.md).
func (h *Handle) silenceAheadLocked() error {
	if h.dir != Playback || h.sw.SilenceSize == 0 || h.runningAreas == nil {
		return nil
	}
	filled := modSub(h.applPtr, h.hwPtr, h.boundary)
	if filled > h.sw.SilenceThreshold {
		return nil
	}

	target := modAdd(h.applPtr, h.sw.SilenceSize, h.boundary)
	from := h.applPtr
	if ahead := modSub(h.silencedTo, h.applPtr, h.boundary); h.silencedTo != 0 && ahead < h.geom.BufferSize {
		// silencedTo is still within one buffer length ahead of appl_ptr:
		// the frontier from a previous call, not stale data.
		from = h.silencedTo
	}
	n := distanceAhead(from, target, h.boundary)
	if n == 0 || n > h.sw.SilenceSize {
		return nil
	}

	bufferSize := h.geom.BufferSize
	offset := int(from % bufferSize)
	if err := area.AreasSilence(h.runningAreas, offset, int(n), h.geom.Format); err != nil {
		return err
	}
	h.silencedTo = target
	return nil
}

// distanceAhead returns how many frames lie between from and to when to
// is treated as ahead of from on the boundary-wrapped counter line.
func distanceAhead(from, to, boundary uint64) uint64 {
	return modSub(to, from, boundary)
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
