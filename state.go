package pcm

import "github.com/lanikai/gopcm/internal/backend"

// legalFrom is the stream state machine's transition table (spec.md §4.4):
// for each operation, the set of states from which it is legal. Any other
// starting state fails with -EBADFD.
var legalFrom = map[string]map[backend.State]bool{
	"prepare": {
		backend.Setup: true, backend.Prepared: true, backend.Running: true,
		backend.Xrun: true, backend.Draining: true, backend.Paused: true,
		backend.Suspended: true,
	},
	"start": {backend.Prepared: true},
	"drop":  {backend.Running: true, backend.Prepared: true, backend.Paused: true, backend.Xrun: true, backend.Draining: true},
	"drain": {backend.Running: true, backend.Prepared: true, backend.Draining: true},
	"pause": {backend.Running: true, backend.Paused: true},
}

// checkStateLocked reports -EBADFD if the handle is not in a state legal
// for op. Caller must hold h.mu.
func (h *Handle) checkStateLocked(op string) error {
	if !legalFrom[op][h.state] {
		return EBADFD.Wrapf("%s: illegal in state %v", op, h.state)
	}
	return nil
}

// prepareLocked drives the back-end to PREPARED and resets the pointer
// bookkeeping. Caller must hold h.mu.
func (h *Handle) prepareLocked() error {
	if err := h.be.Prepare(); err != nil {
		return err
	}
	h.state = backend.Prepared
	h.applPtr, h.hwPtr, h.silencedTo = 0, 0, 0
	return nil
}

// Prepare resets the stream to PREPARED: legal from almost any setup state
// (spec.md §4.4), discarding any pending data without tearing down hw_params.
// Propagates to a linked group the same way Start does.
func (h *Handle) Prepare() error {
	return h.withGroupLocked(func() error {
		if err := h.checkStateLocked("prepare"); err != nil {
			return err
		}
		return h.prepareLocked()
	}, func(m *Handle) {
		m.state = backend.Prepared
		m.applPtr, m.hwPtr, m.silencedTo = 0, 0, 0
	})
}

// Start explicitly transitions PREPARED->RUNNING (spec.md §4.4). Most
// streams instead auto-start via start_threshold in the transfer engine;
// Start is for sw_params configurations where that never fires
// (start_threshold == boundary). If h is linked (spec.md §4.6), the kernel
// trigger group already starts every member's back-end together
// (Link/LinkWith); this only needs to bring the Go-side state of the other
// members into sync.
func (h *Handle) Start() error {
	return h.withGroupLocked(h.startLocked, func(m *Handle) {
		if m.state == backend.Prepared {
			m.state = backend.Running
		}
	})
}

// startLocked is Start's body, called through withGroupLocked with h.mu
// held.
func (h *Handle) startLocked() error {
	if err := h.checkStateLocked("start"); err != nil {
		return err
	}
	if err := h.be.Start(); err != nil {
		return err
	}
	h.state = backend.Running
	return nil
}

// startIfThresholdLocked auto-starts the stream once appl_ptr has advanced
// past sw.StartThreshold frames of available data (spec.md §4.5). Caller
// must hold h.mu. No-op outside PREPARED. Reports whether it actually
// started the stream, so the caller can propagate RUNNING to a linked
// group after releasing h.mu (spec.md §4.6) — the kernel trigger group
// already started every linked back-end together via h.be.Start(), this
// return value only tells the caller whether that happened.
func (h *Handle) startIfThresholdLocked() (bool, error) {
	if h.state != backend.Prepared {
		return false, nil
	}
	var filled uint64
	if h.dir == Playback {
		filled = modSub(h.applPtr, h.hwPtr, h.boundary)
	} else {
		filled = modSub(h.hwPtr, h.applPtr, h.boundary)
	}
	if filled < h.sw.StartThreshold {
		return false, nil
	}
	if err := h.be.Start(); err != nil {
		return false, err
	}
	h.state = backend.Running
	return true, nil
}

// Stop (snd_pcm_drop) halts the stream immediately, discarding any frames
// still queued, and returns to SETUP (spec.md §4.4). Propagates to a linked
// group the same way Start does.
func (h *Handle) Stop() error {
	return h.withGroupLocked(h.stopLocked, func(m *Handle) {
		m.state = backend.Setup
	})
}

// stopLocked is Stop's body, called through withGroupLocked with h.mu held.
func (h *Handle) stopLocked() error {
	if err := h.checkStateLocked("drop"); err != nil {
		return err
	}
	if err := h.be.Stop(); err != nil {
		return err
	}
	h.state = backend.Setup
	return nil
}

// Drain lets queued playback frames play out before stopping; for capture
// streams it is equivalent to Stop (spec.md §4.4). In blocking mode Drain
// polls the back-end's avail until the ring reports empty; in Nonblock mode
// it returns -EAGAIN while frames are still queued, leaving the stream
// DRAINING.
func (h *Handle) Drain() error {
	h.mu.Lock()
	if err := h.checkStateLocked("drain"); err != nil {
		h.mu.Unlock()
		return err
	}
	if h.dir == Capture {
		h.mu.Unlock()
		return h.Stop()
	}
	if h.state == backend.Prepared {
		// Nothing was ever written; draining an empty, never-started
		// stream is a no-op back to SETUP.
		h.mu.Unlock()
		return h.Stop()
	}
	h.state = backend.Draining
	bufferSize := h.geom.BufferSize
	nonblock := h.mode&Nonblock != 0
	h.mu.Unlock()

	if err := h.be.Drain(); err != nil {
		return err
	}

	waiter := h.be.PollDescriptor()
	for {
		avail, err := h.AvailUpdate()
		if err != nil {
			return err
		}
		if uint64(avail) >= bufferSize {
			break
		}
		if nonblock {
			return EAGAIN.Wrapf("drain: %d frames still queued", bufferSize-uint64(avail))
		}
		if waiter != nil {
			waiter.Wait(-1)
		}
	}

	return h.withGroupLocked(h.finishDrainLocked, func(m *Handle) {
		m.state = backend.Setup
	})
}

// finishDrainLocked is Drain's final transition to SETUP, called through
// withGroupLocked with h.mu held.
func (h *Handle) finishDrainLocked() error {
	if err := h.be.Stop(); err != nil {
		return err
	}
	h.state = backend.Setup
	return nil
}

// Pause toggles RUNNING<->PAUSED without discarding buffered data
// (spec.md §4.4). Back-ends that cannot pause report -ENOSYS. Propagates to
// a linked group the same way Start does.
func (h *Handle) Pause(enable bool) error {
	return h.withGroupLocked(func() error {
		return h.pauseLocked(enable)
	}, func(m *Handle) {
		if enable {
			m.state = backend.Paused
		} else {
			m.state = backend.Running
		}
	})
}

// pauseLocked is Pause's body, called through withGroupLocked with h.mu
// held.
func (h *Handle) pauseLocked(enable bool) error {
	if err := h.checkStateLocked("pause"); err != nil {
		return err
	}
	if enable == (h.state == backend.Paused) {
		return nil
	}
	if err := h.be.Pause(enable); err != nil {
		return err
	}
	if enable {
		h.state = backend.Paused
	} else {
		h.state = backend.Running
	}
	return nil
}

// Reset recovers from XRUN or SUSPENDED back to PREPARED without a full
// hw_free/hw_params round trip (spec.md §4.4 xrun recovery).
func (h *Handle) Reset() error {
	return h.Prepare()
}

// markXrunLocked is invoked by the transfer engine when the back-end
// reports an underrun/overrun. Caller must hold h.mu.
func (h *Handle) markXrunLocked() {
	h.state = backend.Xrun
}
