package pcm

import "github.com/lanikai/gopcm/internal/backend"

// Status is the immutable status snapshot of spec.md §3, combining the
// engine's own pointer bookkeeping with the back-end's hardware timing.
type Status struct {
	State            backend.State
	TriggerTimestamp int64
	NowTimestamp     int64
	Delay            int64
	Avail            int64
	AvailMax         int64
	ApplPtr          uint64
	HWPtr            uint64
}

// Status returns a point-in-time snapshot. It never blocks.
func (h *Handle) Status() (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bs := h.be.Status()
	return Status{
		State:            h.state,
		TriggerTimestamp: bs.TriggerTimestamp,
		NowTimestamp:     bs.NowTimestamp,
		Delay:            bs.Delay,
		Avail:            bs.Avail,
		AvailMax:         bs.AvailMax,
		ApplPtr:          h.applPtr,
		HWPtr:            h.hwPtr,
	}, nil
}
