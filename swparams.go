package pcm

import "github.com/lanikai/gopcm/internal/backend"

// TstampMode selects whether timestamps are generated at all, per spec.md §6.
type TstampMode int

const (
	TstampNone TstampMode = iota
	TstampMmap
)

// StartMode is the deprecated abstract alias for start_threshold
// (spec.md §6): EXPLICIT maps to start_threshold == boundary (i.e. never
// auto-starts), DATA maps to start_threshold == 1.
//
// Design note 9.2 ("Deprecated start/xrun modes"): the source recovers this
// abstract mode by comparing the threshold against a hard-coded constant,
// documented there as "Ugly". This port stores the abstract mode alongside
// the threshold instead of inferring it.
type StartMode int

const (
	StartUnspecified StartMode = iota
	StartExplicit
	StartData
)

// XrunMode is the deprecated abstract alias for stop_threshold: NONE maps
// to stop_threshold == boundary (never auto-stops), STOP maps to
// stop_threshold == buffer_size.
type XrunMode int

const (
	XrunUnspecified XrunMode = iota
	XrunNone
	XrunStop
)

// SWParams is the software-parameters container of spec.md §3/§4.3:
// thresholds and modes that govern the transfer engine's run-time
// behaviour.
type SWParams struct {
	TstampMode       TstampMode
	PeriodStep       uint
	SleepMin         uint
	AvailMin         uint64
	XferAlign        uint64
	StartThreshold   uint64
	StopThreshold    uint64
	SilenceThreshold uint64
	SilenceSize      uint64

	// StartMode/XrunMode are recorded only for the deprecated getters;
	// they have no effect on the engine besides setting the corresponding
	// threshold at assignment time (see ApplyStartMode/ApplyXrunMode).
	StartMode StartMode
	XrunMode  XrunMode
}

// DefaultSWParams returns the conservative defaults sw_params starts from:
// one-period avail_min, start once the ring is full (start_threshold ==
// buffer_size), stop never (boundary), and silencing disabled. Valid only once the handle is set up (boundary is
// derived from buffer_size).
func (h *Handle) DefaultSWParams() SWParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	return SWParams{
		TstampMode:     TstampNone,
		AvailMin:       h.geom.PeriodSize,
		XferAlign:      1,
		StartThreshold: h.geom.BufferSize,
		StopThreshold:  h.boundary,
	}
}

// ApplyStartMode sets StartThreshold from the deprecated abstract mode.
func (p *SWParams) ApplyStartMode(mode StartMode, boundary uint64) {
	p.StartMode = mode
	switch mode {
	case StartExplicit:
		p.StartThreshold = boundary
	case StartData:
		p.StartThreshold = 1
	}
}

// ApplyXrunMode sets StopThreshold from the deprecated abstract mode.
func (p *SWParams) ApplyXrunMode(mode XrunMode, bufferSize, boundary uint64) {
	p.XrunMode = mode
	switch mode {
	case XrunNone:
		p.StopThreshold = boundary
	case XrunStop:
		p.StopThreshold = bufferSize
	}
}

// SetSWParams validates and atomically adopts sw, notifying the back-end so
// it can schedule wake-ups (spec.md §4.3).
func (h *Handle) SetSWParams(sw SWParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sw.AvailMin < 1 {
		return EINVAL.Wrapf("avail_min must be >= 1, got %d", sw.AvailMin)
	}
	minAlign := h.minAlignLocked()
	if sw.XferAlign%minAlign != 0 {
		return EINVAL.Wrapf("xfer_align %d is not a multiple of min_align %d", sw.XferAlign, minAlign)
	}
	if sw.SilenceThreshold+sw.SilenceSize > h.geom.BufferSize {
		return EINVAL.Wrapf("silence_threshold+silence_size %d exceeds buffer_size %d",
			sw.SilenceThreshold+sw.SilenceSize, h.geom.BufferSize)
	}
	if sw.StartThreshold > h.boundary || sw.StopThreshold > h.boundary {
		return EINVAL.Wrapf("start/stop threshold exceeds boundary %d", h.boundary)
	}

	if err := h.be.SetSWParams(backend.SWParams{
		AvailMin:         sw.AvailMin,
		StartThreshold:   sw.StartThreshold,
		StopThreshold:    sw.StopThreshold,
		SilenceThreshold: sw.SilenceThreshold,
		SilenceSize:      sw.SilenceSize,
		PeriodStep:       sw.PeriodStep,
		SleepMinUs:       sw.SleepMin,
		XferAlign:        sw.XferAlign,
	}); err != nil {
		return err
	}

	h.sw = sw
	return nil
}

// SWParamsCurrent reflects the currently latched software parameters
// (spec.md §4.3).
func (h *Handle) SWParamsCurrent() SWParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sw
}

// minAlignLocked is the back-end's minimum alignment granularity; absent a
// richer negotiation, one frame is always a safe minimum.
func (h *Handle) minAlignLocked() uint64 {
	return 1
}
