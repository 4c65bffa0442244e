package pcm

import (
	"math"

	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/constraint"
)

// HWRefine intersects space with the back-end's advertised constraints and
// tightens the derived intervals (buffer_bytes, period_bytes, buffer_time,
// period_time, periods, frame_bits — spec.md §4.2) until a fixed point.
// HWRefine must be idempotent: HWRefine(HWRefine(S)) == HWRefine(S).
func (h *Handle) HWRefine(p *HWParams) error {
	const maxIterations = 8
	for i := 0; i < maxIterations; i++ {
		if err := h.be.Refine(p.space); err != nil {
			return err
		}
		if p.Empty() {
			return EINVAL.Wrapf("hw_refine: configuration space is empty")
		}
		if !deriveStep(p.space) {
			break
		}
		if p.Empty() {
			return EINVAL.Wrapf("hw_refine: derived constraints emptied the space")
		}
	}
	return nil
}

// deriveStep tightens the parameters spec.md §4.2 calls out as derived from
// one another, one pass. It returns whether anything changed, so HWRefine
// can loop to a fixed point.
func deriveStep(s *constraint.Space) bool {
	changed := false

	refine := func(id ParamID, v uint64) {
		if iv := s.Interval(id); iv.Empty() {
			return
		}
		before := s.Interval(id)
		s.RefineInterval(id, constraint.Point(v))
		if s.Interval(id) != before {
			changed = true
		}
	}

	if fval, ok := s.Mask(ParamFormat).Single(); ok {
		width := area.Format(fval).PhysicalWidth()
		if width > 0 {
			refine(ParamSampleBits, uint64(width))
		}
	}

	sampleBits, sbOK := s.Interval(ParamSampleBits).Single()
	channels, chOK := s.Interval(ParamChannels).Single()
	if sbOK && chOK {
		refine(ParamFrameBits, sampleBits*channels)
	}

	frameBits, fbOK := s.Interval(ParamFrameBits).Single()
	if fbOK && frameBits > 0 {
		if bs, ok := s.Interval(ParamBufferSize).Single(); ok {
			refine(ParamBufferBytes, bs*frameBits/8)
		} else if bb, ok := s.Interval(ParamBufferBytes).Single(); ok && frameBits%8 == 0 {
			refine(ParamBufferSize, bb*8/frameBits)
		}
		if ps, ok := s.Interval(ParamPeriodSize).Single(); ok {
			refine(ParamPeriodBytes, ps*frameBits/8)
		} else if pb, ok := s.Interval(ParamPeriodBytes).Single(); ok && frameBits%8 == 0 {
			refine(ParamPeriodSize, pb*8/frameBits)
		}
	}

	if rate, ok := s.Interval(ParamRate).Single(); ok && rate > 0 {
		if bs, ok := s.Interval(ParamBufferSize).Single(); ok {
			refine(ParamBufferTime, bs*1e6/rate)
		} else if bt, ok := s.Interval(ParamBufferTime).Single(); ok {
			refine(ParamBufferSize, uint64(math.Round(float64(bt)*float64(rate)/1e6)))
		}
		if ps, ok := s.Interval(ParamPeriodSize).Single(); ok {
			refine(ParamPeriodTime, ps*1e6/rate)
		} else if pt, ok := s.Interval(ParamPeriodTime).Single(); ok {
			refine(ParamPeriodSize, uint64(math.Round(float64(pt)*float64(rate)/1e6)))
		}
	}

	bs, bsOK := s.Interval(ParamBufferSize).Single()
	ps, psOK := s.Interval(ParamPeriodSize).Single()
	periods, pOK := s.Interval(ParamPeriods).Single()
	switch {
	case bsOK && psOK && ps > 0:
		refine(ParamPeriods, bs/ps)
	case pOK && psOK && periods > 0:
		refine(ParamBufferSize, periods*ps)
	case pOK && bsOK && periods > 0:
		refine(ParamPeriodSize, bs/periods)
	}

	return changed
}

// hwParamsFixingOrder is the exact priority order spec.md §4.2 requires for
// hw_params' point selection, so repeated calls with identical refinements
// always choose the same single point (the "fixing order determinism"
// property of spec.md §8).
var hwParamsFixingOrder = []ParamID{
	ParamAccess, ParamFormat, ParamSubformat,
	ParamChannels, ParamRate, ParamPeriodTime, ParamBufferSize, ParamTickTime,
}

// fixParam picks the single value hw_params commits to for id, per the
// rule attached to each entry in the priority order (min for most, max for
// buffer_size).
func fixParam(p *HWParams, id ParamID) error {
	if maskParams[id] {
		v, err := p.FirstMask(id)
		if err != nil {
			return err
		}
		return p.SetMask(id, v)
	}
	var v uint64
	var err error
	if id == ParamBufferSize {
		_, v, err = p.MinMaxInterval(id)
	} else {
		v, _, err = p.MinMaxInterval(id)
	}
	if err != nil {
		return err
	}
	return p.SetInterval(id, v)
}

// HWParams refines space, fixes it to a single point by walking the
// priority order (access, format, subformat, channels(min), rate(min),
// period_time(min), buffer_size(max), tick_time(min)), commits the point to
// the back-end, latches the derived geometry into the handle, transitions
// OPEN->SETUP, and auto-prepares (spec.md §4.2).
func (h *Handle) HWParams(p *HWParams) error {
	h.mu.Lock()
	if h.state != backend.Open && h.state != backend.Setup {
		h.mu.Unlock()
		return EBADFD.Wrapf("hw_params: handle in state %v", h.state)
	}
	h.mu.Unlock()

	if err := h.HWRefine(p); err != nil {
		return err
	}

	for _, id := range hwParamsFixingOrder {
		if err := fixParam(p, id); err != nil {
			return err
		}
		if err := h.HWRefine(p); err != nil {
			return err
		}
	}

	geom, err := h.be.Commit(p.space)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.geom = geom
	h.boundary = computeBoundary(geom.BufferSize)
	h.setup = true
	h.state = backend.Setup
	h.applPtr, h.hwPtr, h.silencedTo = 0, 0, 0
	h.runningAreas = h.be.Areas()

	return h.prepareLocked()
}

// computeBoundary returns the largest multiple of bufferSize that fits in a
// signed 32-bit frame count, per spec.md §4.5.
func computeBoundary(bufferSize uint64) uint64 {
	if bufferSize == 0 {
		return 0
	}
	const maxSigned32 = uint64(1)<<31 - 1
	return (maxSigned32 / bufferSize) * bufferSize
}

// HWFree unmaps if mapped, asks the back-end to release, and transitions
// SETUP->OPEN. It requires the current state to be <= PREPARED.
func (h *Handle) HWFree() error {
	return h.hwFree()
}

func (h *Handle) hwFree() error {
	h.mu.Lock()
	if h.state != backend.Setup && h.state != backend.Prepared {
		st := h.state
		h.mu.Unlock()
		return EBADFD.Wrapf("hw_free: handle in state %v", st)
	}
	h.mu.Unlock()

	if err := h.be.Munmap(); err != nil {
		return err
	}
	if err := h.be.Free(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.setup = false
	h.state = backend.Open
	h.runningAreas = nil
	h.stoppedAreas = nil
	return nil
}
