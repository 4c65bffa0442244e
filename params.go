package pcm

import (
	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/constraint"
)

// ParamID names one parameter slot in a configuration space, per spec.md §3.
type ParamID = constraint.ParamID

const (
	ParamAccess ParamID = iota
	ParamFormat
	ParamSubformat

	ParamChannels
	ParamRate
	ParamPeriodTime
	ParamPeriodSize
	ParamPeriodBytes
	ParamPeriods
	ParamBufferTime
	ParamBufferSize
	ParamBufferBytes
	ParamTickTime
	ParamSampleBits
	ParamFrameBits
)

var maskParams = map[ParamID]bool{
	ParamAccess:    true,
	ParamFormat:    true,
	ParamSubformat: true,
}

// HWParams is the mutable configuration-space container of spec.md §3: a
// description of the *set* of legal parameter tuples, refined down to a
// single point by hw_params.
//
// Grounded in the generic refinement algebra of internal/constraint, itself
// grounded in the teacher's internal/ice.Checklist candidate-narrowing
// pattern.
type HWParams struct {
	space *constraint.Space
}

// HWParamsAny returns a configuration space filled with the universal set
// (spec.md §4.2 hw_params_any).
func HWParamsAny() *HWParams {
	s := constraint.NewSpace()
	s.DeclareMask(ParamAccess, constraint.Range(int(backend.MmapInterleaved), int(backend.RWNoninterleaved)))
	s.DeclareMask(ParamFormat, constraint.Range(int(area.S8), int(area.Special)))
	s.DeclareMask(ParamSubformat, constraint.Bit(0))

	for _, id := range []ParamID{
		ParamChannels, ParamRate, ParamPeriodTime, ParamPeriodSize,
		ParamPeriodBytes, ParamPeriods, ParamBufferTime, ParamBufferSize,
		ParamBufferBytes, ParamTickTime, ParamSampleBits, ParamFrameBits,
	} {
		s.DeclareInterval(id, constraint.Any())
	}
	return &HWParams{space: s}
}

// Clone returns a copy; configuration spaces are value objects (spec.md §3).
func (p *HWParams) Clone() *HWParams {
	return &HWParams{space: p.space.Clone()}
}

// Empty reports whether any parameter's admissible set is empty.
func (p *HWParams) Empty() bool {
	return p.space.Empty()
}

// --- mask (ACCESS/FORMAT/SUBFORMAT) uniform setters/getters ---

func (p *HWParams) TestMask(id ParamID, v int) bool {
	return p.space.Mask(id).Test(v)
}

// SetMask narrows id to admit only v. It reports -EINVAL if that leaves the
// parameter empty.
func (p *HWParams) SetMask(id ParamID, v int) error {
	if !p.space.RefineMask(id, constraint.Bit(v)) {
		return EINVAL.Wrapf("set mask param %d to %d", id, v)
	}
	return nil
}

func (p *HWParams) GetMask(id ParamID) (int, error) {
	v, ok := p.space.Mask(id).Single()
	if !ok {
		return 0, EINVAL.Wrapf("mask param %d is not a single point", id)
	}
	return v, nil
}

func (p *HWParams) NearMask(id ParamID, v int) (int, error) {
	r, ok := p.space.Mask(id).Near(v)
	if !ok {
		return 0, EINVAL.Wrapf("mask param %d is empty", id)
	}
	return r, nil
}

func (p *HWParams) FirstMask(id ParamID) (int, error) {
	v, ok := p.space.Mask(id).First()
	if !ok {
		return 0, EINVAL
	}
	return v, nil
}

func (p *HWParams) LastMask(id ParamID) (int, error) {
	v, ok := p.space.Mask(id).Last()
	if !ok {
		return 0, EINVAL
	}
	return v, nil
}

// --- interval uniform setters/getters ---

func (p *HWParams) TestInterval(id ParamID, v uint64) bool {
	iv := p.space.Interval(id)
	near, ok := iv.Near(v)
	return ok && near == v
}

func (p *HWParams) SetInterval(id ParamID, v uint64) error {
	if !p.space.RefineInterval(id, constraint.Point(v)) {
		return EINVAL.Wrapf("set interval param %d to %d", id, v)
	}
	return nil
}

func (p *HWParams) SetIntervalMinMax(id ParamID, min, max uint64) error {
	if !p.space.RefineInterval(id, constraint.Interval{Min: min, Max: max}) {
		return EINVAL.Wrapf("set interval param %d to [%d,%d]", id, min, max)
	}
	return nil
}

func (p *HWParams) SetIntervalMin(id ParamID, min uint64) error {
	if !p.space.RefineInterval(id, constraint.Interval{Min: min, Max: ^uint64(0)}) {
		return EINVAL.Wrapf("set interval param %d min to %d", id, min)
	}
	return nil
}

func (p *HWParams) SetIntervalMax(id ParamID, max uint64) error {
	if !p.space.RefineInterval(id, constraint.Interval{Min: 0, Max: max}) {
		return EINVAL.Wrapf("set interval param %d max to %d", id, max)
	}
	return nil
}

func (p *HWParams) GetInterval(id ParamID) (uint64, error) {
	v, ok := p.space.Interval(id).Single()
	if !ok {
		return 0, EINVAL.Wrapf("interval param %d is not a single point", id)
	}
	return v, nil
}

func (p *HWParams) NearInterval(id ParamID, v uint64) (uint64, error) {
	r, ok := p.space.Interval(id).Near(v)
	if !ok {
		return 0, EINVAL.Wrapf("interval param %d is empty", id)
	}
	if !p.space.RefineInterval(id, constraint.Point(r)) {
		return 0, EINVAL
	}
	return r, nil
}

func (p *HWParams) MinMaxInterval(id ParamID) (min, max uint64, err error) {
	iv := p.space.Interval(id)
	lo, ok := iv.MinValue()
	if !ok {
		return 0, 0, EINVAL
	}
	hi, _ := iv.MaxValue()
	return lo, hi, nil
}

// --- convenience wrappers over the most commonly set parameters ---

func (p *HWParams) SetAccess(a backend.Access) error    { return p.SetMask(ParamAccess, int(a)) }
func (p *HWParams) SetFormat(f area.Format) error        { return p.SetMask(ParamFormat, int(f)) }
func (p *HWParams) SetChannels(n uint) error             { return p.SetInterval(ParamChannels, uint64(n)) }
func (p *HWParams) SetRate(hz uint) error                { return p.SetInterval(ParamRate, uint64(hz)) }
func (p *HWParams) SetRateNear(hz uint) (uint, error) {
	v, err := p.NearInterval(ParamRate, uint64(hz))
	return uint(v), err
}
func (p *HWParams) SetPeriodSize(frames uint64) error { return p.SetInterval(ParamPeriodSize, frames) }
func (p *HWParams) SetBufferSize(frames uint64) error { return p.SetInterval(ParamBufferSize, frames) }
