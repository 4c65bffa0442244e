// Package constraint implements the hw_params configuration-space
// refinement engine of spec.md §4.2: a container holding, per parameter,
// either an integer interval (with a directional rounding bias) or a
// bit-mask of admissible discrete values, and the generic intersection
// ("refine") operator shared by both families.
//
// Grounded in the teacher's internal/ice.Checklist state-narrowing pattern
// (a candidate set progressively intersected down to a single usable
// choice) generalised to the mask/interval algebra spec.md §3 requires.
package constraint

import "math/bits"

// Mask is a finite set of admissible discrete values 0..63, e.g. the
// enumerants of ACCESS, FORMAT, or SUBFORMAT.
type Mask uint64

// Bit returns the mask containing exactly value v.
func Bit(v int) Mask {
	return Mask(1) << uint(v)
}

// Range returns the mask containing every value in [lo, hi].
func Range(lo, hi int) Mask {
	var m Mask
	for v := lo; v <= hi; v++ {
		m |= Bit(v)
	}
	return m
}

// Empty reports whether the mask admits no value.
func (m Mask) Empty() bool {
	return m == 0
}

// Single reports whether the mask admits exactly one value, returning it.
func (m Mask) Single() (int, bool) {
	if bits.OnesCount64(uint64(m)) != 1 {
		return 0, false
	}
	return bits.TrailingZeros64(uint64(m)), true
}

// Test reports whether v is admissible.
func (m Mask) Test(v int) bool {
	return m&Bit(v) != 0
}

// Refine intersects m with other, the mask operation's equivalent of
// interval intersection.
func (m Mask) Refine(other Mask) Mask {
	return m & other
}

// First returns the smallest admissible value.
func (m Mask) First() (int, bool) {
	if m == 0 {
		return 0, false
	}
	return bits.TrailingZeros64(uint64(m)), true
}

// Last returns the largest admissible value.
func (m Mask) Last() (int, bool) {
	if m == 0 {
		return 0, false
	}
	return 63 - bits.LeadingZeros64(uint64(m)), true
}

// Near returns the admissible value closest to v, breaking ties toward the
// smaller value (masks carry no directional bias of their own).
func (m Mask) Near(v int) (int, bool) {
	if m == 0 {
		return 0, false
	}
	best, ok := 0, false
	bestDist := -1
	for i := 0; i < 64; i++ {
		if !m.Test(i) {
			continue
		}
		d := v - i
		if d < 0 {
			d = -d
		}
		if !ok || d < bestDist {
			best, bestDist, ok = i, d, true
		}
	}
	return best, ok
}

// SetValue narrows m to admit only v, returning the result and whether it
// is non-empty (i.e. v was already admissible).
func (m Mask) SetValue(v int) (Mask, bool) {
	r := m.Refine(Bit(v))
	return r, !r.Empty()
}
