package constraint

// Dir is the directional rounding bias an interval parameter carries. It is
// stored with the interval but nothing reads it: Near never meets a tie on
// these integer intervals, and the fixing order in hw_params picks min or
// max per parameter.
type Dir int

const (
	DirNone Dir = iota
	DirNearest
	DirMin
	DirMax
)

// Interval is a closed range [Min, Max] with inclusivity flags, an
// integer-only restriction, and a directional bias, per spec.md §3.
type Interval struct {
	Min, Max       uint64
	OpenMin        bool
	OpenMax        bool
	Integer        bool
	Dir            Dir
	empty          bool
}

// Any returns the universal interval: [0, +inf).
func Any() Interval {
	return Interval{Min: 0, Max: ^uint64(0)}
}

// Point returns the single-point interval {v}.
func Point(v uint64) Interval {
	return Interval{Min: v, Max: v}
}

// Empty reports whether the interval admits no value.
func (iv Interval) Empty() bool {
	if iv.empty {
		return true
	}
	if iv.Min > iv.Max {
		return true
	}
	if iv.Min == iv.Max && (iv.OpenMin || iv.OpenMax) {
		return true
	}
	return false
}

// Single reports whether the interval admits exactly one value, returning
// it. This is what hw_params commits per parameter.
func (iv Interval) Single() (uint64, bool) {
	if iv.Empty() {
		return 0, false
	}
	if iv.Min == iv.Max {
		return iv.Min, true
	}
	return 0, false
}

// loBound/hiBound return the effective inclusive bounds, accounting for
// open endpoints on integer intervals (the only kind this engine models:
// spec.md's interval parameters are all frame/time counts).
func (iv Interval) loBound() uint64 {
	if iv.OpenMin {
		return iv.Min + 1
	}
	return iv.Min
}

func (iv Interval) hiBound() uint64 {
	if iv.OpenMax {
		if iv.Max == 0 {
			return 0
		}
		return iv.Max - 1
	}
	return iv.Max
}

// Refine intersects iv with other.
func (iv Interval) Refine(other Interval) Interval {
	r := iv
	if other.Min > r.Min || (other.Min == r.Min && other.OpenMin) {
		r.Min, r.OpenMin = other.Min, other.OpenMin
	}
	if other.Max < r.Max || (other.Max == r.Max && other.OpenMax) {
		r.Max, r.OpenMax = other.Max, other.OpenMax
	}
	r.Integer = r.Integer || other.Integer
	if r.Integer {
		r.Min, r.OpenMin = r.loBound(), false
		r.Max, r.OpenMax = r.hiBound(), false
	}
	if r.Empty() {
		r.empty = true
	}
	return r
}

// SetMin narrows the interval to [v, Max].
func (iv Interval) SetMin(v uint64, open bool) Interval {
	return iv.Refine(Interval{Min: v, Max: ^uint64(0), OpenMin: open})
}

// SetMax narrows the interval to [Min, v].
func (iv Interval) SetMax(v uint64, open bool) Interval {
	return iv.Refine(Interval{Min: 0, Max: v, OpenMax: open})
}

// SetValue narrows the interval to the single point v.
func (iv Interval) SetValue(v uint64) Interval {
	return iv.Refine(Point(v))
}

// Near returns the admissible value in iv closest to v: v itself when it
// lies between the effective bounds (every integer there is admissible),
// otherwise the nearer bound. No two admissible values are ever equidistant
// from v, so iv's directional bias does not affect the result.
func (iv Interval) Near(v uint64) (uint64, bool) {
	if iv.Empty() {
		return 0, false
	}
	lo, hi := iv.loBound(), iv.hiBound()
	if v <= lo {
		return lo, true
	}
	if v >= hi {
		return hi, true
	}
	return v, true
}

// Min/Max value accessors honoring openness, used when choosing a single
// point (e.g. "channels (min)", "buffer_size (max)" in the hw_params
// fixing order).
func (iv Interval) MinValue() (uint64, bool) {
	if iv.Empty() {
		return 0, false
	}
	return iv.loBound(), true
}

func (iv Interval) MaxValue() (uint64, bool) {
	if iv.Empty() {
		return 0, false
	}
	return iv.hiBound(), true
}
