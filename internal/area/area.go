package area

// Area describes where a single channel's samples live in memory: sample n
// of this channel resides at byte offset (FirstBit + n*StepBits)/8 from
// Addr, per spec.md §3. Interleaved frames collapse to contiguous channels
// with StepBits == frame bits; non-interleaved channels get a distinct Addr
// each and StepBits == sample bits.
type Area struct {
	Addr     []byte // nil means "null" area: silences on read, no-op on write
	FirstBit int
	StepBits int
}

// AreasFromBuf populates one Area per channel describing an interleaved
// buffer: areas[c] = {buf, c*sampleBits, frameBits}.
func AreasFromBuf(buf []byte, channels int, sampleBits int) []Area {
	frameBits := channels * sampleBits
	areas := make([]Area, channels)
	for c := 0; c < channels; c++ {
		areas[c] = Area{
			Addr:     buf,
			FirstBit: c * sampleBits,
			StepBits: frameBits,
		}
	}
	return areas
}

// AreasFromBufs populates one Area per channel describing a
// non-interleaved layout: areas[c] = {bufs[c], 0, sampleBits}.
func AreasFromBufs(bufs [][]byte, sampleBits int) []Area {
	areas := make([]Area, len(bufs))
	for c, b := range bufs {
		areas[c] = Area{Addr: b, FirstBit: 0, StepBits: sampleBits}
	}
	return areas
}

// bitOffset returns the absolute bit offset of sample n in this area,
// counted from the start of Addr.
func (a Area) bitOffset(n int) int {
	return a.FirstBit + n*a.StepBits
}
