package area

// AreasSilence silences samples samples across all of dsts, applying the
// adjacency optimisation described in spec.md §4.1: a run of contiguous
// channels whose addresses are exactly width bits apart, and whose step is
// len(run)*width, collapses into one wide area of len(run)*samples samples
// at the format's physical width.
func AreasSilence(dsts []Area, dstOff int, samples int, f Format) error {
	width := f.PhysicalWidth()
	for i := 0; i < len(dsts); {
		n := runLength(dsts, i, width)
		if n > 1 && dsts[i].StepBits != n*width {
			n = 1
		}
		if err := Silence(collapsed(dsts, i, n, width), dstOff, n*samples, f); err != nil {
			return err
		}
		i += n
	}
	return nil
}

// AreasCopy copies samples samples from srcs to dsts channel-by-channel,
// applying the adjacency optimisation on whichever side (or both) the
// channels happen to be contiguous.
func AreasCopy(dsts []Area, dstOff int, srcs []Area, srcOff int, samples int, f Format) error {
	if len(dsts) != len(srcs) {
		panic("area: AreasCopy requires matching channel counts")
	}
	width := f.PhysicalWidth()
	for i := 0; i < len(dsts); {
		dn := runLength(dsts, i, width)
		sn := runLength(srcs, i, width)
		n := dn
		if sn < n {
			n = sn
		}
		if n > 1 && (dsts[i].StepBits != n*width || srcs[i].StepBits != n*width) {
			n = 1
		}
		err := Copy(
			collapsed(dsts, i, n, width), dstOff,
			collapsed(srcs, i, n, width), srcOff,
			n*samples, f,
		)
		if err != nil {
			return err
		}
		i += n
	}
	return nil
}

// runLength returns how many consecutive channels starting at i are
// adjacent (same underlying buffer, each exactly width bits after the
// previous), capped at len(areas)-i.
func runLength(areas []Area, i int, width int) int {
	n := 1
	for i+n < len(areas) && adjacent(areas[i+n-1], areas[i+n], width) {
		n++
	}
	return n
}

// collapsed returns the single wide Area representing channels [i, i+n) if
// n > 1, or the lone channel's Area otherwise.
func collapsed(areas []Area, i int, n int, width int) Area {
	if n <= 1 {
		return areas[i]
	}
	return Area{Addr: areas[i].Addr, FirstBit: areas[i].FirstBit, StepBits: width}
}

// adjacent reports whether area b immediately follows area a in the same
// underlying buffer, width bits apart — the precondition for treating the
// pair as one wide area per spec.md §4.1.
func adjacent(a, b Area, width int) bool {
	if width == 0 {
		return false
	}
	if a.StepBits != b.StepBits {
		return false
	}
	if len(a.Addr) == 0 || len(b.Addr) == 0 {
		return false
	}
	if &a.Addr[0] != &b.Addr[0] {
		return false
	}
	return b.FirstBit == a.FirstBit+width
}
