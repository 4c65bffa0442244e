package area

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreasFromBuf(t *testing.T) {
	buf := make([]byte, 16) // 2 channels, S16_LE, 4 frames
	areas := AreasFromBuf(buf, 2, 16)
	require.Len(t, areas, 2)
	assert.Equal(t, 0, areas[0].FirstBit)
	assert.Equal(t, 16, areas[1].FirstBit)
	assert.Equal(t, 32, areas[0].StepBits)
	assert.Equal(t, 32, areas[1].StepBits)
}

func TestAreasFromBufs(t *testing.T) {
	bufs := [][]byte{make([]byte, 8), make([]byte, 8)}
	areas := AreasFromBufs(bufs, 16)
	require.Len(t, areas, 2)
	assert.Equal(t, 16, areas[0].StepBits)
	assert.Equal(t, 0, areas[0].FirstBit)
	assert.NotSame(t, &bufs[0][0], &bufs[1][0])
}

func TestSilenceSigned16(t *testing.T) {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xff
	}
	a := Area{Addr: buf, FirstBit: 0, StepBits: 16}
	require.NoError(t, Silence(a, 0, 4, S16LE))
	assert.Equal(t, make([]byte, 8), buf)
}

func TestSilenceUnsigned8(t *testing.T) {
	buf := make([]byte, 4)
	a := Area{Addr: buf, FirstBit: 0, StepBits: 8}
	require.NoError(t, Silence(a, 0, 4, U8))
	for _, b := range buf {
		assert.Equal(t, byte(0x80), b)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	src := Area{Addr: []byte{1, 2, 3, 4, 5, 6, 7, 8}, FirstBit: 0, StepBits: 16}
	mid := Area{Addr: make([]byte, 8), FirstBit: 0, StepBits: 16}
	dst := Area{Addr: make([]byte, 8), FirstBit: 0, StepBits: 16}

	require.NoError(t, Copy(mid, 0, src, 0, 4, S16LE))
	require.NoError(t, Copy(dst, 0, mid, 0, 4, S16LE))
	assert.Equal(t, src.Addr, dst.Addr)
}

func TestCopyNilSrcSilences(t *testing.T) {
	dst := Area{Addr: []byte{1, 2, 3, 4}, FirstBit: 0, StepBits: 16}
	src := Area{Addr: nil}
	require.NoError(t, Copy(dst, 0, src, 0, 2, S16LE))
	assert.Equal(t, make([]byte, 4), dst.Addr)
}

func TestCopyNilDstIsNoop(t *testing.T) {
	dst := Area{Addr: nil}
	src := Area{Addr: []byte{1, 2, 3, 4}, FirstBit: 0, StepBits: 16}
	require.NoError(t, Copy(dst, 0, src, 0, 2, S16LE))
}

func TestNibbleUnalignedRejected(t *testing.T) {
	dst := Area{Addr: make([]byte, 4), FirstBit: 4, StepBits: 4}
	err := Silence(dst, 0, 2, ImaADPCM)
	assert.ErrorIs(t, err, ErrUnalignedNibble)
}

func TestNibbleRoundTrip(t *testing.T) {
	src := Area{Addr: []byte{0xab, 0xcd}, FirstBit: 0, StepBits: 4}
	dst := Area{Addr: make([]byte, 2), FirstBit: 0, StepBits: 4}
	require.NoError(t, Copy(dst, 0, src, 0, 4, ImaADPCM))
	assert.Equal(t, src.Addr, dst.Addr)
}

// TestAreaCollapse exercises the adjacency optimisation called out in
// spec.md scenario 6: two adjacent 16-bit channels of one interleaved buffer,
// whose step equals 2*width, must produce the same bytes as a single
// interleaved copy of 2*frames samples.
func TestAreaCollapse(t *testing.T) {
	buf := make([]byte, 16) // 2 channels interleaved, 4 frames, S16LE
	interleaved := AreasFromBuf(buf, 2, 16)

	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i + 1)
	}
	srcAreas := AreasFromBuf(src, 2, 16)

	require.NoError(t, AreasCopy(interleaved, 0, srcAreas, 0, 4, S16LE))
	assert.Equal(t, src, buf)
}

func TestAreasSilenceNonInterleaved(t *testing.T) {
	bufs := [][]byte{{1, 2}, {3, 4}}
	areas := AreasFromBufs(bufs, 16)
	require.NoError(t, AreasSilence(areas, 0, 1, S16LE))
	assert.Equal(t, []byte{0, 0}, bufs[0])
	assert.Equal(t, []byte{0, 0}, bufs[1])
}
