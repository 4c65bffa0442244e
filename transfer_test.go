package pcm

import (
	"testing"

	"github.com/lanikai/gopcm/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// newNullHandle opens and fully configures a "null:" handle with a mono
// S16_LE non-interleaved stream of the given buffer size, leaving it in
// PREPARED (spec.md §4.2's auto-prepare).
func newNullHandle(t *testing.T, dir Direction, bufferSize uint64) *Handle {
	t.Helper()
	h, err := Open("null:", dir, 0)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	p := HWParamsAny()
	require.NoError(t, p.SetAccess(RWNoninterleaved))
	require.NoError(t, p.SetFormat(S16LE))
	require.NoError(t, p.SetChannels(1))
	require.NoError(t, p.SetRate(48000))
	require.NoError(t, p.SetBufferSize(bufferSize))
	require.NoError(t, h.HWParams(p))
	return h
}

// newNullMmapHandle is newNullHandle's mmap-access counterpart: silencing
// (spec.md §4.5) works on the engine's mapped ring (runningAreas), and with
// MmapNoninterleaved rather than the RW access the other transfer tests use,
// the frames these tests write go through that same ring.
func newNullMmapHandle(t *testing.T, dir Direction, bufferSize uint64) *Handle {
	t.Helper()
	h, err := Open("null:", dir, 0)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	p := HWParamsAny()
	require.NoError(t, p.SetAccess(MmapNoninterleaved))
	require.NoError(t, p.SetFormat(S16LE))
	require.NoError(t, p.SetChannels(1))
	require.NoError(t, p.SetRate(48000))
	require.NoError(t, p.SetBufferSize(bufferSize))
	require.NoError(t, h.HWParams(p))
	return h
}

// TestAutoStartOnStartThreshold is spec.md §8 scenario 1: open playback,
// hw_params with buffer_size=4096, default sw_params (start_threshold ==
// buffer_size), WriteI(4096) must cross the threshold and transition
// PREPARED->RUNNING.
func TestAutoStartOnStartThreshold(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)

	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	require.NoError(t, h.SetSWParams(sw))
	require.Equal(t, uint64(4096), sw.StartThreshold)
	require.Equal(t, backend.Prepared, h.State())

	buf := make([]byte, 4096*2) // 4096 frames of S16_LE mono
	n, err := h.WriteI([][]byte{buf}, 4096)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)
	assert.Equal(t, backend.Running, h.State(), "stream must auto-start once appl_ptr crosses start_threshold")
}

// TestPartialWriteDoesNotAutoStart is the mirror of the scenario above:
// writing fewer frames than start_threshold must leave the stream PREPARED.
func TestPartialWriteDoesNotAutoStart(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)

	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 2048*2)
	n, err := h.WriteI([][]byte{buf}, 2048)
	require.NoError(t, err)
	assert.Equal(t, 2048, n)
	assert.Equal(t, backend.Prepared, h.State())
}

// TestDelayReflectsQueuedFrames checks Handle.Delay's engine-level formula
// (appl_ptr - hw_ptr) mod boundary rather than a value forwarded verbatim
// from the back-end.
func TestDelayReflectsQueuedFrames(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	sw.StartThreshold = h.boundary // never auto-start, so hw_ptr stays put
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 1000*2)
	_, err := h.WriteI([][]byte{buf}, 1000)
	require.NoError(t, err)

	delay, err := h.Delay()
	require.NoError(t, err)
	assert.EqualValues(t, 1000, delay)
}

// TestXferAlignRoundsDown exercises xfer_align (spec.md §4.5): a write
// wider than an exact multiple of xfer_align is trimmed down to one.
func TestXferAlignRoundsDown(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	sw.XferAlign = 64
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 100*2)
	n, err := h.WriteI([][]byte{buf}, 100)
	require.NoError(t, err)
	assert.Equal(t, 64, n, "100 frames must round down to the nearest multiple of xfer_align(64)")
}

func TestXferAlignHelper(t *testing.T) {
	assert.EqualValues(t, 100, xferAlign(100, 1))
	assert.EqualValues(t, 64, xferAlign(100, 64))
	assert.EqualValues(t, 0, xferAlign(63, 64))
	assert.EqualValues(t, 128, xferAlign(128, 64))
}

// TestRewindForwardRoundTrip checks that Rewind followed by Forward returns
// appl_ptr to where it started.
func TestRewindForwardRoundTrip(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	sw.StartThreshold = h.boundary
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 2000*2)
	_, err := h.WriteI([][]byte{buf}, 2000)
	require.NoError(t, err)
	before := h.applPtr

	got, err := h.Rewind(500)
	require.NoError(t, err)
	require.EqualValues(t, 500, got)
	assert.EqualValues(t, before-500, h.applPtr)

	fwd, err := h.Forward(500)
	require.NoError(t, err)
	require.EqualValues(t, 500, fwd)
	assert.Equal(t, before, h.applPtr)
}

// TestSilenceAheadTracksFrontier exercises spec.md §4.5's silencing rule:
// once the distance to hardware underrun falls at or below
// silence_threshold, the engine pre-zeros up to silence_size frames ahead
// of appl_ptr and remembers the frontier so a second call does not redo the
// same work.
func TestSilenceAheadTracksFrontier(t *testing.T) {
	h := newNullMmapHandle(t, Playback, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	sw.StartThreshold = h.boundary // keep PREPARED so hw_ptr never moves
	sw.SilenceThreshold = 4096 - 256 // always "close to underrun"; sum must not exceed buffer_size
	sw.SilenceSize = 256
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 100*2)
	_, err := h.WriteI([][]byte{buf}, 100)
	require.NoError(t, err)

	h.mu.Lock()
	firstFrontier := h.silencedTo
	h.mu.Unlock()
	assert.EqualValues(t, 100+256, firstFrontier)

	_, err = h.WriteI([][]byte{buf}, 100)
	require.NoError(t, err)

	h.mu.Lock()
	secondFrontier := h.silencedTo
	h.mu.Unlock()
	assert.EqualValues(t, 200+256, secondFrontier, "frontier must advance with appl_ptr, not repeat from scratch")
}

// TestSilenceAheadSkippedAboveThreshold checks that silencing does not run
// when the queued distance to underrun is still comfortably above
// silence_threshold.
func TestSilenceAheadSkippedAboveThreshold(t *testing.T) {
	h := newNullMmapHandle(t, Playback, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	sw.StartThreshold = h.boundary
	sw.SilenceThreshold = 10
	sw.SilenceSize = 256
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 100*2)
	_, err := h.WriteI([][]byte{buf}, 100)
	require.NoError(t, err)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.EqualValues(t, 0, h.silencedTo, "100 queued frames is well above silence_threshold(10); nothing should be silenced yet")
}

// TestReadICapture checks the capture counterpart of the scenario above:
// the first ReadI auto-starts the stream and returns the requested frames
// (the null source always has data).
func TestReadICapture(t *testing.T) {
	h := newNullHandle(t, Capture, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 1000*2)
	n, err := h.ReadI([][]byte{buf}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, backend.Running, h.State())
}

// TestNonblockWriteReturnsEAGAINWhenFull drives the null playback ring to
// full (PREPARED, so nothing drains) and checks a further write returns
// -EAGAIN rather than blocking.
func TestNonblockWriteReturnsEAGAINWhenFull(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)
	require.NoError(t, h.SetNonblock(true))

	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	sw.StartThreshold = h.boundary // stay PREPARED: nothing ever drains
	require.NoError(t, h.SetSWParams(sw))

	full := make([]byte, 4096*2)
	n, err := h.WriteI([][]byte{full}, 4096)
	require.NoError(t, err)
	require.Equal(t, 4096, n)

	more := make([]byte, 1*2)
	_, err = h.WriteI([][]byte{more}, 1)
	require.Error(t, err)
	errno, ok := Err(err)
	require.True(t, ok)
	assert.Equal(t, EAGAIN, errno)
}

// TestWriteIRejectsWrongDirection checks the direction guard independent
// of state.
func TestWriteIRejectsWrongDirection(t *testing.T) {
	h := newNullHandle(t, Capture, 4096)
	_, err := h.WriteI([][]byte{make([]byte, 8)}, 4)
	require.Error(t, err)
	errno, ok := Err(err)
	require.True(t, ok)
	assert.Equal(t, EINVAL, errno)
}

// TestModAddModSubWrapAtBoundary pins down the boundary-wrap arithmetic
// (spec.md §4.5, §8 "boundary wrap") with concrete values.
func TestModAddModSubWrapAtBoundary(t *testing.T) {
	const boundary = 4096 * 3
	assert.EqualValues(t, 0, modAdd(boundary-1, 1, boundary))
	assert.EqualValues(t, 5, modAdd(boundary-3, 8, boundary))
	assert.EqualValues(t, boundary-5, modSub(0, 5, boundary))
	assert.EqualValues(t, 3, modSub(10, 7, boundary))
}

// TestModAddModSubRoundTripProperty is the general property behind the
// concrete cases above: modAdd always stays inside [0, boundary), and
// modSub undoes it exactly — for any boundary, start point, and delta.
func TestModAddModSubRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		boundary := rapid.Uint64Range(1, 1<<20).Draw(t, "boundary")
		a := rapid.Uint64Range(0, boundary-1).Draw(t, "a")
		n := rapid.Uint64Range(0, 1<<24).Draw(t, "n")

		sum := modAdd(a, n, boundary)
		assert.Less(t, sum, boundary)
		assert.Equal(t, a, modSub(sum, n, boundary))
	})
}

// TestApplPtrMonotonicProperty checks the pointer-monotonicity property of
// spec.md §8: across any sequence of writes no larger than the ring, appl_ptr
// (mod boundary) always equals the running sum of frames written mod
// boundary — it never jumps, skips, or underflows.
func TestApplPtrMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const bufferSize = 256
		h, err := Open("null:", Playback, 0)
		require.NoError(t, err)
		defer h.Close()

		p := HWParamsAny()
		require.NoError(t, p.SetAccess(RWNoninterleaved))
		require.NoError(t, p.SetFormat(S16LE))
		require.NoError(t, p.SetChannels(1))
		require.NoError(t, p.SetRate(48000))
		require.NoError(t, p.SetBufferSize(bufferSize))
		require.NoError(t, h.HWParams(p))

		sw := h.DefaultSWParams()
		sw.AvailMin = 1
		require.NoError(t, h.SetSWParams(sw))

		var want uint64
		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			frames := rapid.IntRange(1, bufferSize).Draw(t, "frames")
			buf := make([]byte, frames*2)
			n, err := h.WriteI([][]byte{buf}, frames)
			require.NoError(t, err)
			want += uint64(n)

			h.mu.Lock()
			got := h.applPtr
			boundary := h.boundary
			h.mu.Unlock()
			assert.Equal(t, want%boundary, got)
		}
	})
}

// TestDrainWaitsForEmptyThenStops exercises Drain against the null
// back-end's AvailUpdate-driven polling loop, once the stream has actually
// started running (a still-PREPARED stream takes Drain's no-op shortcut
// straight to Stop instead).
func TestDrainWaitsForEmptyThenStops(t *testing.T) {
	h := newNullHandle(t, Playback, 4096)
	sw := h.DefaultSWParams()
	sw.AvailMin = 1
	require.NoError(t, h.SetSWParams(sw))

	buf := make([]byte, 4096*2)
	_, err := h.WriteI([][]byte{buf}, 4096)
	require.NoError(t, err)
	require.Equal(t, backend.Running, h.State(), "4096 frames meets start_threshold(4096): must have auto-started")

	require.NoError(t, h.Drain())
	assert.Equal(t, backend.Setup, h.State())
}
