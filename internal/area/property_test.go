package area

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCopySilenceRoundTripProperty checks the universal property from
// spec.md §8: copy(a -> b); copy(b -> c) yields c equal to a sample-wise;
// silence(a); copy(a -> b) leaves b at the format's silence pattern.
func TestCopySilenceRoundTripProperty(t *testing.T) {
	formats := []Format{S8, U8, S16LE, S32LE, Float32LE, MuLaw, ALaw}

	rapid.Check(t, func(t *rapid.T) {
		f := formats[rapid.IntRange(0, len(formats)-1).Draw(t, "format")]
		width := f.PhysicalWidth()
		samples := rapid.IntRange(1, 32).Draw(t, "samples")
		byteWidth := width / 8

		a := make([]byte, samples*byteWidth)
		for i := range a {
			a[i] = rapid.Byte().Draw(t, "byte")
		}
		b := make([]byte, len(a))
		c := make([]byte, len(a))

		areaA := Area{Addr: a, StepBits: width}
		areaB := Area{Addr: b, StepBits: width}
		areaC := Area{Addr: c, StepBits: width}

		require.NoError(t, Copy(areaB, 0, areaA, 0, samples, f))
		require.NoError(t, Copy(areaC, 0, areaB, 0, samples, f))
		assert.Equal(t, a, c)

		require.NoError(t, Silence(areaA, 0, samples, f))
		require.NoError(t, Copy(areaB, 0, areaA, 0, samples, f))
		for i := 0; i < samples; i++ {
			for k := 0; k < byteWidth; k++ {
				expect := byte(0)
				if !f.signedZeroSilence() {
					expect = f.SilenceByte()
				}
				assert.Equal(t, expect, b[i*byteWidth+k])
			}
		}
	})
}
