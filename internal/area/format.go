// Package area implements the channel-area descriptor model: a uniform
// description of where a channel's samples live in memory, plus
// bit-width-specialised silence and copy primitives over it.
//
// Grounded in the teacher's internal/media audio sink/source split
// (internal/media/alsa_sink_linux.go, internal/media/audio.go), generalised
// from a single interleaved S16_LE stream to the full format/layout matrix.
package area

import "fmt"

// Format identifies a PCM sample encoding. Names and physical widths mirror
// the bit-exact enumeration in spec.md §6.
type Format int

const (
	FormatUnknown Format = iota
	S8
	U8
	S16LE
	S16BE
	S24LE
	S24BE
	S32LE
	S32BE
	Float32LE
	Float32BE
	Float64LE
	Float64BE
	IEC958SubframeLE
	IEC958SubframeBE
	MuLaw
	ALaw
	ImaADPCM
	MPEG
	GSM
	Special
)

var formatNames = map[Format]string{
	FormatUnknown:    "UNKNOWN",
	S8:               "S8",
	U8:               "U8",
	S16LE:            "S16_LE",
	S16BE:            "S16_BE",
	S24LE:            "S24_LE",
	S24BE:            "S24_BE",
	S32LE:            "S32_LE",
	S32BE:            "S32_BE",
	Float32LE:        "FLOAT_LE",
	Float32BE:        "FLOAT_BE",
	Float64LE:        "FLOAT64_LE",
	Float64BE:        "FLOAT64_BE",
	IEC958SubframeLE: "IEC958_SUBFRAME_LE",
	IEC958SubframeBE: "IEC958_SUBFRAME_BE",
	MuLaw:            "MU_LAW",
	ALaw:             "A_LAW",
	ImaADPCM:         "IMA_ADPCM",
	MPEG:             "MPEG",
	GSM:              "GSM",
	Special:          "SPECIAL",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// PhysicalWidth returns the in-memory bit width of one sample of this
// format, i.e. what area_silence/area_copy dispatch on. Opaque/compressed
// formats (MPEG, GSM, IMA-ADPCM's packed nibbles aside) report 0, meaning
// the area primitives below cannot operate on them directly.
func (f Format) PhysicalWidth() int {
	switch f {
	case S8, U8, MuLaw, ALaw:
		return 8
	case S16LE, S16BE:
		return 16
	case S24LE, S24BE, S32LE, S32BE, Float32LE, Float32BE,
		IEC958SubframeLE, IEC958SubframeBE:
		return 32
	case Float64LE, Float64BE:
		return 64
	case ImaADPCM:
		return 4
	default:
		return 0
	}
}

// signedZeroSilence reports whether the format's silence pattern is the zero sample
// (true for signed integer and float formats) as opposed to a non-zero
// midpoint (unsigned 8-bit, mu-law, A-law).
func (f Format) signedZeroSilence() bool {
	switch f {
	case U8, MuLaw, ALaw:
		return false
	default:
		return true
	}
}

// SilenceByte returns the byte pattern repeated across a silent sample of
// this format's physical width 8 (the only width where the pattern is a
// single repeated byte value other than zero).
func (f Format) SilenceByte() byte {
	switch f {
	case U8:
		return 0x80
	case MuLaw:
		return 0x7f
	case ALaw:
		return 0x55
	default:
		return 0x00
	}
}
