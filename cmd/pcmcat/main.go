// Command pcmcat opens a PCM device, negotiates hw_params and default
// sw_params, reports the result (the full hw_params with --dump-hw-params),
// and closes the device. It transfers no frames: nothing is played or
// captured. It is the package's equivalent of aplay/arecord -v.
//
// Grounded in the teacher's cmd/alohartcd (flag layout, colorized help
// banner) — generalised from a video-conferencing daemon's CLI to a PCM
// device inspector.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/lanikai/gopcm"
	"github.com/lanikai/gopcm/internal/backend"
)

var (
	flagDevice     string
	flagCapture    bool
	flagRate       uint
	flagChannels   uint
	flagBufferSize uint64
	flagPeriodSize uint64
	flagDump       bool
	flagHelp       bool
)

func init() {
	flag.StringVarP(&flagDevice, "device", "D", "null:", "PCM device spec (tag:path)")
	flag.BoolVarP(&flagCapture, "capture", "c", false, "Open for capture instead of playback")
	flag.UintVarP(&flagRate, "rate", "r", 48000, "Sample rate, in Hz")
	flag.UintVarP(&flagChannels, "channels", "", 2, "Channel count")
	flag.Uint64VarP(&flagBufferSize, "buffer-size", "", 16384, "Buffer size, in frames")
	flag.Uint64VarP(&flagPeriodSize, "period-size", "", 4096, "Period size, in frames")
	flag.BoolVarP(&flagDump, "dump-hw-params", "", false, "Print negotiated hw_params and exit")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

func main() {
	flag.Parse()
	if flagHelp {
		printHelp()
		os.Exit(0)
	}

	dir := pcm.Playback
	if flagCapture {
		dir = pcm.Capture
	}

	h, err := pcm.Open(flagDevice, dir, pcm.ModeBlock)
	if err != nil {
		fatal(err)
	}
	defer h.Close()

	params := pcm.HWParamsAny()
	if dir == pcm.Playback {
		params.SetAccess(pcm.MmapInterleaved)
	} else {
		params.SetAccess(pcm.RWInterleaved)
	}
	if err := params.SetFormat(pcm.S16LE); err != nil {
		fatal(err)
	}
	if err := params.SetChannels(flagChannels); err != nil {
		fatal(err)
	}
	if err := params.SetRate(flagRate); err != nil {
		fatal(err)
	}
	if err := params.SetPeriodSize(flagPeriodSize); err != nil {
		fatal(err)
	}
	if err := params.SetBufferSize(flagBufferSize); err != nil {
		fatal(err)
	}
	if err := h.HWParams(params); err != nil {
		fatal(err)
	}

	if err := h.SetSWParams(h.DefaultSWParams()); err != nil {
		fatal(err)
	}

	if flagDump {
		dumpHWParams(h.DumpHWParams())
		return
	}

	fmt.Fprintf(os.Stderr, "pcmcat: %s opened on %s\n", dir, flagDevice)
}

// dumpHWParams renders negotiated geometry in the style of
// `aplay --dump-hw-params`: one colorized "FIELD: value" line per
// parameter (SPEC_FULL.md §4.8).
func dumpHWParams(g backend.Geometry) {
	label := color.New(color.FgYellow)
	value := color.New(color.FgGreen)

	row := func(name string, v interface{}) {
		label.Printf("%-12s", name)
		value.Printf("%v\n", v)
	}
	row("ACCESS:", g.Access)
	row("FORMAT:", g.Format)
	row("CHANNELS:", g.Channels)
	row("RATE:", g.Rate)
	row("SAMPLE_BITS:", g.SampleBits)
	row("FRAME_BITS:", g.FrameBits)
	row("PERIOD_SIZE:", g.PeriodSize)
	row("BUFFER_SIZE:", g.BufferSize)
}

func fatal(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "pcmcat: error: %v\n", err)
	os.Exit(1)
}

func printHelp() {
	b := color.New(color.FgCyan)
	y := color.New(color.FgYellow)

	b.Printf("pcmcat")
	y.Println(" - inspect and exercise PCM devices")

	fmt.Println(`
Usage: pcmcat [OPTION]...

  -D, --device=SPEC        PCM device spec, "tag:path" (default: null:)
  -c, --capture             Open for capture instead of playback
  -r, --rate=HZ             Sample rate (default: 48000)
      --channels=N          Channel count (default: 2)
      --buffer-size=FRAMES  Ring buffer size (default: 16384)
      --period-size=FRAMES  Period size (default: 4096)
      --dump-hw-params      Print negotiated hw_params and exit
  -h, --help                Print this message and exit`)
}
