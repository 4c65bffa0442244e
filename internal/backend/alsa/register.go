package alsa

import (
	"strings"

	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/resolver"
)

func init() {
	resolver.Register("hw", func(path string, dir backend.Direction) (backend.Backend, error) {
		return Open(devicePath(path, dir), dir)
	})
}

// devicePath maps a "hw:card,device" spec onto its ALSA PCM character
// device path (/dev/snd/pcmC<card>D<device>p|c); a bare path already
// starting with "/" passes through unchanged.
func devicePath(path string, dir backend.Direction) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	card, device := "0", "0"
	if parts := strings.SplitN(path, ",", 2); len(parts) == 2 {
		card, device = parts[0], parts[1]
	} else if len(parts) == 1 && parts[0] != "" {
		card = parts[0]
	}
	suffix := "p"
	if dir == backend.Capture {
		suffix = "c"
	}
	return "/dev/snd/pcmC" + card + "D" + device + suffix
}
