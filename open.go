package pcm

import (
	"strings"

	_ "github.com/lanikai/gopcm/internal/backend/alsa" // registers the "hw" device tag
	_ "github.com/lanikai/gopcm/internal/backend/null" // registers the "null" device tag
	"github.com/lanikai/gopcm/internal/resolver"
)

// Open resolves spec (a "tag:path" device spec, spec.md §6 — e.g.
// "null:", "hw:0,0") to a back-end via internal/resolver and returns a
// Handle in state OPEN. mode combines Nonblock and Async (spec.md §3). A
// spec whose tag is not registered yields -ENOENT.
func Open(spec string, dir Direction, mode Mode) (*Handle, error) {
	tag := strings.SplitN(spec, ":", 2)[0]
	registered := false
	for _, t := range resolver.Tags() {
		if t == tag {
			registered = true
			break
		}
	}
	if !registered {
		return nil, ENOENT.Wrapf("open %q: device type %q not registered", spec, tag)
	}
	be, err := resolver.Resolve(spec, dir)
	if err != nil {
		return nil, err
	}
	if mode&Nonblock != 0 {
		if err := be.SetNonblock(true); err != nil {
			be.Close()
			return nil, err
		}
	}
	if mode&Async != 0 {
		if err := be.SetAsync(true); err != nil {
			be.Close()
			return nil, err
		}
	}

	h := open(spec, spec, be, dir, mode)
	log.Debug("opened %s direction=%s mode=%v", spec, dir, mode)
	return h, nil
}
