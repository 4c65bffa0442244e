// Package resolver maps a device spec string ("tag:path", spec.md §6 open
// naming convention) to a concrete backend.Backend, the way a device node
// path selects a kernel driver. Back-ends register themselves by tag at
// init time; Resolve is the single lookup point pcm.Open uses.
//
// Grounded in the teacher's source-type registry (internal/media/registry.go:
// OpenSource/RegisterSourceType, spec string "tag:path"), generalised from
// Source-only to a direction-aware Backend open.
package resolver

import (
	"sort"
	"strings"

	"github.com/lanikai/gopcm/internal/backend"
	"github.com/pkg/errors"
)

// OpenFunc opens a concrete back-end for path in the given direction.
type OpenFunc func(path string, dir backend.Direction) (backend.Backend, error)

var registry = map[string]OpenFunc{}

// Register associates tag with open, so device specs "tag:path" resolve to
// open(path, dir). Called from each back-end package's init().
func Register(tag string, open OpenFunc) {
	registry[tag] = open
}

// Tags returns the currently registered back-end tags, sorted, for
// diagnostics (spec.md §4.8 dump).
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Resolve parses spec as "tag:path" (path optional) and opens the
// corresponding back-end in direction dir (spec.md §6).
func Resolve(spec string, dir backend.Direction) (backend.Backend, error) {
	parts := strings.SplitN(spec, ":", 2)
	tag := parts[0]
	var path string
	if len(parts) == 2 {
		path = parts[1]
	}

	open, ok := registry[tag]
	if !ok {
		return nil, errors.Errorf("pcm: device type %q not registered (have: %v)", tag, Tags())
	}
	return open(path, dir)
}
