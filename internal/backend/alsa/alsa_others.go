// Stub for operating systems without an ALSA character-device layer.

// +build !linux

package alsa

import (
	"errors"
	"io"

	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/constraint"
)

var errNotSupported = errors.New("alsa: not supported on this platform")

// Backend is an unusable placeholder on non-Linux platforms: methods that
// return an error report errNotSupported, the rest return zero values.
type Backend struct{}

func Open(path string, dir backend.Direction) (*Backend, error) {
	return nil, errNotSupported
}

func (b *Backend) Close() error                               { return errNotSupported }
func (b *Backend) Info() backend.Info                          { return backend.Info{} }
func (b *Backend) SetNonblock(bool) error                      { return errNotSupported }
func (b *Backend) SetAsync(bool) error                         { return errNotSupported }
func (b *Backend) Refine(*constraint.Space) error              { return errNotSupported }
func (b *Backend) Commit(*constraint.Space) (backend.Geometry, error) {
	return backend.Geometry{}, errNotSupported
}
func (b *Backend) Free() error                     { return errNotSupported }
func (b *Backend) SetSWParams(backend.SWParams) error { return errNotSupported }
func (b *Backend) Dump(io.Writer) error            { return errNotSupported }
func (b *Backend) State() backend.State            { return backend.Open }
func (b *Backend) Status() backend.Status          { return backend.Status{} }
func (b *Backend) Delay() (int64, error)           { return 0, errNotSupported }
func (b *Backend) Prepare() error                  { return errNotSupported }
func (b *Backend) Reset() error                    { return errNotSupported }
func (b *Backend) Start() error                    { return errNotSupported }
func (b *Backend) Stop() error                     { return errNotSupported }
func (b *Backend) Drain() error                    { return errNotSupported }
func (b *Backend) Pause(bool) error                { return errNotSupported }
func (b *Backend) Rewind(uint64) (uint64, error)   { return 0, errNotSupported }
func (b *Backend) AvailUpdate() (int64, error)     { return 0, errNotSupported }
func (b *Backend) Areas() []area.Area              { return nil }
func (b *Backend) WriteI([]area.Area, int, int) (int, error) { return 0, errNotSupported }
func (b *Backend) ReadI([]area.Area, int, int) (int, error)  { return 0, errNotSupported }
func (b *Backend) MmapCommit(int, int) error       { return errNotSupported }
func (b *Backend) Munmap() error                   { return errNotSupported }
func (b *Backend) LinkDescriptor() (interface{}, bool) { return nil, false }
func (b *Backend) LinkWith(interface{}) error      { return errNotSupported }
func (b *Backend) Unlink() error                   { return errNotSupported }
func (b *Backend) PollDescriptor() backend.Waiter  { return nil }
