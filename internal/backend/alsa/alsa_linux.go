// +build linux

package alsa

import (
	"fmt"
	"io"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/lanikai/gopcm/internal/area"
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/constraint"
)

// Backend is a real ALSA PCM device, driven by ioctl+mmap rather than
// libasound (spec.md §4.6, §9 design note on back-ends as a trait rather
// than a class hierarchy).
type Backend struct {
	info backend.Info
	dev  *device

	mu       sync.Mutex
	nonblock bool
	geom     backend.Geometry
	state    backend.State
	areas    []area.Area

	pollFd int
}

// Open opens the ALSA character device at path (e.g. "/dev/snd/pcmC0D0p").
func Open(path string, dir backend.Direction) (*Backend, error) {
	dev, err := openDevice(path)
	if err != nil {
		return nil, err
	}
	return &Backend{
		info:   backend.Info{Name: path, Direction: dir},
		dev:    dev,
		state:  backend.Open,
		pollFd: dev.fd,
	}, nil
}

func (b *Backend) Close() error {
	return b.dev.close()
}

func (b *Backend) Info() backend.Info { return b.info }

func (b *Backend) SetNonblock(nonblock bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	flags, err := unix.FcntlInt(uintptr(b.dev.fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	if nonblock {
		flags |= unix.O_NONBLOCK
	} else {
		flags &^= unix.O_NONBLOCK
	}
	if _, err := unix.FcntlInt(uintptr(b.dev.fd), unix.F_SETFL, flags); err != nil {
		return err
	}
	b.nonblock = nonblock
	return nil
}

func (b *Backend) SetAsync(enable bool) error {
	return nil
}

// spaceToHW packs the subset of a refined constraint.Space this driver can
// forward to the kernel's HW_REFINE/HW_PARAMS ioctls.
func spaceToHW(space *constraint.Space) hwParams {
	const (
		paramAccess = iota
		paramFormat
		paramSubformat
		paramChannels
		paramRate
		_
		paramPeriodSize
		_
		paramPeriods
		_
		paramBufferSize
	)
	access := space.Mask(paramAccess)
	format := space.Mask(paramFormat)
	subformat := space.Mask(paramSubformat)
	channels := space.Interval(paramChannels)
	rate := space.Interval(paramRate)
	periodSize := space.Interval(paramPeriodSize)
	bufferSize := space.Interval(paramBufferSize)
	periods := space.Interval(paramPeriods)

	chMin, _ := channels.MinValue()
	chMax, _ := channels.MaxValue()
	rMin, _ := rate.MinValue()
	rMax, _ := rate.MaxValue()
	psMin, _ := periodSize.MinValue()
	psMax, _ := periodSize.MaxValue()
	bsMin, _ := bufferSize.MinValue()
	bsMax, _ := bufferSize.MaxValue()
	pMin, _ := periods.MinValue()
	pMax, _ := periods.MaxValue()

	return hwParams{
		accessMask:    uint32(access),
		formatMask:    uint32(format),
		subformatMask: uint32(subformat),
		channelsMin:   uint32(chMin),
		channelsMax:   uint32(chMax),
		rateMin:       uint32(rMin),
		rateMax:       uint32(rMax),
		periodSizeMin: psMin,
		periodSizeMax: psMax,
		bufferSizeMin: bsMin,
		bufferSizeMax: bsMax,
		periodsMin:    uint32(pMin),
		periodsMax:    uint32(pMax),
	}
}

// Refine round-trips space through HW_REFINE: the kernel narrows each
// field to what the hardware driver actually supports, and the results are
// folded back into space as tightened intervals/masks.
func (b *Backend) Refine(space *constraint.Space) error {
	hw := spaceToHW(space)
	if err := b.dev.ioctl(hwRefineIoc, unsafe.Pointer(&hw)); err != nil {
		return mapErrno(err)
	}

	const (
		paramAccess = iota
		paramFormat
		paramSubformat
		paramChannels
		paramRate
		_
		paramPeriodSize
		_
		paramPeriods
		_
		paramBufferSize
	)
	space.RefineMask(paramAccess, constraint.Mask(hw.accessMask))
	space.RefineMask(paramFormat, constraint.Mask(hw.formatMask))
	space.RefineMask(paramSubformat, constraint.Mask(hw.subformatMask))
	space.RefineInterval(paramChannels, constraint.Interval{Min: uint64(hw.channelsMin), Max: uint64(hw.channelsMax)})
	space.RefineInterval(paramRate, constraint.Interval{Min: uint64(hw.rateMin), Max: uint64(hw.rateMax)})
	space.RefineInterval(paramPeriodSize, constraint.Interval{Min: hw.periodSizeMin, Max: hw.periodSizeMax})
	space.RefineInterval(paramBufferSize, constraint.Interval{Min: hw.bufferSizeMin, Max: hw.bufferSizeMax})
	space.RefineInterval(paramPeriods, constraint.Interval{Min: uint64(hw.periodsMin), Max: uint64(hw.periodsMax)})
	return nil
}

func (b *Backend) Commit(space *constraint.Space) (backend.Geometry, error) {
	hw := spaceToHW(space)
	if err := b.dev.ioctl(hwParamsIoc, unsafe.Pointer(&hw)); err != nil {
		return backend.Geometry{}, mapErrno(err)
	}

	const paramFormatID = 1
	const paramSampleBitsID = 13
	format, _ := space.Mask(paramFormatID).Single()
	sampleBits, _ := space.Interval(paramSampleBitsID).Single()
	channels := uint64(hw.channelsMin)
	frameBits := sampleBits * channels

	geom := backend.Geometry{
		Format:     area.Format(format),
		Channels:   int(channels),
		Rate:       uint(hw.rateMin),
		SampleBits: uint(sampleBits),
		FrameBits:  uint(frameBits),
		BufferSize: hw.bufferSizeMin,
		PeriodSize: hw.periodSizeMin,
	}

	if err := b.dev.mmapRing(int(geom.BufferSize * frameBits / 8)); err != nil {
		return backend.Geometry{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.geom = geom
	b.areas = area.AreasFromBuf(b.dev.mmap, geom.Channels, int(geom.SampleBits))
	b.state = backend.Setup
	return geom, nil
}

func (b *Backend) Free() error {
	return b.dev.ioctl(hwFreeIoc, nil)
}

func (b *Backend) SetSWParams(sw backend.SWParams) error {
	kernel := swParams{
		availMin:         sw.AvailMin,
		xferAlign:        sw.XferAlign,
		startThreshold:   sw.StartThreshold,
		stopThreshold:    sw.StopThreshold,
		silenceThreshold: sw.SilenceThreshold,
		silenceSize:      sw.SilenceSize,
		periodStep:       uint32(sw.PeriodStep),
		sleepMin:         uint32(sw.SleepMinUs),
	}
	return b.dev.ioctl(swParamsIoc, unsafe.Pointer(&kernel))
}

func (b *Backend) Dump(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprintf(w, "%s: %s, %d ch @ %dHz, buffer=%d period=%d\n",
		b.info.Name, b.geom.Format, b.geom.Channels, b.geom.Rate, b.geom.BufferSize, b.geom.PeriodSize)
	return err
}

func (b *Backend) State() backend.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) Status() backend.Status {
	var st status
	b.dev.ioctl(statusIoc, unsafe.Pointer(&st))
	return backend.Status{
		State:            backend.State(st.state),
		TriggerTimestamp: st.triggerTimestamp,
		NowTimestamp:     st.nowTimestamp,
		Avail:            st.avail,
		Delay:            st.delay,
	}
}

func (b *Backend) Delay() (int64, error) {
	var delay int64
	if err := b.dev.ioctl(delayIoc, unsafe.Pointer(&delay)); err != nil {
		return 0, mapErrno(err)
	}
	return delay, nil
}

func (b *Backend) transition(ioc uintptr, newState backend.State) error {
	if err := b.dev.ioctl(ioc, nil); err != nil {
		return mapErrno(err)
	}
	b.mu.Lock()
	b.state = newState
	b.mu.Unlock()
	return nil
}

func (b *Backend) Prepare() error { return b.transition(prepareIoc, backend.Prepared) }
func (b *Backend) Reset() error   { return b.transition(resetIoc, backend.Prepared) }
func (b *Backend) Start() error   { return b.transition(startIoc, backend.Running) }
func (b *Backend) Stop() error    { return b.transition(dropIoc, backend.Prepared) }
func (b *Backend) Drain() error   { return b.transition(drainIoc, backend.Draining) }

func (b *Backend) Pause(enable bool) error {
	var v int32
	if enable {
		v = 1
	}
	if err := b.dev.ioctl(pauseIoc, unsafe.Pointer(&v)); err != nil {
		return mapErrno(err)
	}
	b.mu.Lock()
	if enable {
		b.state = backend.Paused
	} else {
		b.state = backend.Running
	}
	b.mu.Unlock()
	return nil
}

func (b *Backend) Rewind(n uint64) (uint64, error) {
	if err := b.dev.ioctl(rewindIoc, unsafe.Pointer(&n)); err != nil {
		return 0, mapErrno(err)
	}
	return n, nil
}

func (b *Backend) AvailUpdate() (int64, error) {
	var avail int64
	if err := b.dev.ioctl(availIoc, unsafe.Pointer(&avail)); err != nil {
		return 0, mapErrno(err)
	}
	return avail, nil
}

func (b *Backend) Areas() []area.Area {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.areas
}

// WriteI/ReadI are used only for RW-access geometries; mmap geometries are
// driven by the engine copying directly into Areas() followed by
// MmapCommit.
func (b *Backend) WriteI(areas []area.Area, offset int, frames int) (int, error) {
	buf := make([]byte, frames*int(b.geom.FrameBits)/8)
	if err := area.AreasCopy([]area.Area{{Addr: buf, StepBits: int(b.geom.FrameBits)}}, 0, areas, offset, frames, b.geom.Format); err != nil {
		return 0, err
	}
	n, err := unix.Write(b.dev.fd, buf)
	return n * 8 / int(b.geom.FrameBits), mapErrno(err)
}

func (b *Backend) ReadI(areas []area.Area, offset int, frames int) (int, error) {
	buf := make([]byte, frames*int(b.geom.FrameBits)/8)
	n, err := unix.Read(b.dev.fd, buf)
	if err != nil {
		return 0, mapErrno(err)
	}
	got := n * 8 / int(b.geom.FrameBits)
	if cerr := area.AreasCopy(areas, offset, []area.Area{{Addr: buf, StepBits: int(b.geom.FrameBits)}}, 0, got, b.geom.Format); cerr != nil {
		return 0, cerr
	}
	return got, nil
}

func (b *Backend) MmapCommit(offset int, frames int) error {
	var n uint64 = uint64(frames)
	return b.dev.ioctl(ioc(iocWrite, unsafe.Sizeof(n), 0x23), unsafe.Pointer(&n))
}

func (b *Backend) Munmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev.mmap == nil {
		return nil
	}
	err := unix.Munmap(b.dev.mmap)
	b.dev.mmap = nil
	b.areas = nil
	return err
}

func (b *Backend) LinkDescriptor() (interface{}, bool) {
	return b.dev.fd, true
}

// LinkWith issues SNDRV_PCM_IOCTL_LINK against peerDescriptor's fd: the
// kernel merges this substream into the peer's trigger group, so a
// subsequent PREPARE/START/STOP/DRAIN ioctl on either fd fires on both
// simultaneously (sound/core/pcm_native.c's snd_pcm_link).
func (b *Backend) LinkWith(peerDescriptor interface{}) error {
	peerFd, ok := peerDescriptor.(int)
	if !ok {
		return fmt.Errorf("alsa: LinkWith requires an fd, got %T", peerDescriptor)
	}
	fd := int32(peerFd)
	if err := b.dev.ioctl(linkIoc, unsafe.Pointer(&fd)); err != nil {
		return mapErrno(err)
	}
	return nil
}

// Unlink issues SNDRV_PCM_IOCTL_UNLINK, removing this substream from
// whatever trigger group LinkWith joined it to.
func (b *Backend) Unlink() error {
	if err := b.dev.ioctl(unlinkIoc, nil); err != nil {
		return mapErrno(err)
	}
	return nil
}

type pollWaiter struct {
	fd int
}

func (w *pollWaiter) Wait(timeoutMs int) bool {
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLOUT | unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMs)
	return err == nil && n > 0
}

func (b *Backend) PollDescriptor() backend.Waiter {
	return &pollWaiter{fd: b.dev.fd}
}

// mapErrno is the single seam between unix.Errno and the Backend
// interface; kept as a named pass-through so the pcm package's Errno
// mapping (see errors.go) has one place to hook in if a future back-end
// needs to translate driver-specific codes.
func mapErrno(err error) error {
	return err
}
