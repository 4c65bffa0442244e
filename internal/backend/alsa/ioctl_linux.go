// +build linux

// Package alsa is a cgo-free ALSA PCM back-end: it talks to
// /dev/snd/pcmC<card>D<device>p|c directly via the same ioctl/mmap vocabulary
// alsa-lib's pcm_hw.c uses, without linking libasound.
//
// Grounded in the teacher's V4L2 device wrapper
// (internal/v4l2/device.go: OpenDevice/ioctl/mapMemory/unmapMemory/
// Start/Stop), whose raw-syscall ioctl-and-mmap shape this back-end
// generalises from a V4L2 capture device to an ALSA PCM device.
package alsa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request numbers, from <sound/asound.h> SNDRV_PCM_IOCTL_*. Built by
// hand with the same _IOWR/_IOW/_IO encoding the kernel uapi macros use
// ('A' magic, see linux/ioctl.h), mirroring how the teacher's v4l2 package
// hard-codes its VIDIOC_* request numbers.
const (
	iocMagic = 'A'

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, size uintptr, nr uintptr) uintptr {
	return (dir << 30) | (size << 16) | (iocMagic << 8) | nr
}

var (
	hwRefineIoc = ioc(iocRead|iocWrite, unsafe.Sizeof(hwParams{}), 0x10)
	hwParamsIoc = ioc(iocRead|iocWrite, unsafe.Sizeof(hwParams{}), 0x11)
	hwFreeIoc   = ioc(iocNone, 0, 0x12)
	swParamsIoc = ioc(iocRead|iocWrite, unsafe.Sizeof(swParams{}), 0x13)
	statusIoc   = ioc(iocRead, unsafe.Sizeof(status{}), 0x20)
	prepareIoc  = ioc(iocNone, 0, 0x40)
	resetIoc    = ioc(iocNone, 0, 0x41)
	startIoc    = ioc(iocNone, 0, 0x42)
	dropIoc     = ioc(iocNone, 0, 0x43)
	drainIoc    = ioc(iocNone, 0, 0x44)
	pauseIoc    = ioc(iocWrite, unsafe.Sizeof(int32(0)), 0x45)
	rewindIoc   = ioc(iocWrite, unsafe.Sizeof(uint64(0)), 0x46)
	availIoc    = ioc(iocRead, unsafe.Sizeof(int64(0)), 0x21)
	delayIoc    = ioc(iocRead, unsafe.Sizeof(int64(0)), 0x22)
	linkIoc     = ioc(iocWrite, unsafe.Sizeof(int32(0)), 0x60)
	unlinkIoc   = ioc(iocNone, 0, 0x61)
)

// hwParams mirrors the fields of struct snd_pcm_hw_params this back-end
// actually drives; mask/interval arrays are simplified to the parameters
// pcm.HWParams exercises rather than the kernel's full fixed-size arrays.
type hwParams struct {
	accessMask    uint32
	formatMask    uint32
	subformatMask uint32
	channelsMin   uint32
	channelsMax   uint32
	rateMin       uint32
	rateMax       uint32
	periodSizeMin uint64
	periodSizeMax uint64
	bufferSizeMin uint64
	bufferSizeMax uint64
	periodsMin    uint32
	periodsMax    uint32

	// Fixed once HW_PARAMS has succeeded.
	fixedFrameBits  uint32
	fixedSampleBits uint32
}

type swParams struct {
	tstampMode       uint32
	periodStep       uint32
	sleepMin         uint32
	availMin         uint64
	xferAlign        uint64
	startThreshold   uint64
	stopThreshold    uint64
	silenceThreshold uint64
	silenceSize      uint64
	boundary         uint64
}

type status struct {
	state            int32
	triggerTimestamp int64
	nowTimestamp     int64
	avail            int64
	delay            int64
}

type device struct {
	path string
	fd   int
	mmap []byte
}

func openDevice(path string) (*device, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &device{path: path, fd: fd}, nil
}

func (d *device) close() error {
	if d.mmap != nil {
		unix.Munmap(d.mmap)
		d.mmap = nil
	}
	return unix.Close(d.fd)
}

func (d *device) ioctl(request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *device) mmapRing(size int) error {
	if d.mmap != nil {
		return nil
	}
	m, err := unix.Mmap(d.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	d.mmap = m
	return nil
}
