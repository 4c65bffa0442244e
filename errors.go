package pcm

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Errno is one of the POSIX-style negative error codes named in spec.md §6.
// The engine never swallows errors; Errno values are returned directly or
// wrapped with xerrors.Errorf so %w-unwrapping still recovers them via Err.
type Errno int

const (
	EINVAL Errno = -22 // bad argument, or an empty configuration space
	EBADFD Errno = -77 // operation invalid in the current state
	EPIPE  Errno = -32 // under-run (playback) or over-run (capture)
	EAGAIN Errno = -11 // would block in non-block mode
	ENOSYS Errno = -38 // unsupported by the back-end
	ENOMEM Errno = -12
	ENOENT Errno = -2 // resolver could not find the named device
	ENXIO  Errno = -6 // resolver found the device but not its back-end symbol
	EIO    Errno = -5 // back-end I/O failure, e.g. a kernel LINK/UNLINK ioctl
)

var errnoNames = map[Errno]string{
	EINVAL: "EINVAL",
	EBADFD: "EBADFD",
	EPIPE:  "EPIPE",
	EAGAIN: "EAGAIN",
	ENOSYS: "ENOSYS",
	ENOMEM: "ENOMEM",
	ENOENT: "ENOENT",
	ENXIO:  "ENXIO",
	EIO:    "EIO",
}

func (e Errno) Error() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

// Wrapf attaches context to an Errno while keeping it recoverable via Err.
func (e Errno) Wrapf(format string, a ...interface{}) error {
	return xerrors.Errorf(format+": %w", append(a, e)...)
}

// Err unwraps err (possibly wrapped any number of times by Wrapf or
// pkg/errors) back down to the Errno it originated from.
func Err(err error) (Errno, bool) {
	var errno Errno
	for err != nil {
		if xerrors.As(err, &errno) {
			return errno, true
		}
		// pkg/errors wrappers expose the wrapped error through Cause.
		c, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = c.Cause()
	}
	return 0, false
}
