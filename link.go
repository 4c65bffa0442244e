package pcm

import (
	"sync"

	"github.com/lanikai/gopcm/internal/backend"
)

// linkGroup joins the kernel trigger of two or more handles (spec.md §4.6
// LinkDescriptor) so Start/Stop/Pause on any member affects all of them
// atomically. Back-ends that expose no link descriptor cause Link to fail
// with -ENOSYS; group membership is otherwise tracked purely in the engine.
type linkGroup struct {
	mu      sync.Mutex
	members []*Handle
}

// Link joins h2 into h1's link group (creating one if h1 is not yet
// linked), and issues the kernel SNDRV_PCM_IOCTL_LINK equivalent
// (back-end LinkWith) so h1 and h2's hardware triggers fire together
// (spec.md §4.6): after Link, PREPARE/START/STOP on either's Handle
// methods propagate to the other without re-issuing a second kernel
// trigger (see withGroupLocked). Both handles must expose a back-end
// LinkDescriptor.
func Link(h1, h2 *Handle) error {
	if h1 == h2 {
		return EINVAL.Wrapf("Link: cannot link a handle to itself")
	}
	d1, ok := h1.be.LinkDescriptor()
	if !ok {
		return ENOSYS.Wrapf("Link: back-end %s has no link descriptor", h1.Name)
	}
	if _, ok := h2.be.LinkDescriptor(); !ok {
		return ENOSYS.Wrapf("Link: back-end %s has no link descriptor", h2.Name)
	}
	if err := h2.be.LinkWith(d1); err != nil {
		return EIO.Wrapf("Link: %s: %v", h2.Name, err)
	}

	h1.mu.Lock()
	group := h1.link
	if group == nil {
		group = &linkGroup{members: []*Handle{h1}}
		h1.link = group
	}
	h1.mu.Unlock()

	group.mu.Lock()
	defer group.mu.Unlock()
	for _, m := range group.members {
		if m == h2 {
			return nil
		}
	}
	group.members = append(group.members, h2)

	h2.mu.Lock()
	h2.link = group
	h2.mu.Unlock()
	return nil
}

// Unlink removes h from whatever link group it belongs to, if any, and
// issues the kernel SNDRV_PCM_IOCTL_UNLINK equivalent (back-end Unlink) so
// h's hardware trigger is separated from the group's again.
func Unlink(h *Handle) error {
	h.mu.Lock()
	group := h.link
	h.link = nil
	h.mu.Unlock()

	if group == nil {
		return nil
	}
	group.mu.Lock()
	defer group.mu.Unlock()
	for i, m := range group.members {
		if m == h {
			group.members = append(group.members[:i], group.members[i+1:]...)
			break
		}
	}
	if err := h.be.Unlink(); err != nil {
		return EIO.Wrapf("Unlink: %s: %v", h.Name, err)
	}
	return nil
}

// withGroupLocked executes primaryOp against h (with h.mu held), then, if
// h belongs to a link group, applies peerSync to every other member's
// Go-side state (with that member's own mu held). group.mu is always
// acquired before any member's h.mu — the invariant that lets two
// goroutines call Start/Stop/Prepare/Pause on two different members of the
// same group without deadlocking (spec.md §4.6). peerSync never touches
// the back-end: the kernel already triggered every linked back-end
// together when primaryOp ran, via the LinkWith group Link established.
func (h *Handle) withGroupLocked(primaryOp func() error, peerSync func(*Handle)) error {
	h.mu.Lock()
	group := h.link
	h.mu.Unlock()

	if group == nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		return primaryOp()
	}

	group.mu.Lock()
	defer group.mu.Unlock()

	h.mu.Lock()
	err := primaryOp()
	h.mu.Unlock()
	if err != nil {
		return err
	}

	for _, m := range group.members {
		if m == h {
			continue
		}
		m.mu.Lock()
		peerSync(m)
		m.mu.Unlock()
	}
	return nil
}

// propagateLinkedRunning is called by the transfer engine (WriteI/ReadI)
// after h auto-started via start_threshold, with h.mu NOT held. The kernel
// trigger group already started every linked back-end together when
// h.be.Start() ran; this only brings the other members' Go-side state into
// sync, the same way withGroupLocked's peerSync does for Start.
func (h *Handle) propagateLinkedRunning() {
	h.mu.Lock()
	group := h.link
	h.mu.Unlock()
	if group == nil {
		return
	}
	group.mu.Lock()
	defer group.mu.Unlock()
	for _, m := range group.members {
		if m == h {
			continue
		}
		m.mu.Lock()
		if m.state == backend.Prepared {
			m.state = backend.Running
		}
		m.mu.Unlock()
	}
}

