package pcm

import (
	"sync/atomic"
	"testing"

	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/backend/null"
	"github.com/stretchr/testify/require"
)

// fakeLinkBackend wraps the null back-end but actually honors
// LinkDescriptor/LinkWith/Unlink the way a real ALSA fd pair would, so
// Link's group-wiring logic can be exercised without a kernel device. It
// counts Start/Stop calls so tests can tell a real kernel trigger apart
// from Go-side state sync (spec.md §4.6: a linked peer's back-end must
// never be triggered a second time).
type fakeLinkBackend struct {
	*null.Backend
	id         int32
	startCount int32
	stopCount  int32
}

func newFakeLinkBackend(name string, id int32, dir backend.Direction) *fakeLinkBackend {
	return &fakeLinkBackend{Backend: null.New(name, dir), id: id}
}

func (b *fakeLinkBackend) LinkDescriptor() (interface{}, bool) { return b.id, true }
func (b *fakeLinkBackend) LinkWith(interface{}) error          { return nil }
func (b *fakeLinkBackend) Unlink() error                       { return nil }

func (b *fakeLinkBackend) Start() error {
	atomic.AddInt32(&b.startCount, 1)
	return b.Backend.Start()
}

func (b *fakeLinkBackend) Stop() error {
	atomic.AddInt32(&b.stopCount, 1)
	return b.Backend.Stop()
}

// preparedFakeHandle returns a Handle already in PREPARED, wired to a
// fakeLinkBackend, bypassing hw_params negotiation (irrelevant to linking).
func preparedFakeHandle(name string, id int32) *Handle {
	be := newFakeLinkBackend(name, id, backend.Playback)
	h := open(name, name, be, Playback, 0)
	h.state = backend.Prepared
	return h
}

func TestLinkPropagatesStartAcrossGroup(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	h2 := preparedFakeHandle("b", 2)
	require.NoError(t, Link(h1, h2))

	require.NoError(t, h1.Start())

	require.Equal(t, backend.Running, h1.State())
	require.Equal(t, backend.Running, h2.State())

	be1 := h1.be.(*fakeLinkBackend)
	be2 := h2.be.(*fakeLinkBackend)
	require.EqualValues(t, 1, be1.startCount)
	require.EqualValues(t, 0, be2.startCount,
		"peer's kernel trigger must not be re-issued: LinkWith already started it together with h1's")
}

func TestLinkPropagatesStopAcrossGroup(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	h2 := preparedFakeHandle("b", 2)
	require.NoError(t, Link(h1, h2))
	require.NoError(t, h1.Start())

	require.NoError(t, h2.Stop())

	require.Equal(t, backend.Setup, h1.State())
	require.Equal(t, backend.Setup, h2.State())

	be1 := h1.be.(*fakeLinkBackend)
	be2 := h2.be.(*fakeLinkBackend)
	require.EqualValues(t, 0, be1.stopCount,
		"the group trigger was issued through h2; h1's back-end must not be stopped a second time")
	require.EqualValues(t, 1, be2.stopCount)
}

func TestLinkPropagatesPrepareAcrossGroup(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	h2 := preparedFakeHandle("b", 2)
	require.NoError(t, Link(h1, h2))
	require.NoError(t, h1.Start())

	h2.applPtr, h2.hwPtr, h2.silencedTo = 10, 5, 3

	require.NoError(t, h1.Prepare())

	require.Equal(t, backend.Prepared, h1.State())
	require.Equal(t, backend.Prepared, h2.State())
	assert := require.New(t)
	assert.EqualValues(0, h2.applPtr)
	assert.EqualValues(0, h2.hwPtr)
	assert.EqualValues(0, h2.silencedTo)
}

func TestUnlinkStopsPropagation(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	h2 := preparedFakeHandle("b", 2)
	require.NoError(t, Link(h1, h2))
	require.NoError(t, Unlink(h2))

	require.NoError(t, h1.Start())
	require.Equal(t, backend.Running, h1.State())
	require.Equal(t, backend.Prepared, h2.State(), "unlinked handle must no longer follow the group")
}

func TestLinkRejectsBackendWithoutDescriptor(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	h2 := open("null:", "null:", null.New("null:", backend.Playback), Playback, 0)
	h2.state = backend.Prepared

	err := Link(h1, h2)
	require.Error(t, err)
	errno, ok := Err(err)
	require.True(t, ok)
	require.Equal(t, ENOSYS, errno)
}

func TestLinkRejectsSelfLink(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	err := Link(h1, h1)
	require.Error(t, err)
	errno, ok := Err(err)
	require.True(t, ok)
	require.Equal(t, EINVAL, errno)
}

func TestLinkIsIdempotent(t *testing.T) {
	h1 := preparedFakeHandle("a", 1)
	h2 := preparedFakeHandle("b", 2)
	require.NoError(t, Link(h1, h2))
	require.NoError(t, Link(h1, h2))

	require.Len(t, h1.link.members, 2)
}
