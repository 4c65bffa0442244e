package pcm

import "sync"

// AsyncCallback is invoked from the dispatcher goroutine whenever the
// back-end's poll descriptor signals readiness, per Design Note 9.4
// (event-descriptor dispatch replacing legacy signal delivery).
type AsyncCallback func(h *Handle)

// AsyncHandler is a registered async callback, detached by Close or by an
// explicit Remove call.
type AsyncHandler struct {
	h        *Handle
	cb       AsyncCallback
	stop     chan struct{}
	stopOnce sync.Once
}

// AddAsyncHandler registers cb to run whenever the stream's poll descriptor
// becomes ready (spec.md §6, Design Note 9.4). The handle must have Async
// set in its open Mode.
func (h *Handle) AddAsyncHandler(cb AsyncCallback) (*AsyncHandler, error) {
	if h.mode&Async == 0 {
		return nil, EINVAL.Wrapf("AddAsyncHandler: handle was not opened with Async mode")
	}

	ah := &AsyncHandler{h: h, cb: cb, stop: make(chan struct{})}

	h.mu.Lock()
	h.asyncHandlers = append(h.asyncHandlers, ah)
	h.mu.Unlock()

	go ah.run()
	return ah, nil
}

// run is the dispatcher goroutine: it waits on the back-end's poll
// descriptor and invokes cb on every wake-up until Remove is called.
func (ah *AsyncHandler) run() {
	waiter := ah.h.be.PollDescriptor()
	if waiter == nil {
		return
	}
	for {
		select {
		case <-ah.stop:
			return
		default:
		}
		if waiter.Wait(100) {
			ah.cb(ah.h)
		}
	}
}

// Remove detaches the handler; its dispatcher goroutine exits promptly.
func (ah *AsyncHandler) Remove() {
	ah.stopOnce.Do(func() { close(ah.stop) })
}

// detachAllAsync stops every async handler registered on h, called from
// Close (spec.md §4.7).
func (h *Handle) detachAllAsync() {
	h.mu.Lock()
	handlers := h.asyncHandlers
	h.asyncHandlers = nil
	h.mu.Unlock()

	for _, ah := range handlers {
		ah.Remove()
	}
}
