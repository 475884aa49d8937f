package chromectl

import (
	"sync"
	"sync/atomic"

	"github.com/chromectl/chromectl/protocol"
)

// pendingCall is a single in-flight call's completion slot.
type pendingCall struct {
	resultCh chan *protocol.Message
}

// registry is the call registry from spec.md §4.2: one shared correlation-id
// space for every call, whether it targets the browser endpoint or is
// wrapped for delivery to a session via Target.sendMessageToTarget. The
// single demultiplexer goroutine is the only reader of the completion
// channels' producer side; callers only ever receive.
type registry struct {
	nextID int64

	mu      sync.Mutex
	pending map[int64]pendingCall
	closed  bool
}

func newRegistry() *registry {
	return &registry{pending: make(map[int64]pendingCall)}
}

// nextCallID allocates the next correlation id, shared across every call the
// process makes regardless of target (spec.md §4.2).
func (r *registry) nextCallID() int64 {
	return atomic.AddInt64(&r.nextID, 1)
}

// register reserves id and returns the channel its eventual response (or
// nil, on registry shutdown) arrives on.
func (r *registry) register(id int64) <-chan *protocol.Message {
	ch := make(chan *protocol.Message, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch
	}
	r.pending[id] = pendingCall{resultCh: ch}
	return ch
}

// resolve delivers msg to the call registered under msg.ID, if any. Returns
// false if no call is waiting (stale or unsolicited response).
func (r *registry) resolve(msg *protocol.Message) bool {
	r.mu.Lock()
	call, ok := r.pending[msg.ID]
	if ok {
		delete(r.pending, msg.ID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	call.resultCh <- msg
	return true
}

// cancel removes id's registration without delivering a response, used when
// a caller's context is done before a reply arrives.
func (r *registry) cancel(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// shutdown closes every pending call's channel and rejects further
// registrations, run once by the demultiplexer when the link dies
// (spec.md §6, link death path).
func (r *registry) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, call := range r.pending {
		close(call.resultCh)
		delete(r.pending, id)
	}
}
