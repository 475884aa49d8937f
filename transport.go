package chromectl

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mailru/easyjson"

	"github.com/chromectl/chromectl/protocol"
)

// eventListener receives every event delivered within its scope (browser-wide
// or a single session), matching the teacher's lisnutil.go fan-out list.
type eventListener struct {
	ch chan *protocol.Message
}

// Transport is the demultiplexer from spec.md §4.2/§4.3: it owns the single
// inbound reader's downstream processing, drives the shared call registry,
// unwraps Target.receivedMessageFromTarget envelopes recursively, and fans
// out events to per-scope subscriber lists. Exactly one goroutine (run)
// reads the link's inbound channel; everything else communicates with it
// only through the registry and the listener maps, both mutex-guarded.
type Transport struct {
	link Link
	reg  *registry

	mu         sync.Mutex
	browserEvt []*eventListener
	sessionEvt map[protocol.SessionID][]*eventListener

	done   chan struct{}
	errMu  sync.Mutex
	lastErr error

	logf func(string, ...interface{})
}

// NewTransport wraps link in a demultiplexer and starts its run loop.
func NewTransport(link Link, logf func(string, ...interface{})) *Transport {
	t := &Transport{
		link:       link,
		reg:        newRegistry(),
		sessionEvt: make(map[protocol.SessionID][]*eventListener),
		done:       make(chan struct{}),
		logf:       logf,
	}
	go t.run()
	return t
}

// Done is closed once the link has shut down and the registry has been
// drained, mirroring the teacher's Browser.Context().Done() shutdown gate.
func (t *Transport) Done() <-chan struct{} { return t.done }

// Err returns the reason the transport shut down, if any.
func (t *Transport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.lastErr
}

func (t *Transport) run() {
	defer close(t.done)
	for env := range t.link.Inbound() {
		if env.shutdown {
			if env.err != nil {
				t.errMu.Lock()
				t.lastErr = env.err
				t.errMu.Unlock()
			}
			t.reg.shutdown()
			return
		}
		t.dispatch("", env.msg)
	}
}

// dispatch handles one decoded message, recursively unwrapping
// Target.receivedMessageFromTarget envelopes as described in spec.md §6:
// the nested message is itself a full envelope (call response or event) and
// is processed exactly like a top-level one, just tagged with the session
// id it arrived for.
func (t *Transport) dispatch(sessionID protocol.SessionID, msg *protocol.Message) {
	if msg.Method == protocol.EventTargetReceivedMessageFromTarget {
		var params protocol.EventReceivedMessageFromTarget
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			if t.logf != nil {
				t.logf("chromectl: malformed receivedMessageFromTarget: %v", err)
			}
			return
		}
		inner := new(protocol.Message)
		if err := easyjson.Unmarshal([]byte(params.Message), inner); err != nil {
			if t.logf != nil {
				t.logf("chromectl: malformed nested target message: %v", err)
			}
			return
		}
		t.dispatch(params.SessionID, inner)
		return
	}

	if msg.ID != 0 {
		if resolved := t.reg.resolve(msg); resolved {
			return
		}
		if t.logf != nil {
			t.logf("chromectl: response for unknown call id %d", msg.ID)
		}
		return
	}

	if msg.Method == "" {
		return
	}

	t.mu.Lock()
	var targets []*eventListener
	if sessionID == "" {
		targets = append(targets, t.browserEvt...)
	} else {
		targets = append(targets, t.sessionEvt[sessionID]...)
	}
	t.mu.Unlock()

	for _, l := range targets {
		select {
		case l.ch <- msg:
		default:
			// A slow subscriber never blocks the demultiplexer; it just
			// misses events until it catches up (spec.md §4.3 "a stalled
			// listener must never stall the demultiplexer").
			if t.logf != nil {
				t.logf("chromectl: dropping event %s for slow listener", msg.Method)
			}
		}
	}
}

// CallMethod issues a browser-scope call: no session wrapping, correlation
// id from the shared registry.
func (t *Transport) CallMethod(ctx context.Context, method protocol.MethodType, params, res interface{}) error {
	return t.call(ctx, "", method, params, res)
}

// CallMethodOnTarget issues a session-scope call, wrapped in
// Target.sendMessageToTarget per spec.md §4.6 (non-flattened session mode).
func (t *Transport) CallMethodOnTarget(ctx context.Context, sessionID protocol.SessionID, method protocol.MethodType, params, res interface{}) error {
	innerID := t.reg.nextCallID()
	inner := &protocol.Message{ID: innerID, Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		inner.Params = easyjson.RawMessage(b)
	}
	innerBuf, err := easyjson.Marshal(inner)
	if err != nil {
		return err
	}

	resultCh := t.reg.register(innerID)

	sendParams := protocol.SendMessageToTargetParams{
		SessionID: sessionID,
		Message:   string(innerBuf),
	}
	if err := t.CallMethod(ctx, protocol.CommandTargetSendMessageToTarget, &sendParams, nil); err != nil {
		t.reg.cancel(innerID)
		return err
	}

	return t.await(ctx, innerID, resultCh, res)
}

func (t *Transport) call(ctx context.Context, _ protocol.SessionID, method protocol.MethodType, params, res interface{}) error {
	id := t.reg.nextCallID()
	out := &protocol.Message{ID: id, Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		out.Params = easyjson.RawMessage(b)
	}

	resultCh := t.reg.register(id)
	if err := t.link.Send(out); err != nil {
		t.reg.cancel(id)
		return err
	}

	return t.await(ctx, id, resultCh, res)
}

func (t *Transport) await(ctx context.Context, id int64, resultCh <-chan *protocol.Message, res interface{}) error {
	select {
	case msg, ok := <-resultCh:
		if !ok {
			return ErrTransportClosed
		}
		if msg.Error != nil {
			return &RemoteError{Code: msg.Error.Code, Message: msg.Error.Message}
		}
		if res != nil && len(msg.Result) != 0 {
			return json.Unmarshal(msg.Result, res)
		}
		return nil
	case <-ctx.Done():
		t.reg.cancel(id)
		return ctx.Err()
	case <-t.done:
		return ErrTransportClosed
	}
}

// subscribeBrowser registers a browser-scope event listener.
func (t *Transport) subscribeBrowser(buf int) *eventListener {
	l := &eventListener{ch: make(chan *protocol.Message, buf)}
	t.mu.Lock()
	t.browserEvt = append(t.browserEvt, l)
	t.mu.Unlock()
	return l
}

func (t *Transport) unsubscribeBrowser(l *eventListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.browserEvt = removeListener(t.browserEvt, l)
}

// subscribeSession registers an event listener scoped to sessionID.
func (t *Transport) subscribeSession(sessionID protocol.SessionID, buf int) *eventListener {
	l := &eventListener{ch: make(chan *protocol.Message, buf)}
	t.mu.Lock()
	t.sessionEvt[sessionID] = append(t.sessionEvt[sessionID], l)
	t.mu.Unlock()
	return l
}

func (t *Transport) unsubscribeSession(sessionID protocol.SessionID, l *eventListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionEvt[sessionID] = removeListener(t.sessionEvt[sessionID], l)
	if len(t.sessionEvt[sessionID]) == 0 {
		delete(t.sessionEvt, sessionID)
	}
}

// dropSession discards a session's listener list entirely, called when its
// target is detached or destroyed.
func (t *Transport) dropSession(sessionID protocol.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessionEvt, sessionID)
}

func removeListener(list []*eventListener, target *eventListener) []*eventListener {
	out := list[:0]
	for _, l := range list {
		if l != target {
			out = append(out, l)
		}
	}
	return out
}
