package chromectl

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromectl/chromectl/protocol"
)

// navState values for Tab.navigating (spec.md §4.6 state machine).
const (
	navIdle int32 = iota
	navInFlight
)

// RequestInterceptor decides what to do with a paused request.
type RequestInterceptor func(ctx context.Context, ev protocol.EventRequestPausedParams) InterceptDecision

// InterceptDecision is the outcome a RequestInterceptor returns.
type InterceptDecision struct {
	Kind InterceptKind

	// FulfillCode/FulfillBody/FulfillHeaders apply when Kind is
	// InterceptFulfill.
	FulfillCode    int
	FulfillBody    []byte
	FulfillHeaders []protocol.HeaderEntry

	// FailReason applies when Kind is InterceptFail.
	FailReason protocol.ErrorReason
}

type InterceptKind int

const (
	InterceptContinue InterceptKind = iota
	InterceptFulfill
	InterceptFail
)

// ResponseHandler is invoked once a response's body is available to fetch,
// per spec.md §4.6's LoadingFinished handling.
type ResponseHandler func(ctx context.Context, resp protocol.ResponseData, fetchBody func(ctx context.Context) ([]byte, error))

// Tab is the ergonomic page façade from spec.md §4.6, grounded on the
// teacher's per-target Target type (target.go) for the event-loop shape and
// on original_source/src/tab.rs for the exact operation set.
type Tab struct {
	browser   *Browser
	transport *Transport

	targetID  protocol.TargetID
	sessionID protocol.SessionID

	infoMu sync.Mutex
	info   protocol.TargetInfo

	navigating int32 // atomic, navIdle/navInFlight
	closed     int32 // atomic bool

	evt *eventListener

	handlerMu   sync.Mutex
	bindings    map[string]func(payload string)
	interceptor RequestInterceptor
	respHandler ResponseHandler
	authPolicy  protocol.AuthChallengeResponse

	respMu     sync.Mutex
	responses  map[protocol.RequestID]protocol.ResponseData

	listenersMu sync.Mutex
	listeners   []chan *protocol.Message

	doneCh chan struct{}

	slowMotion float64 // multiplier; 0 disables slow-motion sleeps
	timeout    time.Duration
	pollEvery  time.Duration
}

// TabOption configures a Tab after construction (e.g. from Browser.NewTab).
type TabOption func(*Tab)

// WithSlowMotion sets the slow-motion multiplier applied to the fixed base
// sleeps preceding key-down (25ms), mouse move (100ms), mouse press
// (250ms), Reload (100ms) and Close (50ms), matching original_source's
// slow-motion knob.
func WithSlowMotion(multiplier float64) TabOption {
	return func(t *Tab) { t.slowMotion = multiplier }
}

// WithDefaultTimeout overrides the 10s default used by WaitForElement.
// WaitUntilNavigated keeps its own fixed 20s bound.
func WithDefaultTimeout(d time.Duration) TabOption {
	return func(t *Tab) { t.timeout = d }
}

func newTab(ctx context.Context, b *Browser, info protocol.TargetInfo) (*Tab, error) {
	sessionID, err := protocol.AttachToTarget(info.TargetID).Do(ctx, b)
	if err != nil {
		return nil, err
	}

	t := &Tab{
		browser:   b,
		transport: b.transport,
		targetID:  info.TargetID,
		sessionID: sessionID,
		info:      info,
		bindings:  make(map[string]func(payload string)),
		responses: make(map[protocol.RequestID]protocol.ResponseData),
		doneCh:    make(chan struct{}),
		timeout:   10 * time.Second,
		pollEvery: 100 * time.Millisecond,
		authPolicy: protocol.AuthChallengeResponse{Response: protocol.AuthDefault},
	}

	t.evt = b.transport.subscribeSession(sessionID, 256)

	if err := protocol.Enable().Do(ctx, t); err != nil {
		return nil, err
	}
	if err := protocol.SetLifecycleEventsEnabled(true).Do(ctx, t); err != nil {
		return nil, err
	}

	go t.eventLoop()

	return t, nil
}

// Execute implements protocol.Executor for session-scope calls, wrapping
// every call through Target.sendMessageToTarget (spec.md §4.6 construction).
func (t *Tab) Execute(ctx context.Context, method protocol.MethodType, params, res interface{}) error {
	if atomic.LoadInt32(&t.closed) == 1 {
		return ErrInvalidTarget
	}
	return t.transport.CallMethodOnTarget(ctx, t.sessionID, method, params, res)
}

func (t *Tab) eventLoop() {
	defer close(t.doneCh)
	for msg := range t.evt.ch {
		t.fanOut(msg)

		switch msg.Method {
		case protocol.EventPageLifecycleEvent:
			var p protocol.EventLifecycleEventParams
			if json.Unmarshal(msg.Params, &p) == nil {
				switch p.Name {
				case "init":
					atomic.StoreInt32(&t.navigating, navInFlight)
				case "networkAlmostIdle":
					atomic.StoreInt32(&t.navigating, navIdle)
				}
			}
		case protocol.EventRuntimeBindingCalled:
			var p protocol.EventBindingCalledParams
			if json.Unmarshal(msg.Params, &p) == nil {
				t.handlerMu.Lock()
				fn := t.bindings[p.Name]
				t.handlerMu.Unlock()
				if fn != nil {
					go fn(p.Payload)
				}
			}
		case protocol.EventFetchRequestPaused:
			var p protocol.EventRequestPausedParams
			if json.Unmarshal(msg.Params, &p) == nil {
				t.handleRequestPaused(p)
			}
		case protocol.EventFetchAuthRequired:
			var p protocol.EventAuthRequiredParams
			if json.Unmarshal(msg.Params, &p) == nil {
				t.handleAuthRequired(p)
			}
		case protocol.EventNetworkResponseReceived:
			var p protocol.EventResponseReceivedParams
			if json.Unmarshal(msg.Params, &p) == nil {
				t.respMu.Lock()
				t.responses[p.RequestID] = p.Response
				t.respMu.Unlock()
			}
		case protocol.EventNetworkLoadingFinished:
			var p protocol.EventLoadingFinishedParams
			if json.Unmarshal(msg.Params, &p) == nil {
				t.handleLoadingFinished(p.RequestID)
			}
		}
	}
}

func (t *Tab) fanOut(msg *protocol.Message) {
	t.listenersMu.Lock()
	ls := append([]chan *protocol.Message(nil), t.listeners...)
	t.listenersMu.Unlock()
	for _, ch := range ls {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Listen registers a channel that receives a copy of every event this tab
// observes, in subscriber-registration order (spec.md §4.6 "For every
// event: deliver a copy to every registered user listener"). Delivery never
// blocks the tab's event loop: a listener whose buffer is full when an event
// arrives does not receive that event.
func (t *Tab) Listen(buf int) (<-chan *protocol.Message, func()) {
	ch := make(chan *protocol.Message, buf)
	t.listenersMu.Lock()
	t.listeners = append(t.listeners, ch)
	t.listenersMu.Unlock()
	return ch, func() {
		t.listenersMu.Lock()
		defer t.listenersMu.Unlock()
		for i, c := range t.listeners {
			if c == ch {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				break
			}
		}
	}
}

func (t *Tab) handleRequestPaused(p protocol.EventRequestPausedParams) {
	t.handlerMu.Lock()
	interceptor := t.interceptor
	t.handlerMu.Unlock()

	ctx := context.Background()
	if interceptor == nil {
		protocol.ContinueRequest(p.RequestID).Do(ctx, t)
		return
	}

	decision := interceptor(ctx, p)
	switch decision.Kind {
	case InterceptFulfill:
		protocol.FulfillRequest(p.RequestID, decision.FulfillCode).
			WithHeaders(decision.FulfillHeaders).
			WithBody(decision.FulfillBody).
			Do(ctx, t)
	case InterceptFail:
		reason := decision.FailReason
		if reason == "" {
			reason = protocol.ErrorReasonFailed
		}
		protocol.FailRequest(p.RequestID, reason).Do(ctx, t)
	default:
		protocol.ContinueRequest(p.RequestID).Do(ctx, t)
	}
}

func (t *Tab) handleAuthRequired(p protocol.EventAuthRequiredParams) {
	t.handlerMu.Lock()
	resp := t.authPolicy
	t.handlerMu.Unlock()
	protocol.ContinueWithAuth(p.RequestID, resp).Do(context.Background(), t)
}

func (t *Tab) handleLoadingFinished(id protocol.RequestID) {
	t.handlerMu.Lock()
	handler := t.respHandler
	t.handlerMu.Unlock()
	if handler == nil {
		return
	}

	t.respMu.Lock()
	resp, ok := t.responses[id]
	delete(t.responses, id)
	t.respMu.Unlock()
	if !ok {
		return
	}

	handler(context.Background(), resp, func(ctx context.Context) ([]byte, error) {
		return protocol.GetResponseBody(id).Do(ctx, t)
	})
}

func (t *Tab) onTargetDestroyed() {
	if atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		t.transport.dropSession(t.sessionID)
	}
}

func (t *Tab) onTransportClosed() {
	t.onTargetDestroyed()
}

// TargetID returns the tab's stable target id.
func (t *Tab) TargetID() protocol.TargetID { return t.targetID }

// GetTargetID is the original_source-parity accessor name.
func (t *Tab) GetTargetID() protocol.TargetID { return t.TargetID() }

// GetURL returns the last known target URL (as of the most recent
// TargetInfoChanged event or construction).
func (t *Tab) GetURL() string {
	t.infoMu.Lock()
	defer t.infoMu.Unlock()
	return t.info.URL
}

// GetTitle returns the last known page title.
func (t *Tab) GetTitle() string {
	t.infoMu.Lock()
	defer t.infoMu.Unlock()
	return t.info.Title
}

// updateInfo is invoked by the browser handle on TargetInfoChanged.
func (t *Tab) updateInfo(info protocol.TargetInfo) {
	t.infoMu.Lock()
	t.info = info
	t.infoMu.Unlock()
}

// sleepSlowMotion sleeps base*slowMotion, a no-op when no slow-motion
// multiplier is configured (spec.md §4.6 "multiplier × 100/250 ms").
func (t *Tab) sleepSlowMotion(base time.Duration) {
	if t.slowMotion <= 0 {
		return
	}
	time.Sleep(time.Duration(float64(base) * t.slowMotion))
}
