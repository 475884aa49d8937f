package chromectl

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/mailru/easyjson"

	"github.com/chromectl/chromectl/protocol"
)

// fakeLink is an in-memory Link for driving Transport without a real socket.
type fakeLink struct {
	inbound chan envelope
	sent    chan *protocol.Message
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		inbound: make(chan envelope, 64),
		sent:    make(chan *protocol.Message, 64),
	}
}

func (f *fakeLink) Send(msg *protocol.Message) error {
	f.sent <- msg
	return nil
}

func (f *fakeLink) Inbound() <-chan envelope { return f.inbound }

func (f *fakeLink) push(msg *protocol.Message)   { f.inbound <- envelope{msg: msg} }
func (f *fakeLink) closeWith(err error)          { f.inbound <- envelope{shutdown: true, err: err}; close(f.inbound) }

func mustWrap(t *testing.T, sessionID protocol.SessionID, inner *protocol.Message) *protocol.Message {
	t.Helper()
	buf, err := easyjson.Marshal(inner)
	if err != nil {
		t.Fatalf("marshal inner message: %v", err)
	}
	params, err := json.Marshal(protocol.EventReceivedMessageFromTarget{
		SessionID: sessionID,
		Message:   string(buf),
	})
	if err != nil {
		t.Fatalf("marshal receivedMessageFromTarget params: %v", err)
	}
	return &protocol.Message{
		Method: protocol.EventTargetReceivedMessageFromTarget,
		Params: easyjson.RawMessage(params),
	}
}

func TestTransportCallMethodResolvesMatchingID(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	done := make(chan struct{})
	var callErr error
	var result struct {
		OK bool `json:"ok"`
	}
	go func() {
		callErr = tr.CallMethod(context.Background(), "Target.setDiscoverTargets", nil, &result)
		close(done)
	}()

	out := <-link.sent
	if out.Method != "Target.setDiscoverTargets" {
		t.Fatalf("unexpected outbound method %q", out.Method)
	}
	link.push(&protocol.Message{ID: out.ID, Result: []byte(`{"ok":true}`)})

	<-done
	if callErr != nil {
		t.Fatalf("CallMethod returned error: %v", callErr)
	}
	if !result.OK {
		t.Fatal("result not populated from matching response")
	}
}

func TestTransportRemoteErrorSurfacesCodeAndMessage(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	done := make(chan error, 1)
	go func() {
		done <- tr.CallMethod(context.Background(), "Page.navigate", nil, nil)
	}()

	out := <-link.sent
	link.push(&protocol.Message{ID: out.ID, Error: &protocol.Error{Code: -32000, Message: "boom"}})

	err := <-done
	re, ok := err.(*RemoteError)
	if !ok {
		t.Fatalf("got %T, want *RemoteError", err)
	}
	if re.Code != -32000 || re.Message != "boom" {
		t.Fatalf("got %+v, want code -32000 message boom", re)
	}
}

func TestTransportSessionEventsDeliveredInOrder(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	sessionID := protocol.SessionID("sess-1")
	l := tr.subscribeSession(sessionID, 16)

	for i := 0; i < 5; i++ {
		inner := &protocol.Message{
			Method: "Page.lifecycleEvent",
			Params: easyjson.RawMessage(`{"name":"init","seq":` + strconv.Itoa(i) + `}`),
		}
		link.push(mustWrap(t, sessionID, inner))
	}

	for i := 0; i < 5; i++ {
		select {
		case msg := <-l.ch:
			var p struct {
				Seq int `json:"seq"`
			}
			if err := json.Unmarshal(msg.Params, &p); err != nil {
				t.Fatalf("unmarshal event params: %v", err)
			}
			if p.Seq != i {
				t.Fatalf("out-of-order delivery: got seq %d, want %d", p.Seq, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestTransportCallMethodOnTargetWrapsAndUnwraps(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	sessionID := protocol.SessionID("sess-2")
	done := make(chan error, 1)
	var result struct {
		Value int `json:"value"`
	}
	go func() {
		done <- tr.CallMethodOnTarget(context.Background(), sessionID, "Runtime.evaluate", nil, &result)
	}()

	// The outer call is an ordinary Target.sendMessageToTarget.
	out := <-link.sent
	if out.Method != protocol.CommandTargetSendMessageToTarget {
		t.Fatalf("got outer method %q, want %s", out.Method, protocol.CommandTargetSendMessageToTarget)
	}
	var sendParams protocol.SendMessageToTargetParams
	if err := json.Unmarshal(out.Params, &sendParams); err != nil {
		t.Fatalf("unmarshal send params: %v", err)
	}
	inner := new(protocol.Message)
	if err := easyjson.Unmarshal([]byte(sendParams.Message), inner); err != nil {
		t.Fatalf("unmarshal inner message: %v", err)
	}

	// First, the outer ack arrives.
	link.push(&protocol.Message{ID: out.ID, Result: []byte(`{}`)})

	// Then the inner response arrives wrapped in receivedMessageFromTarget.
	innerResp := &protocol.Message{ID: inner.ID, Result: []byte(`{"value":42}`)}
	link.push(mustWrap(t, sessionID, innerResp))

	if err := <-done; err != nil {
		t.Fatalf("CallMethodOnTarget returned error: %v", err)
	}
	if result.Value != 42 {
		t.Fatalf("got value %d, want 42", result.Value)
	}
}

func TestTransportMalformedNestedMessageKeepsDemultiplexerRunning(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	l := tr.subscribeBrowser(4)

	params, _ := json.Marshal(protocol.EventReceivedMessageFromTarget{
		SessionID: "sess-3",
		Message:   "{not json",
	})
	link.push(&protocol.Message{
		Method: protocol.EventTargetReceivedMessageFromTarget,
		Params: easyjson.RawMessage(params),
	})

	// A well-formed, unrelated browser event should still be delivered.
	link.push(&protocol.Message{Method: "Target.targetCreated", Params: []byte(`{}`)})

	select {
	case msg := <-l.ch:
		if msg.Method != "Target.targetCreated" {
			t.Fatalf("got %q, want Target.targetCreated", msg.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("malformed nested message appears to have wedged the demultiplexer")
	}
}

func TestTransportUnknownEventAcceptedWithoutPanic(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)
	l := tr.subscribeBrowser(4)

	link.push(&protocol.Message{Method: "SomeFutureDomain.somethingNew", Params: []byte(`{"x":1}`)})

	select {
	case msg := <-l.ch:
		if msg.Method != "SomeFutureDomain.somethingNew" {
			t.Fatalf("got %q", msg.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("unknown event was not delivered")
	}
}

func TestTransportClosedRejectsNewCallsAndFailsOutstanding(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	outstanding := make(chan error, 1)
	go func() {
		outstanding <- tr.CallMethod(context.Background(), "Page.navigate", nil, nil)
	}()
	<-link.sent // make sure the call is registered before shutdown

	link.closeWith(nil)

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() never closed after link shutdown")
	}

	if err := <-outstanding; err != ErrTransportClosed {
		t.Fatalf("got %v, want ErrTransportClosed", err)
	}

	if err := tr.CallMethod(context.Background(), "Page.navigate", nil, nil); err != ErrTransportClosed {
		t.Fatalf("post-shutdown call got %v, want ErrTransportClosed", err)
	}
}

// TestTransportConcurrentCallersCorrectPairing has 100 goroutines each call
// with a distinct tag in its params; a responder goroutine echoes each
// request's own tag back as its result, so a crossed response (caller i
// receiving a response meant for caller j) shows up as a content mismatch
// regardless of the arbitrary order responses are produced in.
func TestTransportConcurrentCallersCorrectPairing(t *testing.T) {
	link := newFakeLink()
	tr := NewTransport(link, nil)

	const n = 100
	go func() {
		for i := 0; i < n; i++ {
			out := <-link.sent
			var params struct {
				Tag int `json:"tag"`
			}
			if err := json.Unmarshal(out.Params, &params); err != nil {
				t.Error(err)
				return
			}
			link.push(&protocol.Message{ID: out.ID, Result: []byte(`{"tag":` + strconv.Itoa(params.Tag) + `}`)})
		}
	}()

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			var res struct {
				Tag int `json:"tag"`
			}
			params := struct {
				Tag int `json:"tag"`
			}{Tag: i}
			err := tr.CallMethod(context.Background(), "Runtime.evaluate", &params, &res)
			if err == nil && res.Tag != i {
				err = fmt.Errorf("crossed response: got tag=%d, want %d", res.Tag, i)
			}
			results <- err
		}(i)
	}

	for i := 0; i < n; i++ {
		if err := <-results; err != nil {
			t.Fatal(err)
		}
	}
}
