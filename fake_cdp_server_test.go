package chromectl

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/mailru/easyjson"

	"github.com/chromectl/chromectl/protocol"
)

// scriptedCDPServer is a single-connection, method-dispatch-table fake
// CDP endpoint, used to drive Browser/Tab through real production code
// without a Chromium binary. Outer (browser-scope) calls are served from
// browserHandlers; Target.sendMessageToTarget calls are unwrapped and
// served from sessionHandlers, then re-wrapped in a
// Target.receivedMessageFromTarget reply, matching the real tunneling
// shape exercised in transport_test.go.
type scriptedCDPServer struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	conn    net.Conn
	connSet chan struct{}

	writeMu sync.Mutex

	browserHandlers map[protocol.MethodType]func(params json.RawMessage) (json.RawMessage, *protocol.Error)
	sessionHandlers map[protocol.MethodType]func(sessionID protocol.SessionID, params json.RawMessage) (json.RawMessage, *protocol.Error)
}

func newScriptedCDPServer(t *testing.T) *scriptedCDPServer {
	t.Helper()
	s := &scriptedCDPServer{
		t:               t,
		connSet:         make(chan struct{}),
		browserHandlers: make(map[protocol.MethodType]func(json.RawMessage) (json.RawMessage, *protocol.Error)),
		sessionHandlers: make(map[protocol.MethodType]func(protocol.SessionID, json.RawMessage) (json.RawMessage, *protocol.Error)),
	}

	var upgrader ws.Upgrader
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := upgrader.Upgrade(r, w)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		close(s.connSet)

		for {
			data, _, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			msg := new(protocol.Message)
			if err := easyjson.Unmarshal(data, msg); err != nil {
				t.Errorf("server: unmarshal inbound: %v", err)
				continue
			}
			s.handle(msg)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *scriptedCDPServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *scriptedCDPServer) on(method protocol.MethodType, fn func(json.RawMessage) (json.RawMessage, *protocol.Error)) {
	s.browserHandlers[method] = fn
}

func (s *scriptedCDPServer) onSession(method protocol.MethodType, fn func(protocol.SessionID, json.RawMessage) (json.RawMessage, *protocol.Error)) {
	s.sessionHandlers[method] = fn
}

func (s *scriptedCDPServer) handle(msg *protocol.Message) {
	switch msg.Method {
	case protocol.CommandTargetSendMessageToTarget:
		var p protocol.SendMessageToTargetParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			s.t.Errorf("server: unmarshal sendMessageToTarget: %v", err)
			return
		}
		inner := new(protocol.Message)
		if err := easyjson.Unmarshal([]byte(p.Message), inner); err != nil {
			s.t.Errorf("server: unmarshal inner message: %v", err)
			return
		}

		s.reply(msg.ID, []byte(`{}`), nil)

		fn, ok := s.sessionHandlers[inner.Method]
		var result json.RawMessage
		var rerr *protocol.Error
		if ok {
			result, rerr = fn(p.SessionID, inner.Params)
		} else {
			result = []byte(`{}`)
		}
		if inner.ID != 0 {
			s.sendSessionMessage(p.SessionID, &protocol.Message{ID: inner.ID, Result: easyjsonRaw(result), Error: rerr})
		}
	default:
		fn, ok := s.browserHandlers[msg.Method]
		if !ok {
			s.reply(msg.ID, []byte(`{}`), nil)
			return
		}
		result, rerr := fn(msg.Params)
		s.reply(msg.ID, result, rerr)
	}
}

func easyjsonRaw(b []byte) easyjson.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return easyjson.RawMessage(b)
}

func (s *scriptedCDPServer) reply(id int64, result []byte, rerr *protocol.Error) {
	if id == 0 {
		return
	}
	s.write(&protocol.Message{ID: id, Result: easyjsonRaw(result), Error: rerr})
}

// write pushes an arbitrary top-level message (a reply or a browser-scope
// event) to the client.
func (s *scriptedCDPServer) write(msg *protocol.Message) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	buf, err := easyjson.Marshal(msg)
	if err != nil {
		s.t.Errorf("server: marshal outbound: %v", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := wsutil.WriteServerText(conn, buf); err != nil {
		s.t.Logf("server: write: %v (client likely gone)", err)
	}
}

// sendEvent pushes a browser-scope event.
func (s *scriptedCDPServer) sendEvent(method protocol.MethodType, params interface{}) {
	buf, err := json.Marshal(params)
	if err != nil {
		s.t.Fatalf("marshal event params: %v", err)
	}
	s.write(&protocol.Message{Method: method, Params: easyjson.RawMessage(buf)})
}

// sendSessionMessage wraps inner in Target.receivedMessageFromTarget and
// pushes it, delivering either a session-scope call response or event.
func (s *scriptedCDPServer) sendSessionMessage(sessionID protocol.SessionID, inner *protocol.Message) {
	innerBuf, err := easyjson.Marshal(inner)
	if err != nil {
		s.t.Fatalf("marshal inner session message: %v", err)
	}
	params, err := json.Marshal(protocol.EventReceivedMessageFromTarget{
		SessionID: sessionID,
		Message:   string(innerBuf),
	})
	if err != nil {
		s.t.Fatalf("marshal receivedMessageFromTarget params: %v", err)
	}
	s.write(&protocol.Message{
		Method: protocol.EventTargetReceivedMessageFromTarget,
		Params: easyjson.RawMessage(params),
	})
}

// sendSessionEvent is sendSessionMessage for a fire-and-forget event (no
// call id).
func (s *scriptedCDPServer) sendSessionEvent(sessionID protocol.SessionID, method protocol.MethodType, params interface{}) {
	buf, err := json.Marshal(params)
	if err != nil {
		s.t.Fatalf("marshal session event params: %v", err)
	}
	s.sendSessionMessage(sessionID, &protocol.Message{Method: method, Params: easyjson.RawMessage(buf)})
}

func (s *scriptedCDPServer) waitConnected(t *testing.T) {
	t.Helper()
	select {
	case <-s.connSet:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for client connection")
	}
}
