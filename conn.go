package chromectl

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/mailru/easyjson"

	"github.com/chromectl/chromectl/protocol"
)

// Link is the WebSocket link described in spec.md §4.1: a single
// bidirectional byte pipe carrying UTF-8 JSON text frames, with no
// knowledge of correlation ids, sessions, or events.
type Link interface {
	// Send writes a single message frame. Concurrent callers are
	// serialized.
	Send(msg *protocol.Message) error

	// Inbound returns the channel of decoded envelopes. The final value
	// received is always an envelope with shutdown set; the channel is
	// then closed.
	Inbound() <-chan envelope
}

// envelope is what the inbound loop pushes: either a parsed message or the
// terminal shutdown sentinel (spec.md §3 "Event envelope").
type envelope struct {
	msg      *protocol.Message
	shutdown bool
	err      error
}

// Conn is a Link implementation over github.com/gobwas/ws, the teacher's
// actual wire-level websocket dependency (conn.go).
type Conn struct {
	rwc net.Conn

	writeMu sync.Mutex

	inbound chan envelope

	dbgf func(string, ...interface{})
}

// DialOption configures a Conn at dial time.
type DialOption func(*Conn)

// WithConnDebugf sets a protocol logger invoked for every frame sent and
// received, matching the teacher's WithConnDebugf.
func WithConnDebugf(f func(string, ...interface{})) DialOption {
	return func(c *Conn) { c.dbgf = f }
}

// DialContext dials urlstr and starts the inbound reader loop.
func DialContext(ctx context.Context, urlstr string, opts ...DialOption) (*Conn, error) {
	rwc, _, _, err := ws.Dial(ctx, ForceIP(urlstr))
	if err != nil {
		return nil, err
	}

	c := &Conn{
		rwc:     rwc,
		inbound: make(chan envelope, 256),
	}
	for _, o := range opts {
		o(c)
	}

	go c.readLoop()

	return c, nil
}

// readLoop implements spec.md §4.1's inbound loop: for each text frame,
// attempt to parse a message envelope and push it to the inbound channel.
// Non-text frames abort the loop (protocol violation); unparseable text is
// logged and dropped; on clean close or I/O error it pushes the terminal
// shutdown sentinel and exits.
func (c *Conn) readLoop() {
	defer close(c.inbound)

	for {
		data, opCode, err := wsutil.ReadServerData(c.rwc)
		if err != nil {
			if err == io.EOF {
				c.inbound <- envelope{shutdown: true}
				return
			}
			c.inbound <- envelope{shutdown: true, err: err}
			return
		}
		if opCode != ws.OpText {
			if opCode == ws.OpClose {
				c.inbound <- envelope{shutdown: true}
				return
			}
			c.inbound <- envelope{shutdown: true, err: ErrInvalidWebsocketMessage}
			return
		}

		if c.dbgf != nil {
			c.dbgf("<- %s", data)
		}

		msg := new(protocol.Message)
		if uerr := easyjson.Unmarshal(data, msg); uerr != nil {
			// Malformed text is logged and dropped, never crashes the
			// process (spec.md §4.1).
			if c.dbgf != nil {
				c.dbgf("dropping unparseable frame: %v", uerr)
			}
			continue
		}
		c.inbound <- envelope{msg: msg}
	}
}

// Send writes msg as a single text frame. Concurrent senders are
// serialized on writeMu (spec.md §4.1, §5 "link's writer half").
func (c *Conn) Send(msg *protocol.Message) error {
	buf, err := easyjson.Marshal(msg)
	if err != nil {
		return err
	}
	if c.dbgf != nil {
		c.dbgf("-> %s", buf)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteClientText(c.rwc, buf)
}

// Inbound returns the channel of decoded envelopes.
func (c *Conn) Inbound() <-chan envelope {
	return c.inbound
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.rwc.Close()
}

// ForceIP forces the host component in urlstr to be an IP address, since
// Chrome 66+ requires the Host header to be an IP address or "localhost"
// (teacher's conn.go).
func ForceIP(urlstr string) string {
	if i := strings.Index(urlstr, "://"); i != -1 {
		scheme := urlstr[:i+3]
		host, port, path := urlstr[len(scheme)+3:], "", ""
		if i := strings.Index(host, "/"); i != -1 {
			host, path = host[:i], host[i:]
		}
		if i := strings.Index(host, ":"); i != -1 {
			host, port = host[:i], host[i:]
		}
		if host == "localhost" {
			return urlstr
		}
		if addr, err := net.ResolveIPAddr("ip", host); err == nil {
			urlstr = scheme + addr.IP.String() + port + path
		}
	}
	return urlstr
}
