// Package protocol holds the Chrome DevTools Protocol wire envelope and the
// thin, mechanically-shaped request/response DTOs for the handful of CDP
// domains chromectl drives (Target, Browser, Page, DOM, Runtime, Input,
// Fetch, Network, Log, Profiler). The DTO shapes themselves mirror the
// upstream protocol JSON one-for-one and are intentionally unremarkable;
// the interesting engine lives in the chromectl root package.
package protocol

import (
	"context"
	"fmt"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// MethodType is a fully-qualified CDP method or event name, e.g.
// "Page.navigate" or "Target.targetCreated".
type MethodType string

// Domain returns the domain portion of the method name, e.g. "Page" for
// "Page.navigate".
func (m MethodType) Domain() string {
	for i := 0; i < len(m); i++ {
		if m[i] == '.' {
			return string(m[:i])
		}
	}
	return string(m)
}

// Error is the {code, message} pair embedded in a failing response.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// Message is the single wire envelope shape: an outbound method call, an
// inbound response (Result xor Error populated), or an inbound event
// (Method populated, ID empty). Handwritten MarshalEasyJSON/UnmarshalEasyJSON
// below avoid a reflection-based encoding/json round trip on the hot path,
// matching the style of the teacher's generated cdproto message codec.
type Message struct {
	ID     int64               `json:"id,omitempty"`
	Method MethodType          `json:"method,omitempty"`
	Params easyjson.RawMessage `json:"params,omitempty"`
	Result easyjson.RawMessage `json:"result,omitempty"`
	Error  *Error              `json:"error,omitempty"`
}

var _ easyjson.Marshaler = (*Message)(nil)
var _ easyjson.Unmarshaler = (*Message)(nil)

// MarshalEasyJSON implements easyjson.Marshaler.
func (m *Message) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	first := true
	writeComma := func() {
		if !first {
			w.RawByte(',')
		}
		first = false
	}
	if m.ID != 0 {
		writeComma()
		w.RawString(`"id":`)
		w.Int64(m.ID)
	}
	if m.Method != "" {
		writeComma()
		w.RawString(`"method":`)
		w.String(string(m.Method))
	}
	if len(m.Params) != 0 {
		writeComma()
		w.RawString(`"params":`)
		w.Raw(m.Params, nil)
	}
	if len(m.Result) != 0 {
		writeComma()
		w.RawString(`"result":`)
		w.Raw(m.Result, nil)
	}
	if m.Error != nil {
		writeComma()
		w.RawString(`"error":{"code":`)
		w.Int64(m.Error.Code)
		w.RawString(`,"message":`)
		w.String(m.Error.Message)
		w.RawByte('}')
	}
	w.RawByte('}')
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (m *Message) UnmarshalEasyJSON(l *jlexer.Lexer) {
	l.Delim('{')
	for !l.IsDelim('}') {
		key := l.UnsafeFieldName(false)
		l.WantColon()
		switch key {
		case "id":
			m.ID = l.Int64()
		case "method":
			m.Method = MethodType(l.String())
		case "params":
			m.Params = easyjson.RawMessage(l.Raw())
		case "result":
			m.Result = easyjson.RawMessage(l.Raw())
		case "error":
			m.Error = new(Error)
			l.Delim('{')
			for !l.IsDelim('}') {
				ekey := l.UnsafeFieldName(false)
				l.WantColon()
				switch ekey {
				case "code":
					m.Error.Code = l.Int64()
				case "message":
					m.Error.Message = l.String()
				default:
					l.SkipRecursive()
				}
				l.WantComma()
			}
			l.Delim('}')
		default:
			l.SkipRecursive()
		}
		l.WantComma()
	}
	l.Delim('}')
}

// Executor sends a method call with the given params and unmarshals the
// result into res (both may be nil for calls with no params/result).
// Browser and Tab both implement Executor, matching the teacher's
// context.go Executor interface split between browser- and
// session-executed calls. Domain param/result DTOs are plain
// encoding/json-tagged structs: the envelope (Message) is the only type
// that pays for hand-rolled easyjson codecs, since it's the one marshaled
// and unmarshaled on every single frame.
type Executor interface {
	Execute(ctx context.Context, method MethodType, params, res interface{}) error
}
