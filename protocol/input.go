package protocol

import "context"

// Input domain: synthetic keyboard and mouse events (spec.md §4.6 TypeStr,
// PressKey, ClickPoint).

const (
	CommandInputDispatchKeyEvent   MethodType = "Input.dispatchKeyEvent"
	CommandInputDispatchMouseEvent MethodType = "Input.dispatchMouseEvent"
)

type DispatchKeyEventParams struct {
	Type                  string `json:"type"`
	Text                  string `json:"text,omitempty"`
	UnmodifiedText        string `json:"unmodifiedText,omitempty"`
	Key                   string `json:"key,omitempty"`
	Code                  string `json:"code,omitempty"`
	WindowsVirtualKeyCode int64  `json:"windowsVirtualKeyCode,omitempty"`
	NativeVirtualKeyCode  int64  `json:"nativeVirtualKeyCode,omitempty"`
}

type DispatchMouseEventParams struct {
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Button     string  `json:"button,omitempty"`
	ClickCount int     `json:"clickCount,omitempty"`
}

func DispatchKeyEvent(typ string) *dispatchKeyEventAction {
	return &dispatchKeyEventAction{p: DispatchKeyEventParams{Type: typ}}
}

type dispatchKeyEventAction struct{ p DispatchKeyEventParams }

func (a *dispatchKeyEventAction) WithText(s string) *dispatchKeyEventAction {
	a.p.Text = s
	return a
}

func (a *dispatchKeyEventAction) WithUnmodifiedText(s string) *dispatchKeyEventAction {
	a.p.UnmodifiedText = s
	return a
}

func (a *dispatchKeyEventAction) WithKey(s string) *dispatchKeyEventAction {
	a.p.Key = s
	return a
}

func (a *dispatchKeyEventAction) WithCode(s string) *dispatchKeyEventAction {
	a.p.Code = s
	return a
}

func (a *dispatchKeyEventAction) WithNativeVirtualKeyCode(v int64) *dispatchKeyEventAction {
	a.p.NativeVirtualKeyCode = v
	return a
}

func (a *dispatchKeyEventAction) WithWindowsVirtualKeyCode(v int64) *dispatchKeyEventAction {
	a.p.WindowsVirtualKeyCode = v
	return a
}

func (a *dispatchKeyEventAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandInputDispatchKeyEvent, &a.p, nil)
}

func DispatchMouseEvent(typ string, x, y float64) *dispatchMouseEventAction {
	return &dispatchMouseEventAction{p: DispatchMouseEventParams{Type: typ, X: x, Y: y}}
}

type dispatchMouseEventAction struct{ p DispatchMouseEventParams }

func (a *dispatchMouseEventAction) WithButton(b string) *dispatchMouseEventAction {
	a.p.Button = b
	return a
}

func (a *dispatchMouseEventAction) WithClickCount(n int) *dispatchMouseEventAction {
	a.p.ClickCount = n
	return a
}

func (a *dispatchMouseEventAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandInputDispatchMouseEvent, &a.p, nil)
}
