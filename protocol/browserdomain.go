package protocol

import "context"

// Browser domain: version info and window bounds, used by the browser
// handle (spec.md §4.5) and Tab.SetBounds (spec.md §4.6).

const (
	CommandBrowserGetVersion      MethodType = "Browser.getVersion"
	CommandBrowserClose           MethodType = "Browser.close"
	CommandBrowserSetWindowBounds MethodType = "Browser.setWindowBounds"
	CommandBrowserGetWindowForTarget MethodType = "Browser.getWindowForTarget"
)

type VersionResult struct {
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
	ProtocolVersion string `json:"protocolVersion"`
}

// WindowState enumerates Browser.setWindowBounds's "state" field.
type WindowState string

const (
	WindowStateNormal     WindowState = "normal"
	WindowStateMinimized  WindowState = "minimized"
	WindowStateMaximized  WindowState = "maximized"
	WindowStateFullscreen WindowState = "fullscreen"
)

// Bounds mirrors Browser.Bounds; Left/Top/Width/Height are pointers because
// CDP requires them to be omitted (not zero) when unused, notably during
// the two-step Normal-state dance described in spec.md §4.6.
type Bounds struct {
	Left        *int64      `json:"left,omitempty"`
	Top         *int64      `json:"top,omitempty"`
	Width       *int64      `json:"width,omitempty"`
	Height      *int64      `json:"height,omitempty"`
	WindowState WindowState `json:"windowState,omitempty"`
}

type WindowForTargetParams struct {
	TargetID TargetID `json:"targetId"`
}

type WindowForTargetResult struct {
	WindowID int64  `json:"windowId"`
	Bounds   Bounds `json:"bounds"`
}

type SetWindowBoundsParams struct {
	WindowID int64  `json:"windowId"`
	Bounds   Bounds `json:"bounds"`
}

// GetVersion fetches browser/protocol version metadata.
func GetVersion() *getVersionAction { return &getVersionAction{} }

type getVersionAction struct{}

func (a *getVersionAction) Do(ctx context.Context, exec Executor) (*VersionResult, error) {
	var res VersionResult
	if err := exec.Execute(ctx, CommandBrowserGetVersion, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetWindowForTarget resolves the OS window id hosting targetID.
func GetWindowForTarget(targetID TargetID) *getWindowForTargetAction {
	return &getWindowForTargetAction{p: WindowForTargetParams{TargetID: targetID}}
}

type getWindowForTargetAction struct{ p WindowForTargetParams }

func (a *getWindowForTargetAction) Do(ctx context.Context, exec Executor) (*WindowForTargetResult, error) {
	var res WindowForTargetResult
	if err := exec.Execute(ctx, CommandBrowserGetWindowForTarget, &a.p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetWindowBounds applies bounds to windowID.
func SetWindowBounds(windowID int64, bounds Bounds) *setWindowBoundsAction {
	return &setWindowBoundsAction{p: SetWindowBoundsParams{WindowID: windowID, Bounds: bounds}}
}

type setWindowBoundsAction struct{ p SetWindowBoundsParams }

func (a *setWindowBoundsAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandBrowserSetWindowBounds, &a.p, nil)
}

// Close asks the browser to shut itself down cleanly.
func Close() *closeAction { return &closeAction{} }

type closeAction struct{}

func (a *closeAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandBrowserClose, nil, nil)
}
