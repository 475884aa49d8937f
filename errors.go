package chromectl

import "fmt"

// Error is a chromectl sentinel error, following the teacher's lightweight
// string-error idiom rather than a distinct type per failure.
type Error string

// Error satisfies the error interface.
func (err Error) Error() string {
	return string(err)
}

// Engine- and launch-level sentinel errors.
const (
	// ErrTransportClosed is returned by any method call issued after the
	// transport has observed link shutdown, and by every call outstanding
	// at the moment of shutdown.
	ErrTransportClosed Error = "chromectl: transport closed"

	// ErrInvalidWebsocketMessage is returned when the link receives a
	// non-text frame.
	ErrInvalidWebsocketMessage Error = "chromectl: invalid websocket message"

	// ErrElementNotFound is returned when a selector resolves to node id 0,
	// or the browser reports the node as gone mid-navigation.
	ErrElementNotFound Error = "chromectl: element not found"

	// ErrScrollFailed is returned when the scroll-into-view helper script
	// reports that the element could not be scrolled into the viewport.
	ErrScrollFailed Error = "chromectl: scroll into view failed"

	// ErrTimeout is returned by local polling helpers (wait_for_element,
	// wait_until_navigated, ...) when their budget is exhausted.
	ErrTimeout Error = "chromectl: timeout waiting for condition"

	// ErrInvalidTarget is returned when an operation is attempted on a
	// Tab that has already transitioned to Closed.
	ErrInvalidTarget Error = "chromectl: target is closed"

	// ErrPortOpenTimeout is returned by the supervisor when no debug URL
	// was scraped from the child's output within the configured deadline.
	ErrPortOpenTimeout Error = "chromectl: timed out waiting for debug port"

	// ErrNoAvailablePorts is returned when port auto-selection exhausts
	// its retry budget.
	ErrNoAvailablePorts Error = "chromectl: no available debugging ports"

	// ErrDebugPortInUse is returned when Chrome reports that the chosen
	// debugging port is already bound.
	ErrDebugPortInUse Error = "chromectl: debug port already in use"

	// ErrBinaryNotFound is returned when no Chrome-family binary could be
	// located via any of the discovery strategies.
	ErrBinaryNotFound Error = "chromectl: no chrome binary found"

	// ErrNoLaunchOptions is returned when a Supervisor is started with a
	// nil configuration.
	ErrNoLaunchOptions Error = "chromectl: no launch options"

	// ErrKeyNotFound is returned by GetLocalStorageItem when the key is
	// absent.
	ErrKeyNotFound Error = "chromectl: key not found"
)

// RemoteError is a {code, message} pair returned by the browser in a
// response's "error" field. Code and Message are mutually meaningful only
// together; a RemoteError is never constructed from a successful response.
type RemoteError struct {
	Code    int64
	Message string
}

// Error satisfies the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("chromectl: remote error %d: %s", e.Code, e.Message)
}

// NavigationError is returned by Tab.NavigateTo when Page.navigate responds
// with a non-empty errorText.
type NavigationError struct {
	URL  string
	Text string
}

// Error satisfies the error interface.
func (e *NavigationError) Error() string {
	return fmt.Sprintf("chromectl: navigation to %q failed: %s", e.URL, e.Text)
}
