package chromectl

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromectl/chromectl/protocol"
)

// CaptureScreenshot takes a screenshot in the given format (JPEG or PNG),
// optionally clipped to viewport, per spec.md §4.6.
func (t *Tab) CaptureScreenshot(ctx context.Context, format protocol.ScreenshotFormat, quality int, clip *protocol.Viewport, fromSurface bool) ([]byte, error) {
	a := protocol.CaptureScreenshot().WithFormat(format).WithFromSurface(fromSurface)
	if format == protocol.ScreenshotFormatJPEG && quality > 0 {
		a = a.WithQuality(quality)
	}
	if clip != nil {
		a = a.WithClip(*clip)
	}
	return a.Do(ctx, t)
}

// CaptureElementScreenshot scrolls selector's element into view and
// captures just its content box, mirroring original_source's
// Element::capture_screenshot (SPEC_FULL.md supplement).
func (t *Tab) CaptureElementScreenshot(ctx context.Context, selector string, format protocol.ScreenshotFormat) ([]byte, error) {
	obj, err := t.FindElement(ctx, selector)
	if err != nil {
		return nil, err
	}
	if err := t.ScrollIntoView(ctx, obj); err != nil {
		return nil, err
	}
	model, err := protocol.GetBoxModel(obj.ObjectID).Do(ctx, t)
	if err != nil {
		return nil, err
	}
	clip := model.ContentViewport()
	return t.CaptureScreenshot(ctx, format, 0, &clip, true)
}

// PrintToPDF renders the page to a PDF, per spec.md §4.6.
func (t *Tab) PrintToPDF(ctx context.Context, landscape, printBackground bool) ([]byte, error) {
	return protocol.PrintToPDF().WithLandscape(landscape).WithPrintBackground(printBackground).Do(ctx, t)
}

// Evaluate runs expression in the page's main world, per spec.md §4.6.
func (t *Tab) Evaluate(ctx context.Context, expression string, awaitPromise bool) (*protocol.RemoteObject, error) {
	obj, exc, err := protocol.Evaluate(expression).
		WithReturnByValue(true).
		WithAwaitPromise(awaitPromise).
		Do(ctx, t)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	return obj, nil
}

// CallJSFunction invokes fn (a JS function expression, e.g. "function(a,b)
// {...}") bound to objectID (or the page's global object when objectID is
// empty) with args, an original_source supplement to the distilled
// Evaluate-only surface (original_source/src/element.rs uses
// Runtime.callFunctionOn for element-bound calls).
func (t *Tab) CallJSFunction(ctx context.Context, fn string, objectID protocol.RemoteObjectID, args ...protocol.CallArgument) (*protocol.RemoteObject, error) {
	a := protocol.CallFunctionOn(fn).WithReturnByValue(true).WithArguments(args)
	if objectID != "" {
		a = a.WithObjectID(objectID)
	}
	obj, exc, err := a.Do(ctx, t)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	return obj, nil
}

// Expose registers a JS binding named name; invocations from the page call
// fn with the raw JSON payload string (spec.md §4.6 BindingCalled).
func (t *Tab) Expose(ctx context.Context, name string, fn func(payload string)) error {
	t.handlerMu.Lock()
	t.bindings[name] = fn
	t.handlerMu.Unlock()
	return protocol.AddBinding(name).Do(ctx, t)
}

// EnableLog turns on the Log domain, so LogEntryAdded events start flowing
// to this tab's registered listeners (spec.md §8 scenario 6).
func (t *Tab) EnableLog(ctx context.Context) error {
	return protocol.LogEnable().Do(ctx, t)
}

// EnableFetch turns on request interception for the given URL patterns.
func (t *Tab) EnableFetch(ctx context.Context, handleAuth bool, patterns ...protocol.RequestPattern) error {
	return protocol.EnableFetch(patterns...).WithHandleAuthRequests(handleAuth).Do(ctx, t)
}

// DisableFetch turns off request interception.
func (t *Tab) DisableFetch(ctx context.Context) error {
	t.handlerMu.Lock()
	t.interceptor = nil
	t.handlerMu.Unlock()
	return protocol.DisableFetch().Do(ctx, t)
}

// EnableRequestInterception installs fn as the tab's interception decision
// function, consulted by the event loop's RequestPaused handling.
func (t *Tab) EnableRequestInterception(fn RequestInterceptor) {
	t.handlerMu.Lock()
	t.interceptor = fn
	t.handlerMu.Unlock()
}

// EnableResponseHandling installs fn, invoked once a response's body is
// fetchable (on LoadingFinished), per spec.md §4.6.
func (t *Tab) EnableResponseHandling(fn ResponseHandler) error {
	t.handlerMu.Lock()
	t.respHandler = fn
	t.handlerMu.Unlock()
	return protocol.NetworkEnable().Do(context.Background(), t)
}

// Authenticate configures the HTTP auth challenge response used for
// Fetch.authRequired events (spec.md §4.6 "authenticate(user, pw)").
func (t *Tab) Authenticate(user, pw string) {
	t.handlerMu.Lock()
	t.authPolicy = protocol.AuthChallengeResponse{
		Response: protocol.AuthProvideCredentials,
		Username: user,
		Password: pw,
	}
	t.handlerMu.Unlock()
}

// CancelAuth configures Fetch.authRequired events to be cancelled.
func (t *Tab) CancelAuth() {
	t.handlerMu.Lock()
	t.authPolicy = protocol.AuthChallengeResponse{Response: protocol.AuthCancelAuth}
	t.handlerMu.Unlock()
}

// SetCookies sets cookies, auto-populating each cookie's URL from the
// current page URL when it starts with "http" and no URL was given --
// parity with a well-known browser-automation library, per spec.md §4.6.
func (t *Tab) SetCookies(ctx context.Context, cookies []protocol.Cookie) error {
	pageURL := t.GetURL()
	if strings.HasPrefix(pageURL, "http") {
		for i := range cookies {
			if cookies[i].URL == "" {
				cookies[i].URL = pageURL
			}
		}
	}
	return protocol.SetCookies(cookies).Do(ctx, t)
}

// DeleteCookies deletes the cookie named name, with the same URL
// auto-population rule as SetCookies.
func (t *Tab) DeleteCookies(ctx context.Context, name string) error {
	a := protocol.DeleteCookies(name)
	pageURL := t.GetURL()
	if strings.HasPrefix(pageURL, "http") {
		a = a.WithURL(pageURL)
	}
	return a.Do(ctx, t)
}

// GetCookies returns the cookies visible to the current page.
func (t *Tab) GetCookies(ctx context.Context) ([]protocol.Cookie, error) {
	return protocol.GetCookies().Do(ctx, t)
}

// SetUserAgent overrides the User-Agent header for this session
// (SPEC_FULL.md supplement, original_source parity).
func (t *Tab) SetUserAgent(ctx context.Context, ua string) error {
	return protocol.SetUserAgentOverride(ua).Do(ctx, t)
}

// SetExtraHTTPHeaders sets additional headers sent with every request on
// this session (SPEC_FULL.md supplement).
func (t *Tab) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	return protocol.SetExtraHTTPHeaders(headers).Do(ctx, t)
}

// Close closes the tab. When fireUnload is true it uses Page.close (runs
// beforeunload); otherwise Target.closeTarget, per spec.md §4.6.
func (t *Tab) Close(ctx context.Context, fireUnload bool) error {
	t.sleepSlowMotion(50 * time.Millisecond)

	var err error
	if fireUnload {
		err = protocol.ClosePage().Do(ctx, t)
	} else {
		err = protocol.CloseTarget(t.targetID).Do(ctx, t.browser)
	}
	if atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		t.transport.dropSession(t.sessionID)
	}
	return err
}

// SetBounds applies bounds to the tab's OS window. When restoring Normal
// state, this issues the CDP server's required two-step dance: first
// state=Normal with no coordinates, then the coordinates themselves
// (spec.md §4.6, original_source/src/browser/tab/mod.rs).
func (t *Tab) SetBounds(ctx context.Context, bounds protocol.Bounds) error {
	win, err := protocol.GetWindowForTarget(t.targetID).Do(ctx, t.browser)
	if err != nil {
		return err
	}

	if bounds.WindowState == protocol.WindowStateNormal {
		if err := protocol.SetWindowBounds(win.WindowID, protocol.Bounds{WindowState: protocol.WindowStateNormal}).Do(ctx, t.browser); err != nil {
			return err
		}
		coords := bounds
		coords.WindowState = ""
		if coords.Left == nil && coords.Top == nil && coords.Width == nil && coords.Height == nil {
			return nil
		}
		return protocol.SetWindowBounds(win.WindowID, coords).Do(ctx, t.browser)
	}

	return protocol.SetWindowBounds(win.WindowID, bounds).Do(ctx, t.browser)
}

// StartJSCoverage enables precise, per-function JS coverage tracking
// (SPEC_FULL.md supplement, needed for spec.md §8 scenario 4).
func (t *Tab) StartJSCoverage(ctx context.Context) error {
	if err := protocol.ProfilerEnable().Do(ctx, t); err != nil {
		return err
	}
	return protocol.StartPreciseCoverage().Do(ctx, t)
}

// TakePreciseCoverage snapshots coverage without stopping collection.
func (t *Tab) TakePreciseCoverage(ctx context.Context) ([]protocol.ScriptCoverage, error) {
	return protocol.TakePreciseCoverage().Do(ctx, t)
}

// StopJSCoverage takes a final coverage snapshot and disables collection.
func (t *Tab) StopJSCoverage(ctx context.Context) ([]protocol.ScriptCoverage, error) {
	cov, err := protocol.TakePreciseCoverage().Do(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := protocol.StopPreciseCoverage().Do(ctx, t); err != nil {
		return nil, err
	}
	if err := protocol.ProfilerDisable().Do(ctx, t); err != nil {
		return nil, err
	}
	return cov, nil
}

// storageKeyExpr builds the localStorage accessor expression used by the
// Set/Get/DeleteLocalStorageItem supplements (SPEC_FULL.md, original_source
// parity: original_source shells these out through Runtime.evaluate too).
func storageKeyExpr(op, key, value string) string {
	switch op {
	case "get":
		return fmt.Sprintf("window.localStorage.getItem(%q)", key)
	case "set":
		return fmt.Sprintf("window.localStorage.setItem(%q, %q)", key, value)
	case "delete":
		return fmt.Sprintf("window.localStorage.removeItem(%q)", key)
	}
	return ""
}

// SetLocalStorageItem sets a localStorage key on the current page.
func (t *Tab) SetLocalStorageItem(ctx context.Context, key, value string) error {
	_, err := t.Evaluate(ctx, storageKeyExpr("set", key, value), false)
	return err
}

// GetLocalStorageItem reads a localStorage key from the current page.
// Returns ErrKeyNotFound if the key is absent (localStorage.getItem
// returns null).
func (t *Tab) GetLocalStorageItem(ctx context.Context, key string) (string, error) {
	obj, err := t.Evaluate(ctx, storageKeyExpr("get", key, ""), false)
	if err != nil {
		return "", err
	}
	s, ok := obj.Value.(string)
	if !ok {
		return "", ErrKeyNotFound
	}
	return s, nil
}

// DeleteLocalStorageItem removes a localStorage key from the current page.
func (t *Tab) DeleteLocalStorageItem(ctx context.Context, key string) error {
	_, err := t.Evaluate(ctx, storageKeyExpr("delete", key, ""), false)
	return err
}

// FindFirst performs a breadth-first walk over root's subtree and returns
// the first node for which pred holds, per spec.md §4.6's "DOM node tree
// search helper".
func FindFirst(root *protocol.Node, pred func(*protocol.Node) bool) *protocol.Node {
	queue := []*protocol.Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			continue
		}
		if pred(n) {
			return n
		}
		queue = append(queue, n.Children...)
	}
	return nil
}
