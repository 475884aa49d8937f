package chromectl

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chromectl/chromectl/protocol"
)

// Browser is a single connected Chromium instance: the transport, the live
// tab set, and the browser-level event loop (spec.md §4.5), grounded on the
// teacher's Browser struct and its target-tracking goroutine (browser.go).
type Browser struct {
	transport *Transport
	proc      *Process

	browserEvt *eventListener

	mu       sync.Mutex
	tabs     map[protocol.TargetID]*Tab
	contexts map[protocol.BrowserContextID]struct{}

	idleTimeout time.Duration

	closed chan struct{}

	logf, debugf, errf func(string, ...interface{})
}

// BrowserOption configures a Browser at connect time.
type BrowserOption func(*Browser)

func WithLogf(f func(string, ...interface{})) BrowserOption {
	return func(b *Browser) { b.logf = f }
}

func WithDebugf(f func(string, ...interface{})) BrowserOption {
	return func(b *Browser) { b.debugf = f }
}

func WithErrorf(f func(string, ...interface{})) BrowserOption {
	return func(b *Browser) { b.errf = f }
}

// Launch starts a supervised Chromium process and connects to it, matching
// spec.md §4.5's "new(launch_options)": spawn, attach transport, enable
// target discovery, wait (bounded) for the first tab.
func Launch(ctx context.Context, sup *Supervisor, opts ...BrowserOption) (*Browser, error) {
	proc, err := sup.Start(ctx)
	if err != nil {
		return nil, err
	}

	opts = append(opts, withIdleTimeout(proc.IdleTimeout))
	b, err := Connect(ctx, proc.DebugURL, opts...)
	if err != nil {
		proc.Shutdown()
		return nil, err
	}
	b.proc = proc
	return b, nil
}

// withIdleTimeout is set by Launch from the Supervisor's configured idle
// timeout; Connect callers have no Supervisor and so never set it.
func withIdleTimeout(d time.Duration) BrowserOption {
	return func(b *Browser) { b.idleTimeout = d }
}

// Connect attaches to an already-running Chromium instance's debug
// websocket URL, without owning its process lifecycle (spec.md §4.5,
// "attached" mode; mirrors the teacher's RemoteAllocator).
func Connect(ctx context.Context, debugURL string, opts ...BrowserOption) (*Browser, error) {
	conn, err := DialContext(ctx, debugURL)
	if err != nil {
		return nil, err
	}

	b := &Browser{
		tabs:     make(map[protocol.TargetID]*Tab),
		contexts: make(map[protocol.BrowserContextID]struct{}),
		closed:   make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}

	b.transport = NewTransport(conn, b.debugf)
	b.browserEvt = b.transport.subscribeBrowser(256)

	go b.eventLoop()

	if err := protocol.SetDiscoverTargets(true).Do(ctx, b); err != nil {
		b.transport.link.(*Conn).Close()
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.waitForFirstTab(waitCtx); err != nil {
		b.transport.link.(*Conn).Close()
		return nil, err
	}

	return b, nil
}

// Execute implements protocol.Executor for browser-scope calls.
func (b *Browser) Execute(ctx context.Context, method protocol.MethodType, params, res interface{}) error {
	return b.transport.CallMethod(ctx, method, params, res)
}

// eventLoop is the sole owner of b.tabs's membership changes, matching the
// teacher's single target-tracking goroutine (browser.go).
func (b *Browser) eventLoop() {
	var idleC <-chan time.Time
	var idleTimer *time.Timer
	if b.idleTimeout > 0 {
		idleTimer = time.NewTimer(b.idleTimeout)
		defer idleTimer.Stop()
		idleC = idleTimer.C
	}

	closeDown := func() {
		b.mu.Lock()
		tabs := make([]*Tab, 0, len(b.tabs))
		for _, t := range b.tabs {
			tabs = append(tabs, t)
		}
		b.mu.Unlock()
		for _, t := range tabs {
			t.onTransportClosed()
		}
		close(b.closed)
	}

	for {
		select {
		case msg, ok := <-b.browserEvt.ch:
			if !ok {
				return
			}
			if idleTimer != nil {
				if !idleTimer.Stop() {
					select {
					case <-idleTimer.C:
					default:
					}
				}
				idleTimer.Reset(b.idleTimeout)
			}
			b.handleEvent(msg)
		case <-idleC:
			if b.errf != nil {
				b.errf("chromectl: browser idle for %s, shutting down event loop", b.idleTimeout)
			}
			closeDown()
			return
		case <-b.transport.Done():
			closeDown()
			return
		}
	}
}

func (b *Browser) handleEvent(msg *protocol.Message) {
	switch msg.Method {
	case protocol.EventTargetCreated:
		var p protocol.EventCreatedParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return
		}
		if p.TargetInfo.Type != protocol.TargetTypePage {
			return
		}
		b.mu.Lock()
		_, exists := b.tabs[p.TargetInfo.TargetID]
		b.mu.Unlock()
		if !exists {
			go b.attachTab(p.TargetInfo)
		}
	case protocol.EventTargetInfoChanged:
		var p protocol.EventInfoChangedParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return
		}
		b.mu.Lock()
		tab, ok := b.tabs[p.TargetInfo.TargetID]
		b.mu.Unlock()
		if ok {
			tab.updateInfo(p.TargetInfo)
		}
	case protocol.EventTargetDestroyed:
		var p protocol.EventDestroyedParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return
		}
		b.mu.Lock()
		tab, ok := b.tabs[p.TargetID]
		delete(b.tabs, p.TargetID)
		b.mu.Unlock()
		if ok {
			tab.onTargetDestroyed()
		}
	}
}

func (b *Browser) attachTab(info protocol.TargetInfo) {
	tab, err := newTab(context.Background(), b, info)
	if err != nil {
		if b.errf != nil {
			b.errf("chromectl: failed to attach tab %s: %v", info.TargetID, err)
		}
		return
	}
	b.mu.Lock()
	b.tabs[info.TargetID] = tab
	b.mu.Unlock()
}

func (b *Browser) waitForFirstTab(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		b.mu.Lock()
		n := len(b.tabs)
		b.mu.Unlock()
		if n > 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ErrTimeout
		}
	}
}

// Tabs returns the current live tab set.
func (b *Browser) Tabs() []*Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Tab, 0, len(b.tabs))
	for _, t := range b.tabs {
		out = append(out, t)
	}
	return out
}

// NewTab creates a new page target and waits for its attached Tab to appear.
func (b *Browser) NewTab(ctx context.Context, url string, opts ...TabOption) (*Tab, error) {
	targetID, err := protocol.CreateTarget(url).Do(ctx, b)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		tab, ok := b.tabs[targetID]
		b.mu.Unlock()
		if ok {
			for _, o := range opts {
				o(tab)
			}
			return tab, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil, ErrTimeout
}

// NewContext creates an isolated browser context (independent cookie/cache
// domain) and tracks it for teardown on Close.
func (b *Browser) NewContext(ctx context.Context) (protocol.BrowserContextID, error) {
	id, err := protocol.CreateBrowserContext().Do(ctx, b)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.contexts[id] = struct{}{}
	b.mu.Unlock()
	return id, nil
}

// NewTabInContext creates a new page target scoped to browserContextID.
func (b *Browser) NewTabInContext(ctx context.Context, url string, browserContextID protocol.BrowserContextID, opts ...TabOption) (*Tab, error) {
	targetID, err := protocol.CreateTarget(url).WithBrowserContextID(browserContextID).Do(ctx, b)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		tab, ok := b.tabs[targetID]
		b.mu.Unlock()
		if ok {
			for _, o := range opts {
				o(tab)
			}
			return tab, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil, ErrTimeout
}

// GetVersion reports the connected browser's version info.
func (b *Browser) GetVersion(ctx context.Context) (*protocol.VersionResult, error) {
	return protocol.GetVersion().Do(ctx, b)
}

// Done is closed once the browser's transport has shut down.
func (b *Browser) Done() <-chan struct{} { return b.closed }

// Close disposes every tracked browser context and shuts down the
// transport and, if this Browser owns its process, the supervised
// Chromium process too (spec.md §4.5 "Shutdown").
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	contexts := make([]protocol.BrowserContextID, 0, len(b.contexts))
	for id := range b.contexts {
		contexts = append(contexts, id)
	}
	b.mu.Unlock()
	for _, id := range contexts {
		protocol.DisposeBrowserContext(id).Do(ctx, b)
	}

	protocol.Close().Do(ctx, b)

	if conn, ok := b.transport.link.(*Conn); ok {
		conn.Close()
	}
	<-b.closed

	if b.proc != nil {
		b.proc.Shutdown()
	}
	return nil
}
