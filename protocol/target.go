package protocol

import "context"

// Target domain: target discovery, attach/detach, and the session-tunneling
// envelope the transport must recursively unwrap (spec.md §3/§6).

const (
	CommandTargetSetDiscoverTargets      MethodType = "Target.setDiscoverTargets"
	CommandTargetCreateTarget            MethodType = "Target.createTarget"
	CommandTargetAttachToTarget          MethodType = "Target.attachToTarget"
	CommandTargetCloseTarget             MethodType = "Target.closeTarget"
	CommandTargetCreateBrowserContext    MethodType = "Target.createBrowserContext"
	CommandTargetDisposeBrowserContext   MethodType = "Target.disposeBrowserContext"
	CommandTargetSendMessageToTarget     MethodType = "Target.sendMessageToTarget"
	CommandTargetGetTargetInfo           MethodType = "Target.getTargetInfo"
	EventTargetCreated                   MethodType = "Target.targetCreated"
	EventTargetInfoChanged               MethodType = "Target.targetInfoChanged"
	EventTargetDestroyed                 MethodType = "Target.targetDestroyed"
	EventTargetCrashed                   MethodType = "Target.targetCrashed"
	EventTargetReceivedMessageFromTarget MethodType = "Target.receivedMessageFromTarget"
)

// TargetType enumerates the kinds of controllable targets.
type TargetType string

const (
	TargetTypePage            TargetType = "page"
	TargetTypeBackgroundPage  TargetType = "background_page"
	TargetTypeServiceWorker   TargetType = "service_worker"
	TargetTypeBrowser         TargetType = "browser"
	TargetTypeOther           TargetType = "other"
)

// TargetID names a page (or other) target. Stable across session re-attach.
type TargetID string

// SessionID is assigned by the browser when a session is attached to a
// target.
type SessionID string

// BrowserContextID names an isolated cookie/cache domain.
type BrowserContextID string

// TargetInfo mirrors spec.md §3's "Target info" struct.
type TargetInfo struct {
	TargetID         TargetID         `json:"targetId"`
	Type             TargetType       `json:"type"`
	Title            string           `json:"title"`
	URL              string           `json:"url"`
	Attached         bool             `json:"attached"`
	OpenerID         TargetID         `json:"openerId,omitempty"`
	BrowserContextID BrowserContextID `json:"browserContextId,omitempty"`
}

type SetDiscoverTargetsParams struct {
	Discover bool `json:"discover"`
}

type CreateTargetParams struct {
	URL              string           `json:"url"`
	BrowserContextID BrowserContextID `json:"browserContextId,omitempty"`
}

type CreateTargetResult struct {
	TargetID TargetID `json:"targetId"`
}

type AttachToTargetParams struct {
	TargetID TargetID `json:"targetId"`
	Flatten  *bool    `json:"flatten,omitempty"`
}

type AttachToTargetResult struct {
	SessionID SessionID `json:"sessionId"`
}

type CloseTargetParams struct {
	TargetID TargetID `json:"targetId"`
}

type CreateBrowserContextResult struct {
	BrowserContextID BrowserContextID `json:"browserContextId"`
}

type DisposeBrowserContextParams struct {
	BrowserContextID BrowserContextID `json:"browserContextId"`
}

type SendMessageToTargetParams struct {
	Message   string    `json:"message"`
	SessionID SessionID `json:"sessionId,omitempty"`
}

// EventTargetCreatedParams/etc mirror the CDP event payloads.
type EventCreatedParams struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

type EventInfoChangedParams struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

type EventDestroyedParams struct {
	TargetID TargetID `json:"targetId"`
}

// EventReceivedMessageFromTarget is the nested-envelope payload described
// in spec.md §3 ("Nested target message") and §6.
type EventReceivedMessageFromTarget struct {
	SessionID SessionID `json:"sessionId"`
	TargetID  TargetID  `json:"targetId,omitempty"`
	Message   string    `json:"message"`
}

// SetDiscoverTargets is a fluent helper, matching the teacher's
// params-builder-then-Do idiom (call.go, eval.go).
func SetDiscoverTargets(discover bool) *setDiscoverTargetsAction {
	return &setDiscoverTargetsAction{p: SetDiscoverTargetsParams{Discover: discover}}
}

type setDiscoverTargetsAction struct{ p SetDiscoverTargetsParams }

func (a *setDiscoverTargetsAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandTargetSetDiscoverTargets, &a.p, nil)
}

// CreateTarget creates a new page target at url.
func CreateTarget(url string) *createTargetAction {
	return &createTargetAction{p: CreateTargetParams{URL: url}}
}

type createTargetAction struct{ p CreateTargetParams }

func (a *createTargetAction) WithBrowserContextID(id BrowserContextID) *createTargetAction {
	a.p.BrowserContextID = id
	return a
}

func (a *createTargetAction) Do(ctx context.Context, exec Executor) (TargetID, error) {
	var res CreateTargetResult
	if err := exec.Execute(ctx, CommandTargetCreateTarget, &a.p, &res); err != nil {
		return "", err
	}
	return res.TargetID, nil
}

// AttachToTarget attaches a session to targetID in non-flattened mode, per
// spec.md §4.6 ("flatten:none").
func AttachToTarget(targetID TargetID) *attachToTargetAction {
	return &attachToTargetAction{p: AttachToTargetParams{TargetID: targetID}}
}

type attachToTargetAction struct{ p AttachToTargetParams }

func (a *attachToTargetAction) Do(ctx context.Context, exec Executor) (SessionID, error) {
	var res AttachToTargetResult
	if err := exec.Execute(ctx, CommandTargetAttachToTarget, &a.p, &res); err != nil {
		return "", err
	}
	return res.SessionID, nil
}

// CreateBrowserContext creates an isolated browser context.
func CreateBrowserContext() *createBrowserContextAction {
	return &createBrowserContextAction{}
}

type createBrowserContextAction struct{}

func (a *createBrowserContextAction) Do(ctx context.Context, exec Executor) (BrowserContextID, error) {
	var res CreateBrowserContextResult
	if err := exec.Execute(ctx, CommandTargetCreateBrowserContext, nil, &res); err != nil {
		return "", err
	}
	return res.BrowserContextID, nil
}

// DisposeBrowserContext disposes a previously created browser context.
func DisposeBrowserContext(id BrowserContextID) *disposeBrowserContextAction {
	return &disposeBrowserContextAction{p: DisposeBrowserContextParams{BrowserContextID: id}}
}

type disposeBrowserContextAction struct{ p DisposeBrowserContextParams }

func (a *disposeBrowserContextAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandTargetDisposeBrowserContext, &a.p, nil)
}

// CloseTarget closes a target by id, without running beforeunload.
func CloseTarget(targetID TargetID) *closeTargetAction {
	return &closeTargetAction{p: CloseTargetParams{TargetID: targetID}}
}

type closeTargetAction struct{ p CloseTargetParams }

func (a *closeTargetAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandTargetCloseTarget, &a.p, nil)
}
