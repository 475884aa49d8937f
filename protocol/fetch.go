package protocol

import "context"

// Fetch domain: request interception, response fulfillment/failure, and
// auth challenges (spec.md §4.6 RequestPaused/AuthRequired).

const (
	CommandFetchEnable              MethodType = "Fetch.enable"
	CommandFetchDisable             MethodType = "Fetch.disable"
	CommandFetchContinueRequest     MethodType = "Fetch.continueRequest"
	CommandFetchFailRequest         MethodType = "Fetch.failRequest"
	CommandFetchFulfillRequest      MethodType = "Fetch.fulfillRequest"
	CommandFetchContinueWithAuth    MethodType = "Fetch.continueWithAuth"
	EventFetchRequestPaused         MethodType = "Fetch.requestPaused"
	EventFetchAuthRequired          MethodType = "Fetch.authRequired"
)

// RequestID names an in-flight network request within Fetch/Network events.
type RequestID string

// RequestPattern scopes interception to a URL glob / resource type.
type RequestPattern struct {
	URLPattern   string `json:"urlPattern,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
}

type EnableFetchParams struct {
	Patterns           []RequestPattern `json:"patterns,omitempty"`
	HandleAuthRequests bool             `json:"handleAuthRequests,omitempty"`
}

// RequestData mirrors the subset of Network.Request fields an interceptor
// decision depends on.
type RequestData struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

type EventRequestPausedParams struct {
	RequestID RequestID   `json:"requestId"`
	Request   RequestData `json:"request"`
	ResourceType string   `json:"resourceType"`
}

type ErrorReason string

const (
	ErrorReasonFailed        ErrorReason = "Failed"
	ErrorReasonAborted       ErrorReason = "Aborted"
	ErrorReasonBlockedByClient ErrorReason = "BlockedByClient"
)

type ContinueRequestParams struct {
	RequestID RequestID `json:"requestId"`
	URL       string    `json:"url,omitempty"`
	Method    string    `json:"method,omitempty"`
}

type FailRequestParams struct {
	RequestID   RequestID   `json:"requestId"`
	ErrorReason ErrorReason `json:"errorReason"`
}

type HeaderEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type FulfillRequestParams struct {
	RequestID      RequestID     `json:"requestId"`
	ResponseCode   int           `json:"responseCode"`
	ResponseHeaders []HeaderEntry `json:"responseHeaders,omitempty"`
	Body           string        `json:"body,omitempty"` // base64
}

// AuthChallengeResponseKind enumerates Fetch.continueWithAuth's response.
type AuthChallengeResponseKind string

const (
	AuthDefault            AuthChallengeResponseKind = "Default"
	AuthCancelAuth         AuthChallengeResponseKind = "CancelAuth"
	AuthProvideCredentials AuthChallengeResponseKind = "ProvideCredentials"
)

type AuthChallengeResponse struct {
	Response AuthChallengeResponseKind `json:"response"`
	Username string                    `json:"username,omitempty"`
	Password string                    `json:"password,omitempty"`
}

type EventAuthRequiredParams struct {
	RequestID RequestID `json:"requestId"`
}

type ContinueWithAuthParams struct {
	RequestID             RequestID             `json:"requestId"`
	AuthChallengeResponse AuthChallengeResponse `json:"authChallengeResponse"`
}

func EnableFetch(patterns ...RequestPattern) *enableFetchAction {
	return &enableFetchAction{p: EnableFetchParams{Patterns: patterns}}
}

type enableFetchAction struct{ p EnableFetchParams }

func (a *enableFetchAction) WithHandleAuthRequests(b bool) *enableFetchAction {
	a.p.HandleAuthRequests = b
	return a
}

func (a *enableFetchAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandFetchEnable, &a.p, nil)
}

func DisableFetch() *disableFetchAction { return &disableFetchAction{} }

type disableFetchAction struct{}

func (a *disableFetchAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandFetchDisable, nil, nil)
}

func ContinueRequest(id RequestID) *continueRequestAction {
	return &continueRequestAction{p: ContinueRequestParams{RequestID: id}}
}

type continueRequestAction struct{ p ContinueRequestParams }

func (a *continueRequestAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandFetchContinueRequest, &a.p, nil)
}

func FailRequest(id RequestID, reason ErrorReason) *failRequestAction {
	return &failRequestAction{p: FailRequestParams{RequestID: id, ErrorReason: reason}}
}

type failRequestAction struct{ p FailRequestParams }

func (a *failRequestAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandFetchFailRequest, &a.p, nil)
}

func FulfillRequest(id RequestID, code int) *fulfillRequestAction {
	return &fulfillRequestAction{p: FulfillRequestParams{RequestID: id, ResponseCode: code}}
}

type fulfillRequestAction struct{ p FulfillRequestParams }

func (a *fulfillRequestAction) WithHeaders(h []HeaderEntry) *fulfillRequestAction {
	a.p.ResponseHeaders = h
	return a
}

func (a *fulfillRequestAction) WithBody(body []byte) *fulfillRequestAction {
	a.p.Body = encodeBase64(body)
	return a
}

func (a *fulfillRequestAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandFetchFulfillRequest, &a.p, nil)
}

func ContinueWithAuth(id RequestID, resp AuthChallengeResponse) *continueWithAuthAction {
	return &continueWithAuthAction{p: ContinueWithAuthParams{RequestID: id, AuthChallengeResponse: resp}}
}

type continueWithAuthAction struct{ p ContinueWithAuthParams }

func (a *continueWithAuthAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandFetchContinueWithAuth, &a.p, nil)
}
