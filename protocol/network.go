package protocol

import "context"

// Network domain: response body retrieval, cookies, and UA/header
// overrides (spec.md §4.6 ResponseReceived/LoadingFinished, SPEC_FULL.md's
// SetUserAgent/SetExtraHTTPHeaders supplements).

const (
	CommandNetworkEnable              MethodType = "Network.enable"
	CommandNetworkGetResponseBody     MethodType = "Network.getResponseBody"
	CommandNetworkSetCookies          MethodType = "Network.setCookies"
	CommandNetworkDeleteCookies       MethodType = "Network.deleteCookies"
	CommandNetworkGetCookies          MethodType = "Network.getCookies"
	CommandNetworkSetUserAgentOverride MethodType = "Network.setUserAgentOverride"
	CommandNetworkSetExtraHTTPHeaders  MethodType = "Network.setExtraHTTPHeaders"
	EventNetworkResponseReceived      MethodType = "Network.responseReceived"
	EventNetworkLoadingFinished       MethodType = "Network.loadingFinished"
)

type ResponseData struct {
	URL        string            `json:"url"`
	Status     int64             `json:"status"`
	Headers    map[string]string `json:"headers"`
	MimeType   string            `json:"mimeType"`
}

type EventResponseReceivedParams struct {
	RequestID RequestID    `json:"requestId"`
	Response  ResponseData `json:"response"`
}

type EventLoadingFinishedParams struct {
	RequestID RequestID `json:"requestId"`
}

type GetResponseBodyParams struct {
	RequestID RequestID `json:"requestId"`
}

type GetResponseBodyResult struct {
	Body          string `json:"body"`
	Base64Encoded bool   `json:"base64Encoded"`
}

type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	URL    string `json:"url,omitempty"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

type SetCookiesParams struct {
	Cookies []Cookie `json:"cookies"`
}

type DeleteCookiesParams struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

type GetCookiesResult struct {
	Cookies []Cookie `json:"cookies"`
}

type SetUserAgentOverrideParams struct {
	UserAgent string `json:"userAgent"`
}

type SetExtraHTTPHeadersParams struct {
	Headers map[string]string `json:"headers"`
}

func NetworkEnable() *networkEnableAction { return &networkEnableAction{} }

type networkEnableAction struct{}

func (a *networkEnableAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandNetworkEnable, nil, nil)
}

func GetResponseBody(id RequestID) *getResponseBodyAction {
	return &getResponseBodyAction{p: GetResponseBodyParams{RequestID: id}}
}

type getResponseBodyAction struct{ p GetResponseBodyParams }

func (a *getResponseBodyAction) Do(ctx context.Context, exec Executor) ([]byte, error) {
	var res GetResponseBodyResult
	if err := exec.Execute(ctx, CommandNetworkGetResponseBody, &a.p, &res); err != nil {
		return nil, err
	}
	if res.Base64Encoded {
		return decodeBase64(res.Body)
	}
	return []byte(res.Body), nil
}

func SetCookies(cookies []Cookie) *setCookiesAction {
	return &setCookiesAction{p: SetCookiesParams{Cookies: cookies}}
}

type setCookiesAction struct{ p SetCookiesParams }

func (a *setCookiesAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandNetworkSetCookies, &a.p, nil)
}

func DeleteCookies(name string) *deleteCookiesAction {
	return &deleteCookiesAction{p: DeleteCookiesParams{Name: name}}
}

type deleteCookiesAction struct{ p DeleteCookiesParams }

func (a *deleteCookiesAction) WithURL(url string) *deleteCookiesAction {
	a.p.URL = url
	return a
}

func (a *deleteCookiesAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandNetworkDeleteCookies, &a.p, nil)
}

func GetCookies() *getCookiesAction { return &getCookiesAction{} }

type getCookiesAction struct{}

func (a *getCookiesAction) Do(ctx context.Context, exec Executor) ([]Cookie, error) {
	var res GetCookiesResult
	if err := exec.Execute(ctx, CommandNetworkGetCookies, nil, &res); err != nil {
		return nil, err
	}
	return res.Cookies, nil
}

func SetUserAgentOverride(ua string) *setUserAgentOverrideAction {
	return &setUserAgentOverrideAction{p: SetUserAgentOverrideParams{UserAgent: ua}}
}

type setUserAgentOverrideAction struct{ p SetUserAgentOverrideParams }

func (a *setUserAgentOverrideAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandNetworkSetUserAgentOverride, &a.p, nil)
}

func SetExtraHTTPHeaders(headers map[string]string) *setExtraHTTPHeadersAction {
	return &setExtraHTTPHeadersAction{p: SetExtraHTTPHeadersParams{Headers: headers}}
}

type setExtraHTTPHeadersAction struct{ p SetExtraHTTPHeadersParams }

func (a *setExtraHTTPHeadersAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandNetworkSetExtraHTTPHeaders, &a.p, nil)
}
