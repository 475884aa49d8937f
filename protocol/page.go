package protocol

import "context"

// Page domain: navigation, lifecycle events, screenshotting, PDF, and tab
// close (spec.md §4.6).

const (
	CommandPageEnable             MethodType = "Page.enable"
	CommandPageDisable            MethodType = "Page.disable"
	CommandPageNavigate           MethodType = "Page.navigate"
	CommandPageReload             MethodType = "Page.reload"
	CommandPageClose              MethodType = "Page.close"
	CommandPageCaptureScreenshot  MethodType = "Page.captureScreenshot"
	CommandPagePrintToPDF         MethodType = "Page.printToPDF"
	CommandPageAddScriptToEvaluateOnNewDocument MethodType = "Page.addScriptToEvaluateOnNewDocument"
	CommandPageSetLifecycleEventsEnabled         MethodType = "Page.setLifecycleEventsEnabled"
	EventPageLifecycleEvent       MethodType = "Page.lifecycleEvent"
	EventPageJavascriptDialogOpening MethodType = "Page.javascriptDialogOpening"
)

// FrameID names a frame within a page.
type FrameID string

type NavigateParams struct {
	URL string `json:"url"`
}

type NavigateResult struct {
	FrameID   FrameID `json:"frameId"`
	ErrorText string  `json:"errorText,omitempty"`
}

type ReloadParams struct {
	IgnoreCache bool `json:"ignoreCache,omitempty"`
}

type CloseParams struct{}

// ScreenshotFormat enumerates Page.captureScreenshot's "format" field.
type ScreenshotFormat string

const (
	ScreenshotFormatJPEG ScreenshotFormat = "jpeg"
	ScreenshotFormatPNG  ScreenshotFormat = "png"
)

// Viewport is a device-independent-pixel clip rectangle.
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale,omitempty"`
}

type CaptureScreenshotParams struct {
	Format      ScreenshotFormat `json:"format,omitempty"`
	Quality     *int             `json:"quality,omitempty"`
	Clip        *Viewport        `json:"clip,omitempty"`
	FromSurface bool             `json:"fromSurface,omitempty"`
}

type CaptureScreenshotResult struct {
	Data string `json:"data"` // base64
}

type PrintToPDFParams struct {
	Landscape           bool    `json:"landscape,omitempty"`
	PrintBackground     bool    `json:"printBackground,omitempty"`
	PaperWidth          float64 `json:"paperWidth,omitempty"`
	PaperHeight         float64 `json:"paperHeight,omitempty"`
	PreferCSSPageSize   bool    `json:"preferCSSPageSize,omitempty"`
}

type PrintToPDFResult struct {
	Data string `json:"data"` // base64
}

type AddScriptToEvaluateOnNewDocumentParams struct {
	Source string `json:"source"`
}

type SetLifecycleEventsEnabledParams struct {
	Enabled bool `json:"enabled"`
}

// EventLifecycleEventParams names the lifecycle phase; only "init" and
// "networkAlmostIdle" drive the tab's navigating flag per spec.md §3.
type EventLifecycleEventParams struct {
	FrameID   FrameID `json:"frameId"`
	LoaderID  string  `json:"loaderId"`
	Name      string  `json:"name"`
	Timestamp float64 `json:"timestamp"`
}

func Enable() *pageEnableAction { return &pageEnableAction{} }

type pageEnableAction struct{}

func (a *pageEnableAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandPageEnable, nil, nil)
}

func SetLifecycleEventsEnabled(enabled bool) *setLifecycleEventsEnabledAction {
	return &setLifecycleEventsEnabledAction{p: SetLifecycleEventsEnabledParams{Enabled: enabled}}
}

type setLifecycleEventsEnabledAction struct{ p SetLifecycleEventsEnabledParams }

func (a *setLifecycleEventsEnabledAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandPageSetLifecycleEventsEnabled, &a.p, nil)
}

func Navigate(url string) *navigateAction {
	return &navigateAction{p: NavigateParams{URL: url}}
}

type navigateAction struct{ p NavigateParams }

func (a *navigateAction) Do(ctx context.Context, exec Executor) (*NavigateResult, error) {
	var res NavigateResult
	if err := exec.Execute(ctx, CommandPageNavigate, &a.p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func Reload() *reloadAction { return &reloadAction{} }

type reloadAction struct{ p ReloadParams }

func (a *reloadAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandPageReload, &a.p, nil)
}

func ClosePage() *closePageAction { return &closePageAction{} }

type closePageAction struct{}

func (a *closePageAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandPageClose, nil, nil)
}

func CaptureScreenshot() *captureScreenshotAction {
	return &captureScreenshotAction{}
}

type captureScreenshotAction struct{ p CaptureScreenshotParams }

func (a *captureScreenshotAction) WithFormat(f ScreenshotFormat) *captureScreenshotAction {
	a.p.Format = f
	return a
}

func (a *captureScreenshotAction) WithQuality(q int) *captureScreenshotAction {
	a.p.Quality = &q
	return a
}

func (a *captureScreenshotAction) WithClip(v Viewport) *captureScreenshotAction {
	a.p.Clip = &v
	return a
}

func (a *captureScreenshotAction) WithFromSurface(b bool) *captureScreenshotAction {
	a.p.FromSurface = b
	return a
}

func (a *captureScreenshotAction) Do(ctx context.Context, exec Executor) ([]byte, error) {
	var res CaptureScreenshotResult
	if err := exec.Execute(ctx, CommandPageCaptureScreenshot, &a.p, &res); err != nil {
		return nil, err
	}
	return decodeBase64(res.Data)
}

func PrintToPDF() *printToPDFAction { return &printToPDFAction{} }

type printToPDFAction struct{ p PrintToPDFParams }

func (a *printToPDFAction) WithLandscape(b bool) *printToPDFAction {
	a.p.Landscape = b
	return a
}

func (a *printToPDFAction) WithPrintBackground(b bool) *printToPDFAction {
	a.p.PrintBackground = b
	return a
}

func (a *printToPDFAction) Do(ctx context.Context, exec Executor) ([]byte, error) {
	var res PrintToPDFResult
	if err := exec.Execute(ctx, CommandPagePrintToPDF, &a.p, &res); err != nil {
		return nil, err
	}
	return decodeBase64(res.Data)
}

func AddScriptToEvaluateOnNewDocument(source string) *addScriptAction {
	return &addScriptAction{p: AddScriptToEvaluateOnNewDocumentParams{Source: source}}
}

type addScriptAction struct{ p AddScriptToEvaluateOnNewDocumentParams }

func (a *addScriptAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandPageAddScriptToEvaluateOnNewDocument, &a.p, nil)
}
