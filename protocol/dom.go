package protocol

import "context"

// DOM domain: document retrieval, selector search, and node resolution,
// used by Tab.FindElement / FindElementByXPath (spec.md §4.6).

const (
	CommandDOMGetDocument     MethodType = "DOM.getDocument"
	CommandDOMQuerySelector   MethodType = "DOM.querySelector"
	CommandDOMPerformSearch   MethodType = "DOM.performSearch"
	CommandDOMGetSearchResults MethodType = "DOM.getSearchResults"
	CommandDOMResolveNode     MethodType = "DOM.resolveNode"
	CommandDOMDescribeNode    MethodType = "DOM.describeNode"
	CommandDOMGetBoxModel     MethodType = "DOM.getBoxModel"
)

// EmptyNodeID is the sentinel "not found" node id (spec.md §4.6).
const EmptyNodeID NodeID = 0

type GetDocumentParams struct {
	Depth  int  `json:"depth,omitempty"`
	Pierce bool `json:"pierce,omitempty"`
}

type GetDocumentResult struct {
	Root *Node `json:"root"`
}

type QuerySelectorParams struct {
	NodeID   NodeID `json:"nodeId"`
	Selector string `json:"selector"`
}

type QuerySelectorResult struct {
	NodeID NodeID `json:"nodeId"`
}

type PerformSearchParams struct {
	Query           string `json:"query"`
	IncludeUserAgentShadowDOM bool `json:"includeUserAgentShadowDOM,omitempty"`
}

type PerformSearchResult struct {
	SearchID    string `json:"searchId"`
	ResultCount int64  `json:"resultCount"`
}

type GetSearchResultsParams struct {
	SearchID  string `json:"searchId"`
	FromIndex int64  `json:"fromIndex"`
	ToIndex   int64  `json:"toIndex"`
}

type GetSearchResultsResult struct {
	NodeIDs []NodeID `json:"nodeIds"`
}

type ResolveNodeParams struct {
	NodeID        NodeID        `json:"nodeId,omitempty"`
	BackendNodeID BackendNodeID `json:"backendNodeId,omitempty"`
}

// RemoteObject mirrors Runtime.RemoteObject's identifying fields.
type RemoteObject struct {
	Type     string         `json:"type"`
	ObjectID RemoteObjectID `json:"objectId,omitempty"`
	Value    interface{}    `json:"value,omitempty"`
}

type ResolveNodeResult struct {
	Object RemoteObject `json:"object"`
}

func GetDocument() *getDocumentAction { return &getDocumentAction{} }

type getDocumentAction struct{ p GetDocumentParams }

func (a *getDocumentAction) WithPierce(b bool) *getDocumentAction {
	a.p.Pierce = b
	return a
}

func (a *getDocumentAction) Do(ctx context.Context, exec Executor) (*Node, error) {
	var res GetDocumentResult
	if err := exec.Execute(ctx, CommandDOMGetDocument, &a.p, &res); err != nil {
		return nil, err
	}
	return res.Root, nil
}

func QuerySelector(nodeID NodeID, selector string) *querySelectorAction {
	return &querySelectorAction{p: QuerySelectorParams{NodeID: nodeID, Selector: selector}}
}

type querySelectorAction struct{ p QuerySelectorParams }

func (a *querySelectorAction) Do(ctx context.Context, exec Executor) (NodeID, error) {
	var res QuerySelectorResult
	if err := exec.Execute(ctx, CommandDOMQuerySelector, &a.p, &res); err != nil {
		return EmptyNodeID, err
	}
	return res.NodeID, nil
}

func PerformSearch(query string) *performSearchAction {
	return &performSearchAction{p: PerformSearchParams{Query: query}}
}

type performSearchAction struct{ p PerformSearchParams }

func (a *performSearchAction) Do(ctx context.Context, exec Executor) (string, int64, error) {
	var res PerformSearchResult
	if err := exec.Execute(ctx, CommandDOMPerformSearch, &a.p, &res); err != nil {
		return "", 0, err
	}
	return res.SearchID, res.ResultCount, nil
}

func GetSearchResults(searchID string, from, to int64) *getSearchResultsAction {
	return &getSearchResultsAction{p: GetSearchResultsParams{SearchID: searchID, FromIndex: from, ToIndex: to}}
}

type getSearchResultsAction struct{ p GetSearchResultsParams }

func (a *getSearchResultsAction) Do(ctx context.Context, exec Executor) ([]NodeID, error) {
	var res GetSearchResultsResult
	if err := exec.Execute(ctx, CommandDOMGetSearchResults, &a.p, &res); err != nil {
		return nil, err
	}
	return res.NodeIDs, nil
}

// BoxModel mirrors the handful of DOM.getBoxModel fields needed to clip an
// element screenshot: content is the four-corner quad {x0,y0,x1,y1,x2,y2,
// x3,y3}, in viewport coordinates.
type BoxModel struct {
	Content []float64 `json:"content"`
}

// ContentViewport reduces the content quad to the axis-aligned rectangle
// CaptureScreenshot's clip expects (original_source's
// Element::get_box_model().content_viewport()).
func (m *BoxModel) ContentViewport() Viewport {
	if len(m.Content) < 8 {
		return Viewport{}
	}
	minX, minY := m.Content[0], m.Content[1]
	maxX, maxY := minX, minY
	for i := 2; i < 8; i += 2 {
		if m.Content[i] < minX {
			minX = m.Content[i]
		}
		if m.Content[i] > maxX {
			maxX = m.Content[i]
		}
		if m.Content[i+1] < minY {
			minY = m.Content[i+1]
		}
		if m.Content[i+1] > maxY {
			maxY = m.Content[i+1]
		}
	}
	return Viewport{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY, Scale: 1}
}

type GetBoxModelParams struct {
	ObjectID RemoteObjectID `json:"objectId,omitempty"`
}

type GetBoxModelResult struct {
	Model BoxModel `json:"model"`
}

func GetBoxModel(objectID RemoteObjectID) *getBoxModelAction {
	return &getBoxModelAction{p: GetBoxModelParams{ObjectID: objectID}}
}

type getBoxModelAction struct{ p GetBoxModelParams }

func (a *getBoxModelAction) Do(ctx context.Context, exec Executor) (*BoxModel, error) {
	var res GetBoxModelResult
	if err := exec.Execute(ctx, CommandDOMGetBoxModel, &a.p, &res); err != nil {
		return nil, err
	}
	return &res.Model, nil
}

func ResolveNode(nodeID NodeID) *resolveNodeAction {
	return &resolveNodeAction{p: ResolveNodeParams{NodeID: nodeID}}
}

type resolveNodeAction struct{ p ResolveNodeParams }

func (a *resolveNodeAction) Do(ctx context.Context, exec Executor) (*RemoteObject, error) {
	var res ResolveNodeResult
	if err := exec.Execute(ctx, CommandDOMResolveNode, &a.p, &res); err != nil {
		return nil, err
	}
	return &res.Object, nil
}
