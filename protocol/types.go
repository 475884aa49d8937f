package protocol

import "encoding/base64"

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// NodeID is a transient id for a DOM node, valid only within a document
// generation. BackendNodeID and RemoteObjectID are stable across a session
// and preferred for all follow-up operations (spec.md GLOSSARY).
type NodeID int64

// BackendNodeID is a stable identifier for a DOM node.
type BackendNodeID int64

// RemoteObjectID names a JS value handle produced by Runtime/DOM calls.
type RemoteObjectID string

// ExecutionContextID names a JS execution context (one per frame).
type ExecutionContextID int64

// Node mirrors the handful of DOM.Node fields chromectl's tree walker and
// element resolution need.
type Node struct {
	NodeID        NodeID  `json:"nodeId"`
	BackendNodeID BackendNodeID `json:"backendNodeId"`
	NodeName      string  `json:"nodeName"`
	NodeType      int64   `json:"nodeType"`
	Children      []*Node `json:"children,omitempty"`
}
