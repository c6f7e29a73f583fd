package format

import (
	"encoding/json"
	"sort"
	"strings"
)

// NodeKind discriminates the rendered node types.
type NodeKind string

const (
	NodeNull   NodeKind = "null"
	NodeText   NodeKind = "text"
	NodeLink   NodeKind = "link"
	NodeList   NodeKind = "list"
	NodeObject NodeKind = "object"
	NodeEmpty  NodeKind = "empty"
)

// Node is one element of the rendered response tree, consumed by the SPA.
type Node struct {
	Kind     NodeKind `json:"kind"`
	Key      string   `json:"key,omitempty"`
	Label    string   `json:"label,omitempty"`
	Text     string   `json:"text,omitempty"`
	URL      string   `json:"url,omitempty"`
	Depth    int      `json:"depth"`
	Children []*Node  `json:"children,omitempty"`
}

// Render projects an arbitrary JSON value into a display tree. Strings that
// are themselves valid JSON are re-parsed and rendered at the same depth,
// which covers double-encoded upstream fields. Structural recursion over a
// finite JSON value always terminates.
func Render(value any) *Node {
	return render(value, 0)
}

func render(value any, depth int) *Node {
	switch v := value.(type) {
	case nil:
		return &Node{Kind: NodeNull, Text: "null", Depth: depth}

	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return render(parsed, depth)
		}
		if strings.HasPrefix(v, "http") {
			return &Node{Kind: NodeLink, Text: v, URL: v, Depth: depth}
		}
		return &Node{Kind: NodeText, Text: v, Depth: depth}

	case float64:
		return &Node{Kind: NodeText, Text: formatNum(v), Depth: depth}

	case bool:
		return &Node{Kind: NodeText, Text: formatAny(v), Depth: depth}

	case []any:
		if len(v) == 0 {
			return &Node{Kind: NodeEmpty, Text: "[]", Depth: depth}
		}
		n := &Node{Kind: NodeList, Depth: depth, Children: make([]*Node, 0, len(v))}
		for _, item := range v {
			n.Children = append(n.Children, render(item, depth+1))
		}
		return n

	case map[string]any:
		if len(v) == 0 {
			return &Node{Kind: NodeEmpty, Text: "{}", Depth: depth}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &Node{Kind: NodeObject, Depth: depth, Children: make([]*Node, 0, len(v))}
		for _, k := range keys {
			child := render(v[k], depth+1)
			child.Key = k
			child.Label = Label(k)
			n.Children = append(n.Children, child)
		}
		return n

	default:
		// Unexpected decoded type; degrade to plain text.
		raw, err := json.Marshal(v)
		if err != nil {
			return &Node{Kind: NodeNull, Text: "null", Depth: depth}
		}
		return render(string(raw), depth)
	}
}
