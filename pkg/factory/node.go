package factory

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// ErrInvalidNode is returned for configuration trees of the wrong shape.
var ErrInvalidNode = errors.New("factory: invalid node")

// Reserved configuration keys.
const (
	KeyType       = "type"
	KeyProperties = "properties"
	KeyBindings   = "bindings"
	KeyEvents     = "events"
	KeyChildren   = "children"
)

// Node is one entry of a configuration tree.
type Node struct {
	// Type is the registered command type.
	Type string
	// Properties are written over the type defaults.
	Properties map[string]any
	// Bindings maps property names to external state keys.
	Bindings map[string]string
	// Events maps event types to named handlers.
	Events map[string]string
	// Children are created and attached in order.
	Children []Node
}

// ParseNode reads a decoded document into a Node. Unknown keys are
// ignored. Property values are normalized with value.FromTree so numbers
// from JSON, TOML and YAML decoders end up with the same kinds.
func ParseNode(tree map[string]any) (Node, error) {
	return parseNode(tree, "root")
}

func parseNode(tree map[string]any, path string) (Node, error) {
	var n Node
	typ, ok := tree[KeyType].(string)
	if !ok || typ == "" {
		return n, fmt.Errorf("%w: %s: missing %q", ErrInvalidNode, path, KeyType)
	}
	n.Type = typ

	if raw, ok := tree[KeyProperties]; ok && raw != nil {
		m, err := asMap(raw)
		if err != nil {
			return n, fmt.Errorf("%w: %s.%s: %v", ErrInvalidNode, path, KeyProperties, err)
		}
		n.Properties = make(map[string]any, len(m))
		for k, x := range m {
			v, err := value.FromTree(x)
			if err != nil {
				return n, fmt.Errorf("%w: %s.%s.%s: %v", ErrInvalidNode, path, KeyProperties, k, err)
			}
			n.Properties[k] = v
		}
	}

	var err error
	if n.Bindings, err = stringMap(tree[KeyBindings]); err != nil {
		return n, fmt.Errorf("%w: %s.%s: %v", ErrInvalidNode, path, KeyBindings, err)
	}
	if n.Events, err = stringMap(tree[KeyEvents]); err != nil {
		return n, fmt.Errorf("%w: %s.%s: %v", ErrInvalidNode, path, KeyEvents, err)
	}

	children, err := asList(tree[KeyChildren])
	if err != nil {
		return n, fmt.Errorf("%w: %s.%s: %v", ErrInvalidNode, path, KeyChildren, err)
	}
	for i, raw := range children {
		childPath := fmt.Sprintf("%s.%s[%d]", path, KeyChildren, i)
		m, err := asMap(raw)
		if err != nil {
			return n, fmt.Errorf("%w: %s: %v", ErrInvalidNode, childPath, err)
		}
		child, err := parseNode(m, childPath)
		if err != nil {
			return n, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func asMap(x any) (map[string]any, error) {
	switch t := x.(type) {
	case map[string]any:
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			out[ks] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("want a mapping, got %T", x)
}

func asList(x any) ([]any, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, nil
	}
	return nil, fmt.Errorf("want a sequence, got %T", x)
}

func stringMap(x any) (map[string]string, error) {
	if x == nil {
		return nil, nil
	}
	m, err := asMap(x)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: want a string, got %T", k, v)
		}
		out[k] = s
	}
	return out, nil
}

// Tree renders n in the configuration format accepted by ParseNode.
// Property values are written in their canonical tree form.
func (n Node) Tree() map[string]any {
	out := map[string]any{KeyType: n.Type}
	if len(n.Properties) > 0 {
		props := make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			props[k] = value.Of(v).ToTree()
		}
		out[KeyProperties] = props
	}
	if len(n.Bindings) > 0 {
		out[KeyBindings] = toAnyMap(n.Bindings)
	}
	if len(n.Events) > 0 {
		out[KeyEvents] = toAnyMap(n.Events)
	}
	if len(n.Children) > 0 {
		children := make([]any, len(n.Children))
		for i, ch := range n.Children {
			children[i] = ch.Tree()
		}
		out[KeyChildren] = children
	}
	return out
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Walk calls fn for n and every descendant in pre-order.
func (n Node) Walk(fn func(path string, n Node)) {
	n.walk("root", fn)
}

func (n Node) walk(path string, fn func(string, Node)) {
	fn(path, n)
	for i, ch := range n.Children {
		ch.walk(fmt.Sprintf("%s.%s[%d]", path, KeyChildren, i), fn)
	}
}

// Count returns the number of nodes in the tree.
func (n Node) Count() int {
	c := 0
	n.Walk(func(string, Node) { c++ })
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Collect(maps.Keys(m))
	sort.Strings(keys)
	return keys
}
