package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Fallible accessors over yaml.v3 nodes. Compose manifests are loosely
// typed (several fields accept either a string or a list), so every access
// goes through a checked conversion instead of assuming node kinds.

// resolveAlias follows an alias node to its anchor target.
func resolveAlias(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// asMapping returns n if it is a mapping node.
func asMapping(n *yaml.Node) (*yaml.Node, error) {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping, got %s", kindName(nodeKind(n)))
	}
	return n, nil
}

// asSequence returns the elements of n if it is a sequence node.
func asSequence(n *yaml.Node) ([]*yaml.Node, error) {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected sequence, got %s", kindName(nodeKind(n)))
	}
	return n.Content, nil
}

// asString returns the scalar value of n.
func asString(n *yaml.Node) (string, error) {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("expected scalar, got %s", kindName(nodeKind(n)))
	}
	return n.Value, nil
}

func nodeKind(n *yaml.Node) yaml.Kind {
	if n == nil {
		return 0
	}
	return n.Kind
}

// mapGet returns the value node for key within mapping m, or nil.
func mapGet(m *yaml.Node, key string) *yaml.Node {
	m = resolveAlias(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// eachPair visits the key/value pairs of mapping m in document order.
func eachPair(m *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	m = resolveAlias(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping, got %s", kindName(nodeKind(m)))
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if err := fn(m.Content[i].Value, m.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// newStringNode builds a scalar node holding v.
func newStringNode(v string) *yaml.Node {
	n := &yaml.Node{}
	n.SetString(v)
	return n
}
