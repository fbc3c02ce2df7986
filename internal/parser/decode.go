package parser

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
)

// decode turns a payload into an ordered value tree. Strict JSON is tried
// first; the relaxed form (unquoted keys, single-quoted strings) is read
// as YAML flow syntax.
func decode(payload []byte, maxDepth int) (ir.Value, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, dslerr.New(dslerr.CodeMalformedQuery, "payload is empty")
	}

	v, jsonErr := ir.DecodeJSON(payload)
	if jsonErr == nil {
		return v, nil
	}
	var dup *ir.DuplicateKeyError
	if errors.As(jsonErr, &dup) {
		return nil, dslerr.Wrap(dslerr.CodeMalformedQuery, jsonErr, "invalid payload")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(payload, &root); err != nil {
		return nil, dslerr.Wrap(dslerr.CodeMalformedQuery, jsonErr, "payload is not valid JSON")
	}
	v, err := fromYAML(&root, 0, maxDepth)
	if err != nil {
		if de := dslerr.As(err); de != nil {
			return nil, de
		}
		return nil, dslerr.Wrap(dslerr.CodeMalformedQuery, err, "invalid payload")
	}
	return v, nil
}

// fromYAML converts a yaml.v3 node tree, keeping mapping order. Block
// style YAML can nest without brackets, so depth is checked here as well.
func fromYAML(n *yaml.Node, depth, maxDepth int) (ir.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, dslerr.New(dslerr.CodeMalformedQuery, "payload is empty")
		}
		return fromYAML(n.Content[0], depth, maxDepth)

	case yaml.MappingNode, yaml.SequenceNode:
		if depth+1 > maxDepth {
			return nil, dslerr.New(dslerr.CodeRequestTooLarge,
				"payload nests deeper than %d levels", maxDepth)
		}
		if n.Kind == yaml.SequenceNode {
			arr := make(ir.Array, 0, len(n.Content))
			for i, elem := range n.Content {
				v, err := fromYAML(elem, depth+1, maxDepth)
				if err != nil {
					return nil, fmt.Errorf("array[%d]: %w", i, err)
				}
				arr = append(arr, v)
			}
			return arr, nil
		}
		doc := ir.NewDocument()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() == "!!merge" {
				return nil, fmt.Errorf("line %d: object keys must be plain strings", keyNode.Line)
			}
			key := keyNode.Value
			if doc.Has(key) {
				return nil, &ir.DuplicateKeyError{Key: key}
			}
			v, err := fromYAML(valNode, depth+1, maxDepth)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			doc.Set(key, v)
		}
		return doc, nil

	case yaml.ScalarNode:
		return yamlScalar(n)

	case yaml.AliasNode:
		return nil, fmt.Errorf("line %d: aliases are not supported", n.Line)
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

func yamlScalar(n *yaml.Node) (ir.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return ir.Int(i), nil
		}
		return ir.NumberFromText(n.Value)
	case "!!float":
		v, err := ir.NumberFromText(n.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q is not a finite number", n.Line, n.Value)
		}
		return v, nil
	default:
		// !!str, !!timestamp and anything else stay text.
		return ir.String(n.Value), nil
	}
}
