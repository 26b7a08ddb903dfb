package main

import (
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/ilge/presto-go/prestotype"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// encoder writes a stream of documents in one output format.
type encoder interface {
	Encode(v any) error
	Close() error
}

func newEncoder(w io.Writer, format string) encoder {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return &yamlEncoder{enc: enc}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return jsonEncoder{enc}
}

type jsonEncoder struct {
	*json.Encoder
}

func (jsonEncoder) Close() error { return nil }

type yamlEncoder struct {
	enc *yaml.Encoder
}

func (e *yamlEncoder) Encode(v any) error {
	node, err := yamlNode(v)
	if err != nil {
		return err
	}
	return e.enc.Encode(node)
}

func (e *yamlEncoder) Close() error {
	return e.enc.Close()
}

// yamlNode builds the YAML tree of a normalized value. Maps and rows become
// mappings in their own order, which encoding through Go maps would lose.
func yamlNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case []byte:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(x)}, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return yamlNode(n)
		}
		if f, err := x.Float64(); err == nil {
			return yamlNode(f)
		}
		return yamlNode(x.String())
	case prestotype.Row:
		return yamlSequence(x)
	case []any:
		return yamlSequence(x)
	case *prestotype.RowValue:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range x.Fields() {
			if err := appendPair(node, f.Name, f.Value); err != nil {
				return nil, err
			}
		}
		return node, nil
	case *prestotype.MapValue:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range x.Entries() {
			if err := appendPair(node, e.Key, e.Value); err != nil {
				return nil, err
			}
		}
		return node, nil
	case prestotype.RawObject:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range x {
			if err := appendPair(node, m.Key, m.Value); err != nil {
				return nil, err
			}
		}
		return node, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return node, nil
}

func yamlSequence(items []any) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		child, err := yamlNode(item)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, child)
	}
	return node, nil
}

func appendPair(node *yaml.Node, key, value any) error {
	k, err := yamlNode(key)
	if err != nil {
		return err
	}
	v, err := yamlNode(value)
	if err != nil {
		return err
	}
	node.Content = append(node.Content, k, v)
	return nil
}
