package catalog

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	patternIdentifier = `^[0-9]{11,14}$`
	patternDate       = `^[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`
	patternPeriod     = `^[0-9]{4}-(0[1-9]|1[0-2])$`
	patternMoney      = `^-?[0-9]+\.[0-9]{2}$`
	patternCode       = `^[A-Z0-9_-]+$`
)

// Environments a rendered document may declare.
var environments = []any{"homologation", "production"}

type schemaNode struct {
	children map[string]*schemaNode
	leaf     map[string]any
	required bool
}

func newObjectNode() *schemaNode {
	return &schemaNode{children: make(map[string]*schemaNode)}
}

// deriveSchema builds the JSON Schema for a definition's rendered documents.
// Every document carries the header fields eventCode, schemaVersion and
// environment next to the template slots.
func deriveSchema(d *Definition) (json.RawMessage, error) {
	root := newObjectNode()
	root.children["eventCode"] = &schemaNode{leaf: map[string]any{"const": d.Code}, required: true}
	root.children["schemaVersion"] = &schemaNode{leaf: map[string]any{"const": d.SchemaVersion}, required: true}
	root.children["environment"] = &schemaNode{leaf: map[string]any{"enum": environments}, required: true}

	for _, f := range d.Template {
		parts := strings.Split(f.Path, ".")
		present := f.Required || f.Default != nil
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node.children[p]
			if !ok {
				child = newObjectNode()
				node.children[p] = child
			}
			if present {
				child.required = true
			}
			node = child
		}
		node.children[parts[len(parts)-1]] = &schemaNode{leaf: kindSchema(f.Kind), required: present}
	}

	doc := root.render()
	doc["$schema"] = "https://json-schema.org/draft/2020-12/schema"
	doc["title"] = d.Code + " " + string(d.Type)
	return json.Marshal(doc)
}

func (n *schemaNode) render() map[string]any {
	if n.children == nil {
		return n.leaf
	}

	props := make(map[string]any, len(n.children))
	required := make([]string, 0, len(n.children))
	for name, child := range n.children {
		props[name] = child.render()
		if child.required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func kindSchema(k Kind) map[string]any {
	switch k {
	case KindIdentifier:
		return map[string]any{"type": "string", "pattern": patternIdentifier}
	case KindDate:
		return map[string]any{"type": "string", "pattern": patternDate}
	case KindPeriod:
		return map[string]any{"type": "string", "pattern": patternPeriod}
	case KindMoney:
		return map[string]any{"type": "string", "pattern": patternMoney}
	case KindCode:
		return map[string]any{"type": "string", "pattern": patternCode}
	case KindInteger:
		return map[string]any{"type": "integer"}
	case KindBool:
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"type": "string", "minLength": 1}
	}
}
