package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type valueKind int

const (
	kindScalar valueKind = iota
	kindObject
	kindArray
)

// maxTreeDepth bounds both decoding and searching of untrusted payloads.
const maxTreeDepth = 64

type member struct {
	key   string
	value *value
}

// value is a JSON node that keeps object members in document order, which
// decides the winner when a key appears more than once in a tree.
type value struct {
	kind    valueKind
	scalar  any
	members []member
	items   []*value
}

func parseTree(data []byte) (*value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	root, err := decodeValue(decoder, 0)
	if err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("notion: unexpected data after json value")
	}
	return root, nil
}

func decodeValue(decoder *json.Decoder, depth int) (*value, error) {
	if depth > maxTreeDepth {
		return nil, fmt.Errorf("notion: json nesting exceeds %d levels", maxTreeDepth)
	}
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := token.(json.Delim)
	if !ok {
		return &value{kind: kindScalar, scalar: token}, nil
	}
	switch delim {
	case '{':
		node := &value{kind: kindObject}
		for decoder.More() {
			keyToken, err := decoder.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyToken.(string)
			if !ok {
				return nil, fmt.Errorf("notion: object key is not a string")
			}
			child, err := decodeValue(decoder, depth+1)
			if err != nil {
				return nil, err
			}
			node.members = append(node.members, member{key: key, value: child})
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return node, nil
	case '[':
		node := &value{kind: kindArray}
		for decoder.More() {
			child, err := decodeValue(decoder, depth+1)
			if err != nil {
				return nil, err
			}
			node.items = append(node.items, child)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return node, nil
	default:
		return nil, fmt.Errorf("notion: unexpected delimiter %q", delim)
	}
}

func (v *value) get(key string) (*value, bool) {
	if v == nil || v.kind != kindObject {
		return nil, false
	}
	for _, m := range v.members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// str returns the scalar as a string; objects, arrays and null are empty.
func (v *value) str() string {
	if v == nil || v.kind != kindScalar {
		return ""
	}
	switch typed := v.scalar.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func (v *value) isNull() bool {
	return v == nil || (v.kind == kindScalar && v.scalar == nil)
}

// findKey runs a depth-first search for key. An object's own members are
// checked before its children are visited; array elements are visited in
// order. Null matches are skipped so the search continues with siblings.
func findKey(root *value, key string) (*value, bool) {
	return findKeyDepth(root, key, 0)
}

func findKeyDepth(node *value, key string, depth int) (*value, bool) {
	if node == nil || depth > maxTreeDepth {
		return nil, false
	}
	switch node.kind {
	case kindObject:
		if found, ok := node.get(key); ok {
			if !found.isNull() {
				return found, true
			}
			if depth > 0 {
				return nil, false
			}
			return found, true
		}
		for _, m := range node.members {
			if m.value.kind == kindScalar {
				continue
			}
			if found, ok := findKeyDepth(m.value, key, depth+1); ok {
				return found, true
			}
		}
	case kindArray:
		for _, item := range node.items {
			if item.kind != kindObject {
				continue
			}
			if found, ok := findKeyDepth(item, key, depth+1); ok {
				return found, true
			}
		}
	}
	return nil, false
}
