package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidDocument indicates the upstream body is not a JSON object.
var ErrInvalidDocument = errors.New("invalid content document")

// Document is a loosely structured content document returned by the content API.
// Most fields are optional; readers must treat absent fields as normal.
// Numbers are kept as json.Number so re-encoding is lossless.
type Document map[string]any

// DecodeDocument parses a JSON object into a Document.
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: null document", ErrInvalidDocument)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidDocument)
	}
	return doc, nil
}

// Lookup walks nested objects by key.
func (d Document) Lookup(path ...string) (any, bool) {
	var current any = map[string]any(d)
	for _, key := range path {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// String returns a nested string value.
func (d Document) String(path ...string) (string, bool) {
	v, ok := d.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns a nested integer value.
func (d Document) Int(path ...string) (int, bool) {
	v, ok := d.Lookup(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Bool returns a nested boolean value.
func (d Document) Bool(path ...string) (bool, bool) {
	v, ok := d.Lookup(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Document:
		return o, true
	default:
		return nil, false
	}
}
