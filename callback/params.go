// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Params is an ordered set of query parameters. Keys keep the position of
// their first occurrence, while a later duplicate overwrites the value. A nil
// value means the parameter appeared without an "=".
//
// The zero value is an empty set ready to use.
type Params struct {
	keys   []string
	values map[string]*string
}

// ParseQuery parses the query string portion of href: everything after the
// first "?", split on "&" and then on the first "=" of each piece. A "#"
// fragment is not treated specially. Values are not percent-decoded.
//
// An href without a "?" yields an empty Params. An empty query, or a trailing
// "&", yields an empty key with a nil value.
func ParseQuery(href string) Params {
	var p Params
	i := strings.IndexByte(href, '?')
	if i < 0 {
		return p
	}
	for _, piece := range strings.Split(href[i+1:], "&") {
		k, v, found := strings.Cut(piece, "=")
		if !found {
			p.Set(k, nil)
			continue
		}
		p.Set(k, &v)
	}
	return p
}

// Set assigns value to key. A new key is appended; an existing key keeps its
// position.
func (p *Params) Set(key string, value *string) {
	if p.values == nil {
		p.values = make(map[string]*string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key and whether key is present. The value is nil
// when key is present without a value.
func (p Params) Get(key string) (*string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Value returns the value for key, or "" when key is missing or has no value.
func (p Params) Value(key string) string {
	if v := p.values[key]; v != nil {
		return *v
	}
	return ""
}

// Keys returns the keys in order.
func (p Params) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

func (p Params) Len() int { return len(p.keys) }

// MarshalJSON encodes the set as a JSON object in key order. Absent values are
// encoded as null.
func (p Params) MarshalJSON() ([]byte, error) {
	const op = "callback.(Params).MarshalJSON"
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to encode key %q: %w", op, k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v := p.values[k]
		if v == nil {
			buf.WriteString("null")
			continue
		}
		vb, err := json.Marshal(*v)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to encode value for %q: %w", op, k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string or null values, preserving
// the order of its keys.
func (p *Params) UnmarshalJSON(data []byte) error {
	const op = "callback.(Params).UnmarshalJSON"
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%s: expected a JSON object: %w", op, ErrInvalidParameter)
	}
	var parsed Params
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%s: expected a key: %w", op, ErrInvalidParameter)
		}
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		switch v := tok.(type) {
		case nil:
			parsed.Set(key, nil)
		case string:
			parsed.Set(key, &v)
		default:
			return fmt.Errorf("%s: value for %q is not a string or null: %w", op, key, ErrInvalidParameter)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	*p = parsed
	return nil
}
