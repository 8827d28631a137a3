// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DefaultMaxDepth bounds nesting depth for Parse when no WithMaxDepth
// option is given. It exists to turn a pathological or adversarial
// document into a KindOutOfMemory ParseError instead of a stack
// overflow, the same bound jf_parse_node_layer enforces in the
// original reader.
const DefaultMaxDepth = 512

// DefaultMaxSize bounds the input byte size Parse will read when no
// WithMaxSize option is given. Zero means unbounded.
const DefaultMaxSize int64 = 0

// Option configures a Parse call.
type Option func(*options)

type options struct {
	maxDepth int
	maxSize  int64
}

func defaultOptions() options {
	return options{maxDepth: DefaultMaxDepth, maxSize: DefaultMaxSize}
}

// WithMaxDepth overrides the nesting-depth bound. A depth of 0 means
// unbounded.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithMaxSize bounds the number of input bytes Parse will read before
// failing with a KindOutOfMemory ParseError. A size of 0 means
// unbounded.
func WithMaxSize(size int64) Option {
	return func(o *options) { o.maxSize = size }
}

// Parser reads a structured-data document from a reader and produces
// its Node tree. The standard implementation is backed by
// encoding/json; Parse is the usual entry point and only allocates a
// Parser when it needs one, so most callers never see this interface.
type Parser interface {
	Parse(r io.Reader) (Node, error)
}

// jsonParser implements Parser on top of encoding/json.Decoder.Token,
// which is used instead of json.Unmarshal because Unmarshal decodes
// objects into Go maps and loses key order, and Node must preserve it.
type jsonParser struct {
	opts options
}

// NewParser returns the standard Parser implementation.
func NewParser(opts ...Option) Parser {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &jsonParser{opts: o}
}

// Parse reads the file at path and returns its document tree.
// The outermost value must be a JSON object; anything else is
// reported as ErrNotAnObject.
func Parse(path string, opts ...Option) (Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return Node{}, &ParseError{Kind: KindInvalidFilePath, Path: path, Detail: err.Error()}
	}
	defer f.Close()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &jsonParser{opts: o}

	var r io.Reader = f
	if o.maxSize > 0 {
		if fi, statErr := f.Stat(); statErr == nil && fi.Size() > o.maxSize {
			return Node{}, &ParseError{Kind: KindOutOfMemory, Path: path, Detail: fmt.Sprintf("file size %d exceeds max size %d", fi.Size(), o.maxSize)}
		}
		r = io.LimitReader(f, o.maxSize+1)
	}

	n, err := p.Parse(r)
	if err != nil {
		if pe, ok := err.(*ParseError); ok && pe.Path == "" {
			pe.Path = path
		}
		return Node{}, err
	}
	return n, nil
}

// Parse implements Parser.
func (p *jsonParser) Parse(r io.Reader) (Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	n, err := p.parseValue(dec, 0)
	if err != nil {
		return Node{}, err
	}
	if n.Kind() != KindObject {
		return Node{}, ErrNotAnObject
	}

	// Reject trailing garbage after the single top-level value.
	if _, err := dec.Token(); err != io.EOF {
		return Node{}, &ParseError{Kind: KindInvalidSyntax, Detail: "trailing data after document"}
	}
	return n, nil
}

func (p *jsonParser) parseValue(dec *json.Decoder, depth int) (Node, error) {
	if p.opts.maxDepth > 0 && depth > p.opts.maxDepth {
		return Node{}, &ParseError{Kind: KindOutOfMemory, Detail: fmt.Sprintf("nesting exceeds max depth %d", p.opts.maxDepth)}
	}

	tok, err := dec.Token()
	if err == io.EOF {
		return Node{}, &ParseError{Kind: KindUnexpectedEndOfInput, Detail: "unexpected end of input"}
	}
	if err != nil {
		return Node{}, classifyTokenError(err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return p.parseObject(dec, depth+1)
		case '[':
			return p.parseArray(dec, depth+1)
		default:
			return Node{}, &ParseError{Kind: KindInvalidSyntax, Detail: fmt.Sprintf("unexpected delimiter %q", v)}
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Node{}, &ParseError{Kind: KindInvalidSyntax, Detail: "malformed number: " + err.Error()}
		}
		return Number(f), nil
	case string:
		return String(v), nil
	default:
		return Node{}, &ParseError{Kind: KindInvalidType, Detail: fmt.Sprintf("unrepresentable token %T", tok)}
	}
}

func (p *jsonParser) parseObject(dec *json.Decoder, depth int) (Node, error) {
	seen := make(map[string]struct{})
	var entries []Entry

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Node{}, classifyTokenError(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Node{}, &ParseError{Kind: KindInvalidSyntax, Detail: "object key must be a string"}
		}
		if _, dup := seen[key]; dup {
			return Node{}, ErrDuplicateKey
		}
		seen[key] = struct{}{}

		val, err := p.parseValue(dec, depth)
		if err != nil {
			return Node{}, err
		}
		entries = append(entries, Entry{Key: key, Value: val})
	}

	if _, err := dec.Token(); err != nil { // consume closing '}'
		return Node{}, classifyTokenError(err)
	}
	return Object(entries), nil
}

func (p *jsonParser) parseArray(dec *json.Decoder, depth int) (Node, error) {
	var elements []Node
	for dec.More() {
		val, err := p.parseValue(dec, depth)
		if err != nil {
			return Node{}, err
		}
		elements = append(elements, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return Node{}, classifyTokenError(err)
	}
	return Array(elements), nil
}

func classifyTokenError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &ParseError{Kind: KindUnexpectedEndOfInput, Detail: err.Error()}
	}
	if se, ok := err.(*json.SyntaxError); ok {
		return &ParseError{Kind: KindInvalidSyntax, Offset: se.Offset, Detail: se.Error()}
	}
	return &ParseError{Kind: KindInvalidSyntax, Detail: err.Error()}
}
