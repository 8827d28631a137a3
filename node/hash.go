// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// wireNode is the canonical on-wire shape a Node is encoded to before
// hashing: an explicit Kind tag plus only the fields that kind uses.
// Encoding through this struct (rather than hashing Go's native
// float64/string bytes directly) keeps the digest stable across any
// future change to Node's internal layout.
type wireNode struct {
	Kind     uint8       `msgpack:"k"`
	Bool     bool        `msgpack:"b,omitempty"`
	Number   float64     `msgpack:"n,omitempty"`
	Text     string      `msgpack:"t,omitempty"`
	Entries  []wireEntry `msgpack:"e,omitempty"`
	Elements []wireNode  `msgpack:"a,omitempty"`
}

type wireEntry struct {
	Key   string   `msgpack:"key"`
	Value wireNode `msgpack:"val"`
}

func toWire(n Node) wireNode {
	w := wireNode{Kind: uint8(n.Kind())}
	switch n.Kind() {
	case KindBool:
		w.Bool = n.Bool()
	case KindNumber:
		w.Number = n.Number()
	case KindString:
		w.Text = n.Text()
	case KindObject:
		entries := n.Entries()
		w.Entries = make([]wireEntry, len(entries))
		for i, e := range entries {
			w.Entries[i] = wireEntry{Key: e.Key, Value: toWire(e.Value)}
		}
	case KindArray:
		elements := n.Elements()
		w.Elements = make([]wireNode, len(elements))
		for i, e := range elements {
			w.Elements[i] = toWire(e)
		}
	}
	return w
}

// ContentHash returns the BLAKE3-256 digest of n's canonical msgpack
// encoding. Two structurally Equal nodes always produce the same
// digest; object key order is preserved in the encoding (msgpack
// arrays, not maps, back wireNode.Entries) so ContentHash, unlike the
// diff engine, is sensitive to entry order — it is a snapshot
// fingerprint, not a diff-equivalence test.
func ContentHash(n Node) ([32]byte, error) {
	b, err := msgpack.Marshal(toWire(n))
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(b), nil
}
