// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command doctimeline-fixtures generates JSON fixtures exercising the
// node/diff/timeline scenarios, for cross-implementation test parity
// the way cxdb-fstree-fixtures generates fstree fixtures.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ibetz1/json-flow/diff"
	"github.com/Ibetz1/json-flow/node"
)

type Fixture struct {
	Name        string      `json:"name"`
	DocA        string      `json:"doc_a"`
	DocB        string      `json:"doc_b"`
	RootKind    string      `json:"root_kind"`
	ContentHash string      `json:"content_hash_hex,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Tree        interface{} `json:"tree,omitempty"`
}

type scenario struct {
	name  string
	a, b  string
	notes string
}

var scenarios = []scenario{
	{
		name:  "add_field",
		a:     `{"a": 1}`,
		b:     `{"a": 1, "b": 2}`,
		notes: "a new object key appears",
	},
	{
		name:  "remove_field",
		a:     `{"a": 1, "b": 2}`,
		b:     `{"a": 1}`,
		notes: "an existing object key disappears",
	},
	{
		name:  "change_scalar",
		a:     `{"a": 1}`,
		b:     `{"a": 2}`,
		notes: "a scalar value changes under the same key",
	},
	{
		name:  "nested_change",
		a:     `{"a": {"b": 1, "c": 2}}`,
		b:     `{"a": {"b": 1, "c": 3}}`,
		notes: "roll-up propagates Changed to an ancestor whose only mutated descendant is two levels down",
	},
	{
		name:  "array_growth",
		a:     `{"items": [1, 2]}`,
		b:     `{"items": [1, 2, 3]}`,
		notes: "array diff is positional; trailing elements are Added",
	},
	{
		name:  "kind_change",
		a:     `{"a": {"b": 1}}`,
		b:     `{"a": [1, 2]}`,
		notes: "object becomes array under the same key: Changed with no Child, not a structural descent",
	},
}

func buildTree(a, b node.Node) (*diff.DiffTree, error) {
	return diff.Diff(&a, &b)
}

func render(t *diff.DiffTree, idx int) map[string]interface{} {
	n := t.Nodes[idx]
	view := map[string]interface{}{"kind": n.Kind.String()}
	if n.Key.Present() {
		view["key"] = n.Key.String()
	}
	var children []map[string]interface{}
	for _, c := range diff.IterSiblings(t, n.Child) {
		children = append(children, render(t, c))
	}
	if children != nil {
		view["children"] = children
	}
	return view
}

func main() {
	outDir := flag.String("out", "testdata/fixtures", "output directory for fixtures")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	for _, sc := range scenarios {
		a, err := parseString(sc.a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse doc_a for %s: %v\n", sc.name, err)
			os.Exit(1)
		}
		b, err := parseString(sc.b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse doc_b for %s: %v\n", sc.name, err)
			os.Exit(1)
		}

		tree, err := buildTree(a, b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "diff %s: %v\n", sc.name, err)
			os.Exit(1)
		}

		hash, err := node.ContentHash(b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "content hash %s: %v\n", sc.name, err)
			os.Exit(1)
		}

		fixture := Fixture{
			Name:        sc.name,
			DocA:        sc.a,
			DocB:        sc.b,
			RootKind:    tree.Nodes[tree.Root].Kind.String(),
			ContentHash: hex.EncodeToString(hash[:]),
			Notes:       sc.notes,
			Tree:        render(tree, tree.Root),
		}

		path := filepath.Join(*outDir, sc.name+".json")
		data, err := json.MarshalIndent(fixture, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal %s: %v\n", sc.name, err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func parseString(doc string) (node.Node, error) {
	f, err := os.CreateTemp("", "doctimeline-fixture-*.json")
	if err != nil {
		return node.Node{}, err
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if _, err := f.WriteString(doc); err != nil {
		return node.Node{}, err
	}
	if err := f.Close(); err != nil {
		return node.Node{}, err
	}
	return node.Parse(f.Name())
}
