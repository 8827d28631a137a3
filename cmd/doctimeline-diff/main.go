// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command doctimeline-diff structurally diffs two JSON documents and
// prints the resulting diff tree as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Ibetz1/json-flow/diff"
	"github.com/Ibetz1/json-flow/node"
)

type diffNodeView struct {
	Key      string         `json:"key,omitempty"`
	Kind     string         `json:"kind"`
	Children []diffNodeView `json:"children,omitempty"`
}

func render(t *diff.DiffTree, idx int) diffNodeView {
	n := t.Nodes[idx]
	view := diffNodeView{Kind: n.Kind.String()}
	if n.Key.Present() {
		view.Key = n.Key.String()
	}
	for _, c := range diff.IterSiblings(t, n.Child) {
		view.Children = append(view.Children, render(t, c))
	}
	return view
}

func main() {
	aPath := flag.String("a", "", "path to the earlier JSON document")
	bPath := flag.String("b", "", "path to the later JSON document")
	keyPath := flag.String("path", "", "dotted key path to filter the output to, e.g. settings.theme")
	indexed := flag.Bool("indexed", false, "use the hash-indexed object diff instead of the default linear scan")
	flag.Parse()

	if *aPath == "" || *bPath == "" {
		fmt.Fprintln(os.Stderr, "usage: doctimeline-diff -a <file> -b <file> [-path a.b.c] [-indexed]")
		os.Exit(2)
	}

	a, err := node.Parse(*aPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *aPath, err)
		os.Exit(1)
	}
	b, err := node.Parse(*bPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *bPath, err)
		os.Exit(1)
	}

	var tree *diff.DiffTree
	if *indexed {
		tree, err = diff.ObjectDiffWithIndex(a, b)
	} else {
		tree, err = diff.Diff(&a, &b)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "diff: %v\n", err)
		os.Exit(1)
	}

	root := tree.Root
	if *keyPath != "" {
		segments := strings.Split(*keyPath, ".")
		matched, ok := descendKeyPath(tree, tree.Root, segments)
		if !ok {
			fmt.Fprintf(os.Stderr, "path %q not present in either document\n", *keyPath)
			os.Exit(1)
		}
		root = matched
	}

	out, err := json.MarshalIndent(render(tree, root), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func descendKeyPath(t *diff.DiffTree, head int, path []string) (int, bool) {
	cur := head
	for _, want := range path {
		child, ok := diff.Child(t, cur)
		if !ok {
			return 0, false
		}
		found := false
		for _, idx := range diff.IterSiblings(t, child) {
			if t.Nodes[idx].Key.Present() && t.Nodes[idx].Key.String() == want {
				cur = idx
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return cur, true
}
