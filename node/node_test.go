// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"strconv"
	"testing"
)

func TestEqualReflexive(t *testing.T) {
	cases := []Node{
		Null(),
		Bool(true),
		Bool(false),
		Number(3.14159),
		String("hello"),
		Object([]Entry{{Key: "a", Value: Number(1)}, {Key: "b", Value: String("x")}}),
		Array([]Node{Number(1), Number(2), Number(3)}),
	}
	for _, n := range cases {
		if !Equal(n, n) {
			t.Errorf("Equal(n, n) = false, want true for kind %v", n.Kind())
		}
	}
}

func TestEqualSymmetric(t *testing.T) {
	pairs := [][2]Node{
		{Number(1), Number(1)},
		{Number(1), Number(2)},
		{String("x"), String("x")},
		{String("x"), String("y")},
		{Bool(true), Bool(false)},
		{Null(), Bool(false)},
		{
			Object([]Entry{{Key: "a", Value: Number(1)}}),
			Object([]Entry{{Key: "a", Value: Number(1)}}),
		},
		{
			Object([]Entry{{Key: "a", Value: Number(1)}, {Key: "b", Value: Number(2)}}),
			Object([]Entry{{Key: "b", Value: Number(2)}, {Key: "a", Value: Number(1)}}),
		},
	}
	for _, p := range pairs {
		if Equal(p[0], p[1]) != Equal(p[1], p[0]) {
			t.Errorf("Equal not symmetric for %v, %v", p[0], p[1])
		}
	}
}

func TestEqualObjectIsPositionalNotKeyed(t *testing.T) {
	a := Object([]Entry{{Key: "a", Value: Number(1)}, {Key: "b", Value: Number(2)}})
	b := Object([]Entry{{Key: "b", Value: Number(2)}, {Key: "a", Value: Number(1)}})
	if Equal(a, b) {
		t.Errorf("Equal(a, b) = true, want false: reordered object entries must not be Equal")
	}
}

func TestEqualDifferentKinds(t *testing.T) {
	if Equal(Null(), Number(0)) {
		t.Errorf("Equal(Null(), Number(0)) = true, want false")
	}
	if Equal(Bool(false), String("")) {
		t.Errorf("Equal(Bool(false), String(\"\")) = true, want false")
	}
}

func TestObjectGet(t *testing.T) {
	obj := Object([]Entry{
		{Key: "first", Value: Number(1)},
		{Key: "second", Value: String("two")},
	})
	if v, ok := obj.Get("second"); !ok || v.Text() != "two" {
		t.Errorf("Get(second) = %v, %v; want \"two\", true", v, ok)
	}
	if _, ok := obj.Get("missing"); ok {
		t.Errorf("Get(missing) found a value, want not found")
	}
}

func TestLen(t *testing.T) {
	if got := Object([]Entry{{Key: "a", Value: Null()}}).Len(); got != 1 {
		t.Errorf("Object Len() = %d, want 1", got)
	}
	if got := Array([]Node{Null(), Null(), Null()}).Len(); got != 3 {
		t.Errorf("Array Len() = %d, want 3", got)
	}
	if got := Number(5).Len(); got != 0 {
		t.Errorf("Number Len() = %d, want 0", got)
	}
}

func TestStringFromNumberRoundTrips(t *testing.T) {
	cases := []float64{0, 1, -1, 3.14159, 1e20, 1e-20, 123456789.123456}
	for _, f := range cases {
		s := StringFromNumber(f)
		if got, err := strconv.ParseFloat(s, 64); err != nil || got != f {
			t.Errorf("StringFromNumber(%v) = %q, parses back to %v (err %v), want %v", f, s, got, err, f)
		}
	}
}

func TestContentHashStableAndSensitiveToOrder(t *testing.T) {
	a := Object([]Entry{{Key: "a", Value: Number(1)}, {Key: "b", Value: Number(2)}})
	aAgain := Object([]Entry{{Key: "a", Value: Number(1)}, {Key: "b", Value: Number(2)}})
	reordered := Object([]Entry{{Key: "b", Value: Number(2)}, {Key: "a", Value: Number(1)}})

	ha, err := ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash(a): %v", err)
	}
	hAgain, err := ContentHash(aAgain)
	if err != nil {
		t.Fatalf("ContentHash(aAgain): %v", err)
	}
	if ha != hAgain {
		t.Errorf("ContentHash not stable across equal inputs: %x != %x", ha, hAgain)
	}

	hReordered, err := ContentHash(reordered)
	if err != nil {
		t.Fatalf("ContentHash(reordered): %v", err)
	}
	if ha == hReordered {
		t.Errorf("ContentHash(a) == ContentHash(reordered), want different digests for reordered entries")
	}
}
