// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xatomic_test

import (
	"testing"

	"code.hybscloud.com/lfds/internal/xatomic"
)

type node struct{ v int }

func TestAtomicTaggedLoadStore(t *testing.T) {
	n1 := &node{v: 1}
	a := xatomic.NewAtomicTagged(n1)

	got := a.LoadAcquire()
	if got.Ptr != n1 || got.Tag != 0 {
		t.Fatalf("LoadAcquire: got (%v, %d), want (%v, 0)", got.Ptr, got.Tag, n1)
	}

	n2 := &node{v: 2}
	a.StoreRelease(n2, 5)
	got = a.LoadAcquire()
	if got.Ptr != n2 || got.Tag != 5 {
		t.Fatalf("after StoreRelease: got (%v, %d), want (%v, 5)", got.Ptr, got.Tag, n2)
	}
}

func TestCompareAndSwapAcqRelBumpsTag(t *testing.T) {
	n1 := &node{v: 1}
	a := xatomic.NewAtomicTagged(n1)
	old := a.LoadAcquire()

	n2 := &node{v: 2}
	if !a.CompareAndSwapAcqRel(old, n2) {
		t.Fatal("CompareAndSwapAcqRel: expected success on first attempt")
	}
	got := a.LoadAcquire()
	if got.Ptr != n2 || got.Tag != old.Tag+1 {
		t.Fatalf("after CAS: got (%v, %d), want (%v, %d)", got.Ptr, got.Tag, n2, old.Tag+1)
	}

	// Retrying with the stale `old` value must fail: the tag has moved on.
	if a.CompareAndSwapAcqRel(old, n1) {
		t.Fatal("CompareAndSwapAcqRel: stale old value unexpectedly succeeded")
	}
}

func TestCompareAndSwapTagSetsExplicitTag(t *testing.T) {
	n1 := &node{v: 1}
	a := xatomic.NewAtomicTagged(n1)
	old := a.LoadAcquire()

	n2 := &node{v: 2}
	if !a.CompareAndSwapTag(old, n2, 3) {
		t.Fatal("CompareAndSwapTag: expected success")
	}
	got := a.LoadAcquire()
	if got.Ptr != n2 || got.Tag != 3 {
		t.Fatalf("after CompareAndSwapTag: got (%v, %d), want (%v, 3)", got.Ptr, got.Tag, n2)
	}
}

func TestAtomicTaggedNilPointer(t *testing.T) {
	a := xatomic.NewAtomicTagged[node](nil)
	got := a.LoadAcquire()
	if got.Ptr != nil || got.Tag != 0 {
		t.Fatalf("zero-initialized AtomicTagged: got (%v, %d), want (nil, 0)", got.Ptr, got.Tag)
	}
}

func TestTaggedNext(t *testing.T) {
	n1 := &node{v: 1}
	tg := xatomic.Tagged[node]{Ptr: n1, Tag: 4}
	n2 := &node{v: 2}
	next := tg.Next(n2)
	if next.Ptr != n2 || next.Tag != 5 {
		t.Fatalf("Next: got (%v, %d), want (%v, 5)", next.Ptr, next.Tag, n2)
	}
}
