// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xatomic provides tagged-pointer primitives for the lock-free
// core. A tagged pointer pairs an object pointer with a small counter
// used to defeat the ABA problem on structures that recycle nodes
// (free-lists, DHP's shared pool, the Ellen tree's update descriptors).
//
// The C++ originals this package is modeled after pack the tag into
// the pointer's unused low bits. Go cannot do that safely: the garbage
// collector requires any word of pointer-typed memory to hold either
// nil or a valid pointer, and a bare uintptr does not keep its
// referent alive. xatomic.Tagged instead boxes the (pointer, tag) pair
// behind a single allocation and swaps the box atomically.
package xatomic

import "sync/atomic"

// Tagged is an immutable (pointer, tag) pair. Two Tagged values compare
// equal as CAS operands only when both the pointer and the tag match,
// which is what makes the tag effective against ABA: a slot recycled
// through the same pointer value with a bumped tag is a different
// logical value.
type Tagged[T any] struct {
	Ptr *T
	Tag uint64
}

// Next returns a Tagged holding ptr with t's tag advanced by one.
// Callers use it to build the replacement value of a successful
// CompareAndSwap.
func (t Tagged[T]) Next(ptr *T) Tagged[T] {
	return Tagged[T]{Ptr: ptr, Tag: t.Tag + 1}
}

// AtomicTagged is an atomically-accessed Tagged[T]. The zero value
// holds a nil pointer and tag zero.
type AtomicTagged[T any] struct {
	box atomic.Pointer[Tagged[T]]
}

// NewAtomicTagged returns an AtomicTagged initialized to (ptr, 0).
func NewAtomicTagged[T any](ptr *T) *AtomicTagged[T] {
	a := &AtomicTagged[T]{}
	a.box.Store(&Tagged[T]{Ptr: ptr})
	return a
}

func (a *AtomicTagged[T]) load() Tagged[T] {
	p := a.box.Load()
	if p == nil {
		return Tagged[T]{}
	}
	return *p
}

// LoadAcquire returns the current (pointer, tag) pair.
func (a *AtomicTagged[T]) LoadAcquire() Tagged[T] {
	return a.load()
}

// LoadRelaxed returns the current (pointer, tag) pair. Go's memory
// model gives atomic.Pointer loads acquire semantics unconditionally;
// LoadRelaxed exists so call sites can document intent even though it
// behaves the same as LoadAcquire.
func (a *AtomicTagged[T]) LoadRelaxed() Tagged[T] {
	return a.load()
}

// StoreRelease unconditionally replaces the pair with (ptr, tag).
func (a *AtomicTagged[T]) StoreRelease(ptr *T, tag uint64) {
	a.box.Store(&Tagged[T]{Ptr: ptr, Tag: tag})
}

// CompareAndSwapAcqRel replaces the pair with (newPtr, old.Tag+1) iff
// the current pair equals old. It reports whether the swap happened.
func (a *AtomicTagged[T]) CompareAndSwapAcqRel(old Tagged[T], newPtr *T) bool {
	next := &Tagged[T]{Ptr: newPtr, Tag: old.Tag + 1}
	for {
		cur := a.box.Load()
		curVal := Tagged[T]{}
		if cur != nil {
			curVal = *cur
		}
		if curVal.Ptr != old.Ptr || curVal.Tag != old.Tag {
			return false
		}
		if a.box.CompareAndSwap(cur, next) {
			return true
		}
		// Lost the race against an equal-value box written by another
		// goroutine (e.g. a StoreRelease of the same logical value);
		// re-read and re-check before giving up.
	}
}

// CompareAndSwapRelaxed behaves like CompareAndSwapAcqRel. It exists
// for call sites that only need relaxed ordering on the scalar fields
// of the surrounding structure and want to name that intent locally.
func (a *AtomicTagged[T]) CompareAndSwapRelaxed(old Tagged[T], newPtr *T) bool {
	return a.CompareAndSwapAcqRel(old, newPtr)
}

// CompareAndSwapTag replaces the pair with (newPtr, newTag) iff the
// current pair equals old. Unlike CompareAndSwapAcqRel, the
// replacement tag is caller-chosen rather than old.Tag+1 — for sites
// where the tag encodes a small state (a tombstone bit, an
// UpdateDescriptor's operation kind) rather than an ABA generation
// counter.
func (a *AtomicTagged[T]) CompareAndSwapTag(old Tagged[T], newPtr *T, newTag uint64) bool {
	next := &Tagged[T]{Ptr: newPtr, Tag: newTag}
	for {
		cur := a.box.Load()
		curVal := Tagged[T]{}
		if cur != nil {
			curVal = *cur
		}
		if curVal.Ptr != old.Ptr || curVal.Tag != old.Tag {
			return false
		}
		if a.box.CompareAndSwap(cur, next) {
			return true
		}
	}
}
