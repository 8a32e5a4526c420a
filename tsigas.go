// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfds/backoff"
)

// Each slot's mark packs a 2-bit state into the top of a uint64 with
// the slot's round number, generalizing spec §4.8's NULL_MARK/
// OLD_MARK pair: a producer transitions a slot from Empty(round) to
// Full(round) and a consumer transitions it back to Empty(round+1),
// each by first CAS-claiming an exclusive Reserved(round) stage so
// the payload (a boxed *T, not a single machine word) can be written
// or read without racing a second claimant.
const tsigasStateShift = 62
const tsigasRoundMask = uint64(1)<<tsigasStateShift - 1

const (
	tsigasEmpty uint64 = iota
	tsigasReserved
	tsigasFull
)

func tsigasMark(state, round uint64) uint64 { return state<<tsigasStateShift | (round & tsigasRoundMask) }

// TsigasCycleQueue is the bounded, pointer-ring MPMC queue of spec
// §4.8: producers and consumers each CAS the slot at their index from
// one marker to the next and then advance the index by CAS. A caller
// whose slot does not yet carry the expected marker (another caller is
// mid-transition on it) backs off and re-reads the indices; it does
// not skip ahead to a later slot.
//
// Grounded on the teacher's mpmc_compact.go round-marker idiom: there,
// a single-word uintptr payload is packed directly into the same
// atomic as the marker, so one CAS both claims the slot and commits
// the value. A boxed *T payload can't share a CAS with its marker, so
// this generalization adds the transient Reserved stage above to keep
// the same one-writer-at-a-time guarantee spec §4.8 describes.
type TsigasCycleQueue[T any] struct {
	_        pad
	tail     atomix.Uint64
	_        pad
	head     atomix.Uint64
	_        pad
	buffer   []tsigasSlot[T]
	mask     uint64
	capacity uint64
	bo       backoff.Kind
}

type tsigasSlot[T any] struct {
	mark atomix.Uint64
	val  T
}

// NewTsigasCycleQueue creates a queue of the requested capacity
// (rounded up to a power of two).
func NewTsigasCycleQueue[T any](opts *BoundedOptions) *TsigasCycleQueue[T] {
	n := uint64(roundToPow2(opts.capacity))
	q := &TsigasCycleQueue[T]{
		buffer:   make([]tsigasSlot[T], n),
		mask:     n - 1,
		capacity: n,
		bo:       opts.backoff,
	}
	for i := range q.buffer {
		q.buffer[i].mark.StoreRelaxed(tsigasMark(tsigasEmpty, 0))
	}
	return q
}

func (q *TsigasCycleQueue[T]) round(pos uint64) uint64 {
	return pos / (q.mask + 1)
}

// Push enqueues v. It returns false only when the ring is full (spec
// §4.8: "push returns false when the ring is full"); the queue is
// left unchanged in that case.
func (q *TsigasCycleQueue[T]) Push(v T) bool {
	bo := backoff.New(q.bo)
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()
		if tail != q.tail.LoadAcquire() {
			continue
		}
		if tail >= head+q.capacity {
			return false
		}
		slot := &q.buffer[tail&q.mask]
		round := q.round(tail)
		expected := tsigasMark(tsigasEmpty, round)
		if slot.mark.LoadAcquire() != expected {
			bo.Step()
			continue
		}
		if !slot.mark.CompareAndSwapAcqRel(expected, tsigasMark(tsigasReserved, round)) {
			bo.Step()
			continue
		}
		slot.val = v
		slot.mark.StoreRelease(tsigasMark(tsigasFull, round))
		q.tail.CompareAndSwapAcqRel(tail, tail+1)
		return true
	}
}

// Pop dequeues the oldest value. It returns (zero, false) only when
// the ring is empty; the queue is left unchanged in that case.
func (q *TsigasCycleQueue[T]) Pop() (T, bool) {
	bo := backoff.New(q.bo)
	for {
		head := q.head.LoadAcquire()
		tail := q.tail.LoadAcquire()
		if head >= tail {
			var zero T
			return zero, false
		}
		slot := &q.buffer[head&q.mask]
		round := q.round(head)
		expected := tsigasMark(tsigasFull, round)
		if slot.mark.LoadAcquire() != expected {
			bo.Step()
			continue
		}
		if !slot.mark.CompareAndSwapAcqRel(expected, tsigasMark(tsigasReserved, round)) {
			bo.Step()
			continue
		}
		v := slot.val
		var zero T
		slot.val = zero
		slot.mark.StoreRelease(tsigasMark(tsigasEmpty, round+1))
		q.head.CompareAndSwapAcqRel(head, head+1)
		return v, true
	}
}

// Empty reports whether the queue currently has no elements. Exact
// absent concurrent mutators; a snapshot otherwise.
func (q *TsigasCycleQueue[T]) Empty() bool {
	return q.head.LoadAcquire() >= q.tail.LoadAcquire()
}

// Cap returns the queue's (power-of-two-rounded) capacity.
func (q *TsigasCycleQueue[T]) Cap() int {
	return int(q.capacity)
}
