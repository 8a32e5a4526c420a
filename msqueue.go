// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"sync/atomic"

	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/smr"
)

// msNode is the node type MSQueue (and its Moir refinement) link
// together: a single forward pointer plus a boxed payload. This is
// the Go rendering of spec §4.1/L8's intrusive/value-type duality —
// the algorithm itself is "intrusive" in that it only ever moves
// *msNode[T] pointers through CAS, never copies of T; MSQueue[T] is
// simultaneously the thin value-type adapter spec.md describes
// separately, since Go has no ambient container/node distinction
// worth re-deriving: client code never constructs an msNode by hand.
type msNode[T any] struct {
	next atomic.Pointer[msNode[T]]
	val  T
}

const (
	msSlotPrimary   = 0
	msSlotSecondary = 1
)

// MSQueue is the Michael–Scott queue of spec §4.4: an unbounded FIFO
// where head and tail always point at a real node (a shared dummy at
// construction), producers CAS a new node onto tail.next then
// best-effort swing tail, and consumers help swing a lagging tail
// before advancing head. Grounded on the teacher's CAS retry-loop
// idiom (mpmc_seq.go) generalized from a bounded ring to an unbounded
// linked list coordinated through an smr.Domain instead of fixed
// slots, since nodes here are allocated and retired rather than
// reused in place.
type MSQueue[T any] struct {
	head atomic.Pointer[msNode[T]]
	tail atomic.Pointer[msNode[T]]

	domain       *smr.Domain
	bo           backoff.Kind
	disposer     Disposer[T]
	itemCounter  bool
	size         atomic.Int64
	statsEnabled bool
	stats        statCounters
}

// NewMSQueue creates an empty MSQueue backed by cfg.Domain.
func NewMSQueue[T any](cfg *Config) *MSQueue[T] {
	dummy := &msNode[T]{}
	q := &MSQueue[T]{
		domain:       cfg.Domain,
		bo:           cfg.Backoff,
		itemCounter:  cfg.ItemCounter,
		statsEnabled: cfg.StatsEnabled,
	}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// WithDisposer installs disposer, invoked on a node's payload once
// the node is safe to reclaim (spec §6 "disposer: callback for
// reclaimed nodes"). Only meaningful for payload types that hold an
// external resource the client needs released deterministically;
// most callers never need it.
func (q *MSQueue[T]) WithDisposer(disposer Disposer[T]) *MSQueue[T] {
	q.disposer = disposer
	return q
}

func (q *MSQueue[T]) dispose(n *msNode[T]) {
	if q.disposer != nil {
		q.disposer(&n.val)
	}
}

// Push enqueues v. It always succeeds (the queue is unbounded); the
// bool return exists so MSQueue matches the bounded family's Push
// signature.
func (q *MSQueue[T]) Push(ctx *smr.ThreadContext, v T) bool {
	n := &msNode[T]{val: v}
	bo := backoff.New(q.bo)
	g := smr.AcquireGuard(ctx, msSlotPrimary)
	defer g.Release()
	for {
		t := smr.Protect(g, &q.tail)
		next := t.next.Load()
		if t != q.tail.Load() {
			continue
		}
		if next == nil {
			if t.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(t, n)
				if q.itemCounter {
					q.size.Add(1)
				}
				if q.statsEnabled {
					q.stats.recordPush()
				}
				return true
			}
		} else {
			q.tail.CompareAndSwap(t, next)
		}
		bo.Step()
	}
}

// Pop dequeues the oldest value. It returns (zero, false) only when
// the queue is empty.
func (q *MSQueue[T]) Pop(ctx *smr.ThreadContext) (T, bool) {
	bo := backoff.New(q.bo)
	gHead := smr.AcquireGuard(ctx, msSlotPrimary)
	gNext := smr.AcquireGuard(ctx, msSlotSecondary)
	defer gHead.Release()
	defer gNext.Release()
	for {
		h := smr.Protect(gHead, &q.head)
		t := q.tail.Load()
		n := smr.Protect(gNext, &h.next)
		if h != q.head.Load() {
			continue
		}
		if n == nil {
			var zero T
			if q.statsEnabled {
				q.stats.recordEmpty()
			}
			return zero, false
		}
		if h == t {
			q.tail.CompareAndSwap(h, n)
			bo.Step()
			continue
		}
		val := n.val
		if q.head.CompareAndSwap(h, n) {
			if q.itemCounter {
				q.size.Add(-1)
			}
			if q.statsEnabled {
				q.stats.recordPop()
			}
			smr.Retire(ctx, h, q.dispose)
			return val, true
		}
		bo.Step()
	}
}

// Empty reports whether the queue currently has no elements. A
// snapshot under concurrent mutation.
func (q *MSQueue[T]) Empty(ctx *smr.ThreadContext) bool {
	g := smr.AcquireGuard(ctx, msSlotPrimary)
	defer g.Release()
	h := smr.Protect(g, &q.head)
	return h.next.Load() == nil
}

// Size returns the exact element count if cfg.ItemCounter was set, or
// 0 otherwise (spec §6: "exact iff atomic counter configured; else
// 0").
func (q *MSQueue[T]) Size() int64 {
	if !q.itemCounter {
		return 0
	}
	return q.size.Load()
}

// Statistics returns a snapshot of the queue's operation counters.
// Zero-valued when the queue was not built with WithStats.
func (q *MSQueue[T]) Statistics() Statistics {
	return q.stats.snapshot()
}
