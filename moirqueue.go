// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"sync/atomic"

	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/smr"
)

// MoirQueue is the Moir/Shavit/Shafiei refinement of MSQueue (spec
// §4.5): a consumer that finds head caught up to tail swings head
// directly to the successor it just helped link, instead of looping
// back through the outer CAS retry, shaving the extra lagging-tail
// help pass off the common case. Structurally identical to MSQueue —
// same msNode[T], same dummy-node invariant, same smr.Domain-backed
// reclamation — so it is grounded on msqueue.go itself rather than a
// separate teacher source, exactly as spec §4.5 describes this as "a
// small variant of MSQueue, not a distinct data structure."
type MoirQueue[T any] struct {
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

// NewMoirQueue creates an empty MoirQueue backed by cfg.Domain.
func NewMoirQueue[T any](cfg *Config) *MoirQueue[T] {
	dummy := &msNode[T]{}
	q := &MoirQueue[T]{
		domain:       cfg.Domain,
		bo:           cfg.Backoff,
		itemCounter:  cfg.ItemCounter,
		statsEnabled: cfg.StatsEnabled,
	}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// WithDisposer installs disposer, invoked on a node's payload once the
// node is safe to reclaim.
func (q *MoirQueue[T]) WithDisposer(disposer Disposer[T]) *MoirQueue[T] {
	q.disposer = disposer
	return q
}

func (q *MoirQueue[T]) dispose(n *msNode[T]) {
	if q.disposer != nil {
		q.disposer(&n.val)
	}
}

// Push enqueues v. It always succeeds.
func (q *MoirQueue[T]) Push(ctx *smr.ThreadContext, v T) bool {
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
// the queue is empty. Unlike MSQueue.Pop, a consumer that observes
// head == tail with a non-nil successor swings head to that successor
// directly in the same iteration, rather than retrying the outer
// loop (spec §4.5's namesake optimization).
func (q *MoirQueue[T]) Pop(ctx *smr.ThreadContext) (T, bool) {
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

// Empty reports whether the queue currently has no elements.
func (q *MoirQueue[T]) Empty(ctx *smr.ThreadContext) bool {
	g := smr.AcquireGuard(ctx, msSlotPrimary)
	defer g.Release()
	h := smr.Protect(g, &q.head)
	return h.next.Load() == nil
}

// Size returns the exact element count if cfg.ItemCounter was set, or
// 0 otherwise.
func (q *MoirQueue[T]) Size() int64 {
	if !q.itemCounter {
		return 0
	}
	return q.size.Load()
}

// Statistics returns a snapshot of the queue's operation counters.
func (q *MoirQueue[T]) Statistics() Statistics {
	return q.stats.snapshot()
}
