// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"sync/atomic"

	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/smr"
)

// optNode is OptimisticQueue's doubly-linked node: next is the single
// source of truth for the logical FIFO order; prev is a hint only,
// maintained best-effort and repaired lazily.
type optNode[T any] struct {
	next atomic.Pointer[optNode[T]]
	prev atomic.Pointer[optNode[T]]
	val  T
}

const (
	optSlotTail = 0
	optSlotHead = 1
	optSlotWalk = 2
)

// OptimisticQueue is spec §4.6's doubly-linked queue: enqueue installs
// next on the old tail first — the fast path, and the only path that
// matters for correctness — then best-effort writes prev on the new
// tail. Pop advances along next alone and never reads prev; prev is
// consulted only by Back, which runs fixList to re-establish prev
// links lazily when the hint it finds is nil or stale. The queue is
// linearizable on the next chain alone.
//
// Grounded on msqueue.go's CAS retry-loop and smr.Domain wiring,
// extended with the second link per spec §4.6; no teacher source
// covers a doubly-linked lock-free queue directly, so the prev-repair
// walk is original to this generalization, built from the same
// protect/retire idiom as the rest of the queue family.
type OptimisticQueue[T any] struct {
	head atomic.Pointer[optNode[T]]
	tail atomic.Pointer[optNode[T]]

	domain       *smr.Domain
	bo           backoff.Kind
	disposer     Disposer[T]
	itemCounter  bool
	size         atomic.Int64
	statsEnabled bool
	stats        statCounters
}

// NewOptimisticQueue creates an empty OptimisticQueue backed by
// cfg.Domain.
func NewOptimisticQueue[T any](cfg *Config) *OptimisticQueue[T] {
	dummy := &optNode[T]{}
	q := &OptimisticQueue[T]{
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
func (q *OptimisticQueue[T]) WithDisposer(disposer Disposer[T]) *OptimisticQueue[T] {
	q.disposer = disposer
	return q
}

func (q *OptimisticQueue[T]) dispose(n *optNode[T]) {
	if q.disposer != nil {
		q.disposer(&n.val)
	}
}

// Push enqueues v. It always succeeds.
func (q *OptimisticQueue[T]) Push(ctx *smr.ThreadContext, v T) bool {
	n := &optNode[T]{val: v}
	bo := backoff.New(q.bo)
	g := smr.AcquireGuard(ctx, optSlotTail)
	defer g.Release()
	for {
		t := smr.Protect(g, &q.tail)
		next := t.next.Load()
		if t != q.tail.Load() {
			continue
		}
		if next != nil {
			// A concurrent enqueuer already installed its node but has not
			// yet swung tail; help it along before retrying our own CAS.
			q.tail.CompareAndSwap(t, next)
			bo.Step()
			continue
		}
		if !t.next.CompareAndSwap(nil, n) {
			bo.Step()
			continue
		}
		// Fast path committed: n is now reachable via next. prev is a
		// hint only, so a best-effort, unsynchronized write is enough.
		n.prev.Store(t)
		q.tail.CompareAndSwap(t, n)
		if q.itemCounter {
			q.size.Add(1)
		}
		if q.statsEnabled {
			q.stats.recordPush()
		}
		return true
	}
}

// Pop dequeues the oldest value. It returns (zero, false) only when
// the queue is empty.
func (q *OptimisticQueue[T]) Pop(ctx *smr.ThreadContext) (T, bool) {
	bo := backoff.New(q.bo)
	gHead := smr.AcquireGuard(ctx, optSlotHead)
	gNext := smr.AcquireGuard(ctx, optSlotWalk)
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

// Back returns the value immediately behind tail — the
// second-most-recently-pushed element — without removing anything. It
// reports (zero, false) when the queue holds fewer than two elements.
// This is the reverse-traversal operation doc.go's "OptimisticQueue
// suits workloads that also need backward traversal from tail"
// describes: the one caller that actually consults prev, repairing it
// via fixList when it is nil or untrustworthy instead of assuming
// Push's best-effort write already landed.
func (q *OptimisticQueue[T]) Back(ctx *smr.ThreadContext) (T, bool) {
	bo := backoff.New(q.bo)
	gTail := smr.AcquireGuard(ctx, optSlotTail)
	gHead := smr.AcquireGuard(ctx, optSlotHead)
	gPrev := smr.AcquireGuard(ctx, optSlotWalk)
	defer gTail.Release()
	defer gHead.Release()
	defer gPrev.Release()

	for {
		t := smr.Protect(gTail, &q.tail)
		h := smr.Protect(gHead, &q.head)
		if t != q.tail.Load() || h != q.head.Load() {
			bo.Step()
			continue
		}
		first := h.next.Load()
		if first == nil || first == t {
			var zero T
			return zero, false
		}

		prev := smr.Protect(gPrev, &t.prev)
		if !q.prevTrustworthy(h, t, prev) {
			q.fixList(ctx)
			prev = smr.Protect(gPrev, &t.prev)
		}
		if !q.prevTrustworthy(h, t, prev) {
			var zero T
			return zero, false
		}
		return prev.val, true
	}
}

// prevTrustworthy reports whether candidate is genuinely t's
// predecessor: it must exist, not be the dummy head, and its own next
// link must point back at t. The last check is what lets Back tell a
// stale prev (left over from before a fixList repair) apart from a
// correct one, since next — never prev — is the chain's source of
// truth.
func (q *OptimisticQueue[T]) prevTrustworthy(h, t, candidate *optNode[T]) bool {
	return candidate != nil && candidate != h && candidate.next.Load() == t
}

// fixList starts at tail and steps back toward head, re-establishing
// each node's prev link; every predecessor is found by predecessorOf's
// forward scan from head along the trusted next chain. Invoked lazily — only a
// caller that actually needs a correct prev (e.g. a reverse
// traversal) pays this cost; plain Push/Pop never call it, matching
// spec §4.6's "prev only ever speeds up, never decides correctness."
func (q *OptimisticQueue[T]) fixList(ctx *smr.ThreadContext) {
	g := smr.AcquireGuard(ctx, optSlotWalk)
	defer g.Release()
	cur := smr.Protect(g, &q.tail)
	for {
		curPrev := cur.prev.Load()
		prevCandidate := q.predecessorOf(cur)
		if prevCandidate == nil {
			return
		}
		if curPrev != prevCandidate {
			cur.prev.Store(prevCandidate)
		}
		cur = prevCandidate
		if cur == q.head.Load() {
			return
		}
	}
}

// predecessorOf scans forward from head to find n's immediate
// predecessor along next. Used only by the lazy prev-repair path.
func (q *OptimisticQueue[T]) predecessorOf(n *optNode[T]) *optNode[T] {
	walk := q.head.Load()
	for {
		next := walk.next.Load()
		if next == n {
			return walk
		}
		if next == nil {
			return nil
		}
		walk = next
	}
}

// Empty reports whether the queue currently has no elements.
func (q *OptimisticQueue[T]) Empty(ctx *smr.ThreadContext) bool {
	g := smr.AcquireGuard(ctx, optSlotHead)
	defer g.Release()
	h := smr.Protect(g, &q.head)
	return h.next.Load() == nil
}

// Size returns the exact element count if cfg.ItemCounter was set, or
// 0 otherwise.
func (q *OptimisticQueue[T]) Size() int64 {
	if !q.itemCounter {
		return 0
	}
	return q.size.Load()
}

// Statistics returns a snapshot of the queue's operation counters.
func (q *OptimisticQueue[T]) Statistics() Statistics {
	return q.stats.snapshot()
}
