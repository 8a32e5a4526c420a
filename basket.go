// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/internal/xatomic"
	"code.hybscloud.com/lfds/smr"
)

// basketNode is BasketQueue's node. next is a tagged pointer whose tag
// field doubles as the tombstone bit spec §4.7 describes packed into
// next's low bit: 0 means live, 1 means logically removed. Reusing
// xatomic.AtomicTagged here (rather than inventing a second tagged-
// pointer type) is the Go-idiomatic rendering of "next pointer carries
// a 1-bit tombstone" once the tag can't be packed into the pointer's
// spare bits directly.
type basketNode[T any] struct {
	next xatomic.AtomicTagged[basketNode[T]]
	val  T
}

const (
	basketTombstoneLive = 0
	basketTombstoneDead = 1
)

const (
	basketSlotTail = 0
	basketSlotWalk = 1
)

// BasketQueue is spec §4.7's queue with a tombstone-claimed dequeue.
// Push links each new node after the current last node the same way
// MSQueue does: a producer that loses the CAS on tail.next re-reads
// tail, helps swing it to the winner's node, and retries after that
// node. Push therefore never places two nodes at one logical position,
// and no multi-node baskets form. Dequeue walks from head over
// tombstoned nodes, CASes the first live node's tag to dead, and the
// CAS winner returns that node's value; an opportunistic head advance
// physically unlinks any now-dead prefix.
//
// Grounded on msqueue.go's structure, replacing MSQueue's head-swap
// Pop with a tombstone-CAS scan, per the implementation cues in spec
// §4.7.
type BasketQueue[T any] struct {
	head xatomic.AtomicTagged[basketNode[T]]
	tail xatomic.AtomicTagged[basketNode[T]]

	domain       *smr.Domain
	bo           backoff.Kind
	disposer     Disposer[T]
	statsEnabled bool
	stats        statCounters
}

// Size reporting is intentionally omitted: basket reordering makes an
// exact live-element count expensive to define consistently (a count
// taken mid-basket-formation would double-count siblings still racing
// for the same logical position), so BasketQueue exposes no Size
// method, unlike the rest of the queue family.

// NewBasketQueue creates an empty BasketQueue backed by cfg.Domain.
func NewBasketQueue[T any](cfg *Config) *BasketQueue[T] {
	dummy := &basketNode[T]{}
	q := &BasketQueue[T]{
		domain:       cfg.Domain,
		bo:           cfg.Backoff,
		statsEnabled: cfg.StatsEnabled,
	}
	q.head.StoreRelease(dummy, basketTombstoneLive)
	q.tail.StoreRelease(dummy, basketTombstoneLive)
	return q
}

// WithDisposer installs disposer, invoked on a node's payload once the
// node is safe to reclaim.
func (q *BasketQueue[T]) WithDisposer(disposer Disposer[T]) *BasketQueue[T] {
	q.disposer = disposer
	return q
}

func (q *BasketQueue[T]) dispose(n *basketNode[T]) {
	if q.disposer != nil {
		q.disposer(&n.val)
	}
}

// Push enqueues v. It always succeeds; when another producer wins the
// CAS on tail.next, Push re-reads tail and retries after the winner's
// node.
func (q *BasketQueue[T]) Push(ctx *smr.ThreadContext, v T) bool {
	n := &basketNode[T]{}
	n.val = v
	bo := backoff.New(q.bo)
	g := smr.AcquireGuard(ctx, basketSlotTail)
	defer g.Release()
	for {
		t := smr.ProtectTagged(g, &q.tail)
		next := t.Ptr.next.LoadAcquire()
		if t.Ptr != q.tail.LoadAcquire().Ptr {
			continue
		}
		if next.Ptr != nil {
			q.tail.CompareAndSwapAcqRel(t, next.Ptr)
			bo.Step()
			continue
		}
		if t.Ptr.next.CompareAndSwapTag(next, n, basketTombstoneLive) {
			q.tail.CompareAndSwapAcqRel(t, n)
			if q.statsEnabled {
				q.stats.recordPush()
			}
			return true
		}
		// Lost the race: another producer's node is now t.next. The
		// next round reads that node as next, helps swing tail to it,
		// and then links n after it.
		bo.Step()
	}
}

// Pop dequeues a value. It returns (zero, false) only when the queue
// is empty.
//
// head always advances directly to the just-claimed node itself
// (mirroring MSQueue's "the pre-pop head becomes the next dummy"),
// not to its predecessor: every node strictly between the old head
// and the newly-claimed one — the old head plus any already-dead
// nodes walked over on the way — is retired together, and only by
// the thread whose head-CAS actually wins. A losing CAS means some
// other thread already advanced head; this thread retires nothing and
// still returns the value it claimed, so a node is never handed to
// Retire by more than one caller.
func (q *BasketQueue[T]) Pop(ctx *smr.ThreadContext) (T, bool) {
	bo := backoff.New(q.bo)
	gHead := smr.AcquireGuard(ctx, basketSlotTail)
	gWalk := smr.AcquireGuard(ctx, basketSlotWalk)
	defer gHead.Release()
	defer gWalk.Release()
	for {
		h := smr.ProtectTagged(gHead, &q.head)
		cur := h
		visited := []*basketNode[T]{h.Ptr}
		for {
			next := smr.ProtectTagged(gWalk, &cur.Ptr.next)
			if next.Ptr == nil {
				var zero T
				if q.statsEnabled {
					q.stats.recordEmpty()
				}
				return zero, false
			}
			if next.Tag == basketTombstoneDead {
				cur = next
				visited = append(visited, cur.Ptr)
				continue
			}
			// next is live: try to claim it.
			claimed := xatomic.Tagged[basketNode[T]]{Ptr: next.Ptr, Tag: basketTombstoneLive}
			if !cur.Ptr.next.CompareAndSwapTag(claimed, next.Ptr, basketTombstoneDead) {
				// Someone else claimed or the node moved; re-read from
				// the same predecessor.
				bo.Step()
				continue
			}
			val := next.Ptr.val
			if q.statsEnabled {
				q.stats.recordPop()
			}
			if q.head.CompareAndSwapAcqRel(h, next.Ptr) {
				for _, n := range visited {
					smr.Retire(ctx, n, q.dispose)
				}
			}
			return val, true
		}
	}
}

// Empty reports whether the queue currently has no live elements.
func (q *BasketQueue[T]) Empty(ctx *smr.ThreadContext) bool {
	g := smr.AcquireGuard(ctx, basketSlotWalk)
	defer g.Release()
	h := smr.ProtectTagged(g, &q.head)
	cur := h
	for {
		next := cur.Ptr.next.LoadAcquire()
		if next.Ptr == nil {
			return true
		}
		if next.Tag == basketTombstoneDead {
			cur = next
			continue
		}
		return false
	}
}

// Statistics returns a snapshot of the queue's operation counters.
func (q *BasketQueue[T]) Statistics() Statistics {
	return q.stats.snapshot()
}
