// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

import "sync/atomic"

// ThreadContext is the explicit per-goroutine handle every Domain
// operation requires. Go has no safe goroutine-local storage, so the
// caller obtains one from Domain.Attach and carries it for the life
// of the goroutine (or pooled worker) that will touch the domain's
// data structures, passing it into Protect/Retire/Guard on every call
// — there is no implicit "current thread" to infer it from.
type ThreadContext struct {
	domain *Domain
	rec    *hazardRecord // nil under NoReclaim

	// retireList is this context's private set of not-yet-freed
	// nodes under the HazardPointers discipline. It is touched only
	// by the owning goroutine, so it needs no synchronization of its
	// own; only the hazard slots it is checked against are shared.
	retireList []retiredItem

	detached bool
}

type retiredItem struct {
	ptr     *byte
	dispose func()
}

// retiredNode is a node of the domain-wide orphan stack: retired
// items a detaching ThreadContext could not finish reclaiming, handed
// off for any later scan (by any thread) to absorb. Each push
// allocates a fresh node, so the stack needs no ABA tag: a popped
// node is never observed twice.
type retiredNode struct {
	item retiredItem
	next atomic.Pointer[retiredNode]
}

// orphans is the domain-wide landing spot for a detaching
// ThreadContext's unreclaimed retire list.
type orphanStack struct {
	head atomic.Pointer[retiredNode]
}

func (s *orphanStack) push(item retiredItem) {
	n := &retiredNode{item: item}
	for {
		head := s.head.Load()
		n.next.Store(head)
		if s.head.CompareAndSwap(head, n) {
			return
		}
	}
}

// drainAll pops every node currently on the stack and returns their
// items. Concurrent pushes that race with a drain simply land on the
// new (possibly nil) head and are picked up by a later drain.
func (s *orphanStack) drainAll() []retiredItem {
	var out []retiredItem
	for {
		head := s.head.Load()
		if head == nil {
			return out
		}
		if s.head.CompareAndSwap(head, nil) {
			for n := head; n != nil; n = n.next.Load() {
				out = append(out, n.item)
			}
			return out
		}
	}
}

// Attach registers the calling goroutine with the Domain and returns
// the handle it must pass to every subsequent Protect/Retire/Guard
// call. Attach is relatively expensive (it may allocate a hazard
// record); callers attach once per long-lived goroutine, not per
// operation.
func (d *Domain) Attach() *ThreadContext {
	d.attached.Add(1)
	ctx := &ThreadContext{domain: d}
	if d.discipline != NoReclaim {
		ctx.rec = d.hp.acquireRecord()
	}
	return ctx
}

// Detach releases the ThreadContext's hazard record back to the
// Domain for reuse and hands off any nodes it could not yet reclaim
// to the domain's orphan list, where a later Scan by any other
// attached thread will absorb and retry them. ctx must not be used
// again after Detach.
func (ctx *ThreadContext) Detach() {
	if ctx.detached {
		return
	}
	ctx.detached = true

	ctx.scan()
	for _, item := range ctx.retireList {
		ctx.domain.orphansList().push(item)
	}
	ctx.retireList = nil

	if ctx.rec != nil {
		ctx.domain.hp.releaseRecord(ctx.rec)
	}
	ctx.domain.attached.Add(-1)
}

func (d *Domain) liveSetOrNil() []*byte {
	if d.discipline == NoReclaim {
		return nil
	}
	return d.hp.liveSet()
}

func (d *Domain) orphansList() *orphanStack {
	return &d.orphans
}

// scan first absorbs the domain's orphan list into ctx's private
// retire list, then drains that list, disposing every item no longer
// referenced by a live hazard slot anywhere in the domain and keeping
// the rest for a later scan. It is the Hazard Pointers half of spec
// §4.3(3): "reclamation ... happens during scan".
func (ctx *ThreadContext) scan() {
	ctx.retireList = append(ctx.retireList, ctx.domain.orphans.drainAll()...)
	live := ctx.domain.liveSetOrNil()
	remaining := ctx.retireList[:0]
	for _, item := range ctx.retireList {
		if live != nil && isLive(live, item.ptr) {
			remaining = append(remaining, item)
			continue
		}
		item.dispose()
	}
	ctx.retireList = remaining
}

// Scan forces an immediate reclamation pass over ctx's own retire
// list, regardless of whether it has crossed the domain's R_MAX
// threshold. Safe to call at any time; ForceDispose uses it to reach
// contexts the caller knows are quiesced.
func (ctx *ThreadContext) Scan() {
	if ctx.detached {
		panicNotAttached()
	}
	ctx.scan()
}
