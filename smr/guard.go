// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

import (
	"sync/atomic"

	"code.hybscloud.com/lfds/internal/xatomic"
)

// Guard is a single hazard-pointer protection slot borrowed from a
// ThreadContext for the scope of one protect cycle (spec §4.3, step
// 1). HAZARD_COUNT — the Domain's slotsPerCtx — bounds how many
// distinct Guards a single ThreadContext can have outstanding at
// once; callers that must protect several pointers simultaneously
// (the Ellen tree needs grandparent, parent, and leaf) acquire one
// Guard per slot index.
type Guard struct {
	ctx  *ThreadContext
	slot int
}

// AcquireGuard binds slot (0-indexed, < HAZARD_COUNT) on ctx. It does
// not itself publish any pointer; call Protect to do that. Acquiring
// the same slot twice concurrently from the same ThreadContext is a
// caller bug (ThreadContext is not meant to be shared across
// goroutines) and is not detected here.
func AcquireGuard(ctx *ThreadContext, slot int) Guard {
	if ctx.detached {
		panicNotAttached()
	}
	if ctx.rec != nil && (slot < 0 || slot >= len(ctx.rec.slots)) {
		panicSlotExhausted(len(ctx.rec.slots), slot+1)
	}
	return Guard{ctx: ctx, slot: slot}
}

// Release clears the slot. Once released, any pointer previously
// returned by Protect through this Guard may be reclaimed by a
// concurrent scan.
func (g Guard) Release() {
	if g.ctx == nil || g.ctx.rec == nil {
		return
	}
	g.ctx.rec.slots[g.slot].Store(nil)
}

// Protect implements the protect cycle every read of a shared pointer
// must go through before dereferencing it (spec §4.3, step 1): load
// the atomic, publish into the guard's slot, reload and verify the
// pointer did not change underneath; retry on mismatch. Under a
// NoReclaim Domain there is nothing to protect against — no node is
// ever reclaimed early — so Protect degrades to a single Load.
func Protect[T any](g Guard, a *atomic.Pointer[T]) *T {
	if g.ctx == nil || g.ctx.rec == nil {
		return a.Load()
	}
	for {
		p := a.Load()
		g.ctx.rec.slots[g.slot].Store(toBytePtr(p))
		if a.Load() == p {
			return p
		}
	}
}

// ProtectTagged is Protect's counterpart for fields that carry a tag
// alongside the pointer (a tombstone bit, an UpdateDescriptor state):
// it publishes the pointer half into the guard's slot and retries
// until a stable (pointer, tag) snapshot is observed, so the caller
// gets both halves consistently.
func ProtectTagged[T any](g Guard, a *xatomic.AtomicTagged[T]) xatomic.Tagged[T] {
	if g.ctx == nil || g.ctx.rec == nil {
		return a.LoadAcquire()
	}
	for {
		t := a.LoadAcquire()
		g.ctx.rec.slots[g.slot].Store(toBytePtr(t.Ptr))
		if again := a.LoadAcquire(); again.Ptr == t.Ptr && again.Tag == t.Tag {
			return t
		}
	}
}

// Retire logically unlinks ptr: the caller must already have
// completed the CAS that made ptr unreachable from the structure.
// dispose runs exactly once, once no Guard anywhere in the domain
// still protects ptr — during a later Scan/ForceDispose under
// HazardPointers, or once popped from the shared retire pool under
// DeferredHazardPointers (spec §4.3b). Retiring nil is a no-op. Under
// NoReclaim, Retire records nothing and dispose never runs.
func Retire[T any](ctx *ThreadContext, ptr *T, dispose func(*T)) {
	if ctx.detached {
		panicNotAttached()
	}
	if ptr == nil || ctx.domain.discipline == NoReclaim {
		return
	}
	item := retiredItem{ptr: toBytePtr(ptr), dispose: func() { dispose(ptr) }}
	if ctx.domain.discipline == DeferredHazardPointers {
		ctx.domain.dhp.retire(item)
		return
	}
	ctx.retireList = append(ctx.retireList, item)
	if int64(len(ctx.retireList)) >= ctx.domain.rMax() {
		ctx.scan()
	}
}

// GuardedPtr is the client-visible handle returned by Get/Extract-style
// operations (spec §4.3c): it owns both the Guard and the *T it pins,
// so the pointee cannot be reclaimed until the caller releases it.
type GuardedPtr[T any] struct {
	guard Guard
	ptr   *T
}

// NewGuardedPtr wraps an already-protected pointer. Structures call
// this after a successful Protect; clients never construct one
// directly.
func NewGuardedPtr[T any](g Guard, ptr *T) GuardedPtr[T] {
	return GuardedPtr[T]{guard: g, ptr: ptr}
}

// Get returns the protected pointer, or nil if the operation that
// produced this GuardedPtr found nothing.
func (gp GuardedPtr[T]) Get() *T { return gp.ptr }

// Release ends the protection. The GuardedPtr must not be used again.
func (gp GuardedPtr[T]) Release() { gp.guard.Release() }

// ForceDispose drains every reclaimable node it can reach: the
// domain's orphan list (left behind by threads that have already
// detached), the shared DHP retire pool if the domain uses one, and
// the retire lists of any still-attached ThreadContexts passed in.
// Call it at a quiescent point (no concurrent structure operations in
// flight) for spec §5's "drains all retire-lists at quiesce"
// guarantee; called at any other time it is still safe, just not
// exhaustive for contexts the caller didn't mention.
func (d *Domain) ForceDispose(ctxs ...*ThreadContext) {
	for _, ctx := range ctxs {
		if !ctx.detached {
			ctx.scan()
		}
	}
	if d.discipline == DeferredHazardPointers {
		d.dhp.scan()
	}
	for _, item := range d.orphans.drainAll() {
		live := d.liveSetOrNil()
		if live != nil && isLive(live, item.ptr) {
			d.orphans.push(item)
			continue
		}
		item.dispose()
	}
}
