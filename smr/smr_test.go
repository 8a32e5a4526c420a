// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/lfds/smr"
)

type payload struct {
	v int
}

// TestAttachDetachLifecycle checks that a ThreadContext obtained from
// Attach accepts Retire without disposing anything before a scan runs,
// and that Detach (whose final scan reclaims the unprotected item)
// followed by ForceDispose disposes it exactly once.
func TestAttachDetachLifecycle(t *testing.T) {
	domain := smr.NewHazardPointerDomain(2)
	ctx := domain.Attach()

	var disposed atomic.Int64
	n := &payload{v: 42}
	smr.Retire(ctx, n, func(*payload) { disposed.Add(1) })

	// Not yet disposed: below R_MAX and no scan has run.
	if disposed.Load() != 0 {
		t.Fatalf("disposed before scan: got %d, want 0", disposed.Load())
	}

	ctx.Detach()
	domain.ForceDispose()
	if disposed.Load() != 1 {
		t.Fatalf("disposed after detach+ForceDispose: got %d, want 1", disposed.Load())
	}
}

// TestRetireDisposesEachNodeOnce retires 300 nodes no guard protects
// from one attached goroutine, crossing R_MAX several times; the
// threshold scans, the final Detach and ForceDispose at quiescence
// must together dispose each node exactly once.
func TestRetireDisposesEachNodeOnce(t *testing.T) {
	domain := smr.NewHazardPointerDomain(2)
	const n = 300

	var disposedCount atomic.Int64
	seen := make([]atomic.Bool, n)

	var wg sync.WaitGroup
	nodes := make([]*payload, n)
	for i := range nodes {
		nodes[i] = &payload{v: i}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx := domain.Attach()
		defer ctx.Detach()
		for i, nd := range nodes {
			idx := i
			smr.Retire(ctx, nd, func(*payload) {
				if !seen[idx].CompareAndSwap(false, true) {
					t.Errorf("node %d disposed more than once", idx)
				}
				disposedCount.Add(1)
			})
		}
	}()
	wg.Wait()

	domain.ForceDispose()
	if disposedCount.Load() != n {
		t.Fatalf("disposed: got %d, want %d", disposedCount.Load(), n)
	}
}

// TestNoReclaimNeverDisposes exercises the NoReclaim discipline spec
// §6 lists for single-threaded/benchmark use: Retire must not invoke
// the disposer at all, since nothing is ever freed early or late.
func TestNoReclaimNeverDisposes(t *testing.T) {
	domain := smr.NewNoReclaimDomain()
	ctx := domain.Attach()
	defer ctx.Detach()

	var disposed atomic.Int64
	for range 10 {
		smr.Retire(ctx, &payload{}, func(*payload) { disposed.Add(1) })
	}
	domain.ForceDispose()
	if disposed.Load() != 0 {
		t.Fatalf("NoReclaim disposed: got %d, want 0", disposed.Load())
	}
}

// TestDeferredHazardReclaims exercises the DHP discipline's shared
// retire pool: every retired node must still be disposed exactly once
// once no hazard slot protects it, even though retirement is routed
// through the pool rather than a per-thread list.
func TestDeferredHazardReclaims(t *testing.T) {
	domain := smr.NewDeferredHazardDomain(2, 64)
	ctx := domain.Attach()
	defer ctx.Detach()

	const n = 40
	var disposed atomic.Int64
	for range n {
		smr.Retire(ctx, &payload{}, func(*payload) { disposed.Add(1) })
	}
	domain.ForceDispose(ctx)
	if disposed.Load() != n {
		t.Fatalf("disposed: got %d, want %d", disposed.Load(), n)
	}
}

// TestGuardProtectsAgainstReclaim holds a Guard across a concurrent
// Retire+ForceDispose and checks the disposer never runs while the
// guard is live (the core liveness contract of spec §4.3: "a node is
// safely reclaimable iff no hazard slot in any attached thread
// currently points to it").
func TestGuardProtectsAgainstReclaim(t *testing.T) {
	domain := smr.NewHazardPointerDomain(1)
	holder := domain.Attach()
	defer holder.Detach()

	n := &payload{v: 7}
	g := smr.AcquireGuard(holder, 0)
	defer g.Release()

	var target atomic.Pointer[payload]
	target.Store(n)
	protected := smr.Protect(g, &target)
	if protected != n {
		t.Fatalf("Protect: got %p, want %p", protected, n)
	}

	retirer := domain.Attach()
	var disposed atomic.Bool
	smr.Retire(retirer, n, func(*payload) { disposed.Store(true) })
	domain.ForceDispose(retirer)
	if disposed.Load() {
		t.Fatal("disposer ran while a Guard still protected the node")
	}
	retirer.Detach()

	g.Release()
	domain.ForceDispose(holder)
	if !disposed.Load() {
		t.Fatal("disposer never ran after the guard was released")
	}
}

// TestDetachedContextPanics checks the ThreadNotAttached programmer
// error (spec §7): operating through a detached ThreadContext panics
// rather than silently corrupting state.
func TestDetachedContextPanics(t *testing.T) {
	domain := smr.NewHazardPointerDomain(1)
	ctx := domain.Attach()
	ctx.Detach()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic operating on a detached ThreadContext")
		}
	}()
	smr.AcquireGuard(ctx, 0)
}

// TestSlotExhaustedPanics checks the HazardSlotExhausted programmer
// error: requesting a slot index beyond the Domain's configured
// per-thread count panics.
func TestSlotExhaustedPanics(t *testing.T) {
	domain := smr.NewHazardPointerDomain(1)
	ctx := domain.Attach()
	defer ctx.Detach()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic acquiring a slot beyond HAZARD_COUNT")
		}
	}()
	smr.AcquireGuard(ctx, 1)
}

// TestDescriptorPoolRetires exercises smr.DescriptorPool, the L5
// descriptor allocator: Alloc, then Retire through the domain.
func TestDescriptorPoolRetires(t *testing.T) {
	domain := smr.NewHazardPointerDomain(1)
	ctx := domain.Attach()
	defer ctx.Detach()

	type desc struct{ kind int }
	pool := smr.NewDescriptorPool[desc](domain)
	d := pool.Alloc()
	d.kind = 3
	pool.Retire(ctx, d)
	domain.ForceDispose(ctx)
}
