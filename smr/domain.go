// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package smr implements the safe memory reclamation layer shared by
// every unbounded structure in this module (the MSQueue family, the
// Ellen tree): a pluggable Domain offering Hazard Pointers and
// Deferred Hazard Pointers, with a matching no-op discipline for
// structures that never free a node (useful in tests and benchmarks
// that want to isolate algorithmic contention from reclamation cost).
//
// Go has no implicit thread-local storage, so unlike the C++ original
// this package does not infer "which thread is calling" from context:
// every operation takes an explicit *ThreadContext obtained from
// Domain.Attach, which the caller carries for the lifetime of its
// goroutine (or worker, or pooled task) and passes to every Protect
// and Retire call. This mirrors the Design Notes' own framing of the
// handle as "exposed... so alternative carriers remain possible."
package smr

import (
	"sync/atomic"
)

// Discipline selects a reclamation strategy for a Domain.
type Discipline int

const (
	// HazardPointers is Maged Michael's original scheme: every thread
	// publishes a small, bounded set of pointers it is about to
	// dereference; a retiring thread only frees a node once no
	// published hazard pointer anywhere in the domain still names it.
	HazardPointers Discipline = iota
	// DeferredHazardPointers uses the same hazard-slot protocol to
	// decide liveness, but routes retired nodes through a bounded,
	// domain-wide shared pool of retire records (free-list dispatch)
	// instead of a per-thread unbounded retire list. This amortizes
	// reclamation work across whichever thread happens to drain the
	// pool, at the cost of a fixed retire-record budget.
	DeferredHazardPointers
	// NoReclaim never frees a retired node. It exists for benchmarking
	// and for structures whose test harness wants to isolate
	// algorithmic behavior from reclamation overhead; it must not be
	// used in a long-running process.
	NoReclaim
)

// hazardRecord is one thread's published hazard-pointer slots. Records
// form a lock-free singly linked list rooted at Domain.head; a record
// is never unlinked, only marked inactive on Detach and reused by a
// later Attach, so scan() can walk the list without synchronizing
// against concurrent Attach/Detach.
type hazardRecord struct {
	active atomic.Bool
	slots  []atomicBytePointer
	next   atomic.Pointer[hazardRecord]
}

// Domain owns the hazard-record registry, the reclamation discipline,
// and (for DeferredHazardPointers) the shared retire-record pool. A
// Domain is shared by every data structure instance that should
// reclaim nodes together; most programs need exactly one per node
// type family.
type Domain struct {
	discipline  Discipline
	slotsPerCtx int

	head atomic.Pointer[hazardRecord]

	attached atomic.Int64 // approx count of currently attached contexts, feeds the R_MAX formula

	hp  *hazardDiscipline
	dhp *dhpDiscipline

	// orphans collects retired items handed off by a ThreadContext on
	// Detach that it could not yet reclaim; the next Scan or
	// ForceDispose by any attached thread absorbs them.
	orphans orphanStack
}

// baseRetireThreshold is the constant term of the classic Hazard
// Pointer R_MAX formula: R_MAX = baseRetireThreshold + 2*H*threads,
// where H is the number of hazard slots per thread. It bounds how
// many retired-but-not-yet-freed nodes a thread may accumulate before
// it is required to run a scan.
const baseRetireThreshold = 64

// NewHazardPointerDomain returns a Domain using the Hazard Pointers
// discipline. slotsPerThread is the number of concurrently protected
// pointers a single ThreadContext may hold (H in the R_MAX formula);
// it must cover the maximum number of nodes any single operation on
// the data structures sharing this Domain dereferences at once.
func NewHazardPointerDomain(slotsPerThread int) *Domain {
	if slotsPerThread < 1 {
		panic("smr: slotsPerThread must be >= 1")
	}
	d := &Domain{
		discipline:  HazardPointers,
		slotsPerCtx: slotsPerThread,
	}
	d.hp = newHazardDiscipline(d)
	return d
}

// NewDeferredHazardDomain returns a Domain using the Deferred Hazard
// Pointers discipline. poolSize bounds the number of retire records
// shared across every attached thread; if the pool is momentarily
// exhausted, Retire scans the pool itself and retries under a Pause
// back-off until a record is free.
func NewDeferredHazardDomain(slotsPerThread, poolSize int) *Domain {
	if slotsPerThread < 1 {
		panic("smr: slotsPerThread must be >= 1")
	}
	if poolSize < 1 {
		panic("smr: poolSize must be >= 1")
	}
	d := &Domain{
		discipline:  DeferredHazardPointers,
		slotsPerCtx: slotsPerThread,
	}
	d.hp = newHazardDiscipline(d)
	d.dhp = newDHPDiscipline(d, poolSize)
	return d
}

// NewNoReclaimDomain returns a Domain that never frees retired nodes.
func NewNoReclaimDomain() *Domain {
	return &Domain{discipline: NoReclaim}
}

// Discipline reports which reclamation strategy the Domain uses.
func (d *Domain) Discipline() Discipline { return d.discipline }

// rMax computes the current retire-list threshold for the Hazard
// Pointers discipline: 64 + 2*H*attachedThreads.
func (d *Domain) rMax() int64 {
	threads := d.attached.Load()
	if threads < 1 {
		threads = 1
	}
	return baseRetireThreshold + 2*int64(d.slotsPerCtx)*threads
}
