// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfds provides a family of lock-free FIFO queues, each built
// on a pluggable safe-memory-reclamation substrate ([code.hybscloud.com/lfds/smr])
// rather than the garbage collector's innate ability to keep a node
// alive for as long as some goroutine holds a pointer to it — SMR is
// what lets a retired node's *storage* be handed back to a disposer
// deterministically, instead of merely eventually.
//
// # Queue variants
//
// Unbounded, SMR-reclaimed (require an [code.hybscloud.com/lfds/smr.Domain]
// and an attached [code.hybscloud.com/lfds/smr.ThreadContext] per
// caller goroutine):
//
//	MSQueue[T]         - Michael–Scott queue
//	MoirQueue[T]        - Moir's head-swing refinement of MSQueue
//	OptimisticQueue[T]  - doubly-linked, soft/self-correcting prev
//	BasketQueue[T]      - tombstone-claimed dequeue over an MSQueue-style list
//
// Bounded, fixed-capacity ring (no SMR — slots are reused in place,
// never freed):
//
//	TsigasCycleQueue[T]       - pointer-ring with round-tagged markers
//	VyukovMPMCCycleQueue[T]   - per-cell sequence numbers
//	WeakRingBuffer            - byte-oriented variable-length SPSC ring
//
// # Quick start
//
//	domain := smr.NewHazardPointerDomain(4) // 4 hazard slots per thread
//	ctx := domain.Attach()
//	defer ctx.Detach()
//
//	q := lfds.NewMSQueue[Event](lfds.NewConfig(domain))
//	q.Push(ctx, ev)
//	ev, ok := q.Pop(ctx)
//
// Bounded queues need no Domain or ThreadContext — their slots are
// recycled in place, so there is nothing to reclaim:
//
//	q := lfds.NewVyukovMPMCCycleQueue[Event](lfds.NewBounded(4096))
//	ok := q.Push(ev)
//	ev, ok = q.Pop()
//
// # Choosing a variant
//
// MSQueue is the default unbounded choice. MoirQueue, on finding tail
// lagging, swings tail and then head in the same pass instead of
// starting another retry iteration. OptimisticQueue suits workloads
// that also need backward traversal from tail; BasketQueue claims each
// popped node with a tombstone CAS before advancing head, while its
// Push links nodes one at a time like MSQueue's. Among bounded rings,
// VyukovMPMCCycleQueue is the general MPMC choice; TsigasCycleQueue
// trades a touch of throughput for simpler markers; WeakRingBuffer is
// the only variant for byte-stream/variable-length records and is
// restricted to one producer and one consumer goroutine.
//
// # Error handling
//
// Structural fullness and emptiness are reported as a bool, never an
// error — they are expected outcomes of calling Push/Pop at the right
// moment, not failures, and nothing in this package returns an error
// for them. Misuse of the API — operating on a detached ThreadContext,
// exhausting a Domain's hazard slots, calling PushBack/PopFront out of
// order on a WeakRingBuffer — panics rather than returning an error,
// since these are programmer errors, not runtime conditions a caller
// should recover from.
//
// # Statistics
//
// The unbounded queues built with [Config.WithStats] count operations
// and expose a Statistics method returning a [Statistics] snapshot.
// The bounded queues and WeakRingBuffer keep no counters. Every
// counter uses relaxed atomic ordering: statistics are advisory and
// never participate in an operation's correctness.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, and [code.hybscloud.com/spin] for CPU
// pause instructions and [code.hybscloud.com/iox] for the sleep/jitter
// schedule backing the back-off strategies in
// [code.hybscloud.com/lfds/backoff].
package lfds
