// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

import (
	"sync/atomic"

	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/internal/xatomic"
)

// dhpRecord is one slot in the Deferred Hazard Pointers shared
// retire-record pool (spec §4.3b). Slots are preallocated once at
// Domain construction and recycled through a generation-tagged free
// stack; none is ever individually freed, so poolSize is a hard bound
// on the domain's outstanding (retired but not yet reclaimed) node
// count, independent of how many threads are attached.
//
// ready gates access to item: it is set (Release) only after item has
// been written by the thread that just popped the record off the free
// stack, and scan only reads item after observing ready via a
// successful CompareAndSwap, so the two goroutines that ever touch a
// given record's item never do so concurrently.
type dhpRecord struct {
	ready atomic.Bool
	item  retiredItem
	next  *dhpRecord
}

// dhpDiscipline is the DeferredHazardPointers half of a Domain: a
// shared, bounded retire-record pool dispatched via a lock-free
// free-list instead of HazardPointers' unbounded per-thread retire
// lists. Liveness is still decided by the same per-thread hazard-slot
// scan HazardPointers uses (domain.hp.liveSet) — only the retire-side
// bookkeeping differs, per spec's "reclamation scan is identical in
// principle to HP but iterates the pool rather than per-thread
// arrays."
type dhpDiscipline struct {
	domain  *Domain
	records []dhpRecord
	free    *xatomic.AtomicTagged[dhpRecord]
}

func newDHPDiscipline(d *Domain, poolSize int) *dhpDiscipline {
	disc := &dhpDiscipline{domain: d, records: make([]dhpRecord, poolSize)}
	for i := range disc.records {
		if i+1 < len(disc.records) {
			disc.records[i].next = &disc.records[i+1]
		}
	}
	disc.free = xatomic.NewAtomicTagged(&disc.records[0])
	return disc
}

func (disc *dhpDiscipline) popFree() *dhpRecord {
	for {
		cur := disc.free.LoadAcquire()
		if cur.Ptr == nil {
			return nil
		}
		if disc.free.CompareAndSwapAcqRel(cur, cur.Ptr.next) {
			return cur.Ptr
		}
	}
}

func (disc *dhpDiscipline) pushFree(r *dhpRecord) {
	for {
		cur := disc.free.LoadAcquire()
		r.next = cur.Ptr
		if disc.free.CompareAndSwapAcqRel(cur, r) {
			return
		}
	}
}

// retire enqueues item into the shared pool. The pool is a hard bound
// (unlike HazardPointers' retire list, which only scans once it
// crosses R_MAX): when momentarily exhausted, retire runs a scan
// itself and backs off before retrying, rather than growing without
// bound.
func (disc *dhpDiscipline) retire(item retiredItem) {
	bo := backoff.New(backoff.Pause)
	for {
		if r := disc.popFree(); r != nil {
			r.item = item
			r.ready.Store(true)
			return
		}
		disc.scan()
		bo.Step()
	}
}

// scan walks every record in the pool looking for ones whose pointer
// no hazard slot in the domain still references, disposes them, and
// returns their slot to the free stack.
func (disc *dhpDiscipline) scan() {
	live := disc.domain.hp.liveSet()
	for i := range disc.records {
		r := &disc.records[i]
		if !r.ready.Load() {
			continue
		}
		if isLive(live, r.item.ptr) {
			continue
		}
		if !r.ready.CompareAndSwap(true, false) {
			continue
		}
		dispose := r.item.dispose
		r.item = retiredItem{}
		dispose()
		disc.pushFree(r)
	}
}
