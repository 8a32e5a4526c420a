// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

import (
	"sort"
)

// hazardDiscipline is the shared-registry half of both HazardPointers
// and DeferredHazardPointers: publishing slots, walking the list on
// Attach to find a free record, and scanning the whole list to build
// the current live set.
//
// Hazard slots are typed as *byte rather than unsafe.Pointer so the
// garbage collector still treats them as ordinary pointer fields; a
// protected node of any type T is stored via the same
// (*T)->unsafe.Pointer->*byte round trip the public Protect/Retire
// functions use, which is within Go's documented-safe unsafe.Pointer
// conversion rules and keeps the referent alive for as long as any
// such view of it exists.
type hazardDiscipline struct {
	domain *Domain
}

func newHazardDiscipline(d *Domain) *hazardDiscipline {
	return &hazardDiscipline{domain: d}
}

// acquireRecord finds an inactive hazardRecord to reuse, or allocates
// and links a new one if none is free. The list is never shrunk, so
// a long-running process with a high-water mark of concurrently
// attached goroutines pays that allocation once.
func (h *hazardDiscipline) acquireRecord() *hazardRecord {
	for rec := h.domain.head.Load(); rec != nil; rec = rec.next.Load() {
		if rec.active.Load() {
			continue
		}
		if rec.active.CompareAndSwap(false, true) {
			for i := range rec.slots {
				rec.slots[i].Store(nil)
			}
			return rec
		}
	}
	return h.pushNewRecord()
}

func (h *hazardDiscipline) pushNewRecord() *hazardRecord {
	rec := &hazardRecord{}
	rec.slots = make([]atomicBytePointer, h.domain.slotsPerCtx)
	rec.active.Store(true)
	for {
		head := h.domain.head.Load()
		rec.next.Store(head)
		if h.domain.head.CompareAndSwap(head, rec) {
			return rec
		}
	}
}

func (h *hazardDiscipline) releaseRecord(rec *hazardRecord) {
	for i := range rec.slots {
		rec.slots[i].Store(nil)
	}
	rec.active.Store(false)
}

// liveSet returns a sorted slice of every pointer currently published
// as a hazard across every attached (and not-yet-reused) record in
// the domain. Sorted so isLive can binary-search it.
func (h *hazardDiscipline) liveSet() []*byte {
	var out []*byte
	for rec := h.domain.head.Load(); rec != nil; rec = rec.next.Load() {
		for i := range rec.slots {
			if p := rec.slots[i].Load(); p != nil {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return uintptrOf(out[i]) < uintptrOf(out[j]) })
	return out
}

func isLive(live []*byte, p *byte) bool {
	i := sort.Search(len(live), func(i int) bool { return uintptrOf(live[i]) >= uintptrOf(p) })
	return i < len(live) && live[i] == p
}
