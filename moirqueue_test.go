// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds_test

import (
	"testing"

	"code.hybscloud.com/lfds"
	"code.hybscloud.com/lfds/smr"
)

// TestMoirQueueFIFO is S1 applied to MoirQueue: the head-swing
// refinement must preserve the same observable FIFO contract as
// MSQueue.
func TestMoirQueueFIFO(t *testing.T) {
	domain := smr.NewHazardPointerDomain(2)
	ctx := domain.Attach()
	defer ctx.Detach()

	q := lfds.NewMoirQueue[int](lfds.NewConfig(domain).WithItemCounter())
	for i := range 4 {
		if !q.Push(ctx, i) {
			t.Fatalf("Push(%d): want true", i)
		}
	}
	for i := range 4 {
		v, ok := q.Pop(ctx)
		if !ok || v != i {
			t.Fatalf("Pop(%d): got (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}
	if _, ok := q.Pop(ctx); ok {
		t.Fatal("Pop on empty queue: want false")
	}
	if got := q.Size(); got != 0 {
		t.Fatalf("Size: got %d, want 0", got)
	}
}

// TestMoirQueueInterleaved checks that a push between two pops is
// observed in order. It is single-threaded, so every Push swings tail
// itself and Pop's lagging-tail branch is not reached here.
func TestMoirQueueInterleaved(t *testing.T) {
	domain := smr.NewHazardPointerDomain(2)
	ctx := domain.Attach()
	defer ctx.Detach()

	q := lfds.NewMoirQueue[int](lfds.NewConfig(domain))
	q.Push(ctx, 1)
	q.Push(ctx, 2)
	if v, _ := q.Pop(ctx); v != 1 {
		t.Fatalf("Pop: got %d, want 1", v)
	}
	q.Push(ctx, 3)
	if v, _ := q.Pop(ctx); v != 2 {
		t.Fatalf("Pop: got %d, want 2", v)
	}
	if v, _ := q.Pop(ctx); v != 3 {
		t.Fatalf("Pop: got %d, want 3", v)
	}
	if !q.Empty(ctx) {
		t.Fatal("Empty: want true")
	}
}
