// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfds"
	"code.hybscloud.com/lfds/smr"
)

// TestBasketQueueSingleThreadFIFO checks that, absent any tail
// contention, BasketQueue behaves as plain FIFO (no baskets ever
// form with a single producer).
func TestBasketQueueSingleThreadFIFO(t *testing.T) {
	domain := smr.NewHazardPointerDomain(2)
	ctx := domain.Attach()
	defer ctx.Detach()

	q := lfds.NewBasketQueue[int](lfds.NewConfig(domain))
	for i := range 4 {
		q.Push(ctx, i)
	}
	for i := range 4 {
		v, ok := q.Pop(ctx)
		if !ok || v != i {
			t.Fatalf("Pop(%d): got (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}
	if !q.Empty(ctx) {
		t.Fatal("Empty: want true")
	}
}

// TestBasketQueueQuasiFIFO is spec S5: 4 producers each push N values,
// 4 consumers pop everything. Properties checked: total pops equal
// total pushes, and every value appears exactly once. Per-basket
// relative order is explicitly unspecified (spec §4.7), so this does
// not assert strict per-producer ordering.
func TestBasketQueueQuasiFIFO(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrency stress test under -race")
	}

	domain := smr.NewHazardPointerDomain(2)
	q := lfds.NewBasketQueue[int](lfds.NewConfig(domain))

	const producers = 4
	const consumers = 4
	const perProducer = 1000
	const total = producers * perProducer

	seen := make([]atomix.Int32, total)
	var pushedDone sync.WaitGroup
	for p := range producers {
		pushedDone.Add(1)
		go func(base int) {
			defer pushedDone.Done()
			ctx := domain.Attach()
			defer ctx.Detach()
			for i := range perProducer {
				q.Push(ctx, base*perProducer+i)
			}
		}(p)
	}

	var popped atomix.Int64
	var consumeWg sync.WaitGroup
	for range consumers {
		consumeWg.Add(1)
		go func() {
			defer consumeWg.Done()
			ctx := domain.Attach()
			defer ctx.Detach()
			for popped.Load() < int64(total) {
				if v, ok := q.Pop(ctx); ok {
					seen[v].Add(1)
					popped.Add(1)
				}
			}
		}()
	}

	pushedDone.Wait()
	consumeWg.Wait()

	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("value %d popped %d times, want exactly 1", i, c)
		}
	}
	if popped.Load() != int64(total) {
		t.Fatalf("popped: got %d, want %d", popped.Load(), total)
	}
}

// TestBasketQueueDisposerAtMostOnce checks spec §8 property 5 under
// BasketQueue's tombstone-CAS pop path specifically, since a lost
// tombstone-claim race must never cause a double retire.
func TestBasketQueueDisposerAtMostOnce(t *testing.T) {
	domain := smr.NewHazardPointerDomain(2)
	ctx := domain.Attach()
	defer ctx.Detach()

	var disposed atomix.Int32
	q := lfds.NewBasketQueue[int](lfds.NewConfig(domain)).
		WithDisposer(func(*int) { disposed.Add(1) })

	for i := range 10 {
		q.Push(ctx, i)
	}
	for range 10 {
		q.Pop(ctx)
	}
	domain.ForceDispose(ctx)
	if got := disposed.Load(); got != 10 {
		t.Fatalf("disposed: got %d, want 10", got)
	}
}
