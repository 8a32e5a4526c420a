// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfds"
)

// TestTsigasCycleQueueFullEmpty is S2 applied to TsigasCycleQueue:
// capacity 4, push 10..13 all succeed, push 14 fails, pop 4 values in
// order, pop again on empty fails.
func TestTsigasCycleQueueFullEmpty(t *testing.T) {
	q := lfds.NewTsigasCycleQueue[int](lfds.NewBounded(4))
	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}

	for i, v := range []int{10, 11, 12, 13} {
		if !q.Push(v) {
			t.Fatalf("Push(%d)=%d: want true", i, v)
		}
	}
	if q.Push(14) {
		t.Fatal("Push on full ring: want false")
	}

	for _, want := range []int{10, 11, 12, 13} {
		v, ok := q.Pop()
		if !ok || v != want {
			t.Fatalf("Pop: got (%d, %v), want (%d, true)", v, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on empty ring: want false")
	}
	if !q.Empty() {
		t.Fatal("Empty: want true")
	}
}

// TestTsigasCycleQueueCapacityRoundsUp checks spec §4.8's "capacity
// must be a power of two" requirement is enforced by rounding rather
// than by rejecting the request.
func TestTsigasCycleQueueCapacityRoundsUp(t *testing.T) {
	q := lfds.NewTsigasCycleQueue[int](lfds.NewBounded(5))
	if q.Cap() != 8 {
		t.Fatalf("Cap: got %d, want 8 (next power of two above 5)", q.Cap())
	}
}

// TestTsigasCycleQueueConcurrentConservation drives multiple
// producers and consumers against a bounded ring and checks the
// conservation and uniqueness properties of spec §8.
func TestTsigasCycleQueueConcurrentConservation(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrency stress test under -race")
	}

	q := lfds.NewTsigasCycleQueue[int](lfds.NewBounded(64))
	const producers = 4
	const perProducer = 2000
	const total = producers * perProducer

	seen := make([]atomix.Int32, total)
	var pushed atomix.Int64
	var popped atomix.Int64

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perProducer {
				for !q.Push(base*perProducer + i) {
					// ring momentarily full; retry
				}
				pushed.Add(1)
			}
		}(p)
	}

	var consumeWg sync.WaitGroup
	consumeWg.Add(1)
	go func() {
		defer consumeWg.Done()
		for popped.Load() < int64(total) {
			if v, ok := q.Pop(); ok {
				seen[v].Add(1)
				popped.Add(1)
			}
		}
	}()

	wg.Wait()
	consumeWg.Wait()

	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("value %d popped %d times, want exactly 1", i, c)
		}
	}
	if pushed.Load() != popped.Load() {
		t.Fatalf("conservation: pushed=%d popped=%d", pushed.Load(), popped.Load())
	}
}
