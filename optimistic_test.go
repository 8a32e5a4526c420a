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

// TestOptimisticQueueFIFO is S1 applied to OptimisticQueue: correctness
// is defined on the forward next-chain alone (spec §4.6), so the
// observable push/pop contract matches MSQueue exactly.
func TestOptimisticQueueFIFO(t *testing.T) {
	domain := smr.NewHazardPointerDomain(3)
	ctx := domain.Attach()
	defer ctx.Detach()

	q := lfds.NewOptimisticQueue[int](lfds.NewConfig(domain).WithItemCounter())
	for i := range 4 {
		q.Push(ctx, i)
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

// TestOptimisticQueueBack exercises the reverse-traversal operation
// spec §4.6 and doc.go's "backward traversal from tail" describe:
// Back reports false below two elements and otherwise returns tail's
// predecessor, re-derived correctly across a Pop that retires the old
// head and promotes its successor to the new dummy.
func TestOptimisticQueueBack(t *testing.T) {
	domain := smr.NewHazardPointerDomain(3)
	ctx := domain.Attach()
	defer ctx.Detach()

	q := lfds.NewOptimisticQueue[int](lfds.NewConfig(domain))

	if _, ok := q.Back(ctx); ok {
		t.Fatal("Back on empty queue: want false")
	}

	q.Push(ctx, 1)
	if _, ok := q.Back(ctx); ok {
		t.Fatal("Back with a single element: want false")
	}

	q.Push(ctx, 2)
	if v, ok := q.Back(ctx); !ok || v != 1 {
		t.Fatalf("Back after pushing 1,2: got (%d, %v), want (1, true)", v, ok)
	}

	q.Push(ctx, 3)
	if v, ok := q.Back(ctx); !ok || v != 2 {
		t.Fatalf("Back after pushing 1,2,3: got (%d, %v), want (2, true)", v, ok)
	}

	if _, ok := q.Pop(ctx); !ok {
		t.Fatal("Pop: want true")
	}
	if v, ok := q.Back(ctx); !ok || v != 2 {
		t.Fatalf("Back after popping the head: got (%d, %v), want (2, true)", v, ok)
	}
}

// TestOptimisticQueueBackUnderConcurrentPush exercises fixList's lazy
// prev-repair path for real: Push races installing next against its
// own best-effort prev write, and a concurrent Back routinely observes
// the window in between, forcing it through fixList/predecessorOf
// instead of trusting whatever prev already holds.
func TestOptimisticQueueBackUnderConcurrentPush(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrency stress test under -race")
	}

	domain := smr.NewHazardPointerDomain(3)
	q := lfds.NewOptimisticQueue[int](lfds.NewConfig(domain))

	const producers = 4
	const perProducer = 5000

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			ctx := domain.Attach()
			defer ctx.Detach()
			for i := range perProducer {
				q.Push(ctx, base*perProducer+i)
			}
		}(p)
	}

	done := make(chan struct{})
	var backCalls atomix.Int64
	go func() {
		ctx := domain.Attach()
		defer ctx.Detach()
		for {
			select {
			case <-done:
				return
			default:
				q.Back(ctx)
				backCalls.Add(1)
			}
		}
	}()

	wg.Wait()
	close(done)

	if backCalls.Load() == 0 {
		t.Fatal("Back: want at least one call to have run concurrently with Push")
	}
}

// TestOptimisticQueueConcurrentUniqueness is spec §8 property 3
// (uniqueness) under concurrent producers and a single consumer.
func TestOptimisticQueueConcurrentUniqueness(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrency stress test under -race")
	}

	domain := smr.NewHazardPointerDomain(3)
	q := lfds.NewOptimisticQueue[int](lfds.NewConfig(domain))

	const producers = 4
	const perProducer = 500
	const total = producers * perProducer

	seen := make([]atomix.Int32, total)
	var popped atomix.Int64

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			ctx := domain.Attach()
			defer ctx.Detach()
			for i := range perProducer {
				q.Push(ctx, base*perProducer+i)
			}
		}(p)
	}

	var consumeWg sync.WaitGroup
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

	wg.Wait()
	consumeWg.Wait()

	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("value %d popped %d times, want exactly 1", i, c)
		}
	}
}
