// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds_test

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	"code.hybscloud.com/lfds"
)

// TestWeakRingBufferByteExact is spec S6: producer writes records of
// length 64, 128, 1024, 64; consumer reads them back with matching
// byte content and matching lengths in order.
func TestWeakRingBufferByteExact(t *testing.T) {
	r := lfds.NewWeakRingBuffer(4096)
	lengths := []int{64, 128, 1024, 64}

	for _, n := range lengths {
		buf, ok := r.Back(n)
		if !ok {
			t.Fatalf("Back(%d): want true", n)
		}
		for i := range buf {
			buf[i] = byte(n + i)
		}
		r.PushBack()
	}

	for _, want := range lengths {
		got, ok := r.Front()
		if !ok {
			t.Fatal("Front: want true")
		}
		if len(got) != want {
			t.Fatalf("Front length: got %d, want %d", len(got), want)
		}
		expected := make([]byte, want)
		for i := range expected {
			expected[i] = byte(want + i)
		}
		if !bytes.Equal(got, expected) {
			t.Fatalf("Front content mismatch for length %d", want)
		}
		r.PopFront()
	}

	if _, ok := r.Front(); ok {
		t.Fatal("Front on empty ring: want false")
	}
}

// TestWeakRingBufferCapacityFloor checks spec §4.10's "minimum 64 KiB"
// capacity rule.
func TestWeakRingBufferCapacityFloor(t *testing.T) {
	r := lfds.NewWeakRingBuffer(1)
	if r.Cap() != 64*1024 {
		t.Fatalf("Cap: got %d, want %d (64 KiB floor)", r.Cap(), 64*1024)
	}
}

// TestWeakRingBufferBackTwicePanics and
// TestWeakRingBufferPopFrontWithoutFrontPanics check the
// programmer-error panics spec §7 calls for: Back before a matching
// PushBack, or PopFront without a pending Front.
func TestWeakRingBufferBackTwicePanics(t *testing.T) {
	r := lfds.NewWeakRingBuffer(4096)
	if _, ok := r.Back(16); !ok {
		t.Fatal("Back: want true")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic calling Back again before PushBack")
		}
	}()
	r.Back(16)
}

func TestWeakRingBufferPopFrontWithoutFrontPanics(t *testing.T) {
	r := lfds.NewWeakRingBuffer(4096)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic calling PopFront without a pending Front")
		}
	}()
	r.PopFront()
}

// TestWeakRingBufferSPSCStress runs a single producer and single
// consumer concurrently over many variable-length records, writing a
// pseudo-random byte pattern derived from the record's sequence
// number and verifying the consumer reads exactly that pattern back
// in order — the SPSC analogue of spec S6 under real contention.
func TestWeakRingBufferSPSCStress(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrency stress test under -race")
	}

	r := lfds.NewWeakRingBuffer(64 * 1024)
	const n = 20000
	sizes := make([]int, n)
	rng := rand.New(rand.NewSource(1))
	for i := range sizes {
		sizes[i] = 1 + rng.Intn(200)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i, size := range sizes {
			var buf []byte
			var ok bool
			for {
				buf, ok = r.Back(size)
				if ok {
					break
				}
			}
			for j := range buf {
				buf[j] = byte(i + j)
			}
			r.PushBack()
		}
	}()

	go func() {
		defer wg.Done()
		for i, size := range sizes {
			var buf []byte
			var ok bool
			for {
				buf, ok = r.Front()
				if ok {
					break
				}
			}
			if len(buf) != size {
				t.Errorf("record %d: length got %d, want %d", i, len(buf), size)
			}
			for j := range buf {
				if buf[j] != byte(i+j) {
					t.Errorf("record %d: byte %d mismatch", i, j)
					break
				}
			}
			r.PopFront()
		}
	}()

	wg.Wait()
}
