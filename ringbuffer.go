// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"encoding/binary"

	"code.hybscloud.com/atomix"
)

const (
	ringHeaderSize    = 4
	ringWrapMarker    = ^uint32(0) // sentinel header value: "skip to offset 0"
	minRingBufferSize = 64 * 1024
)

// WeakRingBuffer is the byte-oriented, variable-length-record SPSC
// ring of spec §4.10: the producer reserves len bytes with Back,
// fills them, and publishes with PushBack; the consumer peeks the
// next record with Front and releases it with PopFront. Exactly one
// goroutine may call the producer methods and exactly one (possibly
// different) goroutine may call the consumer methods — like the
// teacher's SPSC, there is no CAS anywhere, only release/acquire
// ordered indices.
//
// Grounded on the teacher's spsc.go cached-index Lamport ring (the
// producer caches the consumer's read index and vice versa, cutting
// cross-core traffic on the hot path), generalized from a slice of
// fixed-size T slots to a single byte slice holding variable-length
// records. A record that would straddle the physical end of the
// buffer is preceded by a 4-byte wrap marker that tells the consumer
// to skip to offset 0, so every record Front returns is a contiguous
// slice — never split across the wraparound point.
type WeakRingBuffer struct {
	_          pad
	head       atomix.Uint64 // consumer read position, in bytes, ever-increasing
	_          pad
	cachedTail uint64
	_          pad
	tail       atomix.Uint64 // producer write position, in bytes, ever-increasing
	_          pad
	cachedHead uint64
	_          pad
	buffer     []byte
	capacity   uint64

	// reserved/resLen track the one outstanding Back/PushBack
	// pair. Single-producer, so no synchronization needed.
	reserved bool
	resLen   uint64

	// frontLen/frontValid track the one outstanding Front/PopFront
	// pair. Single-consumer, so no synchronization needed.
	frontLen   uint64
	frontValid bool
}

// NewWeakRingBuffer creates a ring sized to the next power of two of
// requestedBytes, with a 64 KiB floor (spec §4.10's capacity rule).
func NewWeakRingBuffer(requestedBytes int) *WeakRingBuffer {
	n := roundToPow2(requestedBytes)
	if n < minRingBufferSize {
		n = minRingBufferSize
	}
	return &WeakRingBuffer{
		buffer:   make([]byte, n),
		capacity: uint64(n),
	}
}

func (r *WeakRingBuffer) putHeader(off uint64, v uint32) {
	binary.LittleEndian.PutUint32(r.buffer[off:off+ringHeaderSize], v)
}

func (r *WeakRingBuffer) getHeader(off uint64) uint32 {
	return binary.LittleEndian.Uint32(r.buffer[off : off+ringHeaderSize])
}

// Back reserves length bytes for the next record and returns a
// writable view over them; the producer fills it and calls PushBack
// to publish. Back returns (nil, false) when the ring does not
// currently have room — the caller should retry once the consumer
// has drained more. Calling Back again before PushBack is a
// programmer error.
func (r *WeakRingBuffer) Back(length int) ([]byte, bool) {
	if r.reserved {
		panic("lfds: Back called again before PushBack")
	}
	if length < 0 {
		panic("lfds: negative record length")
	}
	need := uint64(ringHeaderSize + length)
	if need > r.capacity {
		return nil, false
	}

	tail := r.tail.LoadRelaxed()
	free := func() uint64 { return r.capacity - (tail - r.cachedHead) }

	off := tail % r.capacity
	total := need
	if off+need > r.capacity {
		// The record would straddle the physical end of the buffer;
		// pad to the end with a wrap marker and restart at offset 0.
		total = (r.capacity - off) + need
	}
	if free() < total {
		r.cachedHead = r.head.LoadAcquire()
		if free() < total {
			return nil, false
		}
	}
	if total != need {
		r.putHeader(off, ringWrapMarker)
		off = 0
	}

	r.putHeader(off, uint32(length))
	payload := r.buffer[off+ringHeaderSize : off+need]
	r.resLen = total
	r.reserved = true
	return payload, true
}

// PushBack publishes the record most recently reserved by Back,
// making it visible to the consumer.
func (r *WeakRingBuffer) PushBack() {
	if !r.reserved {
		panic("lfds: PushBack called without a pending Back")
	}
	r.tail.StoreRelease(r.tail.LoadRelaxed() + r.resLen)
	r.reserved = false
}

// Front returns the next unread record, or (nil, false) if the ring
// is empty. The returned slice is valid until PopFront is called.
func (r *WeakRingBuffer) Front() ([]byte, bool) {
	head := r.head.LoadRelaxed()
	if head >= r.cachedTail {
		r.cachedTail = r.tail.LoadAcquire()
		if head >= r.cachedTail {
			return nil, false
		}
	}

	off := head % r.capacity
	length := r.getHeader(off)
	if length == ringWrapMarker {
		skip := r.capacity - off
		r.head.StoreRelease(head + skip)
		return r.Front()
	}

	need := uint64(ringHeaderSize) + uint64(length)
	r.frontLen = need
	r.frontValid = true
	return r.buffer[off+ringHeaderSize : off+need], true
}

// PopFront releases the record most recently returned by Front.
// Calling it without a preceding successful Front is a programmer
// error.
func (r *WeakRingBuffer) PopFront() {
	if !r.frontValid {
		panic("lfds: PopFront called without a pending Front")
	}
	r.head.StoreRelease(r.head.LoadRelaxed() + r.frontLen)
	r.frontValid = false
}

// Cap returns the ring's total byte capacity (power-of-two-rounded,
// 64 KiB floor).
func (r *WeakRingBuffer) Cap() int {
	return int(r.capacity)
}
