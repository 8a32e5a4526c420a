// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/smr"
)

// BoundedOptions configures the two fixed-capacity cycle queues
// (TsigasCycleQueue, VyukovMPMCCycleQueue); WeakRingBuffer takes its
// byte size directly instead. Neither queue ever frees a node early —
// slots are reused in place — so, unlike the unbounded family's
// Config, BoundedOptions carries no SMR discipline.
type BoundedOptions struct {
	capacity     int
	backoff      backoff.Kind
	statsEnabled bool
}

// NewBounded creates a BoundedOptions builder with the given
// requested capacity. Capacity rounds up to the next power of two
// (spec §4.8/§4.9 require a power-of-two ring for mask-based index
// arithmetic); the teacher's own Builder panics below its minimum
// rather than silently clamping, so this does too.
func NewBounded(capacity int) *BoundedOptions {
	if capacity < 2 {
		panic("lfds: capacity must be >= 2")
	}
	return &BoundedOptions{capacity: capacity, backoff: backoff.Pause}
}

// WithBackoff selects the retry-pacing strategy CAS loops use on
// contention. Defaults to backoff.Pause.
func (o *BoundedOptions) WithBackoff(k backoff.Kind) *BoundedOptions {
	o.backoff = k
	return o
}

// WithStats records the stat flag (spec §6 "stat: {off, on}"). The
// bounded queues keep no statistics counters and have no Statistics
// method, so the flag has no effect on them.
func (o *BoundedOptions) WithStats() *BoundedOptions {
	o.statsEnabled = true
	return o
}

// Config configures the unbounded queue family (MSQueue, MoirQueue,
// OptimisticQueue, BasketQueue) and the Ellen tree: the SMR domain,
// back-off, statistics and item-counter traits. The comparator is a
// constructor argument of the tree package, and disposers are
// installed with each structure's WithDisposer; Config has no
// memory-model, alignment or allocator setting.
type Config struct {
	Domain       *smr.Domain
	Backoff      backoff.Kind
	StatsEnabled bool
	// ItemCounter, when true, maintains an atomic.Int64 alongside the
	// structure so Size is O(1) and exact; without it Size always
	// returns 0 (spec §6 item_counter).
	ItemCounter bool
}

// NewConfig returns a Config bound to domain with the teacher's
// always-pick-a-default style: Pause backoff, stats off, no exact
// item counter, matching BoundedOptions' own zero-cost defaults.
func NewConfig(domain *smr.Domain) *Config {
	if domain == nil {
		panic("lfds: Config requires a non-nil smr.Domain")
	}
	return &Config{Domain: domain, Backoff: backoff.Pause}
}

// WithBackoff selects the retry-pacing strategy.
func (c *Config) WithBackoff(k backoff.Kind) *Config {
	c.Backoff = k
	return c
}

// WithStats turns on typed statistics counters.
func (c *Config) WithStats() *Config {
	c.StatsEnabled = true
	return c
}

// WithItemCounter turns on the exact atomic size counter.
func (c *Config) WithItemCounter() *Config {
	c.ItemCounter = true
	return c
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing between
// producer- and consumer-side fields, exactly as the teacher pads its
// bounded queues' head/tail pairs.
type pad [64]byte
