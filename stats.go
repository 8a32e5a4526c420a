// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import "sync/atomic"

// Statistics holds the per-operation counters spec §6's stat trait
// turns on. Every counter uses Relaxed ordering — spec §9 mandates
// this for all statistics ("advisory and must never contribute to
// correctness"), independent of whichever memory-model trait the
// structure itself is built with.
type Statistics struct {
	Pushes  int64
	Pops    int64
	Empties int64 // pop attempts that found the structure empty
}

type statCounters struct {
	pushes  atomic.Int64
	pops    atomic.Int64
	empties atomic.Int64
}

func (c *statCounters) recordPush()  { c.pushes.Add(1) }
func (c *statCounters) recordPop()   { c.pops.Add(1) }
func (c *statCounters) recordEmpty() { c.empties.Add(1) }

func (c *statCounters) snapshot() Statistics {
	return Statistics{
		Pushes:  c.pushes.Load(),
		Pops:    c.pops.Load(),
		Empties: c.empties.Load(),
	}
}
