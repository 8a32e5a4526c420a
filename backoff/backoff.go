// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backoff collects the retry pacing strategies used by every
// CAS loop in this module. A lock-free algorithm is only as polite to
// the rest of the machine as its retry loop: spinning with no pause
// burns a core's issue ports fighting every other thread touching the
// same cache line, while yielding too eagerly gives up the CPU right
// before the CAS that would have succeeded.
//
// Every algorithm in this module takes a backoff.Strategy constructed
// once per call (not once per process), mirroring the teacher's own
// per-call spin.Wait{} idiom:
//
//	bo := backoff.New(backoff.Exponential)
//	for {
//	    if p.CompareAndSwap(old, new) {
//	        break
//	    }
//	    bo.Step()
//	}
package backoff

import (
	"runtime"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// Kind selects a built-in Strategy implementation.
type Kind int

const (
	// None never yields; every Step is a no-op. Use only for call
	// sites that are already bounded by a hazard-pointer scan or a
	// small fixed retry budget, where spinning briefly is cheaper
	// than a strategy's own bookkeeping.
	None Kind = iota
	// Pause issues a CPU pause/yield instruction on every step via
	// [spin.Wait], the teacher's own per-slot spin helper.
	Pause
	// Yield calls runtime.Gosched after a short spin, for contended
	// retry loops where the winner is likely running on another
	// goroutine scheduled on the same P.
	Yield
	// Exponential grows the pause width geometrically up to a cap,
	// wrapping [iox.Backoff] for the sleep/jitter schedule.
	Exponential
)

// Strategy paces a CAS retry loop. Step is called once per failed
// attempt; a fresh Strategy is constructed per call site, not reused
// across unrelated operations, so Step's internal state (spin count,
// current delay) reflects only the current operation's contention.
type Strategy interface {
	// Step backs off once. Callers invoke it after a failed CAS and
	// before retrying.
	Step()
	// Reset clears accumulated backoff state, for loops that make
	// progress (e.g. after a successful partial step in a multi-CAS
	// protocol) and want to de-escalate.
	Reset()
}

// New returns a fresh Strategy of the given Kind.
func New(k Kind) Strategy {
	switch k {
	case Pause:
		return &pauseStrategy{}
	case Yield:
		return &yieldStrategy{}
	case Exponential:
		return &exponentialStrategy{}
	default:
		return noneStrategy{}
	}
}

type noneStrategy struct{}

func (noneStrategy) Step()  {}
func (noneStrategy) Reset() {}

type pauseStrategy struct {
	sw spin.Wait
}

func (s *pauseStrategy) Step() {
	s.sw.Once()
}

func (s *pauseStrategy) Reset() {
	s.sw = spin.Wait{}
}

// yieldStrategy spins briefly with CPU pauses, then hands the
// goroutine back to the scheduler. A plain spin.Wait is cheap on the
// first few retries; once a CAS has failed enough times it's more
// likely the winner is on another goroutine waiting for this P, so
// Gosched gives it a chance to run.
type yieldStrategy struct {
	sw    spin.Wait
	spins int
}

const yieldAfterSpins = 16

func (s *yieldStrategy) Step() {
	if s.spins < yieldAfterSpins {
		s.sw.Once()
		s.spins++
		return
	}
	runtime.Gosched()
}

func (s *yieldStrategy) Reset() {
	s.sw = spin.Wait{}
	s.spins = 0
}

type exponentialStrategy struct {
	bo iox.Backoff
}

func (s *exponentialStrategy) Step() {
	s.bo.Wait()
}

func (s *exponentialStrategy) Reset() {
	s.bo.Reset()
}
