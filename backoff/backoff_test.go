// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backoff_test

import (
	"testing"

	"code.hybscloud.com/lfds/backoff"
)

func TestNewKinds(t *testing.T) {
	for _, k := range []backoff.Kind{backoff.None, backoff.Pause, backoff.Yield, backoff.Exponential} {
		s := backoff.New(k)
		if s == nil {
			t.Fatalf("New(%v): got nil Strategy", k)
		}
		// Step must not panic regardless of kind, and Reset must bring
		// a strategy back to a state where Step still doesn't panic.
		for range 32 {
			s.Step()
		}
		s.Reset()
		s.Step()
	}
}

func TestUnknownKindFallsBackToNone(t *testing.T) {
	s := backoff.New(backoff.Kind(999))
	// Should behave like None: never panics, never blocks.
	for range 8 {
		s.Step()
	}
}
