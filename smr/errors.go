// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

import (
	"errors"
	"fmt"
)

// ErrAllocatorFailure is the error value for an allocation the
// reclamation layer could not satisfy (a new retire record, a new
// hazard record). No function in this module returns it: hazard and
// retire records are allocated with ordinary Go allocation.
var ErrAllocatorFailure = errors.New("smr: allocator failure")

// notAttachedError and slotExhaustedError are programmer errors: they
// mean the caller passed a ThreadContext that was never attached (or
// was detached) to an operation, or asked for more concurrent hazard
// pointers than the Domain was configured for. Both are bugs in the
// calling code, not runtime conditions a correct caller can recover
// from, so they panic rather than return an error — mirroring how the
// teacher's own Builder panics on a misconfigured capacity instead of
// returning a build error.
type notAttachedError struct{}

func (notAttachedError) Error() string { return "smr: thread context not attached to domain" }

type slotExhaustedError struct {
	have, want int
}

func (e slotExhaustedError) Error() string {
	return fmt.Sprintf("smr: hazard slot exhausted: have %d, want %d", e.have, e.want)
}

func panicNotAttached() {
	panic(notAttachedError{})
}

func panicSlotExhausted(have, want int) {
	panic(slotExhaustedError{have: have, want: want})
}
