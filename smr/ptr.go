// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

import (
	"sync/atomic"
	"unsafe"
)

// atomicBytePointer is the concrete slot type backing a hazardRecord.
// Every protected node, whatever its real type T, is published through
// one of these via toBytePtr/fromBytePtr below.
type atomicBytePointer = atomic.Pointer[byte]

func uintptrOf(p *byte) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// toBytePtr reinterprets a *T as a *byte for storage in a hazard slot.
// This is a same-address, same-liveness view: the object's type
// remains T as far as the garbage collector's scanning machinery is
// concerned (it still sees the real allocation's type descriptor), and
// holding any pointer to it — of whatever static type — is sufficient
// to keep it from being collected.
func toBytePtr[T any](p *T) *byte {
	if p == nil {
		return nil
	}
	return (*byte)(unsafe.Pointer(p))
}

// fromBytePtr is the inverse of toBytePtr.
func fromBytePtr[T any](p *byte) *T {
	if p == nil {
		return nil
	}
	return (*T)(unsafe.Pointer(p))
}
