// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

// Disposer is the L4 node-hook contract of spec §3's lifecycle
// section: a callback invoked on a node's payload once the SMR
// substrate has determined no guard anywhere can still observe it.
// Each queue's WithDisposer method installs one; a nil Disposer (the
// default) means ordinary garbage collection reclaims the payload and
// no explicit hook runs.
//
// Every queue in this package is intrusive in the sense spec §3
// describes — the algorithm moves *node pointers through CAS, never
// copies of T — but the node types themselves (msNode, optNode,
// basketNode) stay unexported, so Disposer is the only L4 surface a
// client ever sees; there is no separate "declare your own link
// fields" step to generalize the way the teacher's fixed-layout slots
// did, since every node here is allocated by the algorithm, not by
// the client.
type Disposer[T any] func(*T)
