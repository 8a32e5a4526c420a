// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tree

import (
	"sync/atomic"

	"code.hybscloud.com/lfds/internal/xatomic"
)

// leafKind distinguishes a real payload-carrying leaf from the two
// sentinel leaves that anchor the right spine (spec §4.11: "two
// sentinel leaves with infinity keys ... every real key compares less
// than inf1 < inf2"). Internal nodes borrow the same field to mark a
// routing key as a copy of a sentinel rather than a real key, so a
// single node type serves both roles without a second struct.
type leafKind uint8

const (
	leafReal leafKind = iota
	leafInf1
	leafInf2
)

// Update-descriptor tag states, spec §4.11's literal ordering. A
// Clean tag means the owning node's update field carries no pending
// operation; any other tag is a seatbelt an observer must help past
// before touching the node.
const (
	tagClean uint64 = iota
	tagDFlag
	tagMark
	tagIFlag
)

// descKind discriminates the two shapes an UpdateDescriptor can take.
// IFlag-tagged descriptors drive both Insert (install a new internal
// node) and Update (swap a leaf's value in place) — they share the
// same "replace one child pointer, then clear" help step, so one
// struct shape covers both; descKind only changes whether the
// replaced child is retired afterward.
type descKind uint8

const (
	descInsert descKind = iota
	descReplace
	descDelete
)

// node is the unified internal/leaf representation: a leaf has
// isLeaf set and carries key/val/kind; an internal node has isLeaf
// clear and carries left/right/update. Leaves never mutate left,
// right, or update; internal nodes never mutate key, val, or kind
// after construction — each node is built once, fully formed, then
// published by a single CAS.
type node[K any, V any] struct {
	isLeaf bool
	kind   leafKind // leafReal: routing key is key; else a sentinel identity
	key    K
	val    V

	left   atomic.Pointer[node[K, V]]
	right  atomic.Pointer[node[K, V]]
	update xatomic.AtomicTagged[UpdateDescriptor[K, V]]
}

// UpdateDescriptor carries everything a helper needs to finish a
// pending Insert, Update, or Delete without consulting anything but
// the descriptor itself — the property spec §4.11 calls "wait-free at
// the help level because descriptors are immutable once installed."
type UpdateDescriptor[K any, V any] struct {
	kind descKind

	// Insert/Replace shape: CAS iParent's child (iRight picks which)
	// from iOld to iNew, then clear iParent's update. Insert never
	// retires iOld (the old leaf survives as a child of the new
	// internal node); Replace always retires iOld (it becomes
	// unreachable once the swap lands).
	iParent *node[K, V]
	iOld    *node[K, V]
	iNew    *node[K, V]
	iRight  bool

	// Delete shape: dParentSnapshot is dParent's update value at the
	// moment of search (must be Clean) — the expected-old value for
	// the Mark CAS. Splicing replaces dGP's child (dGPRight picks
	// which) that currently points at dParent with dParent's
	// surviving child, recomputed fresh by each helper since dParent's
	// children are frozen once Marked.
	dGP             *node[K, V]
	dGPRight        bool
	dParent         *node[K, V]
	dParentSnapshot xatomic.Tagged[UpdateDescriptor[K, V]]
	dLeaf           *node[K, V]
}
