// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tree implements the Ellen et al. lock-free binary search
// tree (spec §4.11): a leaf-oriented BST where internal nodes hold
// routing keys and only leaves hold payloads, made lock-free by an
// update-descriptor/help protocol instead of locking the path from
// root to leaf.
//
// Grounded on code.hybscloud.com/lfds's queue family for the SMR
// wiring (same smr.Domain/ThreadContext/Guard contract, same
// backoff.Strategy retry pacing) and on original_source/cds/intrusive/
// ellen_bintree_nogc.h for the insert/search shape; the delete path has
// no reference source in the pack and is written fresh from the
// protocol spec §4.11 describes, reusing the same update-descriptor
// and help-dispatch shape the insert path already demonstrates.
package tree

import (
	"sync/atomic"

	"code.hybscloud.com/lfds"
	"code.hybscloud.com/lfds/backoff"
	"code.hybscloud.com/lfds/internal/xatomic"
	"code.hybscloud.com/lfds/smr"
)

// Comparator reports the sign of a-b: negative if a<b, zero if a==b,
// positive if a>b. Go generics have no built-in total order over
// arbitrary key types, so every ordered structure in this package
// takes one explicitly, matching the stdlib's own cmp.Compare idiom.
type Comparator[K any] func(a, b K) int

const (
	slotGP     = 0
	slotParent = 1
	slotCur    = 2
)

// Disposer is the tree's node-hook contract, invoked on a leaf's key
// and value once no Guard anywhere can still observe it.
type Disposer[K any, V any] func(K, V)

// Statistics holds the per-operation counters spec §6's stat trait
// turns on for the tree. Every counter uses Relaxed ordering, per
// spec §9.
type Statistics struct {
	Inserts   int64
	Deletes   int64
	Finds     int64
	NotFounds int64
}

type statCounters struct {
	inserts   atomic.Int64
	deletes   atomic.Int64
	finds     atomic.Int64
	notFounds atomic.Int64
}

func (c *statCounters) snapshot() Statistics {
	return Statistics{
		Inserts:   c.inserts.Load(),
		Deletes:   c.deletes.Load(),
		Finds:     c.finds.Load(),
		NotFounds: c.notFounds.Load(),
	}
}

// EllenBinTree is an intrusive ordered map from K to V. The zero
// value is not usable; construct with NewEllenBinTree.
//
// Every internal node's update field is a tagged pointer to an
// UpdateDescriptor whose tag is one of {Clean, DFlag, Mark, IFlag}
// (spec §4.11). Reading a non-Clean tag obliges the reader to help
// that operation to completion before proceeding with its own —
// that's what makes the structure lock-free: a thread that stalls
// mid-operation after installing a descriptor can be finished by any
// other thread that next touches the same node.
type EllenBinTree[K any, V any] struct {
	root node[K, V]

	cmp          Comparator[K]
	domain       *smr.Domain
	bo           backoff.Kind
	disposer     Disposer[K, V]
	itemCounter  bool
	size         atomic.Int64
	statsEnabled bool
	stats        statCounters
}

// NewEllenBinTree creates an empty tree ordered by cmp, backed by
// cfg.Domain for leaf/internal-node reclamation.
func NewEllenBinTree[K any, V any](cfg *lfds.Config, cmp Comparator[K]) *EllenBinTree[K, V] {
	if cmp == nil {
		panic("tree: NewEllenBinTree requires a non-nil Comparator")
	}
	t := &EllenBinTree[K, V]{
		cmp:          cmp,
		domain:       cfg.Domain,
		bo:           cfg.Backoff,
		itemCounter:  cfg.ItemCounter,
		statsEnabled: cfg.StatsEnabled,
	}
	t.root.isLeaf = false
	t.root.kind = leafInf2
	inf1 := &node[K, V]{isLeaf: true, kind: leafInf1}
	inf2 := &node[K, V]{isLeaf: true, kind: leafInf2}
	t.root.left.Store(inf1)
	t.root.right.Store(inf2)
	return t
}

// WithDisposer installs disposer, invoked on a leaf's key and value
// once it is safe to reclaim.
func (t *EllenBinTree[K, V]) WithDisposer(disposer Disposer[K, V]) *EllenBinTree[K, V] {
	t.disposer = disposer
	return t
}

func (t *EllenBinTree[K, V]) dispose(n *node[K, V]) {
	if t.disposer != nil && n.kind == leafReal {
		t.disposer(n.key, n.val)
	}
}

// compareAgainst orders a real search key against a node's routing
// identity: a node with kind==leafReal routes on key via cmp; a node
// with kind==leafInf1/leafInf2 is a sentinel, and every real key
// compares less than either sentinel, with inf1 < inf2 between
// themselves (spec §4.11's "every real key compares less than
// inf1 < inf2").
func compareAgainst[K any](cmp Comparator[K], key K, kind leafKind, routingKey K) int {
	if kind == leafReal {
		return cmp(key, routingKey)
	}
	return -1
}

// searchResult is the path state Insert/Update/Delete all build from:
// the leaf found (or the leaf a missing key would occupy), its
// parent, and the grandparent two levels up, each with the update
// snapshot read at the moment it was visited.
type searchResult[K any, V any] struct {
	gp         *node[K, V]
	gpUpdate   xatomic.Tagged[UpdateDescriptor[K, V]]
	gpRight    bool
	parent     *node[K, V]
	parentUpd  xatomic.Tagged[UpdateDescriptor[K, V]]
	parentRight bool
	leaf       *node[K, V]
}

// search walks from root to the leaf that key would occupy, helping
// along the way is NOT performed here — search only reads; helping
// is the responsibility of the caller once it knows which node's
// update it actually needs Clean.
func (t *EllenBinTree[K, V]) search(g0, g1, g2 smr.Guard, key K) searchResult[K, V] {
	var res searchResult[K, V]

	parent := &t.root
	var parentField *atomic.Pointer[node[K, V]]
	parentUpd := parent.update.LoadAcquire()
	rightLeaf := compareAgainst(t.cmp, key, parent.kind, parent.key) >= 0
	var curField *atomic.Pointer[node[K, V]]
	if rightLeaf {
		curField = &parent.right
	} else {
		curField = &parent.left
	}

	for {
		cur := smr.Protect(g2, curField)
		if cur.isLeaf {
			res.gp = res.parent
			res.gpUpdate = res.parentUpd
			res.gpRight = res.parentRight
			res.parent = parent
			res.parentUpd = parentUpd
			res.parentRight = rightLeaf
			res.leaf = cur
			return res
		}

		if parentField != nil {
			smr.Protect(g0, parentField)
		}
		res.gp = res.parent
		res.gpUpdate = res.parentUpd
		res.gpRight = res.parentRight

		res.parent = parent
		res.parentUpd = parentUpd
		res.parentRight = rightLeaf

		smr.Protect(g1, curField)
		parentField = curField
		parent = cur
		parentUpd = parent.update.LoadAcquire()
		rightLeaf = compareAgainst(t.cmp, key, parent.kind, parent.key) >= 0
		if rightLeaf {
			curField = &parent.right
		} else {
			curField = &parent.left
		}
	}
}

// help executes whatever step the descriptor tagged by u would
// execute next. Any thread that observes a non-Clean update, whether
// or not it owns the operation that installed it, calls this before
// proceeding — that's the seatbelt spec §4.11 describes.
func (t *EllenBinTree[K, V]) help(ctx *smr.ThreadContext, u xatomic.Tagged[UpdateDescriptor[K, V]]) {
	switch u.Tag {
	case tagIFlag:
		t.helpInsertOrReplace(ctx, u)
	case tagDFlag, tagMark:
		t.helpDelete(ctx, u.Ptr)
	}
}

// Insert adds key/val if key is absent. It reports false only when
// key is already present, per spec §4.11's "insert fails only when
// the exact key is already present."
func (t *EllenBinTree[K, V]) Insert(ctx *smr.ThreadContext, key K, val V) bool {
	bo := backoff.New(t.bo)
	gGP := smr.AcquireGuard(ctx, slotGP)
	gP := smr.AcquireGuard(ctx, slotParent)
	gL := smr.AcquireGuard(ctx, slotCur)
	defer gGP.Release()
	defer gP.Release()
	defer gL.Release()

	for {
		res := t.search(gGP, gP, gL, key)
		if res.leaf.kind == leafReal && t.cmp(key, res.leaf.key) == 0 {
			return false
		}
		if res.parentUpd.Tag != tagClean {
			t.help(ctx, res.parentUpd)
			bo.Step()
			continue
		}

		newLeaf := &node[K, V]{isLeaf: true, kind: leafReal, key: key, val: val}
		newInternal := &node[K, V]{isLeaf: false}

		var leftChild, rightChild *node[K, V]
		if compareAgainst(t.cmp, key, res.leaf.kind, res.leaf.key) < 0 {
			leftChild, rightChild = newLeaf, res.leaf
			newInternal.kind = res.leaf.kind
			newInternal.key = res.leaf.key
		} else {
			leftChild, rightChild = res.leaf, newLeaf
			newInternal.kind = leafReal
			newInternal.key = key
		}
		newInternal.left.Store(leftChild)
		newInternal.right.Store(rightChild)

		desc := &UpdateDescriptor[K, V]{
			kind:    descInsert,
			iParent: res.parent,
			iOld:    res.leaf,
			iNew:    newInternal,
			iRight:  res.parentRight,
		}
		tagged := xatomic.Tagged[UpdateDescriptor[K, V]]{Ptr: desc, Tag: tagIFlag}
		if !res.parent.update.CompareAndSwapTag(res.parentUpd, desc, tagIFlag) {
			bo.Step()
			continue
		}
		t.helpInsertOrReplace(ctx, tagged)
		if t.itemCounter {
			t.size.Add(1)
		}
		if t.statsEnabled {
			t.stats.inserts.Add(1)
		}
		return true
	}
}

// helpInsertOrReplace finishes an IFlag-tagged descriptor: swap the
// parent's flagged child from old to new, then clear the parent's
// update. Shared by Insert (new internal node, old leaf survives as
// its child — never retired) and Update's in-place leaf swap (old
// leaf becomes unreachable — retired).
func (t *EllenBinTree[K, V]) helpInsertOrReplace(ctx *smr.ThreadContext, u xatomic.Tagged[UpdateDescriptor[K, V]]) {
	desc := u.Ptr
	if desc.iRight {
		desc.iParent.right.CompareAndSwap(desc.iOld, desc.iNew)
	} else {
		desc.iParent.left.CompareAndSwap(desc.iOld, desc.iNew)
	}
	desc.iParent.update.CompareAndSwapTag(u, nil, tagClean)
	if desc.kind == descReplace {
		smr.Retire(ctx, desc.iOld, t.dispose)
	}
}

// Delete removes key if present. It reports false only when key is
// absent, per spec §4.11's "erase fails only when the key is absent."
func (t *EllenBinTree[K, V]) Delete(ctx *smr.ThreadContext, key K) (V, bool) {
	leaf, gL, ok := t.deleteCore(ctx, key)
	if !ok {
		var zero V
		return zero, false
	}
	val := leaf.val
	gL.Release()
	return val, true
}

// deleteCore runs the delete protocol spec §4.11 describes (including
// the root-child degenerate case) and hands back the removed leaf
// with slotCur's guard still held over it, instead of releasing it
// itself: Delete reads the value and releases right away, while
// Extract hands the open guard to a GuardedPtr so the value — and any
// disposer — stays live until the caller releases it (spec §4.3c).
func (t *EllenBinTree[K, V]) deleteCore(ctx *smr.ThreadContext, key K) (leaf *node[K, V], gL smr.Guard, ok bool) {
	bo := backoff.New(t.bo)
	gGP := smr.AcquireGuard(ctx, slotGP)
	gP := smr.AcquireGuard(ctx, slotParent)
	gL = smr.AcquireGuard(ctx, slotCur)
	defer gGP.Release()
	defer gP.Release()

	for {
		res := t.search(gGP, gP, gL, key)
		if res.leaf.kind != leafReal || t.cmp(key, res.leaf.key) != 0 {
			if t.statsEnabled {
				t.stats.notFounds.Add(1)
			}
			gL.Release()
			return nil, smr.Guard{}, false
		}
		if res.gp == nil {
			// The only leaf is a direct child of root: nothing to
			// unlink at the grandparent level because root itself
			// never moves. Fall through to helping the parent's own
			// pending state (if any) and retry. Insert always places
			// a real leaf under a new internal node, so the search
			// above does not reach a real leaf that is a direct
			// child of root.
			if res.parentUpd.Tag != tagClean {
				t.help(ctx, res.parentUpd)
				bo.Step()
				continue
			}
			if !t.deleteOnlyChild(ctx, res) {
				// Lost the root-child CAS to a concurrent operation;
				// re-search rather than reporting key absent.
				bo.Step()
				continue
			}
			if t.itemCounter {
				t.size.Add(-1)
			}
			if t.statsEnabled {
				t.stats.deletes.Add(1)
			}
			return res.leaf, gL, true
		}
		if res.gpUpdate.Tag != tagClean {
			t.help(ctx, res.gpUpdate)
			bo.Step()
			continue
		}
		if res.parentUpd.Tag != tagClean {
			t.help(ctx, res.parentUpd)
			bo.Step()
			continue
		}

		desc := &UpdateDescriptor[K, V]{
			kind:            descDelete,
			dGP:             res.gp,
			dGPRight:        res.gpRight,
			dParent:         res.parent,
			dParentSnapshot: res.parentUpd,
			dLeaf:           res.leaf,
		}
		dTagged := xatomic.Tagged[UpdateDescriptor[K, V]]{Ptr: desc, Tag: tagDFlag}
		if !res.gp.update.CompareAndSwapTag(res.gpUpdate, desc, tagDFlag) {
			bo.Step()
			continue
		}
		t.helpDeleteFrom(ctx, desc, dTagged)
		if t.itemCounter {
			t.size.Add(-1)
		}
		if t.statsEnabled {
			t.stats.deletes.Add(1)
		}
		return res.leaf, gL, true
	}
}

// deleteOnlyChild handles the degenerate case where the leaf to
// remove is a direct child of root: there is no grandparent-level
// DFlag/Mark dance to perform, since root's identity never changes.
// Removal here is a single CAS of root's own child pointer from the
// parent internal node straight to the leaf's sibling. It reports
// false only when the CAS lost a race to a concurrent operation, not
// when the key is absent — deleteCore retries in that case.
func (t *EllenBinTree[K, V]) deleteOnlyChild(ctx *smr.ThreadContext, res searchResult[K, V]) bool {
	sibling := res.parent.left.Load()
	if sibling == res.leaf {
		sibling = res.parent.right.Load()
	}
	var childField *atomic.Pointer[node[K, V]]
	if res.parentRight {
		childField = &t.root.right
	} else {
		childField = &t.root.left
	}
	if !childField.CompareAndSwap(res.parent, sibling) {
		return false
	}
	smr.Retire(ctx, res.parent, func(*node[K, V]) {})
	smr.Retire(ctx, res.leaf, t.dispose)
	return true
}

// helpDelete is the dispatch entry any observer of a DFlag- or
// Mark-tagged update calls: the descriptor itself carries the full
// grandparent/parent/leaf triple, so there is nothing more to look up.
func (t *EllenBinTree[K, V]) helpDelete(ctx *smr.ThreadContext, desc *UpdateDescriptor[K, V]) {
	t.helpDeleteFrom(ctx, desc, xatomic.Tagged[UpdateDescriptor[K, V]]{Ptr: desc, Tag: tagDFlag})
}

// helpDeleteFrom runs the three-step delete protocol (spec §4.11):
// mark the parent, splice the grandparent's child pointer past it to
// the sibling, then clear the grandparent's DFlag. Each CAS is
// attempted regardless of whether an earlier helper already won it —
// every helper uses the same descriptor and the same expected-old
// values, so a lost race here means another thread already did this
// exact step and progress still happened.
func (t *EllenBinTree[K, V]) helpDeleteFrom(ctx *smr.ThreadContext, desc *UpdateDescriptor[K, V], dTagged xatomic.Tagged[UpdateDescriptor[K, V]]) {
	desc.dParent.update.CompareAndSwapTag(desc.dParentSnapshot, desc, tagMark)

	sibling := desc.dParent.left.Load()
	if sibling == desc.dLeaf {
		sibling = desc.dParent.right.Load()
	}

	var gpChild *atomic.Pointer[node[K, V]]
	if desc.dGPRight {
		gpChild = &desc.dGP.right
	} else {
		gpChild = &desc.dGP.left
	}
	gpChild.CompareAndSwap(desc.dParent, sibling)

	if desc.dGP.update.CompareAndSwapTag(dTagged, nil, tagClean) {
		smr.Retire(ctx, desc.dParent, func(*node[K, V]) {})
		smr.Retire(ctx, desc.dLeaf, t.dispose)
	}
}

// Get returns a GuardedPtr over the value stored at key (spec
// §6/§4.3c), or a zero-value, not-found GuardedPtr if key is absent.
// Unlike Find, the value is not copied out: it stays live, and any
// disposer installed on the tree stays unfired, until the caller
// releases the handle.
func (t *EllenBinTree[K, V]) Get(ctx *smr.ThreadContext, key K) smr.GuardedPtr[V] {
	gGP := smr.AcquireGuard(ctx, slotGP)
	gP := smr.AcquireGuard(ctx, slotParent)
	gL := smr.AcquireGuard(ctx, slotCur)
	defer gGP.Release()
	defer gP.Release()

	res := t.search(gGP, gP, gL, key)
	if res.leaf.kind != leafReal || t.cmp(key, res.leaf.key) != 0 {
		if t.statsEnabled {
			t.stats.notFounds.Add(1)
		}
		gL.Release()
		return smr.GuardedPtr[V]{}
	}
	if t.statsEnabled {
		t.stats.finds.Add(1)
	}
	return smr.NewGuardedPtr(gL, &res.leaf.val)
}

// Find returns a copy of the value stored at key, if present — the
// copy-out counterpart to Get's live handle.
func (t *EllenBinTree[K, V]) Find(ctx *smr.ThreadContext, key K) (V, bool) {
	gp := t.Get(ctx, key)
	v := gp.Get()
	gp.Release()
	if v == nil {
		var zero V
		return zero, false
	}
	return *v, true
}

// Contains reports whether key is present.
func (t *EllenBinTree[K, V]) Contains(ctx *smr.ThreadContext, key K) bool {
	_, ok := t.Find(ctx, key)
	return ok
}

// Search is an alias for Contains, matching spec §6's naming of both
// Search and Contains as external operations.
func (t *EllenBinTree[K, V]) Search(ctx *smr.ThreadContext, key K) bool {
	return t.Contains(ctx, key)
}

// Update replaces key's value with val if key is present, or inserts
// key/val if allowInsert is true and key is absent. It reports
// (changed, inserted).
func (t *EllenBinTree[K, V]) Update(ctx *smr.ThreadContext, key K, val V, allowInsert bool) (bool, bool) {
	bo := backoff.New(t.bo)
	gGP := smr.AcquireGuard(ctx, slotGP)
	gP := smr.AcquireGuard(ctx, slotParent)
	gL := smr.AcquireGuard(ctx, slotCur)
	defer gGP.Release()
	defer gP.Release()
	defer gL.Release()

	for {
		res := t.search(gGP, gP, gL, key)
		found := res.leaf.kind == leafReal && t.cmp(key, res.leaf.key) == 0
		if !found {
			if !allowInsert {
				return false, false
			}
			if ok := t.Insert(ctx, key, val); ok {
				return true, true
			}
			bo.Step()
			continue
		}
		if res.parentUpd.Tag != tagClean {
			t.help(ctx, res.parentUpd)
			bo.Step()
			continue
		}
		newLeaf := &node[K, V]{isLeaf: true, kind: leafReal, key: key, val: val}
		desc := &UpdateDescriptor[K, V]{
			kind:    descReplace,
			iParent: res.parent,
			iOld:    res.leaf,
			iNew:    newLeaf,
			iRight:  res.parentRight,
		}
		tagged := xatomic.Tagged[UpdateDescriptor[K, V]]{Ptr: desc, Tag: tagIFlag}
		if !res.parent.update.CompareAndSwapTag(res.parentUpd, desc, tagIFlag) {
			bo.Step()
			continue
		}
		t.helpInsertOrReplace(ctx, tagged)
		return true, false
	}
}

// Extract removes key and returns a GuardedPtr over its value (spec
// §6/§4.3c), or a zero-value, not-found GuardedPtr if key is absent.
func (t *EllenBinTree[K, V]) Extract(ctx *smr.ThreadContext, key K) smr.GuardedPtr[V] {
	leaf, gL, ok := t.deleteCore(ctx, key)
	if !ok {
		return smr.GuardedPtr[V]{}
	}
	return smr.NewGuardedPtr(gL, &leaf.val)
}

// ExtractMin removes and returns a GuardedPtr over the value stored at
// the smallest real key, or a zero-value GuardedPtr if the tree holds
// no real keys.
func (t *EllenBinTree[K, V]) ExtractMin(ctx *smr.ThreadContext) smr.GuardedPtr[V] {
	key, ok := t.minKey(ctx)
	if !ok {
		return smr.GuardedPtr[V]{}
	}
	return t.Extract(ctx, key)
}

// ExtractMax removes and returns a GuardedPtr over the value stored at
// the largest real key, or a zero-value GuardedPtr if the tree holds
// no real keys.
func (t *EllenBinTree[K, V]) ExtractMax(ctx *smr.ThreadContext) smr.GuardedPtr[V] {
	key, ok := t.maxKey(ctx)
	if !ok {
		return smr.GuardedPtr[V]{}
	}
	return t.Extract(ctx, key)
}

// minKey finds the smallest real key by always descending left: every
// real key was inserted to the left of some chain of sentinel-routed
// internal nodes, so the leftmost leaf is always either the minimum
// real key or, if the tree holds no real keys at all, a sentinel.
func (t *EllenBinTree[K, V]) minKey(ctx *smr.ThreadContext) (K, bool) {
	g := smr.AcquireGuard(ctx, slotCur)
	defer g.Release()
	cur := smr.Protect(g, &t.root.left)
	for !cur.isLeaf {
		cur = smr.Protect(g, &cur.left)
	}
	if cur.kind != leafReal {
		var zero K
		return zero, false
	}
	return cur.key, true
}

// maxKey finds the largest real key. At each internal node, a
// sentinel-identified routing key means the whole real-key subtree is
// still to the left (go left); a real routing key means there are
// bigger real keys to the right (go right). The leaf this reaches is
// the maximum real key, or a sentinel if none exist.
func (t *EllenBinTree[K, V]) maxKey(ctx *smr.ThreadContext) (K, bool) {
	g := smr.AcquireGuard(ctx, slotCur)
	defer g.Release()
	cur := smr.Protect(g, &t.root.left)
	for !cur.isLeaf {
		if cur.kind != leafReal {
			cur = smr.Protect(g, &cur.left)
		} else {
			cur = smr.Protect(g, &cur.right)
		}
	}
	if cur.kind != leafReal {
		var zero K
		return zero, false
	}
	return cur.key, true
}

// Empty reports whether the tree holds no real keys.
func (t *EllenBinTree[K, V]) Empty(ctx *smr.ThreadContext) bool {
	_, ok := t.minKey(ctx)
	return !ok
}

// Size returns the exact element count if the tree's Config set
// ItemCounter, or 0 otherwise.
func (t *EllenBinTree[K, V]) Size() int64 {
	if !t.itemCounter {
		return 0
	}
	return t.size.Load()
}

// Statistics returns a snapshot of the tree's operation counters.
func (t *EllenBinTree[K, V]) Statistics() Statistics {
	return t.stats.snapshot()
}
