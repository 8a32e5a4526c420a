// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tree

import (
	"code.hybscloud.com/lfds"
	"code.hybscloud.com/lfds/smr"
)

// Set is the value-type duality adapter (spec §4.1/L8, supplemented
// per SPEC_FULL §11) over EllenBinTree for callers that only need
// membership, not an associated value. Grounded on the pack's
// ellen_bintree_set_nogc.h, which wraps the same intrusive tree this
// way instead of re-deriving a second search/insert/delete
// implementation for sets: V is simply instantiated as struct{}.
type Set[K any] struct {
	tree *EllenBinTree[K, struct{}]
}

// NewSet creates an empty Set ordered by cmp, backed by cfg.Domain.
func NewSet[K any](cfg *lfds.Config, cmp Comparator[K]) *Set[K] {
	return &Set[K]{tree: NewEllenBinTree[K, struct{}](cfg, cmp)}
}

// Insert adds key if absent. It reports false only when key is
// already present.
func (s *Set[K]) Insert(ctx *smr.ThreadContext, key K) bool {
	return s.tree.Insert(ctx, key, struct{}{})
}

// Contains reports whether key is present.
func (s *Set[K]) Contains(ctx *smr.ThreadContext, key K) bool {
	return s.tree.Contains(ctx, key)
}

// Erase removes key. It reports false only when key is absent.
func (s *Set[K]) Erase(ctx *smr.ThreadContext, key K) bool {
	_, ok := s.tree.Delete(ctx, key)
	return ok
}

// ExtractMin removes and returns the smallest key present, or
// (zero, false) if the set is empty.
func (s *Set[K]) ExtractMin(ctx *smr.ThreadContext) (K, bool) {
	return extractMinKey(s.tree, ctx)
}

// ExtractMax removes and returns the largest key present, or
// (zero, false) if the set is empty.
func (s *Set[K]) ExtractMax(ctx *smr.ThreadContext) (K, bool) {
	return extractMaxKey(s.tree, ctx)
}

// Empty reports whether the set holds no keys.
func (s *Set[K]) Empty(ctx *smr.ThreadContext) bool { return s.tree.Empty(ctx) }

// Size returns the exact element count if the backing Config set
// ItemCounter, or 0 otherwise.
func (s *Set[K]) Size() int64 { return s.tree.Size() }

// Map is the value-type duality adapter over EllenBinTree for callers
// that need an associated value per key — a thin rename of
// EllenBinTree[K, V] itself, kept as a distinct type so the package's
// public surface names both roles spec §6 calls out ("tree/set")
// instead of exposing the intrusive type under the set's own name.
type Map[K any, V any] struct {
	*EllenBinTree[K, V]
}

// NewMap creates an empty Map ordered by cmp, backed by cfg.Domain.
func NewMap[K any, V any](cfg *lfds.Config, cmp Comparator[K]) *Map[K, V] {
	return &Map[K, V]{EllenBinTree: NewEllenBinTree[K, V](cfg, cmp)}
}

// extractMinKey and extractMaxKey reuse EllenBinTree's own min/max
// walk (minKey/maxKey) and then Delete that key, discarding the
// value, rather than re-walking the tree a second time from Set.
func extractMinKey[K any](t *EllenBinTree[K, struct{}], ctx *smr.ThreadContext) (K, bool) {
	key, ok := t.minKey(ctx)
	if !ok {
		var zero K
		return zero, false
	}
	if _, deleted := t.Delete(ctx, key); !deleted {
		var zero K
		return zero, false
	}
	return key, true
}

func extractMaxKey[K any](t *EllenBinTree[K, struct{}], ctx *smr.ThreadContext) (K, bool) {
	key, ok := t.maxKey(ctx)
	if !ok {
		var zero K
		return zero, false
	}
	if _, deleted := t.Delete(ctx, key); !deleted {
		var zero K
		return zero, false
	}
	return key, true
}
