// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package smr

// DescriptorPool allocates and recycles the small, multi-word
// transaction records spec §3 calls UpdateDescriptor. No structure in
// this module allocates through it: the Ellen tree builds its
// UpdateDescriptors directly with a composite literal and never
// retires them, and OptimisticQueue's fixList uses no descriptor
// records. A descriptor installed into a
// node's tagged pointer is reachable (and therefore protectable) in
// exactly the way a node reachable from head/tail is, so it is
// reclaimed through the same Domain and the same liveness test as
// nodes (spec §3: "reclamation is governed by the same SMR as
// nodes"), rather than through a separate allocator.
//
// Unlike the original's free-list (sized up front to avoid allocator
// churn under a non-moving, manual-memory-management runtime), this
// pool leans on the Go allocator for Alloc and uses the Domain only
// for the reclamation-side half of the contract: Go's GC already
// amortizes small-object allocation, so a hand-rolled free-list here
// would trade one allocator for a slower one without buying back
// anything spec §3 actually requires.
type DescriptorPool[T any] struct {
	domain *Domain
}

// NewDescriptorPool returns a pool whose descriptors are reclaimed
// through domain.
func NewDescriptorPool[T any](domain *Domain) *DescriptorPool[T] {
	return &DescriptorPool[T]{domain: domain}
}

// Alloc returns a fresh, zero-value descriptor.
func (p *DescriptorPool[T]) Alloc() *T {
	return new(T)
}

// Retire hands desc to the pool's Domain for safe reclamation: it
// will not be collected while any Guard in the domain still protects
// it (spec §4.3.4). Descriptors carry no disposer of their own — the
// no-op here just lets them ride the same retire/scan machinery nodes
// use, never observed by a caller-supplied hook.
func (p *DescriptorPool[T]) Retire(ctx *ThreadContext, desc *T) {
	Retire(ctx, desc, func(*T) {})
}
