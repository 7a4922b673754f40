// Package memory implements an unbounded in-memory pagestore.PageStore,
// the store the core B+tree's own tests run against.
package memory

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
)

// Store is an in-memory, infinite-capacity page store: a map from page id
// to node, guarded by a mutex, with a monotone allocator starting at 1
// (page 0 is reserved for the root). There is no eviction, matching
// spec.md's exclusion of buffer-pool eviction from the core engine.
type Store struct {
	mtx       sync.Mutex
	pages     map[pageid.PageID]node.Node
	allocated *bitset.BitSet
	next      uint64
}

// New returns a Store whose root page (0) is a freshly initialized, empty
// leaf node marked as root.
func New() *Store {
	root := node.NewLeaf()
	root.SetRoot(true)
	s := &Store{
		pages:     make(map[pageid.PageID]node.Node),
		allocated: bitset.New(64),
		next:      1,
	}
	s.pages[pageid.RootPageID] = root
	s.allocated.Set(0)
	return s
}

// Alloc returns a fresh page id, strictly monotone from 1 upward.
func (s *Store) Alloc() pageid.PageID {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	id := s.next
	s.next++
	s.allocated.Set(uint(id))
	return pageid.PageID(id)
}

// Get returns the node at id, lazily materializing a default empty leaf
// node there if id has never been written.
func (s *Store) Get(id pageid.PageID) node.Node {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if n, ok := s.pages[id]; ok {
		return n
	}
	n := node.NewLeaf()
	s.pages[id] = n
	s.allocated.Set(uint(id))
	return n
}

// Put replaces whatever node is stored at id.
func (s *Store) Put(id pageid.PageID, n node.Node) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pages[id] = n
	s.allocated.Set(uint(id))
}

// Allocated returns the number of page ids that have ever been written to
// or allocated, a diagnostic used by tests and the bench command.
func (s *Store) Allocated() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return int(s.allocated.Count())
}
