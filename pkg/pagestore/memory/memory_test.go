package memory_test

import (
	"testing"

	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
	"bptreedb/pkg/pagestore/memory"
)

func TestNewSeedsRootAsEmptyLeaf(t *testing.T) {
	s := memory.New()
	root := s.Get(pageid.RootPageID)
	l, ok := root.(*node.LeafNode)
	if !ok {
		t.Fatalf("root is a %T, want *node.LeafNode", root)
	}
	if !l.IsRoot() {
		t.Errorf("root node is not marked as root")
	}
	if len(l.Cells) != 0 {
		t.Errorf("fresh root has %d cells, want 0", len(l.Cells))
	}
}

func TestAllocIsMonotoneAndDistinct(t *testing.T) {
	s := memory.New()
	a := s.Alloc()
	b := s.Alloc()
	if a == b {
		t.Fatalf("Alloc returned the same id twice: %v", a)
	}
	if a == pageid.RootPageID || b == pageid.RootPageID {
		t.Errorf("Alloc returned the reserved root page id")
	}
}

func TestGetLazilyMaterializesDefaultLeaf(t *testing.T) {
	s := memory.New()
	id := s.Alloc()
	n := s.Get(id)
	if _, ok := n.(*node.LeafNode); !ok {
		t.Fatalf("got %T, want *node.LeafNode", n)
	}
}

func TestPutOverwritesAndIsVisibleToGet(t *testing.T) {
	s := memory.New()
	id := s.Alloc()
	in := node.NewInternal()
	in.RightChild = 7
	s.Put(id, in)

	got, ok := s.Get(id).(*node.InternalNode)
	if !ok {
		t.Fatalf("got %T, want *node.InternalNode", s.Get(id))
	}
	if got.RightChild != 7 {
		t.Errorf("got RightChild %v, want 7", got.RightChild)
	}
}

func TestAllocatedCountsEveryTouchedPage(t *testing.T) {
	s := memory.New()
	if s.Allocated() != 1 {
		t.Fatalf("fresh store reports %d allocated pages, want 1 (the root)", s.Allocated())
	}
	s.Alloc()
	s.Get(pageid.PageID(50))
	if s.Allocated() != 3 {
		t.Errorf("got %d allocated pages, want 3", s.Allocated())
	}
}
