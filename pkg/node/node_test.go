package node_test

import (
	"testing"

	"bptreedb/pkg/entry"
	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
)

func TestLeafCopyIsIndependent(t *testing.T) {
	l := node.NewLeaf()
	l.SetParent(5)
	l.Cells = []entry.Entry{entry.New(1, []byte("a"))}
	l.NextLeaf = 9

	cp := l.Copy().(*node.LeafNode)
	cp.Cells[0].Key = 2
	cp.SetParent(6)

	if l.Cells[0].Key != 1 {
		t.Errorf("mutating the copy's cells mutated the original")
	}
	if l.Parent() != 5 {
		t.Errorf("mutating the copy's parent mutated the original")
	}
	if cp.NextLeaf != 9 {
		t.Errorf("Copy lost NextLeaf")
	}
}

func TestInternalCopyIsIndependent(t *testing.T) {
	n := node.NewInternal()
	n.Cells = []node.InternalCell{{Child: 1, Separator: 10}}
	n.RightChild = 2

	cp := n.Copy().(*node.InternalNode)
	cp.Cells[0].Separator = 99

	if n.Cells[0].Separator != 10 {
		t.Errorf("mutating the copy's cells mutated the original")
	}
}

func TestNewInternalHasUnpopulatedRightChild(t *testing.T) {
	n := node.NewInternal()
	if n.RightChild.Valid() {
		t.Errorf("fresh internal node should have an unpopulated right child")
	}
	if n.RightChild != pageid.InvalidPage {
		t.Errorf("got %v, want pageid.InvalidPage", n.RightChild)
	}
}

func TestNewLeafHasNoSibling(t *testing.T) {
	l := node.NewLeaf()
	if l.NextLeaf != pageid.NoSibling {
		t.Errorf("got %v, want pageid.NoSibling", l.NextLeaf)
	}
}
