// Package verify walks a tree's physical page structure and confirms it
// satisfies the B+tree's separator and ordering invariants, independent of
// whatever path was used to build it.
package verify

import (
	"errors"
	"fmt"

	"bptreedb/pkg/btree"
	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
)

// Check walks the tree rooted at page 0 and returns an error describing the
// first invariant violation found, or nil if the tree is well-formed.
func Check(t *btree.Tree) error {
	_, _, err := check(t, pageid.RootPageID)
	return err
}

// check returns the minimum and maximum key in the subtree rooted at id.
func check(t *btree.Tree, id pageid.PageID) (lo, hi uint64, err error) {
	switch n := t.Store().Get(id).(type) {
	case *node.InternalNode:
		return checkInternal(t, n)
	case *node.LeafNode:
		return checkLeaf(n)
	default:
		return 0, 0, errors.New("verify: unknown node variant")
	}
}

func checkInternal(t *btree.Tree, n *node.InternalNode) (lo, hi uint64, err error) {
	if !n.RightChild.Valid() {
		return 0, 0, errors.New("verify: internal node has unpopulated right child")
	}
	children := make([]pageid.PageID, 0, len(n.Cells)+1)
	for _, c := range n.Cells {
		children = append(children, c.Child)
	}
	children = append(children, n.RightChild)

	for i, childID := range children {
		cl, ch, err := check(t, childID)
		if err != nil {
			return 0, 0, err
		}
		if i == 0 {
			lo = cl
		}
		if i == len(children)-1 {
			hi = ch
		}
		if i > 0 {
			sep := n.Cells[i-1].Separator
			if sep >= cl {
				return 0, 0, fmt.Errorf("verify: separator %d does not precede child min %d", sep, cl)
			}
		}
		if i < len(n.Cells) {
			sep := n.Cells[i].Separator
			if sep != ch {
				return 0, 0, fmt.Errorf("verify: separator %d does not equal child max %d", sep, ch)
			}
		}
	}
	return lo, hi, nil
}

func checkLeaf(n *node.LeafNode) (lo, hi uint64, err error) {
	if len(n.Cells) == 0 {
		return 0, 0, nil
	}
	for i := 0; i < len(n.Cells)-1; i++ {
		if n.Cells[i].Key >= n.Cells[i+1].Key {
			return 0, 0, fmt.Errorf("verify: leaf keys out of order at index %d", i)
		}
	}
	return n.Cells[0].Key, n.Cells[len(n.Cells)-1].Key, nil
}
