// Package btree implements the B+tree index engine described in the
// project's design: key-ordered search, leaf/internal split-and-insert,
// root promotion, sibling-pointer maintenance, and an in-order cursor.
// It consumes a pagestore.PageStore for all physical storage and never
// assumes anything about how pages are kept.
package btree

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"bptreedb/pkg/config"
	"bptreedb/pkg/entry"
	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
	"bptreedb/pkg/pagestore"
)

// ErrDuplicateKey is returned by Insert when an entry already exists with
// the given key. No mutation occurs when this is returned.
var ErrDuplicateKey = errors.New("btree: duplicate key")

// Tree is an index over a PageStore that maps unique, ascending unsigned
// integer keys to opaque byte-slice values.
type Tree struct {
	store pagestore.PageStore
	cfg   config.Config
}

// New returns a Tree backed by store, using cfg's LeafMax/InternalMax split
// thresholds. The store is expected to already hold an empty, root-marked
// leaf at page 0 (pagestore/memory.New and pagestore/disk.New both do this).
func New(store pagestore.PageStore, cfg config.Config) *Tree {
	return &Tree{store: store, cfg: cfg}
}

// Store returns the tree's underlying page store.
func (t *Tree) Store() pagestore.PageStore {
	return t.store
}

// maxKey returns the canonical separator value for n: for a leaf, the last
// cell's key; for an internal node, the max_key of its right child.
func (t *Tree) maxKey(n node.Node) uint64 {
	switch v := n.(type) {
	case *node.LeafNode:
		if len(v.Cells) == 0 {
			panic("btree: invariant violation: max_key on empty leaf")
		}
		return v.Cells[len(v.Cells)-1].Key
	case *node.InternalNode:
		if !v.RightChild.Valid() {
			panic("btree: invariant violation: max_key on internal node with unpopulated right child")
		}
		return t.maxKey(t.store.Get(v.RightChild))
	default:
		panic("btree: invariant violation: unknown node variant")
	}
}

// searchLeaf returns the first index where cells[i].Key >= key, or
// len(cells) if no such index exists.
func searchLeaf(l *node.LeafNode, key uint64) int {
	return sort.Search(len(l.Cells), func(i int) bool { return l.Cells[i].Key >= key })
}

// findChild returns the first index where cells[i].Separator >= key, or
// len(cells) if no such index exists, meaning the right child is routed to.
func findChild(n *node.InternalNode, key uint64) int {
	return sort.Search(len(n.Cells), func(i int) bool { return n.Cells[i].Separator >= key })
}

// descend walks from the root to the leaf that key belongs in, returning
// the leaf's page id and the index within it where key belongs (either an
// exact match or the first greater key).
func (t *Tree) descend(key uint64) (pageid.PageID, int) {
	id := pageid.RootPageID
	for {
		switch n := t.store.Get(id).(type) {
		case *node.InternalNode:
			idx := findChild(n, key)
			if idx == len(n.Cells) {
				if !n.RightChild.Valid() {
					panic("btree: invariant violation: descended into unpopulated right child")
				}
				id = n.RightChild
			} else {
				id = n.Cells[idx].Child
			}
		case *node.LeafNode:
			return id, searchLeaf(n, key)
		default:
			panic("btree: invariant violation: unknown node variant")
		}
	}
}

// Find returns a cursor positioned at the leaf slot where key belongs,
// either at an exact match or at the first greater key.
func (t *Tree) Find(key uint64) *Cursor {
	id, idx := t.descend(key)
	return &Cursor{tree: t, pageID: id, index: idx}
}

// Insert adds a (key, value) entry to the tree. Returns ErrDuplicateKey,
// leaving the tree unchanged, if key is already present.
func (t *Tree) Insert(key uint64, value []byte) error {
	cursor := t.Find(key)
	leaf := t.store.Get(cursor.pageID).(*node.LeafNode)
	if cursor.index < len(leaf.Cells) && leaf.Cells[cursor.index].Key == key {
		return ErrDuplicateKey
	}
	return cursor.leafInsert(key, value)
}

// Start returns a cursor positioned at the smallest key in the tree, or a
// cursor at end-of-table if the tree is empty.
func (t *Tree) Start() *Cursor {
	id, idx := t.descend(0)
	return &Cursor{tree: t, pageID: id, index: idx}
}

// Scan returns every entry in the tree in ascending key order.
func (t *Tree) Scan() []entry.Entry {
	var out []entry.Entry
	c := t.Start()
	if c.AtEnd() {
		return out
	}
	for {
		out = append(out, c.Entry())
		if c.Advance() {
			break
		}
	}
	return out
}

// Print pretty-prints the subtree rooted at page 0 to w.
func (t *Tree) Print(w io.Writer) {
	t.PrintPN(pageid.RootPageID, w)
}

// PrintPN pretty-prints the subtree rooted at pn to w.
func (t *Tree) PrintPN(pn pageid.PageID, w io.Writer) {
	t.printNode(w, pn, 0)
}

func (t *Tree) printNode(w io.Writer, id pageid.PageID, indent int) {
	prefix := strings.Repeat(" ", indent)
	switch n := t.store.Get(id).(type) {
	case *node.LeafNode:
		fmt.Fprintf(w, "%s- leaf (size %d)\n", prefix, len(n.Cells))
		for _, c := range n.Cells {
			fmt.Fprintf(w, "%s  - %d\n", prefix, c.Key)
		}
	case *node.InternalNode:
		fmt.Fprintf(w, "%s- internal (size %d)\n", prefix, len(n.Cells))
		for _, c := range n.Cells {
			t.printNode(w, c.Child, indent+2)
			fmt.Fprintf(w, "%s  - key %d\n", prefix, c.Separator)
		}
		t.printNode(w, n.RightChild, indent+2)
	default:
		panic("btree: invariant violation: unknown node variant")
	}
}
