package btree

import (
	"bptreedb/pkg/entry"
	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
)

// Cursor is a logical position (page id, cell index) inside a leaf node,
// supporting forward iteration and point insertion. It is produced by
// Tree.Find and Tree.Start and is not safe for use after the tree it was
// produced from has been mutated by a concurrent caller (see spec.md §5:
// readers must not interleave with writers).
type Cursor struct {
	tree       *Tree
	pageID     pageid.PageID
	index      int
	endOfTable bool
}

// AtEnd reports whether the cursor has advanced past the last entry. This is
// checked dynamically against the leaf currently under the cursor, not just
// the flag Advance sets, since a cursor landed here by Find may already sit
// past the last cell of the tree's final leaf (querying past the max key, or
// any key against an empty tree) without ever having called Advance.
func (c *Cursor) AtEnd() bool {
	if c.endOfTable {
		return true
	}
	leaf := c.tree.store.Get(c.pageID).(*node.LeafNode)
	return c.index >= len(leaf.Cells) && leaf.NextLeaf == pageid.NoSibling
}

// Entry returns the entry at the cursor's current position. Panics if the
// cursor is at end-of-table or otherwise not pointing at a valid cell.
func (c *Cursor) Entry() entry.Entry {
	leaf := c.tree.store.Get(c.pageID).(*node.LeafNode)
	if c.endOfTable || c.index >= len(leaf.Cells) {
		panic("btree: cursor is not pointing at a valid entry")
	}
	return leaf.Cells[c.index]
}

// Value returns the value at the cursor's current position.
func (c *Cursor) Value() []byte {
	return c.Entry().Value
}

// Advance moves the cursor to the next entry, crossing into the right
// sibling leaf when the current leaf is exhausted. Returns true once the
// cursor has reached end-of-table.
func (c *Cursor) Advance() bool {
	leaf := c.tree.store.Get(c.pageID).(*node.LeafNode)
	c.index++
	if c.index >= len(leaf.Cells) {
		if leaf.NextLeaf == pageid.NoSibling {
			c.endOfTable = true
			return true
		}
		c.pageID = leaf.NextLeaf
		c.index = 0
	}
	return false
}

// leafInsert inserts (key, value) at the cursor's position, splitting the
// leaf first if it is already full.
func (c *Cursor) leafInsert(key uint64, value []byte) error {
	leaf := c.tree.store.Get(c.pageID).(*node.LeafNode)
	e := entry.New(key, value)
	if len(leaf.Cells) >= c.tree.cfg.LeafMax {
		return c.tree.splitLeafAndInsert(c.pageID, leaf, c.index, e)
	}
	leaf.Cells = append(leaf.Cells, entry.Entry{})
	copy(leaf.Cells[c.index+1:], leaf.Cells[c.index:len(leaf.Cells)-1])
	leaf.Cells[c.index] = e
	c.tree.store.Put(c.pageID, leaf)
	return nil
}
