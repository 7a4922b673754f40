package btree

import (
	"bptreedb/pkg/config"
	"bptreedb/pkg/entry"
	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
)

// splitLeafAndInsert splits a full leaf and inserts e at logical position
// insertIndex, propagating the split upward as needed.
//
// old_max is captured before old is mutated since it is the key the parent
// currently uses as old's separator; failing to capture it early would
// corrupt the separator update below.
func (t *Tree) splitLeafAndInsert(oldID pageid.PageID, old *node.LeafNode, insertIndex int, e entry.Entry) error {
	oldMax := t.maxKey(old)

	newID := t.alloc()
	newLeaf := t.store.Get(newID).(*node.LeafNode)
	newLeaf.SetParent(old.Parent())

	newLeaf.NextLeaf = old.NextLeaf
	old.NextLeaf = newID

	leafMax := t.cfg.LeafMax
	leafLeft := config.LeafLeft(leafMax)
	leafRight := config.LeafRight(leafMax)

	oldCells := old.Cells
	newCells := make([]entry.Entry, leafRight)
	leftCells := make([]entry.Entry, leafLeft)

	for i := leafMax; i >= 0; i-- {
		var cell entry.Entry
		switch {
		case i == insertIndex:
			cell = e
		case i > insertIndex:
			cell = oldCells[i-1]
		default:
			cell = oldCells[i]
		}
		if i >= leafLeft {
			newCells[i%leafLeft] = cell
		} else {
			leftCells[i%leafLeft] = cell
		}
	}
	old.Cells = leftCells
	newLeaf.Cells = newCells
	t.store.Put(oldID, old)
	t.store.Put(newID, newLeaf)

	if old.IsRoot() {
		return t.createNewRoot(newID)
	}
	parentID := old.Parent()
	parent := t.store.Get(parentID).(*node.InternalNode)
	t.updateSeparator(parent, oldMax, t.maxKey(old))
	t.store.Put(parentID, parent)
	return t.internalInsert(parentID, newID)
}

// updateSeparator locates the cell whose separator is oldKey and replaces
// it with newKey, leaving the child pointer unchanged. A node reached
// through RightChild has no separator cell, so nothing changes then.
func (t *Tree) updateSeparator(n *node.InternalNode, oldKey, newKey uint64) {
	idx := findChild(n, oldKey)
	if idx < len(n.Cells) {
		n.Cells[idx].Separator = newKey
	}
}

// internalInsert adds childID under parentID, using max_key(child) as the
// new cell's separator.
func (t *Tree) internalInsert(parentID pageid.PageID, childID pageid.PageID) error {
	parent := t.store.Get(parentID).(*node.InternalNode)
	child := t.store.Get(childID)
	childMax := t.maxKey(child)
	n := len(parent.Cells)

	if n >= t.cfg.InternalMax {
		return t.splitInternal(parentID, childID)
	}
	if !parent.RightChild.Valid() {
		parent.RightChild = childID
		t.store.Put(parentID, parent)
		return nil
	}

	r := parent.RightChild
	rMax := t.maxKey(t.store.Get(r))
	idx := findChild(parent, childMax)
	if childMax > rMax {
		parent.Cells = append(parent.Cells, node.InternalCell{Child: r, Separator: rMax})
		parent.RightChild = childID
	} else {
		parent.Cells = append(parent.Cells, node.InternalCell{})
		copy(parent.Cells[idx+1:], parent.Cells[idx:n])
		parent.Cells[idx] = node.InternalCell{Child: childID, Separator: childMax}
	}
	t.store.Put(parentID, parent)
	return nil
}

// createNewRoot is called when the current root (page 0) must be split.
// rightID is the newly created sibling of the old root's "left half".
func (t *Tree) createNewRoot(rightID pageid.PageID) error {
	root := t.store.Get(pageid.RootPageID)
	if root.Type() == node.Internal {
		// The right sibling must become internal too, rather than keep its
		// default-leaf identity from allocation.
		t.store.Put(rightID, node.NewInternal())
	}
	right := t.store.Get(rightID)

	leftID := t.alloc()
	left := root.Copy()
	left.SetRoot(false)
	t.store.Put(leftID, left)

	if leftInternal, ok := left.(*node.InternalNode); ok {
		// The children previously pointed at page 0; they must be
		// reparented to the left node's new home.
		for _, cell := range leftInternal.Cells {
			c := t.store.Get(cell.Child)
			c.SetParent(leftID)
			t.store.Put(cell.Child, c)
		}
		c := t.store.Get(leftInternal.RightChild)
		c.SetParent(leftID)
		t.store.Put(leftInternal.RightChild, c)
	}

	newRoot := node.NewInternal()
	newRoot.SetRoot(true)
	newRoot.Cells = []node.InternalCell{{Child: leftID, Separator: t.maxKey(left)}}
	newRoot.RightChild = rightID
	t.store.Put(pageid.RootPageID, newRoot)

	left.SetParent(pageid.RootPageID)
	t.store.Put(leftID, left)
	right.SetParent(pageid.RootPageID)
	t.store.Put(rightID, right)
	return nil
}

// splitInternal splits a full internal node and inserts one more
// (childID, max_key(child)) entry, possibly cascading into a root split.
func (t *Tree) splitInternal(parentID pageid.PageID, childID pageid.PageID) error {
	oldID := parentID
	old := t.store.Get(oldID).(*node.InternalNode)
	oldMaxKey := t.maxKey(old)

	child := t.store.Get(childID)
	childMax := t.maxKey(child)

	newID := t.alloc()
	splittingRoot := old.IsRoot()

	if splittingRoot {
		if err := t.createNewRoot(newID); err != nil {
			return err
		}
		root := t.store.Get(pageid.RootPageID).(*node.InternalNode)
		oldID = root.Cells[0].Child
		old = t.store.Get(oldID).(*node.InternalNode)
	} else {
		t.store.Put(newID, node.NewInternal())
	}

	// Move the right half of old into the new node, starting with its
	// right child.
	curID := old.RightChild
	if err := t.internalInsert(newID, curID); err != nil {
		return err
	}
	cur := t.store.Get(curID)
	cur.SetParent(newID)
	t.store.Put(curID, cur)
	old.RightChild = pageid.InvalidPage

	mid := t.cfg.InternalMax / 2
	for i := t.cfg.InternalMax - 1; i > mid; i-- {
		curID = old.Cells[i].Child
		if err := t.internalInsert(newID, curID); err != nil {
			return err
		}
		cur = t.store.Get(curID)
		cur.SetParent(newID)
		t.store.Put(curID, cur)
		old.Cells = old.Cells[:len(old.Cells)-1]
	}

	// Promote the middle: old's new right child is the former middle
	// pointer, and old keeps one fewer key than before.
	old.RightChild = old.Cells[len(old.Cells)-1].Child
	old.Cells = old.Cells[:len(old.Cells)-1]

	destID := oldID
	if childMax >= t.maxKey(old) {
		destID = newID
	}
	if err := t.internalInsert(destID, childID); err != nil {
		return err
	}
	child = t.store.Get(childID)
	child.SetParent(destID)
	t.store.Put(childID, child)

	parentID = old.Parent()
	parent := t.store.Get(parentID).(*node.InternalNode)
	t.updateSeparator(parent, oldMaxKey, t.maxKey(old))
	t.store.Put(parentID, parent)
	t.store.Put(oldID, old)

	if !splittingRoot {
		// Set the parent before inserting: if the insert splits the parent
		// in turn, that split reparents the new node itself.
		newNode := t.store.Get(newID)
		newNode.SetParent(old.Parent())
		t.store.Put(newID, newNode)
		if err := t.internalInsert(old.Parent(), newID); err != nil {
			return err
		}
	}
	return nil
}

// alloc is a thin wrapper over the store's allocator, kept as its own
// method so split routines read the same way the design document's
// algorithm does (alloc(), then a fetch of the default-leaf page).
func (t *Tree) alloc() pageid.PageID {
	return t.store.Alloc()
}
