package btree

import "rowtree/record"

// Cursor is a positional iterator over leaf cells (spec C5): the pair
// (page_num, cell_num) plus a derived end-of-table flag.
type Cursor struct {
	tree       *Tree
	pageNum    uint32
	cellNum    uint32
	endOfTable bool
}

// TableStart returns a cursor positioned at the first row, descending
// to the leftmost leaf if the root has already split (spec §9 Open
// Question 4).
func (t *Tree) TableStart() (*Cursor, error) {
	pageNum := RootPageNum
	for {
		node, err := t.pgr.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		if GetNodeType(node) == NodeLeaf {
			c := &Cursor{tree: t, pageNum: pageNum, cellNum: 0}
			c.endOfTable = LeafNumCells(node) == 0
			return c, nil
		}
		pageNum = Child(node, 0)
	}
}

// TableFind returns the cursor produced by looking up key (spec C5).
func (t *Tree) TableFind(key uint32) (*Cursor, error) {
	return t.Find(key)
}

// Value returns a mutable byte view into the current cell's value
// slot.
func (c *Cursor) Value() ([]byte, error) {
	page, err := c.tree.pgr.GetPage(c.pageNum)
	if err != nil {
		return nil, err
	}
	return LeafValue(page, c.cellNum), nil
}

// Row deserializes the row at the cursor's current position.
func (c *Cursor) Row() (record.Row, error) {
	page, err := c.tree.pgr.GetPage(c.pageNum)
	if err != nil {
		return record.Row{}, err
	}
	return LeafRow(page, c.cellNum)
}

// EndOfTable reports whether the cursor has advanced past the last
// row.
func (c *Cursor) EndOfTable() bool { return c.endOfTable }

// Advance moves to the next cell in key order, crossing into the next
// leaf via the parent chain once the current leaf is exhausted.
func (c *Cursor) Advance() error {
	page, err := c.tree.pgr.GetPage(c.pageNum)
	if err != nil {
		return err
	}
	c.cellNum++
	if c.cellNum < LeafNumCells(page) {
		return nil
	}

	next, err := c.tree.nextLeafAfter(c.pageNum)
	if err != nil {
		return err
	}
	if next == noMoreLeaves {
		c.endOfTable = true
		return nil
	}
	c.pageNum = next
	c.cellNum = 0
	nextPage, err := c.tree.pgr.GetPage(next)
	if err != nil {
		return err
	}
	c.endOfTable = LeafNumCells(nextPage) == 0
	return nil
}

const noMoreLeaves = ^uint32(0)

// nextLeafAfter climbs from a leaf page through its ancestors to find
// the next leaf in key order, or noMoreLeaves if none remains. Tree
// depth never exceeds 2 in this implementation (internal-node splits
// beyond the first root split are out of scope), so this climbs at
// most one level.
func (t *Tree) nextLeafAfter(leafPageNum uint32) (uint32, error) {
	leaf, err := t.pgr.GetPage(leafPageNum)
	if err != nil {
		return 0, err
	}
	if IsRoot(leaf) {
		return noMoreLeaves, nil
	}

	childPage := leafPageNum
	parentPageNum := ParentPageNum(leaf)
	for {
		parent, err := t.pgr.GetPage(parentPageNum)
		if err != nil {
			return 0, err
		}
		idx := findChildIndex(parent, childPage)
		numKeys := InternalNumKeys(parent)
		if idx < numKeys {
			return t.leftmostLeafFrom(Child(parent, idx+1))
		}
		// childPage was the rightmost child of parent; climb further.
		if IsRoot(parent) {
			return noMoreLeaves, nil
		}
		childPage = parentPageNum
		parentPageNum = ParentPageNum(parent)
	}
}

func (t *Tree) leftmostLeafFrom(pageNum uint32) (uint32, error) {
	for {
		node, err := t.pgr.GetPage(pageNum)
		if err != nil {
			return 0, err
		}
		if GetNodeType(node) == NodeLeaf {
			return pageNum, nil
		}
		pageNum = Child(node, 0)
	}
}
