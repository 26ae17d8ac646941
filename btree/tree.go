package btree

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rowtree/pager"
	"rowtree/record"
)

// InternalMaxCells bounds how many separator keys an internal node can
// hold. It is large enough (~500+) that, combined with pager.MaxPages,
// the internal root can never actually overflow — splitting an
// already-split internal node is explicitly out of scope (spec §1
// Non-goals: "internal-node splits beyond the first root-split").
const InternalMaxCells = (pager.PageSize - InternalHeaderSize) / InternalCellSize

// RootPageNum is always 0 (spec Invariant 4).
const RootPageNum = 0

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = sentinelError("duplicate key")

// ErrTableFull is returned by Insert when a split would need a page
// beyond pager.MaxPages.
var ErrTableFull = sentinelError("table full")

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

// Tree is the root-management, lookup, and insert layer over a Pager
// (spec C4).
type Tree struct {
	pgr *pager.Pager
	log *zap.Logger
}

// Open wraps an already-open Pager with a Tree, initializing page 0 as
// an empty leaf root if the file is brand new.
func Open(pgr *pager.Pager, log *zap.Logger) (*Tree, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tree{pgr: pgr, log: log}
	if pgr.NumPages() == 0 {
		root, err := pgr.GetPage(RootPageNum)
		if err != nil {
			return nil, err
		}
		InitializeLeaf(root)
		SetIsRoot(root, true)
		pgr.MarkDirty(RootPageNum)
	}
	return t, nil
}

// Find descends from the root and returns a cursor positioned at the
// exact match, or at the insertion point if key is absent (spec §4.4).
func (t *Tree) Find(key uint32) (*Cursor, error) {
	return t.findFrom(RootPageNum, key)
}

func (t *Tree) findFrom(pageNum uint32, key uint32) (*Cursor, error) {
	node, err := t.pgr.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	if GetNodeType(node) == NodeLeaf {
		cellNum := leafFindCell(node, key)
		return &Cursor{tree: t, pageNum: pageNum, cellNum: cellNum}, nil
	}
	child := internalFindChild(node, key)
	return t.findFrom(child, key)
}

// leafFindCell performs the half-open binary search described in spec
// §4.4: returns the exact-match index, or the smallest index whose key
// is >= key (num_cells if all keys are smaller).
func leafFindCell(node *Page, key uint32) uint32 {
	numCells := LeafNumCells(node)
	min, onePastMax := uint32(0), numCells
	for min != onePastMax {
		mid := (min + onePastMax) / 2
		midKey := LeafKey(node, mid)
		if key == midKey {
			return mid
		}
		if key < midKey {
			onePastMax = mid
		} else {
			min = mid + 1
		}
	}
	return min
}

// internalFindChild returns the child whose stored max-key is >= key
// (the smallest such index), or the right child if none match.
func internalFindChild(node *Page, key uint32) uint32 {
	numKeys := InternalNumKeys(node)
	min, onePastMax := uint32(0), numKeys
	for min != onePastMax {
		mid := (min + onePastMax) / 2
		if key <= InternalKey(node, mid) {
			onePastMax = mid
		} else {
			min = mid + 1
		}
	}
	return Child(node, min)
}

// findChildIndex returns the index i such that Child(parent, i) ==
// childPageNum.
func findChildIndex(parent *Page, childPageNum uint32) uint32 {
	numKeys := InternalNumKeys(parent)
	for i := uint32(0); i <= numKeys; i++ {
		if Child(parent, i) == childPageNum {
			return i
		}
	}
	panic("btree: child page not found in parent")
}

// Insert writes key/row at the leaf position identified by cursor,
// splitting the leaf (and, for the first split, promoting a new
// internal root) as needed (spec §4.4).
func (t *Tree) Insert(cursor *Cursor, key uint32, row record.Row) error {
	leaf, err := t.pgr.GetPage(cursor.pageNum)
	if err != nil {
		return err
	}
	numCells := LeafNumCells(leaf)

	if cursor.cellNum < numCells && LeafKey(leaf, cursor.cellNum) == key {
		return ErrDuplicateKey
	}

	if numCells < LeafMaxCells {
		shiftLeafCellsRight(leaf, cursor.cellNum, numCells)
		SetLeafKey(leaf, cursor.cellNum, key)
		if err := record.Serialize(row, LeafValue(leaf, cursor.cellNum)); err != nil {
			return err
		}
		SetLeafNumCells(leaf, numCells+1)
		t.pgr.MarkDirty(cursor.pageNum)
		return nil
	}

	// Splitting a full root leaf needs 2 fresh pages (R and L'); a
	// full non-root leaf needs only 1 (R).
	needed := uint32(1)
	if IsRoot(leaf) {
		needed = 2
	}
	if t.pgr.UnusedPageNum()+needed > pager.MaxPages {
		return ErrTableFull
	}
	return t.splitLeafAndInsert(cursor, key, row)
}

type leafCellValue struct {
	key   uint32
	value [record.Size]byte
}

// splitLeafAndInsert redistributes the old leaf's maxCells+1 conceptual
// cells (its existing cells plus the incoming one) across the old leaf
// and a newly allocated sibling, then promotes the tree as needed.
func (t *Tree) splitLeafAndInsert(cursor *Cursor, key uint32, row record.Row) error {
	oldPageNum := cursor.pageNum
	oldPage, err := t.pgr.GetPage(oldPageNum)
	if err != nil {
		return err
	}
	wasRoot := IsRoot(oldPage)
	parentPageNum := ParentPageNum(oldPage)
	numCells := LeafNumCells(oldPage)

	total := numCells + 1
	cells := make([]leafCellValue, total)
	var newCell leafCellValue
	newCell.key = key
	if err := record.Serialize(row, newCell.value[:]); err != nil {
		return err
	}
	for dst := uint32(0); dst < total; dst++ {
		if dst == cursor.cellNum {
			cells[dst] = newCell
			continue
		}
		src := dst
		if dst > cursor.cellNum {
			src = dst - 1
		}
		cells[dst] = leafCellValue{key: LeafKey(oldPage, src)}
		copy(cells[dst].value[:], LeafValue(oldPage, src))
	}

	rightPageNum := t.pgr.UnusedPageNum()
	rightPage, err := t.pgr.GetPage(rightPageNum)
	if err != nil {
		return err
	}
	InitializeLeaf(rightPage)
	SetParentPageNum(rightPage, parentPageNum)
	for i := uint32(0); i < LeafRightSplitCount; i++ {
		c := cells[LeafLeftSplitCount+i]
		SetLeafKey(rightPage, i, c.key)
		copy(LeafValue(rightPage, i), c.value[:])
	}
	SetLeafNumCells(rightPage, LeafRightSplitCount)

	for i := uint32(0); i < LeafLeftSplitCount; i++ {
		c := cells[i]
		SetLeafKey(oldPage, i, c.key)
		copy(LeafValue(oldPage, i), c.value[:])
	}
	SetLeafNumCells(oldPage, LeafLeftSplitCount)
	t.pgr.MarkDirty(oldPageNum)
	t.pgr.MarkDirty(rightPageNum)

	t.log.Debug("leaf split", zap.Uint32("left", oldPageNum), zap.Uint32("right", rightPageNum))

	if wasRoot {
		return t.splitRoot(oldPageNum, rightPageNum)
	}
	return t.insertIntoInternal(parentPageNum, oldPageNum, rightPageNum)
}

// splitRoot handles spec §4.4's root-split: the old root leaf's
// post-split contents are relocated to a fresh page L' (page 0 must
// remain the root), and page 0 is rewritten as the new internal root.
func (t *Tree) splitRoot(oldRootPageNum, rightPageNum uint32) error {
	oldRoot, err := t.pgr.GetPage(oldRootPageNum)
	if err != nil {
		return err
	}

	leftPageNum := t.pgr.UnusedPageNum()
	leftPage, err := t.pgr.GetPage(leftPageNum)
	if err != nil {
		return err
	}
	*leftPage = *oldRoot
	SetIsRoot(leftPage, false)
	SetParentPageNum(leftPage, RootPageNum)
	t.pgr.MarkDirty(leftPageNum)

	rightPage, err := t.pgr.GetPage(rightPageNum)
	if err != nil {
		return err
	}
	SetParentPageNum(rightPage, RootPageNum)
	t.pgr.MarkDirty(rightPageNum)

	InitializeInternal(oldRoot)
	SetIsRoot(oldRoot, true)
	SetInternalNumKeys(oldRoot, 1)
	SetInternalCellChild(oldRoot, 0, leftPageNum)
	SetInternalKey(oldRoot, 0, MaxKey(leftPage))
	SetInternalRightChild(oldRoot, rightPageNum)
	t.pgr.MarkDirty(oldRootPageNum)

	t.log.Debug("root split", zap.Uint32("left", leftPageNum), zap.Uint32("right", rightPageNum))
	return nil
}

// insertIntoInternal splices a new (rightChild, key=maxKey(rightChild))
// entry into parent, next to leftChild, and refreshes leftChild's own
// separator key since its max key shrank after the split.
func (t *Tree) insertIntoInternal(parentPageNum, leftChildPageNum, rightChildPageNum uint32) error {
	parent, err := t.pgr.GetPage(parentPageNum)
	if err != nil {
		return err
	}
	leftChild, err := t.pgr.GetPage(leftChildPageNum)
	if err != nil {
		return err
	}
	rightChild, err := t.pgr.GetPage(rightChildPageNum)
	if err != nil {
		return err
	}

	numKeys := InternalNumKeys(parent)
	if numKeys >= InternalMaxCells {
		return pager.NewFatal("internal node split not supported (parent page %d full)", parentPageNum)
	}

	idx := findChildIndex(parent, leftChildPageNum)
	newLeftMax := MaxKey(leftChild)
	rightMax := MaxKey(rightChild)

	if idx == numKeys {
		// leftChild was the rightmost child; it now gets a key cell of
		// its own, and rightChild becomes the new rightmost child.
		SetInternalCellChild(parent, numKeys, leftChildPageNum)
		SetInternalKey(parent, numKeys, newLeftMax)
		SetInternalRightChild(parent, rightChildPageNum)
	} else {
		shiftInternalCellsRight(parent, idx+1, numKeys)
		SetInternalKey(parent, idx, newLeftMax)
		SetInternalCellChild(parent, idx+1, rightChildPageNum)
		SetInternalKey(parent, idx+1, rightMax)
	}
	SetInternalNumKeys(parent, numKeys+1)
	SetParentPageNum(rightChild, parentPageNum)

	t.pgr.MarkDirty(parentPageNum)
	t.pgr.MarkDirty(rightChildPageNum)
	return nil
}

// Meta describes the tree's static layout constants (spec C6
// `.constants`).
type Meta struct {
	RowSize          uint32
	CommonHeaderSize uint32
	LeafHeaderSize   uint32
	LeafCellSize     uint32
	LeafSpaceForCells uint32
	LeafMaxCells     uint32
}

// Constants returns the static layout constants.
func (t *Tree) Constants() Meta {
	return Meta{
		RowSize:           record.Size,
		CommonHeaderSize:  CommonHeaderSize,
		LeafHeaderSize:    LeafHeaderSize,
		LeafCellSize:      LeafCellSize,
		LeafSpaceForCells: leafSpaceCells,
		LeafMaxCells:      LeafMaxCells,
	}
}

// LeafSummary describes a leaf's size and keys for `.btree` dumps.
type LeafSummary struct {
	NumCells uint32
	Keys     []uint32
}

// RootLeafSummary dumps the root page's size and ordered keys; it only
// succeeds while the root is still a single leaf. DumpText handles any
// depth.
func (t *Tree) RootLeafSummary() (LeafSummary, error) {
	root, err := t.pgr.GetPage(RootPageNum)
	if err != nil {
		return LeafSummary{}, err
	}
	if GetNodeType(root) != NodeLeaf {
		return LeafSummary{}, pager.NewFatal("root is not a leaf")
	}
	n := LeafNumCells(root)
	keys := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		keys[i] = LeafKey(root, i)
	}
	return LeafSummary{NumCells: n, Keys: keys}, nil
}

// DumpText renders the whole tree recursively for the `.btree` meta
// command: a leaf prints its size and keys, an internal node prints
// its size and recurses into each child in key order.
func (t *Tree) DumpText() (string, error) {
	var b strings.Builder
	if err := t.dumpNode(&b, RootPageNum, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (t *Tree) dumpNode(b *strings.Builder, pageNum uint32, depth int) error {
	indent := strings.Repeat("  ", depth)
	node, err := t.pgr.GetPage(pageNum)
	if err != nil {
		return err
	}
	if GetNodeType(node) == NodeLeaf {
		n := LeafNumCells(node)
		fmt.Fprintf(b, "%sleaf (size %d)\n", indent, n)
		for i := uint32(0); i < n; i++ {
			fmt.Fprintf(b, "%s  - %d\n", indent, LeafKey(node, i))
		}
		return nil
	}
	numKeys := InternalNumKeys(node)
	fmt.Fprintf(b, "%sinternal (size %d)\n", indent, numKeys)
	for i := uint32(0); i < numKeys; i++ {
		if err := t.dumpNode(b, Child(node, i), depth+1); err != nil {
			return err
		}
		fmt.Fprintf(b, "%s  - key %d\n", indent, InternalKey(node, i))
	}
	return t.dumpNode(b, Child(node, numKeys), depth+1)
}
