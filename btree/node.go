// Package btree implements the node layout, tree, and cursor (spec
// C2, C4, C5): a paged B+-tree over fixed-width rows. Nodes are typed
// accessors over a raw 4 KiB page buffer owned by the pager.
package btree

import (
	"encoding/binary"
	"fmt"

	"rowtree/pager"
	"rowtree/record"
)

// Page is the raw buffer a node is interpreted over.
type Page = [pager.PageSize]byte

// GetNodeType reads the common header's node_type field.
func GetNodeType(p *Page) NodeType { return NodeType(p[NodeTypeOffset]) }

// SetNodeType writes the common header's node_type field.
func SetNodeType(p *Page, t NodeType) { p[NodeTypeOffset] = byte(t) }

// IsRoot reads the common header's is_root flag.
func IsRoot(p *Page) bool { return p[IsRootOffset] != 0 }

// SetIsRoot writes the common header's is_root flag.
func SetIsRoot(p *Page, v bool) {
	if v {
		p[IsRootOffset] = 1
	} else {
		p[IsRootOffset] = 0
	}
}

// ParentPageNum reads the reserved parent pointer.
func ParentPageNum(p *Page) uint32 {
	return binary.LittleEndian.Uint32(p[ParentPointerOffset : ParentPointerOffset+ParentPointerSize])
}

// SetParentPageNum writes the reserved parent pointer.
func SetParentPageNum(p *Page, n uint32) {
	binary.LittleEndian.PutUint32(p[ParentPointerOffset:ParentPointerOffset+ParentPointerSize], n)
}

// --- Leaf node body ---

// LeafNumCells reads the leaf header's num_cells field.
func LeafNumCells(p *Page) uint32 {
	return binary.LittleEndian.Uint32(p[LeafNumCellsOffset : LeafNumCellsOffset+LeafNumCellsSize])
}

// SetLeafNumCells writes the leaf header's num_cells field.
func SetLeafNumCells(p *Page, n uint32) {
	binary.LittleEndian.PutUint32(p[LeafNumCellsOffset:LeafNumCellsOffset+LeafNumCellsSize], n)
}

func leafCellOffset(cellNum uint32) uint32 {
	return LeafHeaderSize + cellNum*LeafCellSize
}

// LeafKey reads the key of leaf cell cellNum.
func LeafKey(p *Page, cellNum uint32) uint32 {
	off := leafCellOffset(cellNum)
	return binary.LittleEndian.Uint32(p[off : off+LeafKeySize])
}

// SetLeafKey writes the key of leaf cell cellNum.
func SetLeafKey(p *Page, cellNum uint32, key uint32) {
	off := leafCellOffset(cellNum)
	binary.LittleEndian.PutUint32(p[off:off+LeafKeySize], key)
}

// LeafValue returns a mutable view into the value slot of leaf cell
// cellNum (spec C5 cursor.value()).
func LeafValue(p *Page, cellNum uint32) []byte {
	off := leafCellOffset(cellNum) + LeafKeySize
	return p[off : off+LeafValueSize]
}

// LeafRow deserializes the row stored at leaf cell cellNum.
func LeafRow(p *Page, cellNum uint32) (record.Row, error) {
	return record.Deserialize(LeafValue(p, cellNum))
}

// InitializeLeaf zeroes and marks p as an empty, non-root leaf.
func InitializeLeaf(p *Page) {
	*p = Page{}
	SetNodeType(p, NodeLeaf)
	SetIsRoot(p, false)
	SetLeafNumCells(p, 0)
}

// shiftLeafCellsRight moves cells [from, numCells) up by one slot,
// making room to insert at index from.
func shiftLeafCellsRight(p *Page, from, numCells uint32) {
	for i := numCells; i > from; i-- {
		copy(p[leafCellOffset(i):leafCellOffset(i)+LeafCellSize], p[leafCellOffset(i-1):leafCellOffset(i-1)+LeafCellSize])
	}
}

// --- Internal node body ---

// InternalNumKeys reads the internal header's num_keys field.
func InternalNumKeys(p *Page) uint32 {
	return binary.LittleEndian.Uint32(p[InternalNumKeysOffset : InternalNumKeysOffset+InternalNumKeysSize])
}

// SetInternalNumKeys writes the internal header's num_keys field.
func SetInternalNumKeys(p *Page, n uint32) {
	binary.LittleEndian.PutUint32(p[InternalNumKeysOffset:InternalNumKeysOffset+InternalNumKeysSize], n)
}

// InternalRightChild reads the rightmost child pointer.
func InternalRightChild(p *Page) uint32 {
	return binary.LittleEndian.Uint32(p[InternalRightChildOffset : InternalRightChildOffset+InternalRightChildSize])
}

// SetInternalRightChild writes the rightmost child pointer.
func SetInternalRightChild(p *Page, child uint32) {
	binary.LittleEndian.PutUint32(p[InternalRightChildOffset:InternalRightChildOffset+InternalRightChildSize], child)
}

func internalCellOffset(cellNum uint32) uint32 {
	return InternalHeaderSize + cellNum*InternalCellSize
}

// InternalCellChild reads cell i's child pointer (i < num_keys).
func InternalCellChild(p *Page, i uint32) uint32 {
	off := internalCellOffset(i)
	return binary.LittleEndian.Uint32(p[off : off+InternalChildSize])
}

// SetInternalCellChild writes cell i's child pointer.
func SetInternalCellChild(p *Page, i uint32, child uint32) {
	off := internalCellOffset(i)
	binary.LittleEndian.PutUint32(p[off:off+InternalChildSize], child)
}

// InternalKey reads cell i's separator key (i < num_keys).
func InternalKey(p *Page, i uint32) uint32 {
	off := internalCellOffset(i) + InternalChildSize
	return binary.LittleEndian.Uint32(p[off : off+InternalKeySize])
}

// SetInternalKey writes cell i's separator key.
func SetInternalKey(p *Page, i uint32, key uint32) {
	off := internalCellOffset(i) + InternalChildSize
	binary.LittleEndian.PutUint32(p[off:off+InternalKeySize], key)
}

// shiftInternalCellsRight moves cells [from, numKeys) up by one slot,
// making room to insert at index from.
func shiftInternalCellsRight(p *Page, from, numKeys uint32) {
	for i := numKeys; i > from; i-- {
		copy(p[internalCellOffset(i):internalCellOffset(i)+InternalCellSize], p[internalCellOffset(i-1):internalCellOffset(i-1)+InternalCellSize])
	}
}

// Child returns child i: the right child when i == num_keys, else the
// child field of cell i. Accessing i > num_keys is a programming error
// (spec §4.2) and panics.
func Child(p *Page, i uint32) uint32 {
	numKeys := InternalNumKeys(p)
	if i > numKeys {
		panic(fmt.Sprintf("btree: child index %d out of bounds (num_keys=%d)", i, numKeys))
	}
	if i == numKeys {
		return InternalRightChild(p)
	}
	return InternalCellChild(p, i)
}

// InitializeInternal zeroes and marks p as an empty, non-root internal
// node.
func InitializeInternal(p *Page) {
	*p = Page{}
	SetNodeType(p, NodeInternal)
	SetIsRoot(p, false)
	SetInternalNumKeys(p, 0)
}

// MaxKey returns the node's last key: for a leaf, its largest key; for
// an internal node, its last separator key, which every key in the
// right child's subtree exceeds (spec §4.2).
func MaxKey(p *Page) uint32 {
	if GetNodeType(p) == NodeLeaf {
		n := LeafNumCells(p)
		return LeafKey(p, n-1)
	}
	n := InternalNumKeys(p)
	return InternalKey(p, n-1)
}
