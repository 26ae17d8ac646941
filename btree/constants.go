package btree

import (
	"rowtree/pager"
	"rowtree/record"
)

// Layout constants for the common node header (spec §3 "Common header").
const (
	NodeTypeOffset = 0
	NodeTypeSize   = 1

	IsRootOffset = NodeTypeOffset + NodeTypeSize
	IsRootSize   = 1

	ParentPointerOffset = IsRootOffset + IsRootSize
	ParentPointerSize   = 4

	CommonHeaderSize = ParentPointerOffset + ParentPointerSize // 6
)

// Leaf node header and body layout.
const (
	LeafNumCellsOffset = CommonHeaderSize
	LeafNumCellsSize   = 4

	LeafHeaderSize = LeafNumCellsOffset + LeafNumCellsSize // 10

	LeafKeySize    = 4
	LeafValueSize  = record.Size
	LeafCellSize   = LeafKeySize + LeafValueSize
	leafSpaceCells = pager.PageSize - LeafHeaderSize
	LeafMaxCells   = leafSpaceCells / LeafCellSize

	// Split sizes per spec Invariant 6: ceil/floor((max+1)/2) cells.
	leafSplitTotal      = LeafMaxCells + 1
	LeafLeftSplitCount  = (leafSplitTotal + 1) / 2
	LeafRightSplitCount = leafSplitTotal - LeafLeftSplitCount
)

// Internal node header and body layout.
const (
	InternalNumKeysOffset = CommonHeaderSize
	InternalNumKeysSize   = 4

	InternalRightChildOffset = InternalNumKeysOffset + InternalNumKeysSize
	InternalRightChildSize   = 4

	InternalHeaderSize = InternalRightChildOffset + InternalRightChildSize // 14

	InternalChildSize = 4
	InternalKeySize   = 4
	InternalCellSize  = InternalChildSize + InternalKeySize
)

// NodeType distinguishes leaf from internal pages (spec §3).
type NodeType uint8

const (
	NodeInternal NodeType = 0
	NodeLeaf     NodeType = 1
)
