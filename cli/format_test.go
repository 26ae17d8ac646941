package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"rowtree/btree"
	"rowtree/record"
)

func TestPrintRows(t *testing.T) {
	var b strings.Builder
	PrintRows(&b, []record.Row{
		{ID: 1, Username: "alice", Email: "alice@x"},
		{ID: 2, Username: "bob", Email: "bob@x"},
	})
	assert.Equal(t, "(1, alice, alice@x)\n(2, bob, bob@x)\n", b.String())
}

func TestPrintConstants(t *testing.T) {
	var b strings.Builder
	PrintConstants(&b, btree.Meta{
		RowSize:           293,
		CommonHeaderSize:  6,
		LeafHeaderSize:    10,
		LeafCellSize:      297,
		LeafSpaceForCells: 4086,
		LeafMaxCells:      13,
	})
	out := b.String()
	assert.Contains(t, out, "ROW_SIZE: 293")
	assert.Contains(t, out, "LEAF_NODE_MAX_CELLS: 13")
}
