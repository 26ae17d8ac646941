package cli

import (
	"fmt"
	"io"

	"rowtree/btree"
	"rowtree/record"
)

// PrintRow writes a single record in the select-output format.
func PrintRow(w io.Writer, r record.Row) {
	fmt.Fprintf(w, "(%d, %s, %s)\n", r.ID, r.Username, r.Email)
}

// PrintRows writes every record in ascending id order, as `select`
// produces them (spec §8 S2).
func PrintRows(w io.Writer, rows []record.Row) {
	for _, r := range rows {
		PrintRow(w, r)
	}
}

// PrintConstants renders the `.constants` meta dump (spec §4.6).
func PrintConstants(w io.Writer, m btree.Meta) {
	fmt.Fprintf(w, "ROW_SIZE: %d\n", m.RowSize)
	fmt.Fprintf(w, "COMMON_NODE_HEADER_SIZE: %d\n", m.CommonHeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_HEADER_SIZE: %d\n", m.LeafHeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_CELL_SIZE: %d\n", m.LeafCellSize)
	fmt.Fprintf(w, "LEAF_NODE_SPACE_FOR_CELLS: %d\n", m.LeafSpaceForCells)
	fmt.Fprintf(w, "LEAF_NODE_MAX_CELLS: %d\n", m.LeafMaxCells)
}
