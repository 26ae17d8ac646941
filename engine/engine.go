// Package engine implements the facade (spec C6) that the CLI drives:
// open/close, insert, select, and the debug meta dumps.
package engine

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"rowtree/btree"
	"rowtree/pager"
	"rowtree/record"
)

// Re-exported so callers never need to import btree directly.
var (
	ErrDuplicateKey = btree.ErrDuplicateKey
	ErrTableFull    = btree.ErrTableFull
)

// IsFatal reports whether err must be treated as an unrecoverable I/O
// or layout violation (spec §7) rather than a normal command failure.
func IsFatal(err error) bool { return pager.IsFatal(err) }

// Engine is a single-file, single-process handle onto the table (spec
// §5: "owned exclusively by one engine handle").
type Engine struct {
	pgr  *pager.Pager
	tree *btree.Tree
	log  *zap.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	fs  afero.Fs
	log *zap.Logger
}

// WithFs overrides the filesystem the engine opens its file on.
// Defaults to the real OS filesystem; tests use an in-memory one.
func WithFs(fs afero.Fs) Option { return func(o *options) { o.fs = fs } }

// WithLogger attaches a zap logger for debug/info level engine events.
// Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option { return func(o *options) { o.log = log } }

// Open opens (or creates) the database file at path and returns a
// ready-to-use Engine, materializing an empty leaf root if the file is
// new (spec §4.6).
func Open(path string, opts ...Option) (*Engine, error) {
	o := &options{fs: afero.NewOsFs(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	pgr, err := pager.Open(o.fs, path, o.log)
	if err != nil {
		return nil, err
	}
	tree, err := btree.Open(pgr, o.log)
	if err != nil {
		return nil, err
	}
	return &Engine{pgr: pgr, tree: tree, log: o.log}, nil
}

// Close flushes every loaded page and releases the underlying file
// (spec §4.6, §5).
func (e *Engine) Close() error {
	return e.pgr.Close()
}

// ExecuteInsert performs spec §4.6's insert algorithm: find the
// insertion point, reject an exact duplicate, otherwise insert
// (splitting as needed).
func (e *Engine) ExecuteInsert(row record.Row) error {
	cursor, err := e.tree.Find(row.ID)
	if err != nil {
		return err
	}
	if err := e.tree.Insert(cursor, row.ID, row); err != nil {
		return err
	}
	e.log.Debug("inserted row", zap.Uint32("id", row.ID))
	return nil
}

// ExecuteSelect walks the whole table in ascending key order (spec
// §4.6).
func (e *Engine) ExecuteSelect() ([]record.Row, error) {
	cursor, err := e.tree.TableStart()
	if err != nil {
		return nil, err
	}
	var rows []record.Row
	for !cursor.EndOfTable() {
		row, err := cursor.Row()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if err := cursor.Advance(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Constants returns the static layout sizes for the `.constants` meta
// command.
func (e *Engine) Constants() btree.Meta {
	return e.tree.Constants()
}

// BTreeDump returns the root leaf's size and ordered keys for the
// `.btree` meta command. Only valid while the tree is a single leaf;
// once it has split, use BTreeDumpText instead.
func (e *Engine) BTreeDump() (btree.LeafSummary, error) {
	return e.tree.RootLeafSummary()
}

// BTreeDumpText renders the whole tree, leaf or internal, for the
// `.btree` meta command.
func (e *Engine) BTreeDumpText() (string, error) {
	return e.tree.DumpText()
}
