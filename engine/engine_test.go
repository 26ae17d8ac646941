package engine

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtree/record"
)

func openEngine(t *testing.T, fs afero.Fs, path string) *Engine {
	t.Helper()
	e, err := Open(path, WithFs(fs))
	require.NoError(t, err)
	return e
}

func TestEmptySelect(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	rows, err := e.ExecuteSelect()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInsertThenSelect(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	require.NoError(t, e.ExecuteInsert(record.Row{ID: 1, Username: "alice", Email: "alice@x"}))
	require.NoError(t, e.ExecuteInsert(record.Row{ID: 2, Username: "bob", Email: "bob@x"}))

	rows, err := e.ExecuteSelect()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, record.Row{ID: 1, Username: "alice", Email: "alice@x"}, rows[0])
	assert.Equal(t, record.Row{ID: 2, Username: "bob", Email: "bob@x"}, rows[1])
}

func TestDuplicateInsertRejectedAndStateUnchanged(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	require.NoError(t, e.ExecuteInsert(record.Row{ID: 1, Username: "a", Email: "a@x"}))
	err := e.ExecuteInsert(record.Row{ID: 1, Username: "b", Email: "b@x"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	rows, err := e.ExecuteSelect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Username)
}

func TestPersistenceAcrossCloseAndReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	for id := uint32(1); id <= 3; id++ {
		require.NoError(t, e.ExecuteInsert(record.Row{ID: id, Username: "u", Email: "e@x"}))
	}
	require.NoError(t, e.Close())

	e2 := openEngine(t, fs, "t.db")
	defer e2.Close()
	rows, err := e2.ExecuteSelect()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, uint32(i+1), r.ID)
	}
}

func TestFileIntegrityIsMultipleOfPageSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	for id := uint32(1); id <= 30; id++ {
		require.NoError(t, e.ExecuteInsert(record.Row{ID: id, Username: "u", Email: "e@x"}))
	}
	require.NoError(t, e.Close())

	data, err := afero.ReadFile(fs, "t.db")
	require.NoError(t, err)
	assert.Zero(t, len(data)%4096)
}

func TestLeafSplitScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	for id := uint32(1); id <= 14; id++ {
		require.NoError(t, e.ExecuteInsert(record.Row{ID: id, Username: "u", Email: "e@x"}))
	}
	rows, err := e.ExecuteSelect()
	require.NoError(t, err)
	require.Len(t, rows, 14)
	for i, r := range rows {
		assert.Equal(t, uint32(i+1), r.ID)
	}
}

func TestConstants(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	c := e.Constants()
	assert.EqualValues(t, 293, c.RowSize)
	assert.EqualValues(t, 6, c.CommonHeaderSize)
	assert.EqualValues(t, 10, c.LeafHeaderSize)
	assert.EqualValues(t, 297, c.LeafCellSize)
	assert.EqualValues(t, 13, c.LeafMaxCells)
}

func TestBTreeDumpBeforeAnySplit(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	require.NoError(t, e.ExecuteInsert(record.Row{ID: 3, Username: "c", Email: "c@x"}))
	require.NoError(t, e.ExecuteInsert(record.Row{ID: 1, Username: "a", Email: "a@x"}))

	dump, err := e.BTreeDump()
	require.NoError(t, err)
	assert.EqualValues(t, 2, dump.NumCells)
	assert.Equal(t, []uint32{1, 3}, dump.Keys)
}

func TestBTreeDumpTextAfterSplit(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	for id := uint32(1); id <= 14; id++ {
		require.NoError(t, e.ExecuteInsert(record.Row{ID: id, Username: "u", Email: "e@x"}))
	}

	out, err := e.BTreeDumpText()
	require.NoError(t, err)
	assert.Contains(t, out, "internal (size 1)")
	assert.Contains(t, out, "leaf (size 7)")
}

func TestInsertFuzzedRowsRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := openEngine(t, fs, "t.db")
	defer e.Close()

	gofakeit.Seed(2)
	want := make(map[uint32]record.Row)
	for i := uint32(1); i <= 40; i++ {
		r := record.Row{
			ID:       i,
			Username: gofakeit.LetterN(uint(gofakeit.Number(1, record.UsernameCap))),
			Email:    gofakeit.LetterN(uint(gofakeit.Number(1, record.EmailCap))),
		}
		require.NoError(t, e.ExecuteInsert(r))
		want[i] = r
	}

	rows, err := e.ExecuteSelect()
	require.NoError(t, err)
	require.Len(t, rows, len(want))
	for i, r := range rows {
		assert.Equal(t, uint32(i+1), r.ID)
		assert.Equal(t, want[r.ID], r)
	}
}
