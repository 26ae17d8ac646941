package pager

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEmptyFileHasZeroPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, uint32(0), p.NumPages())
}

func TestOpenRejectsPartialPageFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.db", make([]byte, PageSize+1), 0644))

	_, err := Open(fs, "bad.db", nil)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestGetPageMaterializesAndBumpsNumPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)
	defer p.Close()

	buf, err := p.GetPage(0)
	require.NoError(t, err)
	assert.NotNil(t, buf)
	assert.Equal(t, uint32(1), p.NumPages())
}

func TestGetPageOutOfBoundsIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GetPage(MaxPages)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestFlushPersistsToUnderlyingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)

	buf, err := p.GetPage(0)
	require.NoError(t, err)
	buf[0] = 0xAB
	p.MarkDirty(0)
	require.NoError(t, p.Flush(0))
	require.NoError(t, p.Close())

	data, err := afero.ReadFile(fs, "test.db")
	require.NoError(t, err)
	require.Len(t, data, PageSize)
	assert.Equal(t, byte(0xAB), data[0])
}

func TestFlushUnloadedPageIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)
	defer p.Close()

	err = p.Flush(5)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestCloseWritesEveryLoadedPageAndIsAMultipleOfPageSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)

	for i := uint32(0); i < 3; i++ {
		buf, err := p.GetPage(i)
		require.NoError(t, err)
		buf[0] = byte(i + 1)
		p.MarkDirty(i)
	}
	require.NoError(t, p.Close())

	data, err := afero.ReadFile(fs, "test.db")
	require.NoError(t, err)
	assert.Equal(t, 3*PageSize, len(data))
	assert.Zero(t, len(data)%PageSize)
}

func TestReopenSeesPersistedPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "test.db", nil)
	require.NoError(t, err)
	buf, err := p.GetPage(0)
	require.NoError(t, err)
	buf[3] = 0x42
	p.MarkDirty(0)
	require.NoError(t, p.Close())

	p2, err := Open(fs, "test.db", nil)
	require.NoError(t, err)
	defer p2.Close()
	assert.Equal(t, uint32(1), p2.NumPages())

	buf2, err := p2.GetPage(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), buf2[3])
}
